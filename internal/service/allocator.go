package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/homestash/homestash-server/internal/database"
	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/model"
	"github.com/homestash/homestash-server/internal/repository"
)

const (
	itemCodePrefix      = "ITEM"
	itemCodeDateLayout  = "20060102"
	itemCodeRandomMin   = 10000
	itemCodeRandomSpan  = 90000
	maxItemCodeAttempts = 10

	roomLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// ComposeCellCode builds a storage cell code from its three namespace
// segments, e.g. ("A", 3, 1) -> "A3001". Cell codes are never edited
// independently of these inputs.
func ComposeCellCode(letter string, furnitureID int64, cellNumber int) string {
	return fmt.Sprintf("%s%d%03d", letter, furnitureID, cellNumber)
}

// AllocatorService mints unique codes for items and storage cells.
//
// Storage allocation is serialized per account with an in-process mutex
// on top of the database transaction. The lock must span the whole
// account, not just the (room, furniture) pair: letter assignment reads
// the set of letters across all of the account's rooms, and two
// first-cell allocations in different rooms would otherwise both pick
// the same free letter. The unique constraints on cell_code, letter and
// (room, furniture, cell_number) remain the backstop.
type AllocatorService struct {
	db       database.TxRunner
	itemRepo repository.ItemRepository
	roomRepo repository.RoomRepository
	furnRepo repository.FurnitureRepository
	cellRepo repository.StorageCellRepository

	mu     sync.Mutex
	scopes map[string]*sync.Mutex
}

func NewAllocatorService(
	db database.TxRunner,
	itemRepo repository.ItemRepository,
	roomRepo repository.RoomRepository,
	furnRepo repository.FurnitureRepository,
	cellRepo repository.StorageCellRepository,
) *AllocatorService {
	return &AllocatorService{
		db:       db,
		itemRepo: itemRepo,
		roomRepo: roomRepo,
		furnRepo: furnRepo,
		cellRepo: cellRepo,
		scopes:   make(map[string]*sync.Mutex),
	}
}

// AllocateItemCode returns an item code of the form ITEM-YYYYMMDD-NNNNN
// that no item in the installation currently uses. The random suffix
// does not guarantee uniqueness by construction, so the code is
// existence-checked and re-rolled; after maxItemCodeAttempts collisions
// the caller gets DUPLICATE_CODE and may retry the whole operation.
func (s *AllocatorService) AllocateItemCode(ctx context.Context) (string, error) {
	for attempts := 0; attempts < maxItemCodeAttempts; attempts++ {
		code, err := rollItemCode()
		if err != nil {
			return "", err
		}

		exists, err := s.itemRepo.CodeExists(ctx, code)
		if err != nil {
			return "", apperrors.Database(err)
		}
		if !exists {
			return code, nil
		}

		log.Warn().Str("code", code).Int("attempt", attempts+1).Msg("item code collision, re-rolling")
	}
	return "", apperrors.DuplicateCode("item")
}

func rollItemCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(itemCodeRandomSpan))
	if err != nil {
		return "", apperrors.Internal("failed to draw random code suffix").WithCause(err)
	}
	suffix := itemCodeRandomMin + n.Int64()
	return fmt.Sprintf("%s-%s-%d", itemCodePrefix, time.Now().Format(itemCodeDateLayout), suffix), nil
}

// AllocateStorageCell creates the next storage cell for the given
// (room, furniture) pair, assigning the room its letter first if it has
// none. Letter assignment, cell numbering and the insert run in one
// transaction: the letter write is part of the allocation even though
// the operation looks like a read.
func (s *AllocatorService) AllocateStorageCell(ctx context.Context, accountID string, roomID, furnitureID int64) (*model.StorageCell, error) {
	unlock := s.lockScope(accountID)
	defer unlock()

	var cell *model.StorageCell
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		rooms := s.roomRepo.WithTx(tx)
		cells := s.cellRepo.WithTx(tx)

		room, err := rooms.FindByIDForUpdate(ctx, accountID, roomID)
		if err != nil {
			return apperrors.Database(err)
		}
		if room == nil {
			return apperrors.NotFound("Room")
		}

		furniture, err := s.furnRepo.WithTx(tx).FindByID(ctx, accountID, furnitureID)
		if err != nil {
			return apperrors.Database(err)
		}
		if furniture == nil {
			return apperrors.NotFound("Furniture")
		}

		letter := room.Letter
		if letter == nil {
			next, err := s.nextFreeLetter(ctx, rooms, accountID)
			if err != nil {
				return err
			}
			if err := rooms.SetLetter(ctx, room.ID, next); err != nil {
				return apperrors.Database(err)
			}
			letter = &next
			log.Info().Int64("roomId", room.ID).Str("letter", next).Msg("room letter assigned")
		}

		maxNumber, err := cells.MaxCellNumber(ctx, roomID, furnitureID)
		if err != nil {
			return apperrors.Database(err)
		}

		cellNumber := maxNumber + 1
		cell, err = cells.Create(ctx, model.CreateStorageCellParams{
			AccountID:   accountID,
			RoomID:      roomID,
			FurnitureID: furnitureID,
			CellNumber:  cellNumber,
			CellCode:    ComposeCellCode(*letter, furnitureID, cellNumber),
		})
		if repository.IsUniqueViolation(err) {
			return apperrors.DuplicateCode("storage cell").WithCause(err)
		}
		if err != nil {
			return apperrors.Database(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("cellCode", cell.CellCode).
		Int64("roomId", roomID).
		Int64("furnitureId", furnitureID).
		Msg("storage cell allocated")

	return cell, nil
}

// nextFreeLetter picks the lowest letter A-Z not yet assigned to one of
// the account's rooms. The namespace caps at 26 lettered rooms per
// account; the 27th room fails with EXHAUSTED_NAMESPACE.
func (s *AllocatorService) nextFreeLetter(ctx context.Context, rooms repository.RoomRepository, accountID string) (string, error) {
	assigned, err := rooms.AssignedLetters(ctx, accountID)
	if err != nil {
		return "", apperrors.Database(err)
	}

	taken := make(map[string]bool, len(assigned))
	for _, l := range assigned {
		taken[l] = true
	}

	for _, l := range roomLetters {
		if !taken[string(l)] {
			return string(l), nil
		}
	}
	return "", apperrors.ExhaustedNamespace()
}

func (s *AllocatorService) lockScope(key string) func() {
	s.mu.Lock()
	m, ok := s.scopes[key]
	if !ok {
		m = &sync.Mutex{}
		s.scopes[key] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
