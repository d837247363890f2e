package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/label"
	"github.com/homestash/homestash-server/internal/model"
	"github.com/homestash/homestash-server/internal/repository"
)

type CreateCellResult struct {
	Cell     *model.StorageCellDetail `json:"cell"`
	LabelPNG []byte                   `json:"-"`
}

// StorageService manages rooms, furniture and storage cells. Cell
// creation delegates code allocation to the allocator.
type StorageService struct {
	allocator *AllocatorService
	roomRepo  repository.RoomRepository
	furnRepo  repository.FurnitureRepository
	cellRepo  repository.StorageCellRepository
	labelRepo repository.LabelRepository
	codec     *label.Codec
}

func NewStorageService(
	allocator *AllocatorService,
	roomRepo repository.RoomRepository,
	furnRepo repository.FurnitureRepository,
	cellRepo repository.StorageCellRepository,
	labelRepo repository.LabelRepository,
	codec *label.Codec,
) *StorageService {
	return &StorageService{
		allocator: allocator,
		roomRepo:  roomRepo,
		furnRepo:  furnRepo,
		cellRepo:  cellRepo,
		labelRepo: labelRepo,
		codec:     codec,
	}
}

func (s *StorageService) CreateRoom(ctx context.Context, accountID, name string) (*model.Room, error) {
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	room, err := s.roomRepo.Create(ctx, model.CreateRoomParams{AccountID: accountID, Name: name})
	if repository.IsUniqueViolation(err) {
		return nil, apperrors.AlreadyExists("Room")
	}
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return room, nil
}

func (s *StorageService) ListRooms(ctx context.Context, accountID string) ([]model.Room, error) {
	rooms, err := s.roomRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return rooms, nil
}

func (s *StorageService) CreateFurniture(ctx context.Context, accountID, name string) (*model.Furniture, error) {
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	furniture, err := s.furnRepo.Create(ctx, model.CreateFurnitureParams{AccountID: accountID, Name: name})
	if repository.IsUniqueViolation(err) {
		return nil, apperrors.AlreadyExists("Furniture")
	}
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return furniture, nil
}

func (s *StorageService) ListFurniture(ctx context.Context, accountID string) ([]model.Furniture, error) {
	furniture, err := s.furnRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return furniture, nil
}

// CreateCell allocates the next cell in the (room, furniture) pair and
// renders its printable label.
func (s *StorageService) CreateCell(ctx context.Context, accountID string, roomID, furnitureID int64) (*CreateCellResult, error) {
	cell, err := s.allocator.AllocateStorageCell(ctx, accountID, roomID, furnitureID)
	if err != nil {
		return nil, err
	}

	detail, err := s.cellRepo.FindByID(ctx, accountID, cell.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if detail == nil {
		return nil, apperrors.Internal("allocated cell disappeared")
	}

	png, err := s.renderLabel(ctx, accountID, detail)
	if err != nil {
		return nil, err
	}

	return &CreateCellResult{Cell: detail, LabelPNG: png}, nil
}

func (s *StorageService) GetCell(ctx context.Context, accountID, cellCode string) (*model.StorageCellDetail, error) {
	cell, err := s.cellRepo.FindByCode(ctx, accountID, cellCode)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if cell == nil {
		return nil, apperrors.EntityNotFound("storage cell", cellCode)
	}
	return cell, nil
}

func (s *StorageService) ListCells(ctx context.Context, accountID string) ([]model.StorageCellDetail, error) {
	cells, err := s.cellRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return cells, nil
}

// CellLabel returns the cell's QR label, preferring the cached copy.
func (s *StorageService) CellLabel(ctx context.Context, accountID, cellCode string) ([]byte, error) {
	cell, err := s.GetCell(ctx, accountID, cellCode)
	if err != nil {
		return nil, err
	}

	cached, err := s.labelRepo.Find(ctx, accountID, cellCode, model.CategoryStorage)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if cached != nil {
		return cached.PNG, nil
	}

	return s.renderLabel(ctx, accountID, cell)
}

func (s *StorageService) renderLabel(ctx context.Context, accountID string, cell *model.StorageCellDetail) ([]byte, error) {
	png, err := s.codec.Encode(model.LabelPayload{
		Code:     cell.CellCode,
		Name:     cell.DisplayName(),
		Category: model.CategoryStorage,
	})
	if err != nil {
		return nil, err
	}

	if err := s.labelRepo.Upsert(ctx, model.Label{
		AccountID: accountID,
		Code:      cell.CellCode,
		Category:  model.CategoryStorage,
		PNG:       png,
	}); err != nil {
		log.Warn().Err(err).Str("code", cell.CellCode).Msg("failed to cache label")
	}
	return png, nil
}
