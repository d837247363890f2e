package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/homestash/homestash-server/internal/database"
	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/model"
	"github.com/homestash/homestash-server/internal/repository"
)

// SessionStore persists pairing sessions between scans. The redis
// implementation lives in internal/redis. Save and ClearIfVersion must
// reject a write whose session version no longer matches the stored
// one; Delete is unconditional and backs the explicit cancel.
type SessionStore interface {
	Get(ctx context.Context, accountID string) (*model.PairingSession, error)
	Save(ctx context.Context, accountID string, session *model.PairingSession) error
	ClearIfVersion(ctx context.Context, accountID string, version int64) error
	Delete(ctx context.Context, accountID string) error
}

// ScanResult is the outcome of one scan.
type ScanResult struct {
	Completed bool               `json:"completed"`
	Waiting   model.ScanCategory `json:"waiting,omitempty"`
	Item      *model.PendingScan `json:"item,omitempty"`
	Storage   *model.PendingScan `json:"storage,omitempty"`
	Location  string             `json:"location,omitempty"`
}

// PairingService joins an item to a storage cell from two scans made in
// either order. One side is remembered in the session; when the other
// side arrives the association is written and the session cleared.
type PairingService struct {
	db       database.TxRunner
	store    SessionStore
	itemRepo repository.ItemRepository
	cellRepo repository.StorageCellRepository
}

func NewPairingService(
	db database.TxRunner,
	store SessionStore,
	itemRepo repository.ItemRepository,
	cellRepo repository.StorageCellRepository,
) *PairingService {
	return &PairingService{
		db:       db,
		store:    store,
		itemRepo: itemRepo,
		cellRepo: cellRepo,
	}
}

// Scan feeds one scanned code into the session. A code that does not
// resolve to an entity owned by the account fails with ENTITY_NOT_FOUND
// and leaves the session untouched, so the user can simply re-scan.
// Scanning the same category twice replaces the pending side rather
// than rejecting the second scan.
func (s *PairingService) Scan(ctx context.Context, accountID, code string, category model.ScanCategory) (*ScanResult, error) {
	if !category.Valid() {
		return nil, apperrors.InvalidInput("category", string(category))
	}

	session, err := s.store.Get(ctx, accountID)
	if err != nil {
		return nil, apperrors.Internal("failed to load pairing session").WithCause(err)
	}
	if session == nil {
		session = model.NewPairingSession()
	}

	switch category {
	case model.CategoryItem:
		item, err := s.itemRepo.FindByCode(ctx, accountID, code)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if item == nil {
			return nil, apperrors.EntityNotFound("item", code)
		}

		if session.Storage != nil {
			return s.complete(ctx, accountID, session, item, session.Storage.Code)
		}

		session.Item = &model.PendingScan{Code: item.Code, Name: item.Name}
		session.State = model.PairingStateHasItem
		return s.wait(ctx, accountID, session, model.CategoryStorage)

	default: // model.CategoryStorage
		cell, err := s.cellRepo.FindByCode(ctx, accountID, code)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if cell == nil {
			return nil, apperrors.EntityNotFound("storage cell", code)
		}

		if session.Item != nil {
			item, err := s.itemRepo.FindByCode(ctx, accountID, session.Item.Code)
			if err != nil {
				return nil, apperrors.Database(err)
			}
			if item == nil {
				// The pending item vanished between scans.
				return nil, apperrors.EntityNotFound("item", session.Item.Code)
			}
			return s.commit(ctx, accountID, session, item, cell)
		}

		session.Storage = &model.PendingScan{Code: cell.CellCode, Name: cell.DisplayName()}
		session.State = model.PairingStateHasStorage
		return s.wait(ctx, accountID, session, model.CategoryItem)
	}
}

// complete resolves the pending storage side and commits. Called when
// the item arrives second.
func (s *PairingService) complete(ctx context.Context, accountID string, session *model.PairingSession, item *model.Item, cellCode string) (*ScanResult, error) {
	cell, err := s.cellRepo.FindByCode(ctx, accountID, cellCode)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if cell == nil {
		// The pending storage cell vanished between scans.
		return nil, apperrors.EntityNotFound("storage cell", cellCode)
	}
	return s.commit(ctx, accountID, session, item, cell)
}

// commit claims the session, then writes the item-cell association and
// the denormalized location in one transaction. The claim is the
// version-checked clear: if a concurrent scan moved the session since
// we read it, nothing is written and that scan's pending side survives.
func (s *PairingService) commit(ctx context.Context, accountID string, session *model.PairingSession, item *model.Item, cell *model.StorageCellDetail) (*ScanResult, error) {
	location := cell.DisplayName()

	if err := s.store.ClearIfVersion(ctx, accountID, session.Version); err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeStaleSession) {
			return nil, err
		}
		return nil, apperrors.Internal("failed to clear pairing session").WithCause(err)
	}

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		items := s.itemRepo.WithTx(tx)
		if err := items.AttachCell(ctx, item.ID, cell.ID); err != nil {
			return err
		}
		return items.UpdateLocation(ctx, item.ID, location)
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("itemCode", item.Code).
		Str("cellCode", cell.CellCode).
		Str("accountId", accountID).
		Msg("pairing completed")

	return &ScanResult{
		Completed: true,
		Item:      &model.PendingScan{Code: item.Code, Name: item.Name},
		Storage:   &model.PendingScan{Code: cell.CellCode, Name: location},
		Location:  location,
	}, nil
}

func (s *PairingService) wait(ctx context.Context, accountID string, session *model.PairingSession, waiting model.ScanCategory) (*ScanResult, error) {
	if err := s.store.Save(ctx, accountID, session); err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeStaleSession) {
			// A concurrent scan changed the session under us. Reset so
			// the user restarts from a known state.
			if delErr := s.store.Delete(ctx, accountID); delErr != nil {
				log.Warn().Err(delErr).Str("accountId", accountID).Msg("failed to reset stale pairing session")
			}
			return nil, err
		}
		return nil, apperrors.Internal("failed to save pairing session").WithCause(err)
	}

	return &ScanResult{
		Waiting: waiting,
		Item:    session.Item,
		Storage: session.Storage,
	}, nil
}

// Cancel discards any in-progress session. Cancelling when nothing is
// pending is a no-op.
func (s *PairingService) Cancel(ctx context.Context, accountID string) error {
	if err := s.store.Delete(ctx, accountID); err != nil {
		return apperrors.Internal("failed to clear pairing session").WithCause(err)
	}
	log.Info().Str("accountId", accountID).Msg("pairing cancelled")
	return nil
}

// Status reports the current session without mutating it.
func (s *PairingService) Status(ctx context.Context, accountID string) (*model.PairingSession, error) {
	session, err := s.store.Get(ctx, accountID)
	if err != nil {
		return nil, apperrors.Internal("failed to load pairing session").WithCause(err)
	}
	if session == nil {
		session = model.NewPairingSession()
	}
	return session, nil
}
