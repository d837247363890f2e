package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/homestash/homestash-server/internal/model"
)

type StorageCellRepository interface {
	// MaxCellNumber returns the highest assigned cell number for the
	// (room, furniture) pair, or 0 when the pair has no cells yet.
	MaxCellNumber(ctx context.Context, roomID, furnitureID int64) (int, error)
	Create(ctx context.Context, params model.CreateStorageCellParams) (*model.StorageCell, error)
	FindByCode(ctx context.Context, accountID, cellCode string) (*model.StorageCellDetail, error)
	FindByID(ctx context.Context, accountID string, id int64) (*model.StorageCellDetail, error)
	ListByAccount(ctx context.Context, accountID string) ([]model.StorageCellDetail, error)
	WithTx(tx *sqlx.Tx) StorageCellRepository
}

type storageCellRepo struct {
	db sqlxDB
}

func NewStorageCellRepository(db *sqlx.DB) StorageCellRepository {
	return &storageCellRepo{db: db}
}

func (r *storageCellRepo) WithTx(tx *sqlx.Tx) StorageCellRepository {
	return &storageCellRepo{db: tx}
}

func (r *storageCellRepo) MaxCellNumber(ctx context.Context, roomID, furnitureID int64) (int, error) {
	var max int
	err := r.db.GetContext(ctx, &max, `
		SELECT COALESCE(MAX(cell_number), 0) FROM storage_cells
		WHERE room_id = $1 AND furniture_id = $2
	`, roomID, furnitureID)
	return max, err
}

func (r *storageCellRepo) Create(ctx context.Context, params model.CreateStorageCellParams) (*model.StorageCell, error) {
	var cell model.StorageCell
	err := r.db.GetContext(ctx, &cell, `
		INSERT INTO storage_cells (account_id, room_id, furniture_id, cell_number, cell_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.AccountID, params.RoomID, params.FurnitureID, params.CellNumber, params.CellCode)
	if err != nil {
		return nil, err
	}
	return &cell, nil
}

const cellDetailQuery = `
	SELECT c.*, r.name AS room_name, f.name AS furniture_name
	FROM storage_cells c
	JOIN rooms r ON r.id = c.room_id
	JOIN furniture f ON f.id = c.furniture_id
`

func (r *storageCellRepo) FindByCode(ctx context.Context, accountID, cellCode string) (*model.StorageCellDetail, error) {
	var cell model.StorageCellDetail
	err := r.db.GetContext(ctx, &cell, cellDetailQuery+`
		WHERE c.account_id = $1 AND c.cell_code = $2
	`, accountID, cellCode)
	return HandleNotFound(&cell, err)
}

func (r *storageCellRepo) FindByID(ctx context.Context, accountID string, id int64) (*model.StorageCellDetail, error) {
	var cell model.StorageCellDetail
	err := r.db.GetContext(ctx, &cell, cellDetailQuery+`
		WHERE c.account_id = $1 AND c.id = $2
	`, accountID, id)
	return HandleNotFound(&cell, err)
}

func (r *storageCellRepo) ListByAccount(ctx context.Context, accountID string) ([]model.StorageCellDetail, error) {
	var cells []model.StorageCellDetail
	err := r.db.SelectContext(ctx, &cells, cellDetailQuery+`
		WHERE c.account_id = $1
		ORDER BY c.cell_code
	`, accountID)
	return cells, err
}
