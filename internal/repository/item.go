package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/homestash/homestash-server/internal/model"
)

type ItemRepository interface {
	// CodeExists checks the whole installation, not one account: item
	// codes are globally unique.
	CodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, params model.CreateItemParams) (*model.Item, error)
	FindByCode(ctx context.Context, accountID, code string) (*model.Item, error)
	ListByAccount(ctx context.Context, accountID string) ([]model.Item, error)
	Delete(ctx context.Context, accountID, code string) (bool, error)
	// AttachCell links an item to a storage cell; attaching the same
	// pair twice is a no-op.
	AttachCell(ctx context.Context, itemID, cellID int64) error
	UpdateLocation(ctx context.Context, itemID int64, location string) error
	WithTx(tx *sqlx.Tx) ItemRepository
}

type itemRepo struct {
	db sqlxDB
}

func NewItemRepository(db *sqlx.DB) ItemRepository {
	return &itemRepo{db: db}
}

func (r *itemRepo) WithTx(tx *sqlx.Tx) ItemRepository {
	return &itemRepo{db: tx}
}

func (r *itemRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM items WHERE code = $1)
	`, code)
	return exists, err
}

func (r *itemRepo) Create(ctx context.Context, params model.CreateItemParams) (*model.Item, error) {
	var item model.Item
	err := r.db.GetContext(ctx, &item, `
		INSERT INTO items (account_id, code, name)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.AccountID, params.Code, params.Name)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) FindByCode(ctx context.Context, accountID, code string) (*model.Item, error) {
	var item model.Item
	err := r.db.GetContext(ctx, &item, `
		SELECT * FROM items WHERE account_id = $1 AND code = $2
	`, accountID, code)
	return HandleNotFound(&item, err)
}

func (r *itemRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Item, error) {
	var items []model.Item
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM items WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	return items, err
}

func (r *itemRepo) Delete(ctx context.Context, accountID, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM items WHERE account_id = $1 AND code = $2
	`, accountID, code)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (r *itemRepo) AttachCell(ctx context.Context, itemID, cellID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO item_cells (item_id, cell_id)
		VALUES ($1, $2)
		ON CONFLICT (item_id, cell_id) DO NOTHING
	`, itemID, cellID)
	return err
}

func (r *itemRepo) UpdateLocation(ctx context.Context, itemID int64, location string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET location = $2 WHERE id = $1
	`, itemID, location)
	return err
}
