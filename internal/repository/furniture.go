package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/homestash/homestash-server/internal/model"
)

type FurnitureRepository interface {
	FindByID(ctx context.Context, accountID string, id int64) (*model.Furniture, error)
	ListByAccount(ctx context.Context, accountID string) ([]model.Furniture, error)
	Create(ctx context.Context, params model.CreateFurnitureParams) (*model.Furniture, error)
	WithTx(tx *sqlx.Tx) FurnitureRepository
}

type furnitureRepo struct {
	db sqlxDB
}

func NewFurnitureRepository(db *sqlx.DB) FurnitureRepository {
	return &furnitureRepo{db: db}
}

func (r *furnitureRepo) WithTx(tx *sqlx.Tx) FurnitureRepository {
	return &furnitureRepo{db: tx}
}

func (r *furnitureRepo) FindByID(ctx context.Context, accountID string, id int64) (*model.Furniture, error) {
	var f model.Furniture
	err := r.db.GetContext(ctx, &f, `
		SELECT * FROM furniture WHERE id = $1 AND account_id = $2
	`, id, accountID)
	return HandleNotFound(&f, err)
}

func (r *furnitureRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Furniture, error) {
	var fs []model.Furniture
	err := r.db.SelectContext(ctx, &fs, `
		SELECT * FROM furniture WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
	return fs, err
}

func (r *furnitureRepo) Create(ctx context.Context, params model.CreateFurnitureParams) (*model.Furniture, error) {
	var f model.Furniture
	err := r.db.GetContext(ctx, &f, `
		INSERT INTO furniture (account_id, name)
		VALUES ($1, $2)
		RETURNING *
	`, params.AccountID, params.Name)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
