package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/homestash/homestash-server/internal/model"
)

type RoomRepository interface {
	FindByID(ctx context.Context, accountID string, id int64) (*model.Room, error)
	// FindByIDForUpdate locks the room row for the rest of the
	// transaction; letter assignment must not race with itself.
	FindByIDForUpdate(ctx context.Context, accountID string, id int64) (*model.Room, error)
	ListByAccount(ctx context.Context, accountID string) ([]model.Room, error)
	AssignedLetters(ctx context.Context, accountID string) ([]string, error)
	SetLetter(ctx context.Context, id int64, letter string) error
	Create(ctx context.Context, params model.CreateRoomParams) (*model.Room, error)
	WithTx(tx *sqlx.Tx) RoomRepository
}

type roomRepo struct {
	db sqlxDB
}

func NewRoomRepository(db *sqlx.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) WithTx(tx *sqlx.Tx) RoomRepository {
	return &roomRepo{db: tx}
}

func (r *roomRepo) FindByID(ctx context.Context, accountID string, id int64) (*model.Room, error) {
	var room model.Room
	err := r.db.GetContext(ctx, &room, `
		SELECT * FROM rooms WHERE id = $1 AND account_id = $2
	`, id, accountID)
	return HandleNotFound(&room, err)
}

func (r *roomRepo) FindByIDForUpdate(ctx context.Context, accountID string, id int64) (*model.Room, error) {
	var room model.Room
	err := r.db.GetContext(ctx, &room, `
		SELECT * FROM rooms WHERE id = $1 AND account_id = $2
		FOR UPDATE
	`, id, accountID)
	return HandleNotFound(&room, err)
}

func (r *roomRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.SelectContext(ctx, &rooms, `
		SELECT * FROM rooms WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
	return rooms, err
}

func (r *roomRepo) AssignedLetters(ctx context.Context, accountID string) ([]string, error) {
	var letters []string
	err := r.db.SelectContext(ctx, &letters, `
		SELECT letter FROM rooms
		WHERE account_id = $1 AND letter IS NOT NULL
	`, accountID)
	return letters, err
}

func (r *roomRepo) SetLetter(ctx context.Context, id int64, letter string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE rooms SET letter = $2 WHERE id = $1
	`, id, letter)
	return err
}

func (r *roomRepo) Create(ctx context.Context, params model.CreateRoomParams) (*model.Room, error) {
	var room model.Room
	err := r.db.GetContext(ctx, &room, `
		INSERT INTO rooms (account_id, name)
		VALUES ($1, $2)
		RETURNING *
	`, params.AccountID, params.Name)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
