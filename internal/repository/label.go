package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/homestash/homestash-server/internal/model"
)

// LabelRepository caches rendered QR label images so repeat prints do
// not re-encode.
type LabelRepository interface {
	Upsert(ctx context.Context, label model.Label) error
	Find(ctx context.Context, accountID, code string, category model.ScanCategory) (*model.Label, error)
	// DeleteOrphaned removes cached labels whose code no longer matches
	// a live item or storage cell.
	DeleteOrphaned(ctx context.Context) (int64, error)
}

type labelRepo struct {
	db sqlxDB
}

func NewLabelRepository(db *sqlx.DB) LabelRepository {
	return &labelRepo{db: db}
}

func (r *labelRepo) Upsert(ctx context.Context, label model.Label) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO labels (account_id, code, category, png)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, code, category)
		DO UPDATE SET png = EXCLUDED.png, created_at = NOW()
	`, label.AccountID, label.Code, label.Category, label.PNG)
	return err
}

func (r *labelRepo) Find(ctx context.Context, accountID, code string, category model.ScanCategory) (*model.Label, error) {
	var label model.Label
	err := r.db.GetContext(ctx, &label, `
		SELECT * FROM labels
		WHERE account_id = $1 AND code = $2 AND category = $3
	`, accountID, code, category)
	return HandleNotFound(&label, err)
}

func (r *labelRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM labels l
		WHERE (l.category = 'item' AND NOT EXISTS (
			SELECT 1 FROM items i WHERE i.code = l.code AND i.account_id = l.account_id
		))
		OR (l.category = 'storage' AND NOT EXISTS (
			SELECT 1 FROM storage_cells c WHERE c.cell_code = l.code AND c.account_id = l.account_id
		))
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
