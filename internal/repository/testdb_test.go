package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/homestash/homestash-server/internal/database"
	"github.com/homestash/homestash-server/internal/model"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL,
// resets its contents and returns the connection. Tests that need a
// real database are skipped when the variable is unset.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Connect(url)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, db.EnsureSchema(ctx))

	_, err = db.ExecContext(ctx, `TRUNCATE accounts CASCADE`)
	require.NoError(t, err)

	return db
}

func createTestAccount(t *testing.T, db *database.DB, name string) *model.Account {
	t.Helper()

	repo := NewAccountRepository(db.DB)
	account, err := repo.Create(context.Background(), model.CreateAccountParams{
		Name:            name,
		PasswordHash:    "x",
		TokenHash:       "tok-" + name,
		RateLimitPerMin: 60,
	})
	require.NoError(t, err)
	return account
}
