package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestash/homestash-server/internal/model"
	"github.com/homestash/homestash-server/internal/util"
)

type mockAccountRepo struct {
	findByTokenHashFunc func(ctx context.Context, tokenHash string) (*model.Account, error)
}

func (m *mockAccountRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	if m.findByTokenHashFunc != nil {
		return m.findByTokenHashFunc(ctx, tokenHash)
	}
	return nil, nil
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) FindByName(ctx context.Context, name string) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) UpdateTokenHash(ctx context.Context, id, tokenHash string) error {
	return nil
}

func TestAuthMiddleware(t *testing.T) {
	testAccount := &model.Account{
		ID:              "acc-123",
		Name:            "smith-family",
		RateLimitPerMin: 60,
	}
	validToken := "valid-token"
	validTokenHash := util.HashToken(validToken)

	t.Run("allows request with valid token", func(t *testing.T) {
		accountRepo := &mockAccountRepo{
			findByTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.Account, error) {
				if tokenHash == validTokenHash {
					return testAccount, nil
				}
				return nil, nil
			},
		}

		middleware := NewAuthMiddleware(accountRepo)
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := GetAccount(r.Context())
			require.NotNil(t, account)
			assert.Equal(t, "acc-123", account.ID)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/v1/items", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects request without token", func(t *testing.T) {
		accountRepo := &mockAccountRepo{}
		middleware := NewAuthMiddleware(accountRepo)
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("GET", "/v1/items", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects request with invalid token", func(t *testing.T) {
		accountRepo := &mockAccountRepo{
			findByTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.Account, error) {
				return nil, nil
			},
		}

		middleware := NewAuthMiddleware(accountRepo)
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("GET", "/v1/items", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects disabled account", func(t *testing.T) {
		disabledAt := time.Now()
		disabled := &model.Account{
			ID:         "acc-456",
			Name:       "old-household",
			DisabledAt: &disabledAt,
		}
		accountRepo := &mockAccountRepo{
			findByTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.Account, error) {
				return disabled, nil
			},
		}

		middleware := NewAuthMiddleware(accountRepo)
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("GET", "/v1/items", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("returns 500 on database error", func(t *testing.T) {
		accountRepo := &mockAccountRepo{
			findByTokenHashFunc: func(ctx context.Context, tokenHash string) (*model.Account, error) {
				return nil, errors.New("database error")
			},
		}

		middleware := NewAuthMiddleware(accountRepo)
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("GET", "/v1/items", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetAccount(t *testing.T) {
	t.Run("returns account from context", func(t *testing.T) {
		account := &model.Account{ID: "test-id"}
		ctx := context.WithValue(context.Background(), AccountContextKey, account)

		result := GetAccount(ctx)

		assert.NotNil(t, result)
		assert.Equal(t, "test-id", result.ID)
	})

	t.Run("returns nil when no account in context", func(t *testing.T) {
		result := GetAccount(context.Background())
		assert.Nil(t, result)
	})
}

func TestBodyLimitMiddleware(t *testing.T) {
	t.Run("rejects oversized declared body", func(t *testing.T) {
		m := NewBodyLimitMiddleware(16)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest("POST", "/v1/pairing/scan-label", nil)
		req.ContentLength = 1024
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("passes small body through", func(t *testing.T) {
		m := NewBodyLimitMiddleware(1024)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/v1/items", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
