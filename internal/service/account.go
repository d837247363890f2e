package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/homestash/homestash-server/internal/config"
	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/model"
	"github.com/homestash/homestash-server/internal/repository"
	"github.com/homestash/homestash-server/internal/util"
)

type RegisterResult struct {
	Account *model.Account `json:"account"`
	// Token is only returned at registration or login; the server keeps
	// just its hash.
	Token string `json:"token"`
}

type AccountService struct {
	accountRepo repository.AccountRepository
}

func NewAccountService(accountRepo repository.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

func (s *AccountService) Register(ctx context.Context, name, password string) (*RegisterResult, error) {
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if len(password) < 8 {
		return nil, apperrors.InvalidInput("password", "must be at least 8 characters")
	}

	passwordHash, err := util.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password").WithCause(err)
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal("failed to generate token").WithCause(err)
	}

	account, err := s.accountRepo.Create(ctx, model.CreateAccountParams{
		Name:            name,
		PasswordHash:    passwordHash,
		TokenHash:       util.HashToken(token),
		RateLimitPerMin: config.DefaultRateLimitPerMin,
	})
	if repository.IsUniqueViolation(err) {
		return nil, apperrors.AlreadyExists("Account")
	}
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("accountId", account.ID).Msg("account registered")
	return &RegisterResult{Account: account, Token: token}, nil
}

// Login verifies the password and rotates the API token.
func (s *AccountService) Login(ctx context.Context, name, password string) (*RegisterResult, error) {
	account, err := s.accountRepo.FindByName(ctx, name)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if account == nil || !util.CheckPasswordHash(password, account.PasswordHash) {
		return nil, apperrors.Unauthorized("Invalid name or password")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal("failed to generate token").WithCause(err)
	}
	if err := s.accountRepo.UpdateTokenHash(ctx, account.ID, util.HashToken(token)); err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("accountId", account.ID).Msg("account logged in, token rotated")
	return &RegisterResult{Account: account, Token: token}, nil
}
