package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/label"
	"github.com/homestash/homestash-server/internal/model"
	"github.com/homestash/homestash-server/internal/repository"
)

// maxDepositAttempts bounds retries when an allocated code loses the
// insert race to a concurrent deposit.
const maxDepositAttempts = 3

type DepositResult struct {
	Item     *model.Item `json:"item"`
	LabelPNG []byte      `json:"-"`
}

type ItemService struct {
	allocator *AllocatorService
	itemRepo  repository.ItemRepository
	labelRepo repository.LabelRepository
	codec     *label.Codec
}

func NewItemService(
	allocator *AllocatorService,
	itemRepo repository.ItemRepository,
	labelRepo repository.LabelRepository,
	codec *label.Codec,
) *ItemService {
	return &ItemService{
		allocator: allocator,
		itemRepo:  itemRepo,
		labelRepo: labelRepo,
		codec:     codec,
	}
}

// Deposit registers a new item under a freshly allocated code and
// returns it together with its printable label. The allocator
// existence-checks codes before use, but two deposits in flight can
// still collide on insert; the unique constraint catches that and the
// whole allocation is retried.
func (s *ItemService) Deposit(ctx context.Context, accountID, name string) (*DepositResult, error) {
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}

	for attempts := 0; attempts < maxDepositAttempts; attempts++ {
		code, err := s.allocator.AllocateItemCode(ctx)
		if err != nil {
			return nil, err
		}

		item, err := s.itemRepo.Create(ctx, model.CreateItemParams{
			AccountID: accountID,
			Code:      code,
			Name:      name,
		})
		if repository.IsUniqueViolation(err) {
			log.Warn().Str("code", code).Msg("item code insert race lost, reallocating")
			continue
		}
		if err != nil {
			return nil, apperrors.Database(err)
		}

		png, err := s.renderLabel(ctx, accountID, item.Code, item.Name, model.CategoryItem)
		if err != nil {
			return nil, err
		}

		log.Info().Str("code", item.Code).Str("accountId", accountID).Msg("item deposited")
		return &DepositResult{Item: item, LabelPNG: png}, nil
	}
	return nil, apperrors.DuplicateCode("item")
}

func (s *ItemService) Get(ctx context.Context, accountID, code string) (*model.Item, error) {
	item, err := s.itemRepo.FindByCode(ctx, accountID, code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if item == nil {
		return nil, apperrors.EntityNotFound("item", code)
	}
	return item, nil
}

func (s *ItemService) List(ctx context.Context, accountID string) ([]model.Item, error) {
	items, err := s.itemRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return items, nil
}

func (s *ItemService) Delete(ctx context.Context, accountID, code string) error {
	deleted, err := s.itemRepo.Delete(ctx, accountID, code)
	if err != nil {
		return apperrors.Database(err)
	}
	if !deleted {
		return apperrors.EntityNotFound("item", code)
	}
	log.Info().Str("code", code).Str("accountId", accountID).Msg("item deleted")
	return nil
}

// Label returns the item's QR label, rendering and caching it if no
// cached copy exists.
func (s *ItemService) Label(ctx context.Context, accountID, code string) ([]byte, error) {
	item, err := s.Get(ctx, accountID, code)
	if err != nil {
		return nil, err
	}

	cached, err := s.labelRepo.Find(ctx, accountID, code, model.CategoryItem)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if cached != nil {
		return cached.PNG, nil
	}

	return s.renderLabel(ctx, accountID, item.Code, item.Name, model.CategoryItem)
}

func (s *ItemService) renderLabel(ctx context.Context, accountID, code, name string, category model.ScanCategory) ([]byte, error) {
	png, err := s.codec.Encode(model.LabelPayload{Code: code, Name: name, Category: category})
	if err != nil {
		return nil, err
	}

	// The cache is best effort; the rendered bytes are returned either way.
	if err := s.labelRepo.Upsert(ctx, model.Label{
		AccountID: accountID,
		Code:      code,
		Category:  category,
		PNG:       png,
	}); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("failed to cache label")
	}
	return png, nil
}
