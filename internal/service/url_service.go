// Package service implements the URL service (§4.G): ingestion, lookup,
// and CRUD orchestration over the primary store and redirect cache.
// Redirect-time concerns (open-redirect defense, status-code choice, event
// emission) live in internal/redirect instead.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/enrichment/reputation"
	"github.com/northbeam-io/shortlink/internal/idgen"
	"github.com/northbeam-io/shortlink/internal/normalize"
	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
	"github.com/northbeam-io/shortlink/internal/shortcode"
	"github.com/northbeam-io/shortlink/pkg/validator"
)

// CreateInput carries createShort's request fields.
type CreateInput struct {
	Original         string
	CustomAlias      *string
	ExpiresAt        *time.Time
	Metadata         map[string]any
	CreatorIP        *string
	CreatorUserAgent *string
}

// CreateResult is createShort's response shape.
type CreateResult struct {
	Record   *domain.UrlRecord
	ShortURL string
	IsNew    bool
}

// URLService implements createShort/findByCode/deleteByCode/
// incrementHitCount/list/stats.
type URLService struct {
	store      interfaces.PrimaryStore
	cache      interfaces.RedirectCache
	allocator  *shortcode.Allocator
	validator  *validator.URLValidator
	reputation reputation.Checker
	ids        *idgen.Generator
	logger     *zap.Logger
	baseURL    string
	cacheTTL   time.Duration
}

// New builds a URLService.
func New(
	store interfaces.PrimaryStore,
	cache interfaces.RedirectCache,
	allocator *shortcode.Allocator,
	urlValidator *validator.URLValidator,
	reputationChecker reputation.Checker,
	ids *idgen.Generator,
	logger *zap.Logger,
	baseURL string,
	cacheTTL time.Duration,
) *URLService {
	return &URLService{
		store:      store,
		cache:      cache,
		allocator:  allocator,
		validator:  urlValidator,
		reputation: reputationChecker,
		ids:        ids,
		logger:     logger,
		baseURL:    baseURL,
		cacheTTL:   cacheTTL,
	}
}

func (s *URLService) shortURL(code string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, code)
}

// CreateShort implements 4.G createShort.
func (s *URLService) CreateShort(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if err := s.validator.Validate(in.Original); err != nil {
		return nil, err
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(time.Now()) {
		return nil, domain.ErrExpiryInPast
	}

	blocked, err := s.reputation.IsMalicious(ctx, in.Original)
	if err != nil {
		s.logger.Warn("reputation check failed, allowing URL", zap.Error(err))
	} else if blocked {
		return nil, domain.ErrURLBlocked
	}

	normalized := normalize.URL(in.Original)

	if existing, err := s.store.FindByNormalized(ctx, normalized); err != nil {
		return nil, err
	} else if existing != nil && existing.IsResolvable(time.Now()) {
		return &CreateResult{Record: existing, ShortURL: s.shortURL(existing.Code), IsNew: false}, nil
	}

	var code string
	if in.CustomAlias != nil {
		if err := shortcode.ValidateAlias(*in.CustomAlias); err != nil {
			return nil, err
		}
		taken, err := s.store.ExistsByCode(ctx, *in.CustomAlias)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrAliasTaken
		}
		code = *in.CustomAlias
	} else {
		code, err = s.allocator.Allocate(ctx, s.store.ExistsByCode)
		if err != nil {
			return nil, err
		}
	}

	id, err := s.ids.NextID()
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternal, "mint record id", err)
	}

	now := time.Now()
	record := &domain.UrlRecord{
		ID:               id,
		Code:             code,
		Original:         in.Original,
		Normalized:       normalized,
		CustomAlias:      in.CustomAlias,
		ExpiresAt:        in.ExpiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
		CreatorIP:        in.CreatorIP,
		CreatorUserAgent: in.CreatorUserAgent,
		Metadata:         in.Metadata,
	}

	if err := s.store.Insert(ctx, record); err != nil {
		appErr, ok := domain.As(err)
		if ok && appErr.Code == domain.CodeConflict {
			switch appErr.Details {
			case "code":
				if in.CustomAlias != nil {
					return nil, domain.ErrAliasTaken
				}
				retryCode, retryErr := s.allocator.Allocate(ctx, s.store.ExistsByCode)
				if retryErr != nil {
					return nil, retryErr
				}
				record.Code = retryCode
				if insertErr := s.store.Insert(ctx, record); insertErr != nil {
					return nil, insertErr
				}
			case "normalized":
				existing, findErr := s.store.FindByNormalized(ctx, normalized)
				if findErr != nil {
					return nil, findErr
				}
				if existing != nil {
					return &CreateResult{Record: existing, ShortURL: s.shortURL(existing.Code), IsNew: false}, nil
				}
				return nil, err
			default:
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	if cacheErr := s.cache.SetWithTTL(ctx, &domain.CachedTarget{
		Code:      record.Code,
		Original:  record.Original,
		ExpiresAt: record.ExpiresAt,
		HitCount:  record.HitCount,
	}, s.cacheTTL); cacheErr != nil {
		s.logger.Warn("cache priming failed", zap.String("code", record.Code), zap.Error(cacheErr))
	}

	s.logger.Info("short url created", zap.String("code", record.Code))
	return &CreateResult{Record: record, ShortURL: s.shortURL(record.Code), IsNew: true}, nil
}

// FindByCode implements 4.G findByCode: cache-first, repopulating the cache
// on a store hit.
func (s *URLService) FindByCode(ctx context.Context, code string) (*domain.UrlRecord, error) {
	if cached, ok, err := s.cache.Get(ctx, code); err == nil && ok {
		return &domain.UrlRecord{
			Code:      cached.Code,
			Original:  cached.Original,
			ExpiresAt: cached.ExpiresAt,
			HitCount:  cached.HitCount,
		}, nil
	}

	record, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	if cacheErr := s.cache.SetWithTTL(ctx, &domain.CachedTarget{
		Code:      record.Code,
		Original:  record.Original,
		ExpiresAt: record.ExpiresAt,
		HitCount:  record.HitCount,
	}, s.cacheTTL); cacheErr != nil {
		s.logger.Warn("cache repopulation failed", zap.String("code", code), zap.Error(cacheErr))
	}
	return record, nil
}

// GetFullRecord reads a record directly from the store, bypassing the
// redirect cache. The cache only ever holds CachedTarget's narrow field
// set, so callers that need the complete record — createdAt, metadata,
// custom alias — must go through here rather than FindByCode.
func (s *URLService) GetFullRecord(ctx context.Context, code string) (*domain.UrlRecord, error) {
	return s.store.FindByCode(ctx, code)
}

// DeleteByCode implements 4.G deleteByCode.
func (s *URLService) DeleteByCode(ctx context.Context, code string) (bool, error) {
	deleted, err := s.store.Delete(ctx, code)
	if err != nil {
		return false, err
	}
	if err := s.cache.Invalidate(ctx, code); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// IncrementHitCount implements 4.G incrementHitCount. Callers invoke this
// from a background task; it never blocks the redirect response.
func (s *URLService) IncrementHitCount(ctx context.Context, code string) {
	if err := s.store.IncrementHitCount(ctx, code, 1); err != nil {
		s.logger.Warn("hit count increment failed", zap.String("code", code), zap.Error(err))
		return
	}
	if cached, ok, err := s.cache.Get(ctx, code); err == nil && ok {
		cached.HitCount++
		if err := s.cache.SetWithTTL(ctx, cached, s.cacheTTL); err != nil {
			s.logger.Warn("cache refresh after hit increment failed", zap.String("code", code), zap.Error(err))
		}
	}
}

// List implements 4.G list.
func (s *URLService) List(ctx context.Context, filter domain.ListFilter) (*domain.ListResult, error) {
	return s.store.List(ctx, filter)
}

// Stats implements 4.G stats.
func (s *URLService) Stats(ctx context.Context) (*domain.URLStats, error) {
	return s.store.Stats(ctx, time.Now())
}
