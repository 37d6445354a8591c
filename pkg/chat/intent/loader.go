package intent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/chat/chaterr"

	"github.com/patrickmn/go-cache"
)

const routerKey = "router"

// Loader reads the chip tables and caches the compiled router for ttl.
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	cache      *cache.Cache

	mu       sync.Mutex
	lastGood *Router
}

func NewLoader(uowFactory unitofwork.RepositoryFactory, ttl time.Duration, logger logger.ILogger) *Loader {
	return &Loader{
		uowFactory: uowFactory,
		logger:     logger,
		cache:      cache.New(ttl, 2*ttl),
	}
}

// Router returns the cached router, reloading it when the entry expired.
// The returned router is never nil: on a load failure it is the last good
// router, or an empty one that answers every text with FallbackReply. The
// error is still returned so callers can log it.
func (l *Loader) Router(ctx context.Context) (*Router, error) {
	if x, found := l.cache.Get(routerKey); found {
		return x.(*Router), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if x, found := l.cache.Get(routerKey); found {
		return x.(*Router), nil
	}

	router, err := l.load(ctx)
	if err != nil {
		l.logger.Error(module, "Failed to load chip rules", map[string]interface{}{
			"error":         err.Error(),
			"has_last_good": l.lastGood != nil,
		})
		if l.lastGood != nil {
			return l.lastGood, err
		}
		return NewRouter(), err
	}

	l.lastGood = router
	l.cache.Set(routerKey, router, cache.DefaultExpiration)
	l.logger.Info(module, "Chip rules loaded", map[string]interface{}{
		"rules": router.Len(),
	})
	return router, nil
}

// Invalidate drops the cached router so the next call reloads.
func (l *Loader) Invalidate() {
	l.cache.Delete(routerKey)
}

func (l *Loader) load(ctx context.Context) (*Router, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)
	intents, err := uow.ChipRepository().FindActiveIntents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load intents: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	patterns, err := uow.ChipRepository().FindActivePatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return Compile(intents, patterns, l.logger), nil
}

// SeedDefaults inserts DefaultSeeds when the chip tables are empty. It
// returns the number of intents created.
func SeedDefaults(ctx context.Context, uowFactory unitofwork.RepositoryFactory) (int, error) {
	uow := uowFactory.NewUnitOfWork(ctx)

	count, err := uow.ChipRepository().CountIntents(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	for i, seed := range DefaultSeeds {
		in := &entity.ChipIntent{
			Intent:       seed.Intent,
			ResponseText: seed.Reply,
			IsActive:     true,
			DisplayOrder: i,
		}
		if err := uow.ChipRepository().CreateIntent(ctx, in); err != nil {
			return 0, fmt.Errorf("seed intent %s: %w", seed.Intent, err)
		}
		for j, pattern := range seed.Patterns {
			p := &entity.ChipPattern{
				IntentId:     in.Id,
				PatternRegex: pattern,
				IsActive:     true,
				DisplayOrder: i*100 + j,
			}
			if err := uow.ChipRepository().CreatePattern(ctx, p); err != nil {
				return 0, fmt.Errorf("seed pattern %s: %w", seed.Intent, err)
			}
		}
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return len(DefaultSeeds), nil
}
