package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/testdb"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/chat/chaterr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaults_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	factory := testdb.Factory(t)

	n, err := SeedDefaults(ctx, factory)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultSeeds), n)

	n, err = SeedDefaults(ctx, factory)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoader_RoutesSeededRules(t *testing.T) {
	ctx := context.Background()
	factory := testdb.Factory(t)
	_, err := SeedDefaults(ctx, factory)
	require.NoError(t, err)

	loader := NewLoader(factory, time.Minute, logger.NewNopLogger())
	router, err := loader.Router(ctx)
	require.NoError(t, err)

	tests := []struct {
		text   string
		intent string
	}{
		{text: "버그 있어요", intent: "bug_report"},
		{text: "커뮤니티  규정 알려줘", intent: "community_guidelines"},
		{text: "댓글 삭제 요청합니다", intent: "delete_request"},
		// usage_inquiry is ordered before bug_report, so "문의" wins over "문제".
		{text: "문제 문의", intent: "usage_inquiry"},
	}
	for _, tt := range tests {
		got := router.Route(tt.text)
		assert.True(t, got.Matched, tt.text)
		assert.Equal(t, tt.intent, got.Intent, tt.text)
	}
}

func TestLoader_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	factory := testdb.Factory(t)
	loader := NewLoader(factory, time.Hour, logger.NewNopLogger())

	router, err := loader.Router(ctx)
	require.NoError(t, err)
	assert.Zero(t, router.Len())

	uow := factory.NewUnitOfWork(ctx)
	in := &entity.ChipIntent{Intent: "bug_report", ResponseText: "감사합니다", IsActive: true}
	require.NoError(t, uow.ChipRepository().CreateIntent(ctx, in))
	require.NoError(t, uow.ChipRepository().CreatePattern(ctx, &entity.ChipPattern{IntentId: in.Id, PatternRegex: `버그`, IsActive: true}))

	router, err = loader.Router(ctx)
	require.NoError(t, err)
	assert.Zero(t, router.Len(), "cached router is served until invalidated")

	loader.Invalidate()
	router, err = loader.Router(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, router.Len())
}

func TestLoader_FallsBackToLastGood(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	factory := unitofwork.NewRepositoryFactory(db)
	_, err := SeedDefaults(ctx, factory)
	require.NoError(t, err)

	loader := NewLoader(factory, time.Hour, logger.NewNopLogger())
	good, err := loader.Router(ctx)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	loader.Invalidate()

	router, err := loader.Router(ctx)
	assert.True(t, errors.Is(err, chaterr.ErrStorageUnavailable))
	assert.Same(t, good, router)
}

func TestLoader_EmptyRouterWhenNeverLoaded(t *testing.T) {
	db := testdb.Open(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	loader := NewLoader(unitofwork.NewRepositoryFactory(db), time.Hour, logger.NewNopLogger())
	router, err := loader.Router(context.Background())

	assert.Error(t, err)
	require.NotNil(t, router)
	assert.Equal(t, FallbackReply, router.Route("버그").Reply)
}
