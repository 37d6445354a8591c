package intent

import (
	"regexp"
	"testing"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  버그   있어요  ", want: "버그 있어요"},
		{in: "커뮤니티\t\n규정", want: "커뮤니티 규정"},
		{in: "", want: ""},
		{in: "   ", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestRoute_BugScenario(t *testing.T) {
	intents := []*entity.ChipIntent{
		{Id: 1, Intent: "bug_report", ResponseText: "버그 제보 감사합니다.", IsActive: true},
	}
	patterns := []*entity.ChipPattern{
		{Id: 1, IntentId: 1, PatternRegex: `버그|오류|에러`, IsActive: true},
	}

	router := Compile(intents, patterns, logger.NewNopLogger())
	got := router.Route("버그 있어요")

	assert.Equal(t, Result{Intent: "bug_report", Reply: "버그 제보 감사합니다.", Matched: true}, got)
}

func TestRoute_FirstMatchWins(t *testing.T) {
	router := NewRouter(
		Rule{Intent: "intent1", Reply: "one", Pattern: regexp.MustCompile(`삭제`)},
		Rule{Intent: "intent2", Reply: "two", Pattern: regexp.MustCompile(`삭제\s*요청`)},
	)

	for i := 0; i < 10; i++ {
		got := router.Route("삭제 요청 드립니다")
		assert.Equal(t, "intent1", got.Intent)
	}
}

func TestRoute_NoMatchFallsBack(t *testing.T) {
	router := Compile(nil, nil, logger.NewNopLogger())
	got := router.Route("오늘 경기 결과 알려줘")

	assert.False(t, got.Matched)
	assert.Empty(t, got.Intent)
	assert.Equal(t, FallbackReply, got.Reply)

	var nilRouter *Router
	assert.Equal(t, FallbackReply, nilRouter.Route("anything").Reply)
}

func TestCompile_SkipsMalformedPattern(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := logger.NewFromZap(zap.New(core))

	intents := []*entity.ChipIntent{
		{Id: 1, Intent: "suggestion", ResponseText: "제안 감사합니다", IsActive: true},
		{Id: 2, Intent: "bug_report", ResponseText: "버그 감사합니다", IsActive: true},
	}
	patterns := []*entity.ChipPattern{
		{Id: 10, IntentId: 1, PatternRegex: `제안(`, IsActive: true},
		{Id: 11, IntentId: 2, PatternRegex: `버그`, IsActive: true},
	}

	router := Compile(intents, patterns, log)

	require.Equal(t, 1, router.Len())
	assert.Equal(t, "bug_report", router.Route("버그 제안").Intent)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Skipping invalid chip pattern", logs.All()[0].Message)
}

func TestCompile_DropsInactiveAndOrphanPatterns(t *testing.T) {
	intents := []*entity.ChipIntent{
		{Id: 1, Intent: "suggestion", ResponseText: "a", IsActive: false},
		{Id: 2, Intent: "bug_report", ResponseText: "b", IsActive: true},
	}
	patterns := []*entity.ChipPattern{
		{Id: 1, IntentId: 1, PatternRegex: `제안`, IsActive: true},
		{Id: 2, IntentId: 2, PatternRegex: `오류`, IsActive: false},
		{Id: 3, IntentId: 99, PatternRegex: `에러`, IsActive: true},
		{Id: 4, IntentId: 2, PatternRegex: `버그`, IsActive: true},
	}

	router := Compile(intents, patterns, logger.NewNopLogger())

	assert.Equal(t, 1, router.Len())
	assert.False(t, router.Route("제안 오류 에러").Matched)
	assert.True(t, router.Route("버그").Matched)
}

func TestDefaultSeeds_Compile(t *testing.T) {
	for _, seed := range DefaultSeeds {
		for _, p := range seed.Patterns {
			_, err := regexp.Compile(p)
			assert.NoError(t, err, seed.Intent)
		}
	}
}
