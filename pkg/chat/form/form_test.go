package form

import (
	"errors"
	"strings"
	"testing"

	"support-chat-be/pkg/chat/chaterr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Valid(t *testing.T) {
	tests := []struct {
		name   string
		intent string
		data   map[string]interface{}
	}{
		{
			name:   "suggestion",
			intent: IntentSuggestion,
			data:   map[string]interface{}{"title": "다크 모드", "detail": "다크 모드를 추가해 주세요. 밤에 눈이 아파요."},
		},
		{
			name:   "report with url",
			intent: IntentReportMember,
			data:   map[string]interface{}{"link": "https://example.com/post/1", "reason": "욕설이 반복적으로 작성되었습니다."},
		},
		{
			name:   "bug report without screenshot",
			intent: IntentBugReport,
			data:   map[string]interface{}{"description": "글쓰기 버튼을 누르면 화면이 멈춥니다.", "screenshotUrl": ""},
		},
		{
			name:   "delete request",
			intent: IntentDeleteRequest,
			data: map[string]interface{}{
				"link": "https://example.com/post/2", "reason": "개인정보가 포함된 글입니다.", "accountState": "deactivated",
			},
		},
		{
			name:   "agent connect",
			intent: IntentAgentConnect,
			data:   map[string]interface{}{"customerName": "홍길동", "customerContact": "010-0000-0000", "inquiryType": "account"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := Decode(tt.intent, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, sub.Intent())
		})
	}
}

func TestDecode_FieldErrors(t *testing.T) {
	_, err := Decode(IntentSuggestion, map[string]interface{}{"title": "  ", "detail": "짧아요"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, chaterr.ErrValidationFailed))

	var verr *chaterr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is required", verr.Fields["title"])
	assert.Equal(t, "must be at least 10 characters", verr.Fields["detail"])
}

func TestDecode_LengthCountsCharacters(t *testing.T) {
	// 100 Hangul syllables are 300 bytes but within the 100 character limit.
	title := strings.Repeat("가", 100)
	_, err := Decode(IntentSuggestion, map[string]interface{}{"title": title, "detail": "충분히 긴 상세 설명입니다."})
	assert.NoError(t, err)

	_, err = Decode(IntentSuggestion, map[string]interface{}{"title": title + "가", "detail": "충분히 긴 상세 설명입니다."})
	assert.Error(t, err)
}

func TestDecode_RejectsBadEnumAndURL(t *testing.T) {
	_, err := Decode(IntentDeleteRequest, map[string]interface{}{
		"link": "not a url", "reason": "개인정보가 포함된 글입니다.", "accountState": "banned",
	})
	var verr *chaterr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "link")
	assert.Contains(t, verr.Fields, "accountState")
}

func TestDecode_UnknownIntent(t *testing.T) {
	_, err := Decode(IntentCommunityGuidelines, map[string]interface{}{})
	assert.True(t, errors.Is(err, chaterr.ErrValidationFailed))
	assert.False(t, Has(IntentCommunityGuidelines))
	assert.True(t, Has(IntentBugReport))
}
