package serverutils

import (
	"errors"
	"testing"
	"time"

	"support-chat-be/pkg/chat/chaterr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestParseAgentToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	id, err := ParseAgentToken(sign(t, jwt.SigningMethodHS256, []byte("s3cret"), jwt.MapClaims{"sub": "agent-1", "exp": exp}), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", id)

	id, err = ParseAgentToken(sign(t, jwt.SigningMethodHS512, []byte("s3cret"), jwt.MapClaims{"user_id": "agent-2", "exp": exp}), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "agent-2", id)

	_, err = ParseAgentToken(sign(t, jwt.SigningMethodHS256, []byte("s3cret"), jwt.MapClaims{"exp": exp}), "s3cret")
	assert.ErrorIs(t, err, errNoAgent)

	_, err = ParseAgentToken(sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "agent-1"}), "s3cret")
	assert.Error(t, err)

	_, err = ParseAgentToken(sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"sub": "agent-1"}), "s3cret")
	assert.Error(t, err, "unsigned tokens are refused")
}

type sampleRequest struct {
	Text   string `json:"text" validate:"required,max=5"`
	Action string `json:"action" validate:"omitempty,oneof=a b"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&sampleRequest{Text: "hi", Action: "a"}))

	err := ValidateRequest(&sampleRequest{Text: "too long", Action: "c"})
	var verr *chaterr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "text")
	assert.Contains(t, verr.Fields, "action")
	assert.True(t, errors.Is(err, chaterr.ErrValidationFailed))
}
