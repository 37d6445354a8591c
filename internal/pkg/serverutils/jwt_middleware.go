// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var errNoAgent = errors.New("token carries no agent id")

// ParseAgentToken verifies an HMAC-signed operator token and returns its
// agent id: the "sub" claim, or "user_id" for older tokens.
func ParseAgentToken(tokenStr, secret string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenSignatureInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errNoAgent
	}
	agentID, _ := claims.GetSubject()
	if agentID == "" {
		agentID, _ = claims["user_id"].(string)
	}
	if agentID == "" {
		return "", errNoAgent
	}
	return agentID, nil
}

// JwtMiddleware guards operator routes and stores the agent id in
// Locals("agent_id").
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Missing token"))
		}

		agentID, err := ParseAgentToken(authHeader[7:], secret)
		if errors.Is(err, errNoAgent) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Invalid claims"))
		}
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Invalid token"))
		}

		ctx.Locals("agent_id", agentID)
		return ctx.Next()
	}
}

// AgentID reads the id stored by JwtMiddleware.
func AgentID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals("agent_id").(string)
	return id
}
