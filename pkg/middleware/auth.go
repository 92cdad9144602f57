// Package middleware holds Fiber middleware shared by the HTTP routes.
package middleware

import (
	"errors"
	"strings"

	"github.com/amirasaad/finplan/pkg/config"
	"github.com/amirasaad/finplan/pkg/domain"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKey is the Locals key the verified token is stored under.
const TokenKey = "user"

const defaultUserClaim = "user_id"

// JwtProtected verifies the bearer token with the configured HMAC secret.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	var secret string
	if cfg != nil {
		secret = cfg.Secret
	}
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwt.SigningMethodHS256.Alg(),
			Key:    []byte(secret),
		},
		ContextKey:   TokenKey,
		ErrorHandler: jwtError,
	})
}

// UserID reads the user id claim of the verified token.
func UserID(c *fiber.Ctx, cfg *config.Jwt) (uuid.UUID, error) {
	claim := defaultUserClaim
	if cfg != nil && cfg.UserClaim != "" {
		claim = cfg.UserClaim
	}
	token, ok := c.Locals(TokenKey).(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, domain.ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	raw, ok := claims[claim].(string)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(domain.ErrUnauthorized, err)
	}
	return id, nil
}

func jwtError(c *fiber.Ctx, err error) error {
	status, title := fiber.StatusUnauthorized, "Invalid or expired JWT"
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) ||
		strings.EqualFold(err.Error(), jwtware.ErrJWTMissingOrMalformed.Error()) {
		status, title = fiber.StatusBadRequest, "Missing or malformed JWT"
	}
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   err.Error(),
		"instance": c.OriginalURL(),
	}, "application/problem+json")
}
