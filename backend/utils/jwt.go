package utils

import (
	"strings"
	"time"

	"academy/backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Session is what a signed token carries.
type Session struct {
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

func GenerateJWTToken(userID uint, email, role string, cfg *config.Config) (string, *Session, error) {
	session := &Session{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenID:   uuid.NewString(),
		ExpiresAt: time.Now().Add(cfg.SessionTTL).UTC().Truncate(time.Second),
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"role":    role,
		"jti":     session.TokenID,
		"exp":     session.ExpiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", nil, err
	}
	return signed, session, nil
}

// ParseJWTToken validates the signature and expiry and returns the session.
func ParseJWTToken(tokenString string, cfg *config.Config) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token ID")
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	exp, _ := claims["exp"].(float64)

	return &Session{
		UserID:    uint(userIDFloat),
		Email:     email,
		Role:      role,
		TokenID:   jti,
		ExpiresAt: time.Unix(int64(exp), 0).UTC(),
	}, nil
}

// TokenFromRequest reads a bearer token from the Authorization header and
// falls back to the session cookie.
func TokenFromRequest(c *fiber.Ctx, cfg *config.Config) string {
	if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
		if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			return strings.TrimSpace(auth[7:])
		}
		return strings.TrimSpace(auth)
	}
	return c.Cookies(cfg.CookieName)
}

const sessionKey = "session"

func SetSession(c *fiber.Ctx, s *Session) {
	c.Locals(sessionKey, s)
}

// CurrentSession returns the session stored by the auth middleware, or nil.
func CurrentSession(c *fiber.Ctx) *Session {
	s, _ := c.Locals(sessionKey).(*Session)
	return s
}

func CurrentUserID(c *fiber.Ctx) uint {
	if s := CurrentSession(c); s != nil {
		return s.UserID
	}
	return 0
}
