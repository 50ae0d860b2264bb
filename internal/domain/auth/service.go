package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/hamyar-ai/hamyar/pkg/errors"
)

// Config holds credentials and token settings for the admin surface.
type Config struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

// Claims are embedded in admin tokens.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and validates admin tokens.
type Service interface {
	Login(ctx context.Context, username, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (Claims, error)
}

type service struct {
	cfg    Config
	logger *slog.Logger
}

// NewService wires up the auth domain.
func NewService(cfg Config, logger *slog.Logger) Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &service{cfg: cfg, logger: logger.With("component", "auth.service")}
}

func (s *service) Login(_ context.Context, username, password string) (string, error) {
	if username != s.cfg.Username {
		return "", apperrors.Wrap(apperrors.CodeUnauthorized, "invalid credentials", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnauthorized, "invalid credentials", nil)
	}

	now := time.Now()
	claims := Claims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnauthorized, "failed to sign token", err)
	}
	s.logger.Info("admin login", "username", username)
	return signed, nil
}

func (s *service) ValidateToken(_ context.Context, tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "invalid token", err)
	}
	if claims.Role != "admin" {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "insufficient role", nil)
	}
	return claims, nil
}
