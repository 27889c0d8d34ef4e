// Package jwttoken issues and validates the HS256 bearer tokens the admin
// API consumes. The login flow that decides who gets a token lives in the
// surrounding portal; this package only encodes and checks the result.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"accesshub/internal/domain"
	"accesshub/internal/platform/middleware"
	"accesshub/pkg/apperrors"
)

// Claims carries the authenticated principal inside the token.
type Claims struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateToken signs a token for the given principal.
func (s *Service) GenerateToken(userID int, name string, role domain.Role, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Name:   name,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken checks the signature and expiry and returns the principal.
func (s *Service) ValidateToken(tokenString string) (*middleware.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "token has expired")
		}
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.Principal{
		UserID: claims.UserID,
		Name:   claims.Name,
		Role:   domain.Role(claims.Role),
	}, nil
}
