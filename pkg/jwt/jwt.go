package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const TokenTypeAdmin TokenType = "admin"

var ErrEmptySigningKey = errors.New("jwt signing key is empty")

// Claims extends jwt.RegisteredClaims with custom fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
}

type Manager struct {
	signingKey    []byte
	issuer        string
	adminTokenTTL time.Duration
}

func NewManager(signingKey string, issuer string, adminTTL time.Duration) (*Manager, error) {
	if signingKey == "" {
		return nil, ErrEmptySigningKey
	}
	return &Manager{
		signingKey:    []byte(signingKey),
		issuer:        issuer,
		adminTokenTTL: adminTTL,
	}, nil
}

// GenerateAdminToken creates a signed token granting admin access to subject.
func (m *Manager) GenerateAdminToken(subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.adminTokenTTL)),
			ID:        uuid.New().String(),
		},
		TokenType: TokenTypeAdmin,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

// Validate parses and validates a token string, returning claims.
func (m *Manager) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.signingKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Issuer != m.issuer {
		return nil, errors.New("invalid issuer")
	}

	return claims, nil
}
