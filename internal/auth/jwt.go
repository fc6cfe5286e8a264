// Package auth выпускает и проверяет JWT, из которых транспорт берёт Identity.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const issuer = "interview-scheduler"

// Claims uid и роль поверх стандартных полей
type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	now    func() time.Time
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret), now: time.Now}
}

// Issue подписывает токен для identity
func (m *Manager) Issue(identity model.Identity, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: identity.ID,
		Role:   string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(identity.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись, срок и роль и возвращает Identity
func (m *Manager) Parse(token string) (model.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return model.Identity{}, ErrInvalidToken
	}

	identity := model.Identity{ID: claims.UserID, Role: model.Role(claims.Role)}
	if identity.ID <= 0 || !identity.Role.Valid() {
		return model.Identity{}, fmt.Errorf("%w: bad uid or role", ErrInvalidToken)
	}

	return identity, nil
}
