package auth

import (
	"testing"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-0123456789"

func TestManager_IssueAndParse(t *testing.T) {
	m := NewManager(secret)
	identity := model.Identity{ID: 42, Role: model.RoleInterviewer}

	token, err := m.Issue(identity, time.Hour)
	require.NoError(t, err)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestManager_ParseRejects(t *testing.T) {
	m := NewManager(secret)
	valid, err := m.Issue(model.Identity{ID: 1, Role: model.RoleCandidate}, time.Hour)
	require.NoError(t, err)

	expired, err := m.Issue(model.Identity{ID: 1, Role: model.RoleCandidate}, -time.Minute)
	require.NoError(t, err)

	foreign, err := NewManager("another-secret-0123456").Issue(model.Identity{ID: 1, Role: model.RoleCandidate}, time.Hour)
	require.NoError(t, err)

	badRole, err := m.Issue(model.Identity{ID: 1, Role: "superuser"}, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, Role: "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"tampered", valid + "x"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"unknown role", badRole},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
