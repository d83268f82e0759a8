package auth

import (
	"testing"
	"time"

	"production-tracker/internal/config"

	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessSecret  = "access-secret-0123456789abcdef0123"
	testRefreshSecret = "refresh-secret-0123456789abcdef012"
)

type staticPerms map[string][]string

func (p staticPerms) Permissions(role string) []string { return p[role] }

var testPerms = staticPerms{
	"admin":           {"project:create", "project:read", "project:update", "project:delete", "user:manage"},
	"project_manager": {"project:create", "project:read", "project:update", "stage:update"},
	"team_member":     {"project:read", "stage:update"},
	"client":          {"project:read"},
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       testAccessSecret,
		RefreshSecret:   testRefreshSecret,
		JWTIssuer:       "production-tracker",
		JWTAudience:     "production-tracker-web",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(testAuthConfig())
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func newTestHasher() *Hasher { return NewHasher(bcrypt.MinCost) }
