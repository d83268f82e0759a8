package auth

import (
	"errors"
	"fmt"
	"time"

	"production-tracker/internal/apperr"
	"production-tracker/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	msgInvalidToken        = "Invalid or expired token"
	msgInvalidRefreshToken = "Invalid or expired refresh token"

	clockSkew = 30 * time.Second
)

// Manager issues and verifies HS256 tokens. Access and refresh tokens are
// signed with different secrets so one can never be replayed as the other.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	var errs []error
	if len(cfg.JWTSecret) < config.MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", config.MinSecretLength))
	}
	if len(cfg.RefreshSecret) < config.MinSecretLength {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d bytes", config.MinSecretLength))
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Manager{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.JWTIssuer,
		audience:      cfg.JWTAudience,
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
	}, nil
}

// AccessSubject is everything an access token asserts about its holder.
type AccessSubject struct {
	UserID      string
	Email       string
	Role        string
	Permissions []string
}

func (m *Manager) IssueAccessToken(now time.Time, sub AccessSubject) (string, error) {
	claims := Claims{
		RegisteredClaims: m.registered(now, m.accessTTL),
		UserID:           sub.UserID,
		Email:            sub.Email,
		Role:             sub.Role,
		Permissions:      sub.Permissions,
		TokenType:        TokenTypeAccess,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
}

// IssueRefreshToken returns the token and the expiry the store should record.
func (m *Manager) IssueRefreshToken(now time.Time) (string, time.Time, error) {
	claims := refreshClaims{
		RegisteredClaims: m.registered(now, m.refreshTTL),
		TokenType:        TokenTypeRefresh,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (m *Manager) VerifyAccessToken(raw string, now time.Time) (Claims, error) {
	var claims Claims
	if err := m.parse(raw, &claims, m.accessSecret, now); err != nil {
		return Claims{}, apperr.Wrap(apperr.KindUnauthenticated, msgInvalidToken, err)
	}
	switch {
	case claims.TokenType != TokenTypeAccess:
		return Claims{}, apperr.Wrap(apperr.KindUnauthenticated, msgInvalidToken, errors.New("token_type mismatch"))
	case claims.UserID == "" || claims.Role == "":
		return Claims{}, apperr.Wrap(apperr.KindUnauthenticated, msgInvalidToken, errors.New("subject missing"))
	}
	return claims, nil
}

func (m *Manager) VerifyRefreshToken(raw string, now time.Time) error {
	var claims refreshClaims
	if err := m.parse(raw, &claims, m.refreshSecret, now); err != nil {
		return apperr.Wrap(apperr.KindUnauthenticated, msgInvalidRefreshToken, err)
	}
	if claims.TokenType != TokenTypeRefresh {
		return apperr.Wrap(apperr.KindUnauthenticated, msgInvalidRefreshToken, errors.New("token_type mismatch"))
	}
	return nil
}

func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

func (m *Manager) parse(raw string, claims jwt.Claims, secret []byte, now time.Time) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	return err
}

func (m *Manager) registered(now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if m.audience != "" {
		rc.Audience = jwt.ClaimStrings{m.audience}
	}
	return rc
}
