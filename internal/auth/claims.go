package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the access token payload. Role and Permissions are captured at
// issuance and stay in force until the token expires, even if the user's
// role changes in the meantime.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	TokenType   TokenType `json:"token_type"`
}

// refreshClaims carries no identity: a refresh token is only a signed,
// revocable handle whose owner is resolved through the token store.
type refreshClaims struct {
	jwt.RegisteredClaims

	TokenType TokenType `json:"token_type"`
}
