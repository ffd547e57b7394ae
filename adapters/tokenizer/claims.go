package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the identity's display data
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Wallet   string `json:"wallet,omitempty"`
}
