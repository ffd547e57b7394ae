package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/questhub/core"
	"github.com/layer-3/questhub/ports"
)

const AudienceSession = "questhub:session"

const DefaultTokenTTL = 24 * time.Hour

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
	ttl     time.Duration
	now     func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, ttl time.Duration) ports.Tokenizer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTTokenizer{signKey: signKey, ttl: ttl, now: time.Now}
}

// IdentityToToken issues a bearer token for the identity
func (j *JWTTokenizer) IdentityToToken(identity *core.Identity) (string, error) {
	if identity == nil || identity.ID == "" {
		return "", core.ErrInvalidIdentity
	}

	issuedAt := j.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		Username: identity.Username,
		Wallet:   identity.WalletAddress,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// TokenToIdentityID validates the token and returns its subject
func (j *JWTTokenizer) TokenToIdentityID(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceSession), jwt.WithTimeFunc(j.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", core.ErrTokenExpired
		}
		return "", fmt.Errorf("failed to parse token: %w", core.ErrInvalidToken)
	}

	if !token.Valid {
		return "", core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.Subject == "" {
		return "", core.ErrInvalidToken
	}

	return claims.Subject, nil
}
