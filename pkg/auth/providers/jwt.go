package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var _ AuthProvider = &JWTAuthProvider{}

// JWTAuthProvider verifies HMAC signed tokens issued by the account service.
// The user id is read from the "id" claim, falling back to "sub".
type JWTAuthProvider struct {
	secret []byte
	leeway time.Duration
}

type NewJWTAuthProviderOptions struct {
	Secret string
	// Leeway tolerates clock skew when checking exp and nbf.
	Leeway time.Duration
}

type jwtClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

func NewJWTAuthProvider(opts NewJWTAuthProviderOptions) (*JWTAuthProvider, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	return &JWTAuthProvider{
		secret: []byte(opts.Secret),
		leeway: opts.Leeway,
	}, nil
}

// VerifyToken verifies the signature and expiry of a token
func (p *JWTAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, func(token *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(p.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("error verifying token: %v", err)
	}

	uid := claims.ID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return nil, fmt.Errorf("token has no user id")
	}

	return &TokenClaims{
		UID: uid,
	}, nil
}

// SignToken issues a token for uid. It is used by tooling and tests; the
// server itself never issues tokens.
func SignToken(secret string, uid string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		ID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return token, nil
}
