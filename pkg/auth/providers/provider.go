package providers

import "context"

// AuthProvider verifies the bearer token presented when a websocket
// connection is opened.
type AuthProvider interface {
	VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error)
}

// TokenClaims is the verified identity of a connection. UID must match the
// userId a client sends when joining a game.
type TokenClaims struct {
	UID string `json:"uid"`
}
