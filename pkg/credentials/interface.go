package credentials

import "context"

// Store holds the single bearer token of the signed-in user. An empty token
// with a nil error means nobody is signed in.
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
