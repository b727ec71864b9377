package credentials

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotJWT = errors.New("token is not a JWT")

// TokenInfo is what the client can learn from a token without the signing
// key. The server remains the authority; this only lets the client skip a
// request that is certain to be refused.
type TokenInfo struct {
	Subject   string
	UserID    primitive.ObjectID
	ExpiresAt time.Time
}

func (i *TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

var userIDClaims = []string{"id", "_id", "userId", "user_id", "sub"}

func Inspect(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	info := &TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	for _, name := range userIDClaims {
		raw, ok := claims[name].(string)
		if !ok {
			continue
		}
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			info.UserID = id
			break
		}
	}
	return info, nil
}

// Usable reports whether a token is worth sending. Opaque tokens are
// always sent; JWTs are dropped once their exp has passed.
func Usable(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	info, err := Inspect(token)
	if err != nil {
		return true
	}
	return !info.Expired(now)
}
