package session

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// Claims is what the client can read out of the backend token without the
// signing key. It is used for expiry scheduling only, never for trust.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// InspectToken decodes a backend JWT without verifying it. ok is false for
// opaque tokens.
func InspectToken(token string) (Claims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return Claims{}, false
	}
	var c Claims
	for _, key := range []string{"id", "userId", "_id", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			c.Subject = v
			break
		}
	}
	c.Role, _ = claims["role"].(string)
	switch exp := claims["exp"].(type) {
	case float64:
		c.ExpiresAt = time.Unix(int64(exp), 0)
	case int64:
		c.ExpiresAt = time.Unix(exp, 0)
	}
	return c, true
}

// Expired reports whether the token carries an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
