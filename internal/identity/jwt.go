package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the resolver understands. The user id is
// carried either in the custom user_id claim or in the registered subject.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
}

// TokenResolver resolves an Authorization header into an identity. The
// token is an HS256 JWT issued by the external identity provider; this
// service only verifies it, it never issues tokens.
type TokenResolver struct {
	secret []byte
}

// NewTokenResolver creates a resolver verifying tokens with the shared secret.
func NewTokenResolver(secret string) *TokenResolver {
	return &TokenResolver{secret: []byte(secret)}
}

// Resolve maps a raw Authorization header value to an identity. An absent
// header is a guest session; a present but invalid token also resolves to
// guest rather than failing the request, since every operation has guest
// semantics. With no secret configured nothing can be verified, so every
// request is guest; otherwise a token signed with an empty key would pass.
func (r *TokenResolver) Resolve(authorization string) Identity {
	if authorization == "" || len(r.secret) == 0 {
		return Identity{State: Guest}
	}

	raw := strings.TrimPrefix(authorization, "Bearer ")
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{State: Guest}
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Identity{State: Guest}
	}
	return Identity{State: Authenticated, UserID: userID}
}
