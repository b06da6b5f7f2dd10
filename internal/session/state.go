package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrBadState is returned for any state token that fails verification,
// including expired and tampered tokens.
var ErrBadState = errors.New("oauth state invalid")

const stateTTL = 10 * time.Minute

type stateClaims struct {
	ReturnTo string `json:"return_to,omitempty"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies the anti-forgery state carried through the
// OAuth redirect. The state is a short-lived HS256 token so the callback can
// be validated without server-side storage.
type StateSigner struct {
	secret []byte
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// Issue returns a state token. returnTo is an optional post-login path
// round-tripped through the provider.
func (s *StateSigner) Issue(returnTo string) (string, error) {
	now := time.Now()
	claims := stateClaims{
		ReturnTo: returnTo,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the state token and returns the embedded return path.
func (s *StateSigner) Verify(token string) (string, error) {
	var claims stateClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", ErrBadState
	}
	return claims.ReturnTo, nil
}
