package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

// CookieName is the only cookie this service issues.
const CookieName = "session_id"

// ErrBadCookie is returned for any cookie value that does not carry a valid
// signature. Callers treat it exactly like an absent cookie.
var ErrBadCookie = errors.New("session cookie invalid")

// Codec signs and verifies the session cookie value. The wire format is
// "<id>.<base64url signature>"; the id itself stays readable so operators
// can correlate a cookie with a sessions row.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode returns the signed cookie value for a session id.
func (c *Codec) Encode(id string) string {
	sig := hmacSign([]byte(id), c.secret)
	return id + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// Decode verifies the signature and returns the embedded session id.
func (c *Codec) Decode(value string) (string, error) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 || idx == len(value)-1 {
		return "", ErrBadCookie
	}
	id := value[:idx]
	sig, err := base64.RawURLEncoding.DecodeString(value[idx+1:])
	if err != nil {
		return "", ErrBadCookie
	}
	expected := hmacSign([]byte(id), c.secret)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", ErrBadCookie
	}
	return id, nil
}

// SetCookie writes the signed session cookie. Secure is set when the service
// is reached over TLS.
func (c *Codec) SetCookie(w http.ResponseWriter, id string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    c.Encode(id),
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the session cookie immediately.
func (c *Codec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func hmacSign(data, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return mac.Sum(nil)
}
