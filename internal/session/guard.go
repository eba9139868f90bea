// Package session issues and verifies the signed token that carries the
// owner's authorization between requests.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "work-journal"

// ErrInvalidCredentials is returned by Login for any non-matching pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Config holds the signing secret, cookie policy and owner credentials.
type Config struct {
	Secret        []byte
	TTL           time.Duration
	CookieName    string
	Secure        bool
	AdminEmail    string
	AdminPassword string
	Now           func() time.Time
}

// Guard signs and verifies session tokens.
type Guard struct {
	cfg Config
}

type claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"isAdmin"`
}

func NewGuard(cfg Config) (*Guard, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "work-journal-session"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Guard{cfg: cfg}, nil
}

// Authorize reports whether token is a valid, unexpired token issued by
// this guard with the admin flag set. Any defect yields false.
func (g *Guard) Authorize(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return g.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.cfg.Now),
	)
	if err != nil {
		return false
	}
	return parsed.IsAdmin
}

// Login issues an admin token when email and password match the owner's
// credentials exactly.
func (g *Guard) Login(email, password string) (string, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(email)), []byte(g.cfg.AdminEmail)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.cfg.AdminPassword)) == 1
	if !emailOK || !passwordOK || g.cfg.AdminEmail == "" || g.cfg.AdminPassword == "" {
		return "", ErrInvalidCredentials
	}
	return g.issue()
}

// Refresh re-issues a valid token with a new expiry, implementing the
// sliding session window.
func (g *Guard) Refresh(token string) (string, bool) {
	if !g.Authorize(token) {
		return "", false
	}
	fresh, err := g.issue()
	if err != nil {
		return "", false
	}
	return fresh, true
}

func (g *Guard) issue() (string, error) {
	now := g.cfg.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.cfg.TTL)),
		},
		IsAdmin: true,
	})
	signed, err := token.SignedString(g.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// CookieName is the name under which the token travels.
func (g *Guard) CookieName() string {
	return g.cfg.CookieName
}

// Cookie wraps token for the client.
func (g *Guard) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.cfg.TTL.Seconds()),
		Expires:  g.cfg.Now().Add(g.cfg.TTL),
		HttpOnly: true,
		Secure:   g.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Logout returns the cookie instructing the client to drop its token.
func (g *Guard) Logout() *http.Cookie {
	return &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   g.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest extracts the session token from r, if any.
func (g *Guard) FromRequest(r *http.Request) string {
	cookie, err := r.Cookie(g.cfg.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
