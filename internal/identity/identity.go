// Package identity turns an incoming request into the user id the cart
// service is called with.
package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	HeaderUserID = "X-User-ID"
	CookieUserID = "uid"

	maxUserIDLen = 128
)

// Resolver returns the caller's user id, or "" for an anonymous caller.
type Resolver interface {
	Resolve(r *http.Request) string
}

// RequestResolver trusts the X-User-ID header set by the gateway and falls
// back to the uid cookie written by the storefront login page.
type RequestResolver struct{}

func (RequestResolver) Resolve(r *http.Request) string {
	if id := clean(r.Header.Get(HeaderUserID)); id != "" {
		return id
	}
	if c, err := r.Cookie(CookieUserID); err == nil {
		return clean(c.Value)
	}
	return ""
}

// JWTResolver accepts only HS256 bearer tokens signed with secret and
// returns their subject. Headers and cookies are ignored.
type JWTResolver struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (j *JWTResolver) Resolve(r *http.Request) string {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	sub, err := j.subject(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return clean(sub)
}

func (j *JWTResolver) subject(raw string) (string, error) {
	tok, err := j.parser.Parse(raw, func(*jwt.Token) (any, error) { return j.secret, nil })
	if err != nil {
		return "", err
	}
	if !tok.Valid {
		return "", errors.New("invalid token")
	}
	return tok.Claims.GetSubject()
}

// New picks the JWT resolver when a signing secret is configured.
func New(jwtSecret string) Resolver {
	if jwtSecret != "" {
		return NewJWTResolver(jwtSecret)
	}
	return RequestResolver{}
}

func clean(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > maxUserIDLen || id == "0" {
		return ""
	}
	return id
}
