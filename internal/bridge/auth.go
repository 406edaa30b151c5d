package bridge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of tokens issued by the CLI.
const DefaultTokenTTL = 365 * 24 * time.Hour

var errNoToken = errors.New("missing bearer token")

// engineClaims identifies a game engine instance.
type engineClaims struct {
	Server string `json:"srv"`
	jwt.RegisteredClaims
}

// Auth issues and validates HS256 engine tokens.
type Auth struct {
	secret []byte
}

// NewAuth creates an Auth signing with secret.
func NewAuth(secret []byte) *Auth {
	return &Auth{secret: secret}
}

// IssueToken signs a token for the named engine server.
func (a *Auth) IssueToken(server string, ttl time.Duration) (string, error) {
	if server == "" {
		return "", fmt.Errorf("empty server name")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := engineClaims{
		Server: server,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate checks tokenStr and returns the engine server name.
func (a *Auth) Validate(tokenStr string) (string, error) {
	var claims engineClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Server == "" {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Server, nil
}

// tokenFromRequest reads "Authorization: Bearer <token>", falling back to
// the "token" query parameter for engines that cannot set headers.
func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			return "", errNoToken
		}
		return token, nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errNoToken
}
