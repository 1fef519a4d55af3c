package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const (
	RoleClient = "client"
	RoleATM    = "atm"
	RoleAML    = "aml"
	RoleAdmin  = "admin"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Identity is the verified caller attached to a request.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

func (i *Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	UserID   string `json:"userid"`
	jwt.StandardClaims
}

// Authenticator validates HS256 bearer tokens. Tokens are stateless; nothing
// is stored server-side.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for identity. Used by tooling and tests; end-user token
// issuance belongs to the identity service.
func (a *Authenticator) Issue(identity Identity, ttl time.Duration) (string, error) {
	claims := &Claims{
		Username: identity.Username,
		Role:     identity.Role,
		UserID:   identity.UserID,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: a.now().Add(ttl).Unix(),
			IssuedAt:  a.now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Authenticator) Parse(tokenStr string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return &Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		return "", ErrMissingToken
	}
	return token, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(ctxKey{}).(*Identity)
	return identity, ok && identity != nil
}
