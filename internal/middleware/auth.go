package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

// ActorKey holds the authenticated model.Actor.
const ActorKey contextKey = "actor"

var (
	ErrMissingCredentials = errors.New("authorization required")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnknownRole        = errors.New("unknown role")
)

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (model.Actor, error)
}

// Claims carries the actor in a signed token. Subject is the user id.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HS256 bearer tokens.
type JWTAuthenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTAuthenticator(secret string, ttl time.Duration) *JWTAuthenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTAuthenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueToken signs a token for actor.
func (a *JWTAuthenticator) IssueToken(actor model.Actor) (string, time.Time, error) {
	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := Claims{
		Role: actor.Role.String(),
		Name: actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (a *JWTAuthenticator) Authenticate(r *http.Request) (model.Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return model.Actor{}, ErrMissingCredentials
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return model.Actor{}, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return model.Actor{}, ErrInvalidToken
	}
	role, ok := model.ParseRole(claims.Role)
	if !ok {
		return model.Actor{}, ErrUnknownRole
	}
	return model.Actor{ID: claims.Subject, Role: role, Name: claims.Name}, nil
}

// HeaderAuthenticator trusts X-User-ID and X-User-Role. Development only.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (model.Actor, error) {
	id := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if id == "" {
		return model.Actor{}, ErrMissingCredentials
	}
	role, ok := model.ParseRole(r.Header.Get("X-User-Role"))
	if !ok {
		return model.Actor{}, ErrUnknownRole
	}
	return model.Actor{ID: id, Role: role, Name: r.Header.Get("X-User-Name")}, nil
}

func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := a.Authenticate(r)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, ErrUnknownRole) {
					status = http.StatusForbidden
				}
				writeError(w, r, status, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetActor(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(ActorKey).(model.Actor)
	return a, ok
}
