package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/savings-forecast/internal/rbac"
)

// Claims is the access token payload. Role is checked by rbac.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type subjectKey struct{}

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns the token subject, or "" for anonymous requests.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

func withClaims(ctx context.Context, c *Claims) context.Context {
	return rbac.WithRole(WithSubject(ctx, c.Sub), c.Role)
}
