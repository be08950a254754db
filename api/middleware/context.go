package middleware

import (
	"context"

	"github.com/rockettradeline/tradeline-backend/pkg/auth"
	pkgerrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// WithIdentity injects the caller identity into the context.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}

// IdentityFromContext returns the authenticated caller, or an
// unauthorized error when the auth middleware did not run.
func IdentityFromContext(ctx context.Context) (auth.Identity, error) {
	if ctx == nil {
		return auth.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if identity, ok := ctx.Value(ctxIdentity).(auth.Identity); ok {
		return identity, nil
	}
	return auth.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
}
