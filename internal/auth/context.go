package auth

import (
	"context"

	"github.com/debemdeboas/inkwell/internal/model"
)

type contextKey string

const contextKeyPrincipal contextKey = "principal"

func ContextWithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal).(model.Principal)
	return p, ok
}
