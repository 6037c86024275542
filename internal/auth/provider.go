// Package auth resolves the signed-in principal of a request.
package auth

import (
	"net/http"

	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/rs/zerolog"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type Provider interface {
	// Middleware stores the principal of the request, if any, in its context.
	// It never rejects a request.
	Middleware() func(http.Handler) http.Handler

	// Principal returns the principal stored by Middleware, or
	// model.ErrAuthRequired.
	Principal(r *http.Request) (model.Principal, error)
}

func principalFromRequest(r *http.Request) (model.Principal, error) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok || p.IsZero() {
		return model.Principal{}, model.ErrAuthRequired
	}
	return p, nil
}

// StaticProvider signs every request in as the same principal. It is used
// when authentication is disabled, for a single author running locally.
type StaticProvider struct {
	principal model.Principal
}

func NewStaticProvider(p model.Principal) *StaticProvider {
	return &StaticProvider{principal: p}
}

func (s *StaticProvider) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), s.principal)))
		})
	}
}

func (s *StaticProvider) Principal(r *http.Request) (model.Principal, error) {
	return principalFromRequest(r)
}
