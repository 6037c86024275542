package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/debemdeboas/inkwell/internal/cache"
	"github.com/debemdeboas/inkwell/internal/config"
	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/rs/zerolog"
)

// ClerkAuthProvider signs in users with a Clerk session token, taken from the
// Authorization header or the session cookie.
type ClerkAuthProvider struct {
	cookieExtractor clerkhttp.AuthorizationOption

	fetchUser  func(ctx context.Context, id string) (*clerk.User, error)
	principals *cache.Cache[string, model.Principal]
}

func NewClerkAuthProvider(clerkKey string) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(config.CookieClerkSession)
			if err != nil || cookie == nil {
				return ""
			}
			return cookie.Value
		}),
		fetchUser:  clerkuser.Get,
		principals: cache.NewCache[string, model.Principal](),
	}
}

func (c *ClerkAuthProvider) Middleware() func(http.Handler) http.Handler {
	verify := clerkhttp.WithHeaderAuthorization(c.cookieExtractor)

	return func(next http.Handler) http.Handler {
		return verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := clerk.SessionClaimsFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			p, err := c.resolve(r.Context(), claims.Subject)
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("user_id", claims.Subject).Msg("Failed to load user")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		}))
	}
}

func (c *ClerkAuthProvider) Principal(r *http.Request) (model.Principal, error) {
	return principalFromRequest(r)
}

// resolve loads the user once and keeps the principal until a webhook says the
// user changed.
func (c *ClerkAuthProvider) resolve(ctx context.Context, userID string) (model.Principal, error) {
	if p, ok := c.principals.Get(userID); ok {
		return p, nil
	}

	usr, err := c.fetchUser(ctx, userID)
	if err != nil {
		return model.Principal{}, err
	}

	p := principalFromUser(usr)
	c.principals.Set(userID, p)
	return p, nil
}

func principalFromUser(usr *clerk.User) model.Principal {
	p := model.Principal{ID: model.UserID(usr.ID)}

	var names []string
	if usr.FirstName != nil && *usr.FirstName != "" {
		names = append(names, *usr.FirstName)
	}
	if usr.LastName != nil && *usr.LastName != "" {
		names = append(names, *usr.LastName)
	}
	p.Name = strings.Join(names, " ")

	for _, email := range usr.EmailAddresses {
		if email == nil {
			continue
		}
		if p.Email == "" || (usr.PrimaryEmailAddressID != nil && email.ID == *usr.PrimaryEmailAddressID) {
			p.Email = email.EmailAddress
		}
	}

	if p.Name == "" && usr.Username != nil {
		p.Name = *usr.Username
	}
	if p.Name == "" {
		p.Name, _, _ = strings.Cut(p.Email, "@")
	}
	return p
}

// HandleWebhookUser drops the cached principal of an updated or deleted user.
func (c *ClerkAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		authLogger.Warn().Err(err).Msg("Error decoding webhook payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	switch payload.Type {
	case "user.created":
		w.WriteHeader(http.StatusNoContent)
	case "user.updated", "user.deleted":
		c.principals.Delete(payload.Data.ID)
		authLogger.Info().Str("user_id", payload.Data.ID).Str("event", payload.Type).Msg("User changed, cached principal dropped")
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
	}
}
