package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/debemdeboas/inkwell/internal/cache"
	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/rs/zerolog"
)

func ptr(s string) *string { return &s }

func TestPrincipalFromUser(t *testing.T) {
	testCases := []struct {
		name string
		user clerk.User
		want model.Principal
	}{
		{
			name: "Full name and primary email",
			user: clerk.User{
				ID:                    "user_1",
				FirstName:             ptr("Ada"),
				LastName:              ptr("Lovelace"),
				PrimaryEmailAddressID: ptr("e2"),
				EmailAddresses: []*clerk.EmailAddress{
					{ID: "e1", EmailAddress: "old@example.com"},
					{ID: "e2", EmailAddress: "ada@example.com"},
				},
			},
			want: model.Principal{ID: "user_1", Name: "Ada Lovelace", Email: "ada@example.com"},
		},
		{
			name: "Username fallback",
			user: clerk.User{ID: "user_2", Username: ptr("grace")},
			want: model.Principal{ID: "user_2", Name: "grace"},
		},
		{
			name: "Email fallback",
			user: clerk.User{
				ID:             "user_3",
				EmailAddresses: []*clerk.EmailAddress{{ID: "e1", EmailAddress: "linus@example.com"}},
			},
			want: model.Principal{ID: "user_3", Name: "linus", Email: "linus@example.com"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := principalFromUser(&tc.user); got != tc.want {
				t.Errorf("Expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func newTestClerk(fetch func(ctx context.Context, id string) (*clerk.User, error)) *ClerkAuthProvider {
	return &ClerkAuthProvider{
		fetchUser:  fetch,
		principals: cache.NewCache[string, model.Principal](),
	}
}

func TestClerkResolveCaches(t *testing.T) {
	calls := 0
	c := newTestClerk(func(_ context.Context, id string) (*clerk.User, error) {
		calls++
		if id == "missing" {
			return nil, errors.New("not found")
		}
		return &clerk.User{ID: id, Username: ptr("user")}, nil
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := c.resolve(ctx, "user_1")
		if err != nil || p.ID != "user_1" {
			t.Fatalf("Unexpected resolve result %+v (%v)", p, err)
		}
	}
	if calls != 1 {
		t.Errorf("Expected 1 fetch, got %d", calls)
	}

	if _, err := c.resolve(ctx, "missing"); err == nil {
		t.Error("Expected fetch error")
	}
}

func TestClerkWebhook(t *testing.T) {
	SetLogger(zerolog.Nop())
	c := newTestClerk(func(_ context.Context, id string) (*clerk.User, error) {
		return &clerk.User{ID: id}, nil
	})
	c.principals.Set("user_1", model.Principal{ID: "user_1", Name: "Old Name"})

	testCases := []struct {
		name           string
		body           string
		expectedStatus int
		expectEvicted  bool
	}{
		{"Created", `{"type":"user.created","data":{"id":"user_1"}}`, http.StatusNoContent, false},
		{"Updated", `{"type":"user.updated","data":{"id":"user_1"}}`, http.StatusNoContent, true},
		{"Unknown event", `{"type":"session.created","data":{}}`, http.StatusBadRequest, false},
		{"Bad JSON", `{`, http.StatusBadRequest, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c.principals.Set("user_1", model.Principal{ID: "user_1"})

			recorder := httptest.NewRecorder()
			c.HandleWebhookUser(recorder, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(tc.body)))

			if recorder.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, recorder.Code)
			}
			_, cached := c.principals.Get("user_1")
			if cached == tc.expectEvicted {
				t.Errorf("Expected evicted=%v, cached=%v", tc.expectEvicted, cached)
			}
		})
	}
}

func TestClerkPrincipalWithoutSession(t *testing.T) {
	c := newTestClerk(nil)
	if _, err := c.Principal(httptest.NewRequest(http.MethodGet, "/", nil)); !errors.Is(err, model.ErrAuthRequired) {
		t.Errorf("Expected ErrAuthRequired, got %v", err)
	}
}
