package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/rs/zerolog"
)

const failedToCreateProvider = "Failed to create provider: %v"

var owner = model.Principal{ID: "owner", Name: "Site Owner"}

// testKeys generates a key pair and returns the public key as PEM.
func testKeys(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), priv
}

func newTestProvider(t *testing.T) (*Ed25519AuthProvider, ed25519.PrivateKey) {
	t.Helper()
	SetLogger(zerolog.Nop())
	pemKey, priv := testKeys(t)
	provider, err := NewEd25519AuthProvider(pemKey, "Authorization", owner)
	if err != nil {
		t.Fatalf(failedToCreateProvider, err)
	}
	return provider, priv
}

func sign(priv ed25519.PrivateKey, provider *Ed25519AuthProvider) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, provider.GetChallenge()))
}

func TestNewEd25519AuthProvider(t *testing.T) {
	validPEM, _ := testKeys(t)

	testCases := []struct {
		name        string
		publicKey   string
		expectError bool
	}{
		{"Valid public key", validPEM, false},
		{"Invalid PEM format", "invalid-pem-data", true},
		{"PEM with garbage body", "-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider, err := NewEd25519AuthProvider(tc.publicKey, "Authorization", owner)
			if tc.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(provider.GetChallenge()) != 32 {
				t.Errorf("Expected a 32 byte challenge, got %d bytes", len(provider.GetChallenge()))
			}
		})
	}
}

func TestEd25519Middleware(t *testing.T) {
	provider, priv := newTestProvider(t)
	valid := sign(priv, provider)

	testCases := []struct {
		name         string
		setupRequest func(*http.Request)
		expectSigned bool
	}{
		{
			name: "Valid signature in header",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", valid)
			},
			expectSigned: true,
		},
		{
			name: "Valid signature in cookie",
			setupRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "auth_token", Value: valid})
			},
			expectSigned: true,
		},
		{
			name: "Invalid signature in header",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "invalid-signature")
			},
		},
		{
			name:         "No signature provided",
			setupRequest: func(r *http.Request) {},
		},
		{
			name: "Invalid header, valid cookie",
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "invalid-header-signature")
				r.AddCookie(&http.Cookie{Name: "auth_token", Value: valid})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setupRequest(req)
			recorder := httptest.NewRecorder()

			var got model.Principal
			var gotErr error
			handler := provider.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, gotErr = provider.Principal(r)
				w.WriteHeader(http.StatusOK)
			}))
			handler.ServeHTTP(recorder, req)

			if tc.expectSigned {
				if gotErr != nil || got != owner {
					t.Errorf("Expected owner principal, got %+v (%v)", got, gotErr)
				}
			} else if !errors.Is(gotErr, model.ErrAuthRequired) {
				t.Errorf("Expected ErrAuthRequired, got %+v (%v)", got, gotErr)
			}

			// The middleware never blocks
			if recorder.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", recorder.Code)
			}
		})
	}
}

func TestRefreshChallengeSignsOut(t *testing.T) {
	provider, priv := newTestProvider(t)
	old := provider.GetChallenge()
	signature, _ := base64.StdEncoding.DecodeString(sign(priv, provider))

	if err := provider.RefreshChallenge(); err != nil {
		t.Fatalf("RefreshChallenge failed: %v", err)
	}

	if string(old) == string(provider.GetChallenge()) {
		t.Error("Expected a new challenge")
	}
	if provider.Verify(signature) {
		t.Error("Expected signature of the old challenge to be rejected")
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(owner)

	var got model.Principal
	handler := p.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = p.Principal(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != owner {
		t.Errorf("Expected %+v, got %+v", owner, got)
	}

	if _, err := p.Principal(httptest.NewRequest(http.MethodGet, "/", nil)); !errors.Is(err, model.ErrAuthRequired) {
		t.Errorf("Expected ErrAuthRequired outside the middleware, got %v", err)
	}
}
