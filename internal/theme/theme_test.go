package theme

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/debemdeboas/inkwell/internal/cache"
	"github.com/debemdeboas/inkwell/internal/config"
)

func TestGenerateSyntaxCSS(t *testing.T) {
	testCases := []struct {
		name  string
		theme string
	}{
		{"Monokai", "monokai"},
		{"Gruvbox", "gruvbox"},
		{"Light theme", "catppuccin-latte"},
		{"Non-existent theme falls back", "nonexistent-theme-12345"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			css1 := GenerateSyntaxCSS(tc.theme)
			if !strings.Contains(string(css1), ".chroma") {
				t.Errorf("Expected CSS to contain '.chroma' class")
			}

			cached, found := cache.GetSyntaxCSS(tc.theme)
			if !found || cached != css1 {
				t.Error("Expected generated CSS to be cached")
			}

			if css2 := GenerateSyntaxCSS(tc.theme); css1 != css2 {
				t.Error("Expected second call to return identical CSS from cache")
			}
		})
	}
}

func TestGetSyntaxThemes(t *testing.T) {
	themes := GetSyntaxThemes()
	if len(themes) == 0 {
		t.Fatal("Expected at least one syntax theme")
	}

	for i := 1; i < len(themes); i++ {
		if themes[i-1] > themes[i] {
			t.Errorf("Themes are not sorted: %s > %s", themes[i-1], themes[i])
		}
	}

	for _, name := range []string{"github", "monokai", "gruvbox"} {
		if !IsSyntaxTheme(name) {
			t.Errorf("Expected %s to be a syntax theme", name)
		}
	}
	if IsSyntaxTheme("not-a-theme") {
		t.Error("Expected unknown name to be rejected")
	}
}

func TestSyntaxThemeFromRequest(t *testing.T) {
	original := config.AppConfig
	defer func() { config.AppConfig = original }()
	config.AppConfig = nil

	testCases := []struct {
		name         string
		themeCookie  string
		syntaxCookie string
		expected     string
	}{
		{"No cookies", "", "", config.DefaultDarkSyntaxTheme},
		{"Light page theme", config.LightTheme, "", config.DefaultLightSyntaxTheme},
		{"Syntax cookie wins", config.DarkTheme, "monokai", "monokai"},
		{"Unknown page theme", "sepia", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.themeCookie != "" {
				req.AddCookie(&http.Cookie{Name: config.CookieTheme, Value: tc.themeCookie})
			}
			if tc.syntaxCookie != "" {
				req.AddCookie(&http.Cookie{Name: config.CookieSyntaxTheme, Value: tc.syntaxCookie})
			}

			if got := GetSyntaxThemeFromRequest(req); got != tc.expected {
				t.Errorf("Expected syntax theme %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestThemeFromConfig(t *testing.T) {
	original := config.AppConfig
	defer func() { config.AppConfig = original }()

	config.AppConfig = &config.Config{
		Theme: config.ThemeConfig{
			Default: config.LightTheme,
			SyntaxHighlighting: config.SyntaxConfig{
				DefaultDark:  "dracula",
				DefaultLight: "github",
			},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetThemeFromRequest(req); got != config.LightTheme {
		t.Errorf("Expected %q, got %q", config.LightTheme, got)
	}
	if got := GetSyntaxThemeFromRequest(req); got != "github" {
		t.Errorf("Expected configured light syntax theme, got %q", got)
	}
	if got := GetDefaultSyntaxTheme(config.DarkTheme); got != "dracula" {
		t.Errorf("Expected configured dark syntax theme, got %q", got)
	}
}

func BenchmarkGenerateSyntaxCSS(b *testing.B) {
	GenerateSyntaxCSS("monokai")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		GenerateSyntaxCSS("monokai")
	}
}
