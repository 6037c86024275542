// Package theme resolves the reader's page and syntax themes and generates the
// Chroma stylesheet for code blocks.
package theme

import (
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/debemdeboas/inkwell/internal/cache"
	"github.com/debemdeboas/inkwell/internal/config"
)

func themeConfig() config.ThemeConfig {
	if config.AppConfig != nil {
		return config.AppConfig.Theme
	}
	return config.ThemeConfig{
		Default: config.DefaultTheme,
		SyntaxHighlighting: config.SyntaxConfig{
			DefaultDark:  config.DefaultDarkSyntaxTheme,
			DefaultLight: config.DefaultLightSyntaxTheme,
		},
	}
}

func GetThemeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieTheme); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return themeConfig().Default
}

func GetDefaultSyntaxTheme(theme string) string {
	cfg := themeConfig().SyntaxHighlighting
	switch theme {
	case config.LightTheme:
		return cfg.DefaultLight
	case config.DarkTheme:
		return cfg.DefaultDark
	}
	return ""
}

// GetSyntaxThemeFromRequest prefers the syntax-theme cookie, then the default
// for the page theme.
func GetSyntaxThemeFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return GetDefaultSyntaxTheme(GetThemeFromRequest(r))
}

func GetSyntaxThemes() []string {
	styleNames := styles.Names()
	slices.Sort(styleNames)
	return styleNames
}

// IsSyntaxTheme reports whether Chroma ships a style with this name.
func IsSyntaxTheme(name string) bool {
	_, ok := styles.Registry[name]
	return ok
}

func GetFormatter() *html.Formatter {
	return html.New(
		html.WithClasses(true),
		html.TabWidth(4),
		html.WithLineNumbers(true),
		html.WrapLongLines(true),
	)
}

func GenerateSyntaxCSS(theme string) template.CSS {
	if css, ok := cache.GetSyntaxCSS(theme); ok {
		return css
	}

	var buf strings.Builder
	style := styles.Get(theme)

	bg := style.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Chroma themes without a text colour get one that contrasts with the background
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	GetFormatter().WriteCSS(&buf, style)
	css := template.CSS(buf.String())
	cache.SetSyntaxCSS(theme, css)
	return css
}
