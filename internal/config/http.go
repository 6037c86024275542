package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"

	CTypeCSS  = "text/css"
	CTypeHTML = "text/html"
	CTypeJSON = "application/json"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	CookieTheme        = "theme"
	CookieSyntaxTheme  = "syntax-theme"
	CookieAuthToken    = "auth_token"
	CookieClerkSession = "__session"
)
