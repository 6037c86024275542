package config

const (
	// Storage errors
	ErrInitializeStorageFmt = "failed to initialize %s storage: %w"
	ErrUnknownBackendFmt    = "unknown storage backend %q"
	ErrInconsistentThread   = "comment thread left inconsistent after failed rollback"

	// Auth errors
	ErrCreateProviderFmt      = "Failed to create provider: %v"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrInternalServerError    = "Internal server error"
	ErrRefreshChallenge       = "Failed to refresh challenge"

	// Post processing errors
	ErrInitializingPosts = "Error initializing posts"
	ErrReloadingPosts    = "Error reloading posts"
)
