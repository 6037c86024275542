package config

// Backing store keys. Per-entity keys are built with the matching prefix.
const (
	KeyPosts           = "inkwell_posts"
	KeyCommentsPrefix  = "inkwell_comments_"
	KeyBookmarksPrefix = "inkwell_bookmarks_"
	KeyLikesPrefix     = "inkwell_likes_"
)
