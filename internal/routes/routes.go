// Package routes defines the HTTP route patterns of the server.
package routes

const (
	RobotsPath     = "GET /robots.txt"
	SyntaxThemeGet = "GET /syntax-theme/{theme}"
	PostPage       = "GET /posts/{id}"
	PostSlugPage   = "GET /posts/slug/{slug}"
	SSEPath        = "GET /sse"

	// Posts
	APIPostsList   = "GET /api/posts"
	APIPostsCreate = "POST /api/posts"
	APIPostGet     = "GET /api/posts/{id}"
	APIPostUpdate  = "PUT /api/posts/{id}"
	APIPostDelete  = "DELETE /api/posts/{id}"
	APIPostBySlug  = "GET /api/slugs/{slug}"

	// Engagement
	APIPostView          = "POST /api/posts/{id}/view"
	APIPostLike          = "POST /api/posts/{id}/like"
	APIPostBookmark      = "POST /api/posts/{id}/bookmark"
	APIPostComments      = "GET /api/posts/{id}/comments"
	APIPostAddComment    = "POST /api/posts/{id}/comments"
	APIPostClearComments = "DELETE /api/posts/{id}/comments"
	APIBookmarks         = "GET /api/bookmarks"

	// Aggregates
	APITrendingTags = "GET /api/tags/trending"
	APIStats        = "GET /api/stats"
	APICategories   = "GET /api/categories"
	APIFeatured     = "GET /api/featured"

	// Auth
	WebhookUser = "POST /webhook/user"
)
