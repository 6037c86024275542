package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/debemdeboas/inkwell/internal/auth"
	"github.com/debemdeboas/inkwell/internal/config"
	"github.com/debemdeboas/inkwell/internal/engagement"
	"github.com/debemdeboas/inkwell/internal/feed"
	"github.com/debemdeboas/inkwell/internal/kv"
	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/debemdeboas/inkwell/internal/render"
	"github.com/debemdeboas/inkwell/internal/repository"
	"github.com/debemdeboas/inkwell/internal/rotator"
	"github.com/debemdeboas/inkwell/internal/routes"
	"github.com/debemdeboas/inkwell/internal/sse"
	"github.com/debemdeboas/inkwell/internal/theme"
	"github.com/debemdeboas/inkwell/internal/util"
	"github.com/rs/zerolog"
)

// App holds the services the HTTP handlers call into.
type App struct {
	cfg *config.Config

	posts    *repository.KVPostRepository
	comments *repository.KVCommentRepository
	tracker  *engagement.Tracker
	featured *rotator.Rotator
	clients  *sse.SSEClients
	auth     auth.Provider

	now func() time.Time
}

func NewApp(cfg *config.Config, store kv.Store, provider auth.Provider, featured *rotator.Rotator) *App {
	posts := repository.NewKVPostRepository(store)
	clients := sse.NewSSEClients()
	posts.SetReloadNotifier(clients.NotifyReload)

	return &App{
		cfg:      cfg,
		posts:    posts,
		comments: repository.NewKVCommentRepository(store, posts),
		tracker:  engagement.NewTracker(store, posts),
		featured: featured,
		clients:  clients,
		auth:     provider,
		now:      time.Now,
	}
}

func (a *App) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc(routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.Write([]byte("User-agent: *\nDisallow:"))
	})
	mux.HandleFunc(routes.SyntaxThemeGet, serveSyntaxThemeGetTheme)
	mux.HandleFunc(routes.PostPage, a.servePost)
	mux.HandleFunc(routes.PostSlugPage, a.servePostBySlug)
	mux.HandleFunc(routes.SSEPath, a.eventsHandler)

	mux.HandleFunc(routes.APIPostsList, a.handleListPosts)
	mux.HandleFunc(routes.APIPostsCreate, a.handleCreatePost)
	mux.HandleFunc(routes.APIPostGet, a.handleGetPost)
	mux.HandleFunc(routes.APIPostUpdate, a.handleUpdatePost)
	mux.HandleFunc(routes.APIPostDelete, a.handleDeletePost)
	mux.HandleFunc(routes.APIPostBySlug, a.handleGetPostBySlug)

	mux.HandleFunc(routes.APIPostView, a.handleView)
	mux.HandleFunc(routes.APIPostLike, a.handleLike)
	if a.cfg.Features.Bookmarks.Enabled {
		mux.HandleFunc(routes.APIPostBookmark, a.handleBookmark)
		mux.HandleFunc(routes.APIBookmarks, a.handleBookmarks)
	}
	if a.cfg.Features.Comments.Enabled {
		mux.HandleFunc(routes.APIPostComments, a.handleListComments)
		mux.HandleFunc(routes.APIPostAddComment, a.handleAddComment)
		mux.HandleFunc(routes.APIPostClearComments, a.handleClearComments)
	}

	mux.HandleFunc(routes.APITrendingTags, a.handleTrendingTags)
	mux.HandleFunc(routes.APIStats, a.handleStats)
	mux.HandleFunc(routes.APICategories, a.handleCategories)
	mux.HandleFunc(routes.APIFeatured, a.handleFeatured)

	switch provider := a.auth.(type) {
	case *auth.Ed25519AuthProvider:
		auth.RegisterEd25519AuthRoutes(mux, provider)
	case *auth.ClerkAuthProvider:
		mux.HandleFunc(routes.WebhookUser, provider.HandleWebhookUser)
	}

	return mux
}

type errorResponse struct {
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Backend failures are logged;
// the rest are expected client errors.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	var be *model.BackendError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Field: ve.Field, Error: ve.Message})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrAuthRequired):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.As(err, &be):
		zerolog.Ctx(r.Context()).Error().Err(err).Str("op", be.Op).Msg("Backend request failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: be.Error()})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: config.ErrInternalServerError})
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &model.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// principal returns the signed-in user, or the zero principal.
func (a *App) principal(r *http.Request) model.Principal {
	p, _ := a.auth.Principal(r)
	return p
}

// visible reports whether the post may be shown to the request's user. Drafts
// are only visible to their author.
func (a *App) visible(r *http.Request, post *model.Post) bool {
	return post.IsPublished() || (post.AuthorID != "" && a.principal(r).ID == post.AuthorID)
}

func (a *App) visiblePost(r *http.Request) (*model.Post, error) {
	id := model.PostID(r.PathValue("id"))
	post, err := a.posts.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !a.visible(r, post) {
		return nil, model.PostNotFound(id)
	}
	return post, nil
}

// visiblePostBySlug resolves the slug path value to the first post the
// request's user may see.
func (a *App) visiblePostBySlug(r *http.Request) (*model.Post, error) {
	return a.posts.GetBySlug(r.Context(), r.PathValue("slug"), func(p *model.Post) bool {
		return a.visible(r, p)
	})
}

type postSummary struct {
	model.Post
	DisplayTags []string `json:"displayTags"`
}

func (a *App) summaries(posts []model.Post) []postSummary {
	out := make([]postSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, postSummary{Post: p, DisplayTags: p.DisplayTags(a.cfg.Feed.TagDisplayLimit)})
	}
	return out
}

type listResponse struct {
	Posts        []postSummary `json:"posts"`
	Total        int           `json:"total"`
	Count        int           `json:"count"`
	HasMore      bool          `json:"hasMore"`
	CanShowFewer bool          `json:"canShowFewer"`
	Sort         feed.Sort     `json:"sort"`
	FilterKey    string        `json:"filterKey"`
	Reset        bool          `json:"reset"`
}

func filterKey(q feed.Query) string {
	return util.ContentHashString(q.Key())[:16]
}

// window rebuilds the reader's pagination window from the query string. The
// client echoes back count and filter_key from the previous response. A
// different filter resets the window and the action is ignored.
func (a *App) window(values url.Values, q feed.Query, total int) (*feed.Window, bool) {
	w := feed.NewWindow(a.cfg.Feed.PageSize, a.cfg.Feed.PageStep, a.cfg.Feed.PageSize)

	previous := values.Get("filter_key")
	if previous == "" {
		previous = filterKey(q)
	}
	w.SetFilter(previous)
	if n, err := strconv.Atoi(values.Get("count")); err == nil {
		w.Count = max(n, w.Min)
	}

	if w.SetFilter(filterKey(q)) {
		return w, true
	}

	switch values.Get("action") {
	case "more":
		w.Increase(total)
	case "fewer":
		w.Decrease()
	}
	return w, false
}

func (a *App) handleListPosts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := feed.Query{
		Search:   values.Get("search"),
		Tag:      values.Get("tag"),
		Sort:     feed.ParseSort(values.Get("sort"), feed.ParseSort(a.cfg.Feed.DefaultSort, feed.SortRelevant)),
		AuthorID: model.UserID(values.Get("author")),
	}

	if drafts, _ := strconv.ParseBool(values.Get("drafts")); drafts {
		p, err := a.auth.Principal(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		q.AuthorID = p.ID
		q.IncludeDrafts = true
	}

	posts, err := a.posts.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := feed.ComputeView(posts, q, a.now())
	window, reset := a.window(values, q, len(view))

	writeJSON(w, http.StatusOK, listResponse{
		Posts:        a.summaries(window.Slice(view)),
		Total:        len(view),
		Count:        window.Count,
		HasMore:      window.HasMore(len(view)),
		CanShowFewer: window.CanShowFewer(),
		Sort:         q.Sort,
		FilterKey:    filterKey(q),
		Reset:        reset,
	})
}

type postRequest struct {
	Title    string       `json:"title"`
	Slug     string       `json:"slug"`
	Content  string       `json:"content"`
	Excerpt  string       `json:"excerpt"`
	Category string       `json:"category"`
	Tags     []string     `json:"tags"`
	Status   model.Status `json:"status"`
}

// toPost builds the author-controlled part of a post. Front matter in the
// content fills the fields the request left empty.
func (req postRequest) toPost() (model.Post, error) {
	post := model.Post{
		Title:    req.Title,
		Slug:     req.Slug,
		Content:  req.Content,
		Excerpt:  req.Excerpt,
		Category: req.Category,
		Tags:     req.Tags,
		Status:   req.Status,
	}
	if _, err := util.ApplyFrontMatter(&post); err != nil {
		return post, &model.ValidationError{Field: "content", Message: err.Error()}
	}
	// Creation time is stamped by the store.
	post.CreatedAt = time.Time{}
	return post, nil
}

func (a *App) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	author, err := a.auth.Principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := req.toPost()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if post.Status == "" {
		post.Status = model.StatusPublished
	}
	post.AuthorID = author.ID
	post.AuthorName = author.Name

	saved, err := a.posts.Upsert(r.Context(), post)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("post_id", string(saved.ID)).Str("status", string(saved.Status)).Msg("Post published")
	writeJSON(w, http.StatusCreated, saved)
}

// postDetail is a single post as seen by the request's user.
type postDetail struct {
	*model.Post
	Liked bool `json:"liked"`
}

func (a *App) writePost(w http.ResponseWriter, r *http.Request, post *model.Post) {
	detail := postDetail{Post: post}
	if user := a.principal(r); !user.IsZero() {
		liked, err := a.tracker.HasLiked(r.Context(), post.ID, user.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		detail.Liked = liked
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *App) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := a.visiblePost(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writePost(w, r, post)
}

func (a *App) handleGetPostBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := a.visiblePostBySlug(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writePost(w, r, post)
}

// handleUpdatePost replaces the author-controlled fields of a post. Id, author,
// creation time and counters stay as stored.
func (a *App) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.Principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	next, err := req.toPost()
	if err != nil {
		writeError(w, r, err)
		return
	}

	var updated model.Post
	id := model.PostID(r.PathValue("id"))
	err = a.posts.Mutate(r.Context(), id, func(_ kv.Tx, post *model.Post) error {
		if post.AuthorID != user.ID {
			return model.ErrForbidden
		}

		next.ID = post.ID
		next.AuthorID = post.AuthorID
		next.AuthorName = post.AuthorName
		next.CreatedAt = post.CreatedAt
		next.Likes, next.Comments, next.Views = post.Likes, post.Comments, post.Views
		if next.Status == "" {
			next.Status = post.Status
		}

		next.Normalize()
		if err := next.Validate(); err != nil {
			return err
		}
		next.UpdatedAt = a.now()

		*post = next
		updated = next
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (a *App) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.Principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id := model.PostID(r.PathValue("id"))
	post, err := a.posts.Get(r.Context(), id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		writeError(w, r, err)
		return
	case post.AuthorID != user.ID:
		writeError(w, r, model.ErrForbidden)
		return
	}

	if err := a.posts.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleView(w http.ResponseWriter, r *http.Request) {
	if _, err := a.visiblePost(r); err != nil {
		writeError(w, r, err)
		return
	}

	views, err := a.tracker.View(r.Context(), model.PostID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"views": views})
}

func (a *App) handleLike(w http.ResponseWriter, r *http.Request) {
	post, err := a.visiblePost(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := a.tracker.Like(r.Context(), post.ID, a.principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *App) handleBookmark(w http.ResponseWriter, r *http.Request) {
	post, err := a.visiblePost(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := a.tracker.Bookmark(r.Context(), post.ID, a.principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleClearComments drops the whole comment thread of a post. Only the
// author of the post may do it.
func (a *App) handleClearComments(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.Principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := a.visiblePost(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if post.AuthorID != user.ID {
		writeError(w, r, model.ErrForbidden)
		return
	}

	if err := a.comments.DeleteThread(r.Context(), post.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBookmarks lists the bookmarked posts of the user, oldest bookmark first.
func (a *App) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	ids, err := a.tracker.Bookmarks(r.Context(), a.principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	posts, err := a.posts.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	byID := make(map[model.PostID]model.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	bookmarked := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && a.visible(r, &p) {
			bookmarked = append(bookmarked, p)
		}
	}
	writeJSON(w, http.StatusOK, a.summaries(bookmarked))
}

func (a *App) handleListComments(w http.ResponseWriter, r *http.Request) {
	post, err := a.visiblePost(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	comments, err := a.comments.List(r.Context(), post.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (a *App) handleAddComment(w http.ResponseWriter, r *http.Request) {
	post, err := a.visiblePost(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	comment, err := a.comments.Add(r.Context(), post.ID, a.principal(r), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// publishedPosts is the public feed in the configured default order.
func (a *App) publishedPosts(r *http.Request) ([]model.Post, error) {
	posts, err := a.posts.GetAll(r.Context())
	if err != nil {
		return nil, err
	}
	return feed.ComputeView(posts, feed.Query{}, a.now()), nil
}

func (a *App) handleTrendingTags(w http.ResponseWriter, r *http.Request) {
	posts, err := a.publishedPosts(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := a.cfg.Feed.TrendingLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	writeJSON(w, http.StatusOK, feed.TrendingTags(posts, limit))
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	posts, err := a.posts.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed.CommunityStats(posts))
}

func (a *App) handleCategories(w http.ResponseWriter, r *http.Request) {
	posts, err := a.publishedPosts(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed.Categories(posts))
}

type featuredResponse struct {
	Index      int         `json:"index"`
	Candidates int         `json:"candidates"`
	Post       *model.Post `json:"post"`
}

// handleFeatured returns the candidate the rotator currently points at. The
// candidates are the most relevant published posts.
func (a *App) handleFeatured(w http.ResponseWriter, r *http.Request) {
	if !a.cfg.Featured.Enabled || a.featured == nil {
		writeError(w, r, &model.NotFoundError{Kind: "feature", ID: "featured"})
		return
	}

	posts, err := a.posts.GetAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := feed.ComputeView(posts, feed.Query{Sort: feed.SortRelevant}, a.now())
	candidates := feed.Slice(view, a.cfg.Featured.Candidates)
	a.featured.SetSize(len(candidates))

	res := featuredResponse{Index: a.featured.Current(), Candidates: len(candidates)}
	if res.Index < len(candidates) {
		res.Post = &candidates[res.Index]
	}
	writeJSON(w, http.StatusOK, res)
}

// servePost writes the rendered post body as an HTML fragment.
func (a *App) servePost(w http.ResponseWriter, r *http.Request) {
	post, err := a.visiblePost(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeRendered(w, r, post)
}

func (a *App) servePostBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := a.visiblePostBySlug(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeRendered(w, r, post)
}

func writeRendered(w http.ResponseWriter, r *http.Request, post *model.Post) {
	syntaxTheme := theme.GetSyntaxThemeFromRequest(r)
	htmlContent := render.RenderPost(post, syntaxTheme)

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Header().Set(config.HETag, util.ContentHashString(post.Content+syntaxTheme))
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<title>%s</title>\n%s", html.EscapeString(post.Title), htmlContent)
}

func serveSyntaxThemeGetTheme(w http.ResponseWriter, r *http.Request) {
	themeStyle := []byte(theme.GenerateSyntaxCSS(r.PathValue("theme")))

	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HETag, util.ContentHash(themeStyle))
	// Stylesheets only change with the Chroma version
	w.Header().Set(config.HCacheControl, "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(themeStyle)
}

// eventsHandler streams reload events for one post until the client leaves.
func (a *App) eventsHandler(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	postID := r.URL.Query().Get("post")
	if postID == "" {
		http.Error(w, "Post parameter required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := sse.NewClient(model.PostID(postID))
	a.clients.Add(client)
	l.Debug().Str("post_id", postID).Msg("New SSE client connected")

	defer func() {
		a.clients.Delete(client)
		l.Debug().Str("post_id", postID).Msg("SSE client disconnected")
	}()

	for {
		select {
		case msg, open := <-client.Msg:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
