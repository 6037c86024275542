package repository

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/debemdeboas/inkwell/internal/config"
	"github.com/debemdeboas/inkwell/internal/kv"
	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/debemdeboas/inkwell/internal/util"
	"github.com/google/uuid"
)

func CommentsKey(id model.PostID) string {
	return config.KeyCommentsPrefix + string(id)
}

func LikesKey(id model.PostID) string {
	return config.KeyLikesPrefix + string(id)
}

func BookmarksKey(id model.UserID) string {
	return config.KeyBookmarksPrefix + string(id)
}

// LoadPosts reads the post collection. A missing collection is empty.
func LoadPosts(ctx context.Context, g kv.Getter) ([]model.Post, error) {
	var posts []model.Post
	err := kv.GetJSON(ctx, g, config.KeyPosts, &posts)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return []model.Post{}, nil
	}
	return posts, err
}

func SavePosts(ctx context.Context, s kv.Setter, posts []model.Post) error {
	return kv.SetJSON(ctx, s, config.KeyPosts, posts)
}

func indexOf(posts []model.Post, id model.PostID) int {
	return slices.IndexFunc(posts, func(p model.Post) bool { return p.ID == id })
}

// KVPostRepository keeps the whole post collection as one JSON document.
// Every write reads the collection, changes it and writes it back.
type KVPostRepository struct {
	store kv.Store

	now   func() time.Time
	newID func() string

	reloadNotifier func(model.PostID)

	mu     sync.Mutex
	hashes map[model.PostID]string
}

func NewKVPostRepository(store kv.Store) *KVPostRepository {
	return &KVPostRepository{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		hashes: make(map[model.PostID]string),
	}
}

func (r *KVPostRepository) SetReloadNotifier(notifier func(model.PostID)) {
	r.reloadNotifier = notifier
}

func (r *KVPostRepository) notifyPostReload(postID model.PostID) {
	if r.reloadNotifier != nil {
		go r.reloadNotifier(postID)
	}
}

func (r *KVPostRepository) GetAll(ctx context.Context) ([]model.Post, error) {
	posts, err := LoadPosts(ctx, r.store)
	return posts, model.Backend("read posts", err)
}

func (r *KVPostRepository) Get(ctx context.Context, id model.PostID) (*model.Post, error) {
	posts, err := LoadPosts(ctx, r.store)
	if err != nil {
		return nil, model.Backend("read posts", err)
	}

	i := indexOf(posts, id)
	if i < 0 {
		return nil, model.PostNotFound(id)
	}
	return &posts[i], nil
}

// GetBySlug returns the first post in creation order whose slug matches and
// for which visible reports true. A nil visible accepts every post.
func (r *KVPostRepository) GetBySlug(ctx context.Context, slug string, visible func(*model.Post) bool) (*model.Post, error) {
	posts, err := LoadPosts(ctx, r.store)
	if err != nil {
		return nil, model.Backend("read posts", err)
	}

	for i := range posts {
		if strings.EqualFold(posts[i].Slug, slug) && (visible == nil || visible(&posts[i])) {
			return &posts[i], nil
		}
	}
	return nil, &model.NotFoundError{Kind: "post", ID: slug}
}

func (r *KVPostRepository) Upsert(ctx context.Context, post model.Post) (*model.Post, error) {
	post.Normalize()
	if err := post.Validate(); err != nil {
		return nil, err
	}

	var saved []model.Post
	err := r.store.Update(ctx, func(tx kv.Tx) error {
		posts, err := LoadPosts(ctx, tx)
		if err != nil {
			return err
		}

		now := r.now()
		if post.ID == "" {
			post.ID = model.PostID(r.newID())
			if post.CreatedAt.IsZero() {
				post.CreatedAt = now
			}
			post.UpdatedAt = now
			posts = append(posts, post)
		} else {
			i := indexOf(posts, post.ID)
			if i < 0 {
				return model.PostNotFound(post.ID)
			}
			if post.CreatedAt.IsZero() {
				post.CreatedAt = posts[i].CreatedAt
			}
			post.UpdatedAt = now
			posts[i] = post
		}

		saved = posts
		return SavePosts(ctx, tx, posts)
	})
	if err != nil {
		return nil, model.Backend("write posts", err)
	}

	repoLogger.Info().Str("post_id", string(post.ID)).Str("title", post.Title).Str("status", string(post.Status)).Msg("Post saved")
	r.remember(saved)
	r.notifyPostReload(post.ID)
	return &post, nil
}

func (r *KVPostRepository) Remove(ctx context.Context, id model.PostID) error {
	var saved []model.Post
	removed := false

	err := r.store.Update(ctx, func(tx kv.Tx) error {
		posts, err := LoadPosts(ctx, tx)
		if err != nil {
			return err
		}

		if i := indexOf(posts, id); i >= 0 {
			posts = slices.Delete(posts, i, i+1)
			removed = true
			if err := SavePosts(ctx, tx, posts); err != nil {
				return err
			}
		}
		saved = posts

		if err := deleteThread(ctx, tx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, LikesKey(id))
	})
	if err != nil {
		return model.Backend("delete post", err)
	}

	if removed {
		repoLogger.Info().Str("post_id", string(id)).Msg("Post deleted")
		r.remember(saved)
		r.notifyPostReload(id)
	}
	return nil
}

func (r *KVPostRepository) IncrementCounter(ctx context.Context, id model.PostID, counter model.Counter, delta int) (int, error) {
	var value int
	err := r.Mutate(ctx, id, func(_ kv.Tx, post *model.Post) error {
		var err error
		value, err = counter.Apply(post, delta)
		return err
	})
	return value, err
}

// Mutate runs fn on the stored post inside one Update and writes the
// collection back after fn. Keys fn writes through tx are committed together
// with the post, before it.
func (r *KVPostRepository) Mutate(ctx context.Context, id model.PostID, fn func(tx kv.Tx, post *model.Post) error) error {
	var saved []model.Post
	err := r.store.Update(ctx, func(tx kv.Tx) error {
		posts, err := LoadPosts(ctx, tx)
		if err != nil {
			return err
		}

		i := indexOf(posts, id)
		if i < 0 {
			return model.PostNotFound(id)
		}
		if err := fn(tx, &posts[i]); err != nil {
			return err
		}

		saved = posts
		return SavePosts(ctx, tx, posts)
	})
	if err != nil {
		return model.Backend("update post", err)
	}

	r.remember(saved)
	r.notifyPostReload(id)
	return nil
}

// Exists reports whether a post is stored, reading through tx.
func Exists(ctx context.Context, tx kv.Getter, id model.PostID) (bool, error) {
	posts, err := LoadPosts(ctx, tx)
	if err != nil {
		return false, err
	}
	return indexOf(posts, id) >= 0, nil
}

func postHash(p model.Post) string {
	data, _ := json.Marshal(p)
	return util.ContentHash(data)
}

// remember records the hash of every post so Watch only reports changes made
// by other writers.
func (r *KVPostRepository) remember(posts []model.Post) {
	hashes := make(map[model.PostID]string, len(posts))
	for _, p := range posts {
		hashes[p.ID] = postHash(p)
	}

	r.mu.Lock()
	r.hashes = hashes
	r.mu.Unlock()
}

// Init loads the collection once so Watch has a baseline.
func (r *KVPostRepository) Init(ctx context.Context) error {
	posts, err := r.GetAll(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg(config.ErrInitializingPosts)
		return err
	}

	repoLogger.Info().Int("posts", len(posts)).Msg("Posts loaded")
	r.remember(posts)
	return nil
}

// Watch polls the collection until ctx is done and notifies every post that
// was added or changed by another writer.
func (r *KVPostRepository) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reload(ctx)
		}
	}
}

func (r *KVPostRepository) reload(ctx context.Context) {
	posts, err := LoadPosts(ctx, r.store)
	if err != nil {
		repoLogger.Error().Err(err).Msg(config.ErrReloadingPosts)
		return
	}

	r.mu.Lock()
	previous := r.hashes
	r.mu.Unlock()

	var changed []model.PostID
	for _, p := range posts {
		old, exists := previous[p.ID]
		if !exists {
			repoLogger.Info().Str("post_id", string(p.ID)).Str("title", p.Title).Msg("New post detected")
			changed = append(changed, p.ID)
		} else if old != postHash(p) {
			repoLogger.Info().Str("post_id", string(p.ID)).Str("title", p.Title).Msg("Post changed, reloading")
			changed = append(changed, p.ID)
		}
	}

	if len(changed) == 0 && len(posts) == len(previous) {
		repoLogger.Debug().Msg("No posts modified, skipping reload")
		return
	}

	r.remember(posts)
	for _, id := range changed {
		r.notifyPostReload(id)
	}
}
