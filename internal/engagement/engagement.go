// Package engagement records likes, views and bookmarks.
package engagement

import (
	"context"
	"errors"
	"slices"

	"github.com/debemdeboas/inkwell/internal/kv"
	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/debemdeboas/inkwell/internal/repository"
	"github.com/rs/zerolog"
)

var engagementLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	engagementLogger = l
}

// Tracker keeps the like set of every post next to its likes counter, and one
// bookmark set per user.
type Tracker struct {
	store kv.Store
	posts *repository.KVPostRepository
}

func NewTracker(store kv.Store, posts *repository.KVPostRepository) *Tracker {
	return &Tracker{store: store, posts: posts}
}

type LikeResult struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

type BookmarkResult struct {
	Bookmarked bool `json:"bookmarked"`
}

func loadSet[T comparable](ctx context.Context, g kv.Getter, key string) ([]T, error) {
	var set []T
	err := kv.GetJSON(ctx, g, key, &set)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return []T{}, nil
	}
	return set, err
}

// toggle adds v to set when absent and removes it otherwise. It reports
// whether v is in the returned set.
func toggle[T comparable](set []T, v T) ([]T, bool) {
	if i := slices.Index(set, v); i >= 0 {
		return slices.Delete(set, i, i+1), false
	}
	return append(set, v), true
}

// Like toggles the like of user on the post and moves the likes counter by
// one in the same direction.
func (t *Tracker) Like(ctx context.Context, postID model.PostID, user model.Principal) (*LikeResult, error) {
	if user.IsZero() {
		return nil, model.ErrAuthRequired
	}

	var res LikeResult
	err := t.posts.Mutate(ctx, postID, func(tx kv.Tx, post *model.Post) error {
		likes, err := loadSet[model.UserID](ctx, tx, repository.LikesKey(postID))
		if err != nil {
			return err
		}

		likes, res.Liked = toggle(likes, user.ID)
		if err := kv.SetJSON(ctx, tx, repository.LikesKey(postID), likes); err != nil {
			return err
		}

		delta := -1
		if res.Liked {
			delta = 1
		}
		res.Likes, err = model.CounterLikes.Apply(post, delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	engagementLogger.Debug().Str("post_id", string(postID)).Str("user_id", string(user.ID)).Bool("liked", res.Liked).Msg("Like toggled")
	return &res, nil
}

// View counts one view. Repeated views by the same reader all count.
func (t *Tracker) View(ctx context.Context, postID model.PostID) (int, error) {
	return t.posts.IncrementCounter(ctx, postID, model.CounterViews, 1)
}

func (t *Tracker) HasLiked(ctx context.Context, postID model.PostID, userID model.UserID) (bool, error) {
	if userID == "" {
		return false, nil
	}
	likes, err := loadSet[model.UserID](ctx, t.store, repository.LikesKey(postID))
	if err != nil {
		return false, model.Backend("read likes", err)
	}
	return slices.Contains(likes, userID), nil
}

// Bookmark toggles the post in the bookmark set of user. The post itself is
// not changed.
func (t *Tracker) Bookmark(ctx context.Context, postID model.PostID, user model.Principal) (*BookmarkResult, error) {
	if user.IsZero() {
		return nil, model.ErrAuthRequired
	}

	var res BookmarkResult
	err := t.store.Update(ctx, func(tx kv.Tx) error {
		exists, err := repository.Exists(ctx, tx, postID)
		if err != nil {
			return err
		}
		if !exists {
			return model.PostNotFound(postID)
		}

		key := repository.BookmarksKey(user.ID)
		set, err := loadSet[model.PostID](ctx, tx, key)
		if err != nil {
			return err
		}

		set, res.Bookmarked = toggle(set, postID)
		return kv.SetJSON(ctx, tx, key, set)
	})
	if err != nil {
		return nil, model.Backend("toggle bookmark", err)
	}

	engagementLogger.Debug().Str("post_id", string(postID)).Str("user_id", string(user.ID)).Bool("bookmarked", res.Bookmarked).Msg("Bookmark toggled")
	return &res, nil
}

// Bookmarks returns the bookmarked post ids of user, oldest bookmark first.
// Ids of deleted posts are skipped.
func (t *Tracker) Bookmarks(ctx context.Context, user model.Principal) ([]model.PostID, error) {
	if user.IsZero() {
		return nil, model.ErrAuthRequired
	}

	set, err := loadSet[model.PostID](ctx, t.store, repository.BookmarksKey(user.ID))
	if err != nil {
		return nil, model.Backend("read bookmarks", err)
	}

	posts, err := repository.LoadPosts(ctx, t.store)
	if err != nil {
		return nil, model.Backend("read posts", err)
	}

	return slices.DeleteFunc(set, func(id model.PostID) bool {
		return !slices.ContainsFunc(posts, func(p model.Post) bool { return p.ID == id })
	}), nil
}
