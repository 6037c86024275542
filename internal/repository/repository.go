// Package repository persists posts and comment threads in the key-value store.
package repository

import (
	"context"

	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/rs/zerolog"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type PostRepository interface {
	GetAll(ctx context.Context) ([]model.Post, error)
	Get(ctx context.Context, id model.PostID) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string, visible func(*model.Post) bool) (*model.Post, error)

	// Upsert creates the post when its id is empty and fully replaces the stored
	// post otherwise.
	Upsert(ctx context.Context, post model.Post) (*model.Post, error)

	// Remove deletes the post with its comment thread and like set. Removing a
	// missing post is not an error.
	Remove(ctx context.Context, id model.PostID) error

	IncrementCounter(ctx context.Context, id model.PostID, counter model.Counter, delta int) (int, error)

	// SetReloadNotifier sets a function that will be called when a post changes.
	SetReloadNotifier(notifier func(model.PostID))
}

type CommentRepository interface {
	Add(ctx context.Context, postID model.PostID, author model.Principal, content string) (*model.Comment, error)
	List(ctx context.Context, postID model.PostID) ([]model.Comment, error)
	DeleteThread(ctx context.Context, postID model.PostID) error
}
