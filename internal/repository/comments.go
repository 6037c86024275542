package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/debemdeboas/inkwell/internal/config"
	"github.com/debemdeboas/inkwell/internal/kv"
	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/google/uuid"
)

// KVCommentRepository stores each thread as a JSON list under its own key.
// The comments counter of the post is only written here, in the same Update
// that writes the thread.
type KVCommentRepository struct {
	store kv.Store
	posts *KVPostRepository

	now   func() time.Time
	newID func() string
}

func NewKVCommentRepository(store kv.Store, posts *KVPostRepository) *KVCommentRepository {
	return &KVCommentRepository{
		store: store,
		posts: posts,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func loadThread(ctx context.Context, g kv.Getter, postID model.PostID) ([]model.Comment, error) {
	var thread []model.Comment
	err := kv.GetJSON(ctx, g, CommentsKey(postID), &thread)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return []model.Comment{}, nil
	}
	return thread, err
}

func (r *KVCommentRepository) Add(ctx context.Context, postID model.PostID, author model.Principal, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &model.ValidationError{Field: "content", Message: "Please write a comment"}
	}
	if author.IsZero() {
		return nil, model.ErrAuthRequired
	}

	comment := model.Comment{
		ID:         model.CommentID(r.newID()),
		PostID:     postID,
		Content:    content,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CreatedAt:  r.now(),
	}

	err := r.posts.Mutate(ctx, postID, func(tx kv.Tx, post *model.Post) error {
		thread, err := loadThread(ctx, tx, postID)
		if err != nil {
			return err
		}

		thread = append(thread, comment)
		if err := kv.SetJSON(ctx, tx, CommentsKey(postID), thread); err != nil {
			return err
		}

		post.Comments = len(thread)
		return nil
	})
	if errors.Is(err, kv.ErrInconsistent) {
		repoLogger.Error().Err(err).Str("post_id", string(postID)).Msg(config.ErrInconsistentThread)
		return nil, &model.BackendError{Op: "add comment", Err: fmt.Errorf("%s: %w", config.ErrInconsistentThread, err)}
	}
	if err != nil {
		return nil, err
	}

	repoLogger.Debug().Str("post_id", string(postID)).Str("comment_id", string(comment.ID)).Msg("Comment added")
	return &comment, nil
}

// List returns the thread oldest first.
func (r *KVCommentRepository) List(ctx context.Context, postID model.PostID) ([]model.Comment, error) {
	thread, err := loadThread(ctx, r.store, postID)
	return thread, model.Backend("read comments", err)
}

// deleteThread drops the comment thread of a post. Post removal calls it in
// the same Update that drops the post.
func deleteThread(ctx context.Context, tx kv.Tx, postID model.PostID) error {
	return tx.Delete(ctx, CommentsKey(postID))
}

// DeleteThread removes the thread of a post and zeroes its counter. Deleting
// the thread of a missing post only removes the thread.
func (r *KVCommentRepository) DeleteThread(ctx context.Context, postID model.PostID) error {
	err := r.posts.Mutate(ctx, postID, func(tx kv.Tx, post *model.Post) error {
		post.Comments = 0
		return deleteThread(ctx, tx, postID)
	})
	if errors.Is(err, model.ErrNotFound) {
		err = r.store.Update(ctx, func(tx kv.Tx) error {
			return deleteThread(ctx, tx, postID)
		})
		return model.Backend("delete comments", err)
	}
	if err == nil {
		repoLogger.Info().Str("post_id", string(postID)).Msg("Comment thread cleared")
	}
	return err
}
