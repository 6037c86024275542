package model

import "time"

type Comment struct {
	ID     CommentID `json:"id"`
	PostID PostID    `json:"postId"`

	Content string `json:"content"`

	AuthorID   UserID `json:"authorId"`
	AuthorName string `json:"authorName"`

	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
}

// Principal is the signed-in user an operation acts on behalf of.
type Principal struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (p Principal) IsZero() bool {
	return p.ID == ""
}

// Counter names a denormalized engagement counter on a post.
type Counter string

const (
	CounterLikes    Counter = "likes"
	CounterViews    Counter = "views"
	CounterComments Counter = "comments"
)

// Apply adds delta to the counter on p, flooring the result at zero, and returns the new value.
func (c Counter) Apply(p *Post, delta int) (int, error) {
	var field *int
	switch c {
	case CounterLikes:
		field = &p.Likes
	case CounterViews:
		field = &p.Views
	case CounterComments:
		field = &p.Comments
	default:
		return 0, &ValidationError{Field: "counter", Message: "unknown counter " + string(c)}
	}

	*field = max(0, *field+delta)
	return *field, nil
}
