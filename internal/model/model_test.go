package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestPostNormalize(t *testing.T) {
	t.Run("Fills defaults", func(t *testing.T) {
		post := &Post{
			Title:   "  Getting Started with   Go ",
			Content: strings.Repeat("word ", 450),
			Tags:    []string{" go ", "", "Go", "backend"},
		}
		post.Normalize()

		if post.Title != "Getting Started with   Go" {
			t.Errorf("Expected trimmed title, got %q", post.Title)
		}
		if post.Slug != "getting-started-with-go" {
			t.Errorf("Expected slug 'getting-started-with-go', got %q", post.Slug)
		}
		if post.Status != StatusDraft {
			t.Errorf("Expected draft status, got %q", post.Status)
		}
		if post.Category != DefaultCategory {
			t.Errorf("Expected category %q, got %q", DefaultCategory, post.Category)
		}
		if !strings.HasSuffix(post.Excerpt, "...") || len(post.Excerpt) != ExcerptLength+3 {
			t.Errorf("Expected truncated excerpt, got %d chars", len(post.Excerpt))
		}
		if !reflect.DeepEqual(post.Tags, []string{"go", "backend"}) {
			t.Errorf("Expected tags [go backend], got %v", post.Tags)
		}
		if post.ReadingTime != 3 {
			t.Errorf("Expected reading time 3, got %d", post.ReadingTime)
		}
	})

	t.Run("Keeps explicit values", func(t *testing.T) {
		post := &Post{
			Title:    "Title",
			Slug:     "custom",
			Content:  "short",
			Excerpt:  "summary",
			Category: "React",
			Status:   StatusPublished,
		}
		post.Normalize()

		if post.Slug != "custom" || post.Excerpt != "summary" || post.Category != "React" || post.Status != StatusPublished {
			t.Errorf("Explicit values were overwritten: %+v", post)
		}
	})

	t.Run("Short content is not truncated", func(t *testing.T) {
		if got := Excerpt("hello", 200); got != "hello" {
			t.Errorf("Expected 'hello', got %q", got)
		}
	})
}

func TestPostValidate(t *testing.T) {
	tests := []struct {
		name  string
		post  Post
		field string
	}{
		{"Missing title", Post{Title: "  ", Content: "x", Status: StatusDraft}, "title"},
		{"Missing content", Post{Title: "x", Content: "\n\t", Status: StatusDraft}, "content"},
		{"Bad status", Post{Title: "x", Content: "x", Status: "archived"}, "status"},
		{"Valid", Post{Title: "x", Content: "x", Status: StatusPublished}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.post.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}
}

func TestDisplayTags(t *testing.T) {
	post := &Post{Tags: []string{"a", "b", "c", "d", "e"}}

	if got := post.DisplayTags(3); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Expected first three tags, got %v", got)
	}
	if got := post.DisplayTags(0); len(got) != 5 {
		t.Errorf("Expected all tags for limit 0, got %v", got)
	}
	if got := post.DisplayTags(10); len(got) != 5 {
		t.Errorf("Expected all tags when under the limit, got %v", got)
	}
}

func TestSplitTags(t *testing.T) {
	got := SplitTags("react, hooks,,  React ,tutorial")
	want := []string{"react", "hooks", "tutorial"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCounterApply(t *testing.T) {
	post := &Post{Likes: 1, Comments: 0, Views: 5}

	tests := []struct {
		counter Counter
		delta   int
		want    int
	}{
		{CounterLikes, -1, 0},
		{CounterLikes, -1, 0},
		{CounterLikes, 1, 1},
		{CounterComments, -1, 0},
		{CounterComments, 1, 1},
		{CounterViews, 1, 6},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s%+d", tt.counter, tt.delta), func(t *testing.T) {
			got, err := tt.counter.Apply(post, tt.delta)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}

	if _, err := Counter("shares").Apply(post, 1); err == nil {
		t.Error("Expected error for unknown counter")
	}
}

func TestErrors(t *testing.T) {
	t.Run("NotFound matches sentinel", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", PostNotFound("p1"))
		if !errors.Is(err, ErrNotFound) {
			t.Error("Expected errors.Is(err, ErrNotFound)")
		}
		if !strings.Contains(err.Error(), "post not found: p1") {
			t.Errorf("Unexpected message %q", err.Error())
		}
	})

	t.Run("Backend wraps unknown errors", func(t *testing.T) {
		cause := errors.New("disk full")
		err := Backend("write posts", cause)

		var be *BackendError
		if !errors.As(err, &be) {
			t.Fatalf("Expected BackendError, got %T", err)
		}
		if !errors.Is(err, cause) {
			t.Error("Expected BackendError to unwrap to its cause")
		}
	})

	t.Run("Backend keeps domain errors", func(t *testing.T) {
		ve := &ValidationError{Field: "content", Message: "empty"}
		if got := Backend("op", ve); got != ve {
			t.Errorf("Expected validation error to pass through, got %v", got)
		}
		if got := Backend("op", ErrAuthRequired); got != ErrAuthRequired {
			t.Errorf("Expected auth error to pass through, got %v", got)
		}
		if Backend("op", nil) != nil {
			t.Error("Expected nil for nil error")
		}
	})
}
