// Package model defines core data structures and types for the blog application.
package model

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

type PostID string

type UserID string

type CommentID string

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

const (
	DefaultCategory = "General"

	// Number of characters kept from the content when no excerpt is given.
	ExcerptLength = 200

	WordsPerMinute = 200
)

type Post struct {
	ID PostID `json:"id"`

	Title    string   `json:"title"`
	Slug     string   `json:"slug"`
	Content  string   `json:"content"`
	Excerpt  string   `json:"excerpt"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Status   Status   `json:"status"`

	AuthorID   UserID `json:"authorId"`
	AuthorName string `json:"authorName"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Views    int `json:"views"`

	ReadingTime int `json:"readingTime"`
}

func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// DisplayTags returns at most limit tags in insertion order. A limit <= 0 returns all of them.
func (p *Post) DisplayTags(limit int) []string {
	if limit <= 0 || len(p.Tags) <= limit {
		return p.Tags
	}
	return p.Tags[:limit]
}

// Validate checks the fields a post cannot be published or saved without.
func (p *Post) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{Field: "title", Message: "Please enter a title for your post"}
	}
	if strings.TrimSpace(p.Content) == "" {
		return &ValidationError{Field: "content", Message: "Please add some content to your post"}
	}
	switch p.Status {
	case StatusDraft, StatusPublished:
	default:
		return &ValidationError{Field: "status", Message: "status must be draft or published"}
	}
	return nil
}

// Normalize fills the derived fields of a post that is about to be written.
func (p *Post) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if strings.TrimSpace(p.Excerpt) == "" {
		p.Excerpt = Excerpt(p.Content, ExcerptLength)
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = DefaultCategory
	}
	p.Tags = NormalizeTags(p.Tags)
	p.ReadingTime = ReadingTime(p.Content)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func Slugify(title string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
}

// Excerpt cuts content to n runes and marks the cut with "...".
func Excerpt(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	return string([]rune(content)[:n]) + "..."
}

func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / WordsPerMinute))
}

// NormalizeTags trims tags, drops empty ones and keeps the first of any
// case-insensitive duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// SplitTags parses the comma separated tag list typed into the editor.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}
