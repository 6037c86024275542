// Package feed computes the ordered, filtered views of the post collection
// shown by the home page, the post list and the author dashboard.
package feed

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/debemdeboas/inkwell/internal/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Sort string

const (
	SortNewest   Sort = "newest"
	SortOldest   Sort = "oldest"
	SortPopular  Sort = "popular"
	SortTitle    Sort = "title"
	SortRelevant Sort = "relevant"
)

// AllTags disables the tag filter.
const AllTags = "all"

// RecentWindow is how long a post counts as recent for the relevance score.
const RecentWindow = 7 * 24 * time.Hour

// ParseSort resolves a sort name, including the aliases used by the post
// list. Unknown names fall back to def.
func ParseSort(s string, def Sort) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortNewest, "latest":
		return SortNewest
	case SortOldest:
		return SortOldest
	case SortPopular, "top":
		return SortPopular
	case SortTitle:
		return SortTitle
	case SortRelevant:
		return SortRelevant
	default:
		return def
	}
}

type Query struct {
	Search string
	Tag    string
	Sort   Sort

	// AuthorID restricts the view to one author. Drafts are only included when
	// IncludeDrafts is set, which the dashboard does for its owner.
	AuthorID      model.UserID
	IncludeDrafts bool
}

// Key identifies the filter part of a query. The pagination window resets
// when it changes.
func (q Query) Key() string {
	return strings.ToLower(strings.TrimSpace(q.Tag)) + "\x00" + strings.ToLower(strings.TrimSpace(q.Search)) + "\x00" + string(q.AuthorID)
}

// ComputeView filters and sorts posts. The input slice is left untouched and
// the result only depends on the arguments.
func ComputeView(posts []model.Post, q Query, now time.Time) []model.Post {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	tag := strings.TrimSpace(q.Tag)

	view := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if !q.IncludeDrafts && !p.IsPublished() {
			continue
		}
		if q.AuthorID != "" && p.AuthorID != q.AuthorID {
			continue
		}
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		if tag != "" && !strings.EqualFold(tag, AllTags) && !matchesTag(p, tag) {
			continue
		}
		view = append(view, p)
	}

	SortPosts(view, q.Sort, now)
	return view
}

func matchesSearch(p model.Post, term string) bool {
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Content), term) ||
		strings.Contains(strings.ToLower(p.AuthorName), term)
}

func matchesTag(p model.Post, tag string) bool {
	if strings.EqualFold(p.Category, tag) {
		return true
	}
	return slices.ContainsFunc(p.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
}

// SortPosts sorts in place. Every order is stable. An empty sort keeps the
// input order.
func SortPosts(posts []model.Post, s Sort, now time.Time) {
	switch s {
	case SortNewest:
		slices.SortStableFunc(posts, func(a, b model.Post) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case SortOldest:
		slices.SortStableFunc(posts, func(a, b model.Post) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	case SortPopular:
		slices.SortStableFunc(posts, func(a, b model.Post) int {
			return cmp.Compare(b.Likes+b.Views, a.Likes+a.Views)
		})
	case SortTitle:
		c := collate.New(language.English)
		slices.SortStableFunc(posts, func(a, b model.Post) int {
			return c.CompareString(a.Title, b.Title)
		})
	case SortRelevant:
		slices.SortStableFunc(posts, func(a, b model.Post) int {
			return cmp.Compare(Relevance(b, now), Relevance(a, now))
		})
	}
}

// Relevance scores a post for the home page: likes, a tenth of the views, and
// a bonus of 10 while the post is recent.
func Relevance(p model.Post, now time.Time) float64 {
	score := float64(p.Likes) + 0.1*float64(p.Views)
	if p.CreatedAt.After(now.Add(-RecentWindow)) {
		score += 10
	}
	return score
}
