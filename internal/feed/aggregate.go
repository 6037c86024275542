package feed

import (
	"slices"

	"github.com/debemdeboas/inkwell/internal/model"
)

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TrendingTags counts tags over the published posts, most used first. Ties
// keep the order in which the tags first appear.
func TrendingTags(posts []model.Post, limit int) []TagCount {
	var counts []TagCount
	index := make(map[string]int)

	for _, p := range posts {
		if !p.IsPublished() {
			continue
		}
		for _, tag := range p.Tags {
			if i, ok := index[tag]; ok {
				counts[i].Count++
				continue
			}
			index[tag] = len(counts)
			counts = append(counts, TagCount{Tag: tag, Count: 1})
		}
	}

	slices.SortStableFunc(counts, func(a, b TagCount) int {
		return b.Count - a.Count
	})

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

type Stats struct {
	Posts int `json:"posts"`
	Likes int `json:"likes"`
	Views int `json:"views"`
}

// CommunityStats sums the engagement of the published posts.
func CommunityStats(posts []model.Post) Stats {
	var s Stats
	for _, p := range posts {
		if !p.IsPublished() {
			continue
		}
		s.Posts++
		s.Likes += p.Likes
		s.Views += p.Views
	}
	return s
}

// Categories lists AllTags followed by every category of the published posts
// in order of first appearance.
func Categories(posts []model.Post) []string {
	out := []string{AllTags}
	for _, p := range posts {
		if p.IsPublished() && p.Category != "" && !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	return out
}
