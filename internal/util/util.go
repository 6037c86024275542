// Package util provides utility functions for content hashing and front matter parsing.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/gomarkdown/markdown"
)

var ErrNoFrontMatter = errors.New("invalid front matter format")

var delimiter = []byte("%%%")

// FrontMatter is the TOML block between %%% lines at the top of a Markdown post.
type FrontMatter struct {
	Title    string    `toml:"title"`
	Slug     string    `toml:"slug"`
	Excerpt  string    `toml:"excerpt"`
	Category string    `toml:"category"`
	Tags     []string  `toml:"tags"`
	Status   string    `toml:"status"`
	Date     time.Time `toml:"date"`
}

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

func GetFrontMatter(md []byte) (*FrontMatter, error) {
	info, _, err := SplitFrontMatter(md)
	return info, err
}

// SplitFrontMatter decodes the front matter of md and returns it together with the remaining body.
func SplitFrontMatter(md []byte) (*FrontMatter, []byte, error) {
	md = markdown.NormalizeNewlines(md)
	md = bytes.TrimLeft(md, "\n \t\r")

	if !bytes.HasPrefix(md, delimiter) {
		return nil, nil, ErrNoFrontMatter
	}

	rest := md[len(delimiter):]
	if len(rest) == 0 || rest[0] != '\n' {
		return nil, nil, ErrNoFrontMatter
	}

	end := bytes.Index(rest, append([]byte("\n"), delimiter...))
	if end == -1 {
		return nil, nil, ErrNoFrontMatter
	}

	frontMatter := rest[1 : end+1]
	body := rest[end+1+len(delimiter):]
	body = bytes.TrimPrefix(body, []byte("\n"))

	info := &FrontMatter{}
	if _, err := toml.Decode(string(frontMatter), info); err != nil {
		return nil, nil, fmt.Errorf("failed to decode front matter: %w", err)
	}

	return info, body, nil
}

// ApplyFrontMatter moves the front matter of post.Content into the empty fields
// of post and leaves only the body in Content. It reports whether front matter
// was found. Content without front matter is left untouched.
func ApplyFrontMatter(post *model.Post) (bool, error) {
	info, body, err := SplitFrontMatter([]byte(post.Content))
	if errors.Is(err, ErrNoFrontMatter) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	post.Content = string(body)
	if post.Title == "" {
		post.Title = info.Title
	}
	if post.Slug == "" {
		post.Slug = info.Slug
	}
	if post.Excerpt == "" {
		post.Excerpt = info.Excerpt
	}
	if post.Category == "" {
		post.Category = info.Category
	}
	if len(post.Tags) == 0 {
		post.Tags = info.Tags
	}
	if post.Status == "" {
		post.Status = model.Status(info.Status)
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = info.Date
	}
	return true, nil
}
