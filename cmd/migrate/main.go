// Command migrate imports a directory of Markdown posts into the configured
// backing store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/inkwell/internal/config"
	"github.com/debemdeboas/inkwell/internal/kv"
	"github.com/debemdeboas/inkwell/internal/logger"
	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/debemdeboas/inkwell/internal/repository"
	"github.com/debemdeboas/inkwell/internal/util"
)

type options struct {
	dir        string
	authorID   model.UserID
	authorName string
	status     model.Status
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	path := flag.String("path", "", "Path to the directory containing .md files")
	authorID := flag.String("author-id", "", "Author user ID for the posts")
	authorName := flag.String("author-name", "", "Author display name for the posts")
	status := flag.String("status", string(model.StatusPublished), "Status of posts without one in their front matter")
	flag.Parse()

	godotenv.Load()

	if err := config.LoadConfig(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(config.AppConfig.Logging.Level)
	kv.SetLogger(log)
	repository.SetLogger(log)

	if *path == "" || *authorID == "" {
		log.Fatal().Msg("Both --path and --author-id flags are required")
	}

	ctx := context.Background()
	store, err := kv.Open(ctx, config.AppConfig.Storage, kv.Credentials{
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening backing store")
	}
	defer store.Close()

	name := *authorName
	if name == "" {
		name = config.AppConfig.Site.Author
	}

	imported, err := importDir(ctx, log, repository.NewKVPostRepository(store), options{
		dir:        *path,
		authorID:   model.UserID(*authorID),
		authorName: name,
		status:     model.Status(*status),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Int("posts", imported).Msg("Migration finished")
}

// importDir saves every .md file of opts.dir as a new post. Files that fail
// are logged and skipped.
func importDir(ctx context.Context, log zerolog.Logger, repo repository.PostRepository, opts options) (int, error) {
	files, err := os.ReadDir(opts.dir)
	if err != nil {
		return 0, fmt.Errorf("error reading directory %s: %w", opts.dir, err)
	}

	imported := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}

		post, err := readPost(file, opts)
		if err == nil {
			post, err = repo.Upsert(ctx, *post)
		}
		if err != nil {
			log.Error().Err(err).Str("file", file.Name()).Msg("Error processing file")
			continue
		}

		imported++
		log.Info().Str("file", file.Name()).Str("post_id", string(post.ID)).Msg("Successfully saved post")
	}
	return imported, nil
}

// readPost builds a post from a Markdown file. The title falls back to the
// file name and the creation date to the modification time.
func readPost(file os.DirEntry, opts options) (*model.Post, error) {
	content, err := os.ReadFile(filepath.Join(opts.dir, file.Name()))
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Content:    string(content),
		AuthorID:   opts.authorID,
		AuthorName: opts.authorName,
	}
	if _, err := util.ApplyFrontMatter(post); err != nil {
		return nil, err
	}

	if post.Title == "" {
		post.Title = strings.TrimSuffix(file.Name(), ".md")
	}
	if post.Status == "" {
		post.Status = opts.status
	}
	if post.CreatedAt.IsZero() {
		info, err := file.Info()
		if err != nil {
			return nil, err
		}
		post.CreatedAt = info.ModTime().UTC()
	}
	return post, nil
}
