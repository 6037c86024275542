package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/debemdeboas/inkwell/internal/auth"
	"github.com/debemdeboas/inkwell/internal/config"
	"github.com/debemdeboas/inkwell/internal/db"
	"github.com/debemdeboas/inkwell/internal/engagement"
	"github.com/debemdeboas/inkwell/internal/feed"
	"github.com/debemdeboas/inkwell/internal/kv"
	"github.com/debemdeboas/inkwell/internal/logger"
	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/debemdeboas/inkwell/internal/render"
	"github.com/debemdeboas/inkwell/internal/repository"
	"github.com/debemdeboas/inkwell/internal/rotator"
	"github.com/debemdeboas/inkwell/internal/sse"
	"github.com/debemdeboas/inkwell/internal/theme"
)

const adminID model.UserID = "admin"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	log := logger.New(cfg.Logging.Level)
	setLoggers(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func setLoggers(log zerolog.Logger) {
	component := func(name string) zerolog.Logger {
		return log.With().Str("component", name).Logger()
	}

	config.SetLogger(component("config"))
	db.SetLogger(component("db"))
	kv.SetLogger(component("kv"))
	repository.SetLogger(component("repository"))
	engagement.SetLogger(component("engagement"))
	rotator.SetLogger(component("rotator"))
	auth.SetLogger(component("auth"))
	render.SetLogger(component("render"))
	sse.SetLogger(component("sse"))
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, err := kv.Open(ctx, cfg.Storage, kv.Credentials{
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	provider, err := newAuthProvider(cfg)
	if err != nil {
		return err
	}

	featured := rotator.New(cfg.Featured.RotationInterval(), cfg.Featured.Candidates, uint64(time.Now().UnixNano()))
	app := NewApp(cfg, store, provider, featured)

	if err := app.posts.Init(ctx); err != nil {
		return err
	}
	go app.posts.Watch(ctx, cfg.Storage.ReloadEvery())

	if cfg.Featured.Enabled {
		if err := featured.Start(ctx); err != nil {
			return err
		}
		defer featured.Stop()
	}

	if posts, err := app.posts.GetAll(ctx); err == nil {
		render.WarmCache(feed.ComputeView(posts, feed.Query{}, time.Now()), theme.GetDefaultSyntaxTheme(cfg.Theme.Default))
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           app.Handler(log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down server")
		}
	}()

	log.Info().Str("addr", server.Addr).Str("backend", cfg.Storage.Backend).Msg("Starting server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newAuthProvider selects how requests are signed in. With authentication
// disabled every request acts as the site owner.
func newAuthProvider(cfg *config.Config) (auth.Provider, error) {
	owner := model.Principal{ID: adminID, Name: cfg.Site.Author}

	if !cfg.Features.Authentication.Enabled {
		return auth.NewStaticProvider(owner), nil
	}

	switch cfg.Features.Authentication.Type {
	case "ed25519":
		provider, err := auth.NewEd25519AuthProvider(os.Getenv("ED25519_PUBKEY"), "Authorization", owner)
		if err != nil {
			return nil, fmt.Errorf(config.ErrCreateProviderFmt, err)
		}
		return provider, nil
	case "clerk":
		return auth.NewClerkAuthProvider(os.Getenv("CLERK_API")), nil
	default:
		return nil, fmt.Errorf("unknown authentication type %q", cfg.Features.Authentication.Type)
	}
}

// Handler wraps the routes with request logging, authentication and the
// response headers every page gets.
func (a *App) Handler(log zerolog.Logger) http.Handler {
	var h http.Handler = a.Routes()
	h = secureHeaders(h)
	h = cacheIt(h)
	h = a.auth.Middleware()(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request served")
	})(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	return hlog.NewHandler(log)(h)
}

func cacheIt(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")

		h.ServeHTTP(w, r)
	})
}

func secureHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		h.ServeHTTP(w, r)
	})
}
