// Package commentcard is an HTTP service that turns YouTube comments into
// shareable PNG cards. It fetches a comment by id under a daily quota,
// normalizes its text, composes a card layout and renders it with either an
// in-process raster backend or a headless-browser backend.
package commentcard

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/eringen/commentcard/analytics"
	"github.com/eringen/commentcard/card"
	"github.com/eringen/commentcard/quota"
	"github.com/eringen/commentcard/render"
	"github.com/eringen/commentcard/youtube"
)

// CommentFetcher resolves a comment id to the upstream list response.
type CommentFetcher interface {
	FetchComment(ctx context.Context, id string) (*youtube.ListResponse, error)
}

type noKeyFetcher struct{}

func (noKeyFetcher) FetchComment(context.Context, string) (*youtube.ListResponse, error) {
	return nil, &youtube.APIError{StatusCode: http.StatusServiceUnavailable, Message: "Comment lookup is not configured"}
}

// App is the central commentcard application. It wires together the quota
// counter, the comment client and cache, the render backends, the ledger,
// middleware and handlers.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Comments *CommentCache
	Raster   render.Backend
	Browser  render.Backend
	Guard    *quota.Guard

	fetcher        CommentFetcher
	counter        quota.Counter
	renderLimiter  *RenderLimiter
	analyticsStore *analytics.Store
	customRoutes   []func(*App)
	closers        []io.Closer
	stops          []func()
}

// New creates an App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Setup opens the stores, builds the clients and backends, and installs
// middleware and routes. It is separate from Start so tests can serve
// requests through a.Echo directly.
func (a *App) Setup(ctx context.Context) error {
	if a.Config.SessionSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("commentcard: generate session secret: %w", err)
		}
		a.Config.SessionSecret = hex.EncodeToString(b)
		log.Warn().Msg("SESSION_SECRET not set; remembered card options reset on restart")
	}

	if a.fetcher == nil || a.counter != nil {
		if err := a.setupQuota(ctx); err != nil {
			return err
		}
	}
	switch {
	case a.fetcher != nil:
	case a.Config.YouTubeAPIKey == "":
		log.Warn().Msg("YOUTUBE_API_KEY not set; comment lookups are disabled")
		a.fetcher = noKeyFetcher{}
	default:
		client, err := youtube.NewClient(ctx, a.Config.YouTubeAPIKey,
			youtube.WithGuard(a.Guard),
			youtube.WithTimeout(a.Config.FetchTimeout),
		)
		if err != nil {
			return fmt.Errorf("commentcard: %w", err)
		}
		a.fetcher = client
	}
	a.Comments = NewCommentCache(a.fetcher, a.Config.CommentCacheTTL)

	if a.Raster == nil {
		a.Raster = render.NewRaster(render.NewAvatarLoader(nil))
	}
	if a.Browser == nil {
		a.Browser = render.NewBrowser(a.Config.browserOptions())
	}

	a.renderLimiter = NewRenderLimiter(a.Config.RenderRateLimit, time.Minute)
	a.stops = append(a.stops, a.renderLimiter.Stop)

	if !a.Config.AnalyticsDisabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("commentcard: init analytics: %w", err)
		}
		a.analyticsStore = store
		a.closers = append(a.closers, store)
		if err := analytics.InitSalt(ctx, store); err != nil {
			return fmt.Errorf("commentcard: init analytics salt: %w", err)
		}
		a.stops = append(a.stops, store.StartCleanupScheduler(a.Config.AnalyticsRetentionDays, 24*time.Hour))
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// setupQuota picks the quota counter: an injected one, Redis when
// configured, otherwise the SQLite file.
func (a *App) setupQuota(ctx context.Context) error {
	if a.counter == nil {
		switch {
		case a.Config.RedisURL != "":
			rc, err := quota.DialRedis(ctx, a.Config.RedisURL)
			if err != nil {
				return fmt.Errorf("commentcard: connect redis: %w", err)
			}
			a.counter = rc
			a.closers = append(a.closers, rc)
		default:
			sc, err := quota.NewSQLiteCounter(a.Config.QuotaDatabasePath)
			if err != nil {
				return fmt.Errorf("commentcard: init quota store: %w", err)
			}
			cctx, cancel := context.WithCancel(context.Background())
			sc.StartCleanup(cctx, time.Hour, func(err error) {
				log.Error().Err(err).Msg("quota cleanup failed")
			})
			a.counter = sc
			a.closers = append(a.closers, sc)
			a.stops = append(a.stops, cancel)
		}
	}
	a.Guard = quota.NewGuard(a.counter, a.Config.DailyQuota)
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", a.handleIndex)
	e.POST("/generate", a.handleGenerateForm)
	e.GET("/healthz", a.handleHealthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/comment", a.handleComment)
	api.POST("/generate", a.handleGenerate)
	api.GET("/card", a.handleCard(func() render.Backend { return a.Raster }))
	api.GET("/card/browser", a.handleCard(func() render.Backend { return a.Browser }))

	if a.analyticsStore != nil {
		statsLimiter := NewRenderLimiter(60, time.Minute)
		a.stops = append(a.stops, statsLimiter.Stop)
		analytics.NewHandler(a.analyticsStore, statsLimiter.Allow).RegisterRoutes(api)
	}
}

// RenderCard normalizes the comment text, composes the layout for style and
// renders it with backend. It is the HTTP-free path used by the CLI.
func (a *App) RenderCard(ctx context.Context, backend render.Backend, comment youtube.Comment, style card.StyleConfig) ([]byte, error) {
	text := card.Normalize(comment.Snippet.TextDisplay)
	layout, err := card.Compose(style, text)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.Config.RenderTimeout)
	defer cancel()
	return backend.Render(ctx, layout, text, comment)
}

// Start sets the app up and serves until the server stops.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	log.Info().Str("addr", a.Config.Addr).Msg("commentcard listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// Close stops background work and closes the stores. Call this when the app
// is shutting down.
func (a *App) Close() error {
	for _, stop := range a.stops {
		stop()
	}
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
