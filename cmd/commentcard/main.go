package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eringen/commentcard"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	setupLogging(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"), false)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	case "version":
		fmt.Printf("commentcard %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Error().Err(err).Msg(os.Args[1] + " failed")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`commentcard - turn YouTube comments into shareable PNG cards

Usage:
  commentcard <command> [flags]

Commands:
  serve         Run the HTTP server
  render        Render one card to a PNG file
  version       Print the commentcard version
  help          Show this help message

Examples:
  commentcard serve -addr :8080
  commentcard render -comment comment.json -out card.png
  commentcard render -url 'https://www.youtube.com/watch?v=...&lc=...' -browser`)
}

func setupLogging(format, level string, verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if !strings.EqualFold(format, "json") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// loadConfig layers defaults, an optional config file, the environment and
// finally any flags that were set explicitly.
func loadConfig(fs *flag.FlagSet, path string, overrides func(*commentcard.Config, string)) (commentcard.Config, error) {
	var cfg commentcard.Config
	if path != "" {
		c, err := commentcard.LoadConfigFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	fs.Visit(func(f *flag.Flag) { overrides(&cfg, f.Name) })
	return cfg, nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var (
		configPath  = fs.String("config", os.Getenv("COMMENTCARD_CONFIG"), "Path to a YAML or JSON config file")
		addr        = fs.String("addr", ":3000", "Listen address")
		siteURL     = fs.String("url", "", "Public base URL")
		chromePath  = fs.String("chrome", "", "Chrome executable for the browser backend")
		quotaLimit  = fs.Int64("quota", 0, "Daily upstream request limit")
		redisURL    = fs.String("redis", "", "Redis URL for the shared quota counter")
		noAnalytics = fs.Bool("no-analytics", false, "Disable the render ledger")
		verbose     = fs.Bool("v", false, "Verbose logging")
	)
	_ = fs.Parse(args)
	if *verbose {
		setupLogging(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"), true)
	}

	cfg, err := loadConfig(fs, *configPath, func(c *commentcard.Config, name string) {
		switch name {
		case "addr":
			c.Addr = *addr
		case "url":
			c.URL = *siteURL
		case "chrome":
			c.ChromePath = *chromePath
		case "quota":
			c.DailyQuota = *quotaLimit
		case "redis":
			c.RedisURL = *redisURL
		case "no-analytics":
			c.AnalyticsDisabled = *noAnalytics
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := commentcard.New(cfg)
	defer app.Close()

	errc := make(chan error, 1)
	go func() { errc <- app.Start(ctx) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var (
		configPath  = fs.String("config", os.Getenv("COMMENTCARD_CONFIG"), "Path to a YAML or JSON config file")
		commentPath = fs.String("comment", "", "Comment JSON file (a comment or a comments.list response)")
		commentURL  = fs.String("url", "", "YouTube comment URL to fetch")
		out         = fs.String("out", "card.png", "Output PNG path")
		style       = fs.String("style", "", "Card options as a query string, e.g. 'size=large&dateFormat=fr'")
		useBrowser  = fs.Bool("browser", false, "Render with headless Chrome instead of the raster backend")
		chromePath  = fs.String("chrome", "", "Chrome executable for the browser backend")
		verbose     = fs.Bool("v", false, "Verbose logging")
	)
	_ = fs.Parse(args)
	if *verbose {
		setupLogging(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"), true)
	}
	if (*commentPath == "") == (*commentURL == "") {
		return errors.New("exactly one of -comment or -url is required")
	}

	cfg, err := loadConfig(fs, *configPath, func(c *commentcard.Config, name string) {
		if name == "chrome" {
			c.ChromePath = *chromePath
		}
	})
	if err != nil {
		return err
	}
	cfg.AnalyticsDisabled = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := commentcard.New(cfg)
	defer app.Close()
	if err := app.Setup(ctx); err != nil {
		return err
	}

	comment, err := loadComment(ctx, app, *commentPath, *commentURL)
	if err != nil {
		return err
	}
	st, err := parseStyle(*style)
	if err != nil {
		return err
	}

	backend := app.Raster
	if *useBrowser {
		backend = app.Browser
	}
	png, err := app.RenderCard(ctx, backend, comment, st)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Info().Str("out", *out).Int("bytes", len(png)).Str("backend", backend.Name()).Msg("card written")
	return nil
}
