package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/go-scripts/dfscrawl/internal/app"
	"github.com/go-scripts/dfscrawl/internal/config"
	"github.com/go-scripts/dfscrawl/internal/server"
)

// Globals are flags shared by every command. They override the config file.
type Globals struct {
	Config   string `help:"Path to configuration file (default: config.yaml if present)" short:"c" type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)"`
	Output   string `help:"Directory to store article metadata" short:"o"`
	MaxDepth int    `help:"Maximum crawl depth (-1 keeps the configured value)" default:"-1" short:"d"`
	Dedupe   bool   `help:"Skip articles already visited in this run"`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Crawl CrawlCmd `cmd:"" default:"withargs" help:"Crawl the news site and write article metadata."`
	Serve ServeCmd `cmd:"" help:"Serve crawl runs over HTTP."`
}

// CrawlCmd runs a single crawl in the foreground.
type CrawlCmd struct {
	NoSpinner bool `help:"Disable the progress spinner"`
}

// Run executes the crawl.
func (c *CrawlCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app.App{Config: cfg, Logger: logger, Spinner: c.spinnerWriter()}
	_, err = a.Run(ctx, os.Stdout)
	return err
}

// spinnerWriter is where the page spinner draws. The report owns stdout.
func (c *CrawlCmd) spinnerWriter() io.Writer {
	if c.NoSpinner {
		return nil
	}
	return os.Stderr
}

// ServeCmd starts the streaming API.
type ServeCmd struct {
	Addr string `help:"Listen address (default from config)" short:"a"`
}

// Run serves until interrupted.
func (s *ServeCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}
	level, _ := cfg.Level()

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(func(ctx context.Context, out io.Writer) error {
		// Diagnostics go to the client as well as to our own stderr.
		runLogger := app.NewLogger(io.MultiWriter(os.Stderr, out), level)
		a := &app.App{Config: cfg, Logger: runLogger}
		_, err := a.Run(ctx, out)
		return err
	}, logger.With("component", "server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// load reads the configuration and applies flag overrides.
func (g *Globals) load() (config.Config, *log.Logger, error) {
	cfg, err := config.Load(config.Source{Path: g.Config, Required: g.Config != ""})
	if err != nil {
		return cfg, nil, err
	}

	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.Output != "" {
		cfg.Crawl.OutputDir = g.Output
	}
	if g.MaxDepth >= 0 {
		cfg.Crawl.MaxDepth = g.MaxDepth
	}
	if g.Dedupe {
		cfg.Crawl.Dedupe = true
	}

	level, err := cfg.Level()
	if err != nil {
		return cfg, nil, err
	}
	return cfg, app.NewLogger(os.Stderr, level), nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("dfscrawl"),
		kong.Description("Depth-first news crawler that summarizes every article it visits."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
