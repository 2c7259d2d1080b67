// Package app assembles one crawl run from a validated configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/dfscrawl/internal/browser"
	"github.com/go-scripts/dfscrawl/internal/config"
	"github.com/go-scripts/dfscrawl/internal/crawler"
	"github.com/go-scripts/dfscrawl/internal/extract"
	"github.com/go-scripts/dfscrawl/internal/progress"
	"github.com/go-scripts/dfscrawl/internal/summarizer"
	"github.com/go-scripts/dfscrawl/internal/writer"
)

// Launcher starts a browser session. release shuts it down.
type Launcher func(opts browser.Options) (session browser.Session, release func(), err error)

// LaunchChrome starts headless Chrome.
func LaunchChrome(opts browser.Options) (browser.Session, func(), error) {
	chrome, err := browser.Launch(opts)
	if err != nil {
		return nil, nil, err
	}
	return chrome, chrome.Close, nil
}

// App runs crawls.
type App struct {
	Config config.Config
	Logger *log.Logger

	// Launch defaults to LaunchChrome.
	Launch Launcher
	// Spinner, when set, receives the per-page spinner.
	Spinner io.Writer
}

// Run validates the configuration, then crawls, writing the human-readable
// report to out. Nothing is launched when validation fails.
func (a *App) Run(ctx context.Context, out io.Writer) (crawler.Stats, error) {
	cfg := a.Config
	if err := cfg.Validate(); err != nil {
		return crawler.Stats{}, err
	}

	logger := a.Logger
	if logger == nil {
		logger = log.Default()
	}

	ext, err := extract.New(cfg.ExtractOptions(), logger.With("component", "extract"))
	if err != nil {
		return crawler.Stats{}, fmt.Errorf("create extractor: %w", err)
	}
	summ, err := summarizer.New(cfg.SummarizerConfig(), logger.With("component", "summarizer"))
	if err != nil {
		return crawler.Stats{}, fmt.Errorf("create summarizer: %w", err)
	}

	launch := a.Launch
	if launch == nil {
		launch = LaunchChrome
	}
	session, release, err := launch(cfg.BrowserOptions())
	if err != nil {
		return crawler.Stats{}, fmt.Errorf("launch browser: %w", err)
	}
	defer release()

	var reportOpts []progress.Option
	if a.Spinner != nil {
		reportOpts = append(reportOpts, progress.WithSpinner(a.Spinner))
	}

	c, err := crawler.New(cfg.CrawlerOptions(), crawler.Deps{
		Session:    session,
		Extractor:  ext,
		Summarizer: summ,
		Store:      writer.New(),
		Reporter:   progress.New(out, reportOpts...),
		Logger:     logger.With("component", "crawler"),
	})
	if err != nil {
		return crawler.Stats{}, fmt.Errorf("create crawler: %w", err)
	}

	started := time.Now()
	logger.Info("Starting crawl",
		"landing", cfg.Site.LandingURL,
		"maxDepth", cfg.Crawl.MaxDepth,
		"output", cfg.Crawl.OutputDir)

	stats, err := c.Run(ctx)
	logger.Info("Crawl finished", "visited", stats.Visited, "elapsed", time.Since(started).Round(time.Millisecond))
	return stats, err
}

// NewLogger builds the root logger used by every component.
func NewLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "dfscrawl",
		Level:           level,
	})
}
