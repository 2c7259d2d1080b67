package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/dfscrawl/internal/browser"
	"github.com/go-scripts/dfscrawl/internal/crawler"
	"github.com/go-scripts/dfscrawl/internal/extract"
	"github.com/go-scripts/dfscrawl/internal/summarizer"
)

var (
	ErrMissingAPIKey    = errors.New("missing summarizer API key (set GROQ_API_KEY)")
	ErrInvalidDepth     = errors.New("invalid crawl depth")
	ErrInvalidFanout    = errors.New("invalid fan-out")
	ErrInvalidURL       = errors.New("invalid site URL")
	ErrInvalidSelector  = errors.New("invalid selector")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidOutputDir = errors.New("invalid output directory")
	ErrInvalidTimeout   = errors.New("invalid timeout")
	ErrInvalidRetries   = errors.New("invalid retry count")
)

// Validate checks the settings a run depends on. It is called before the
// browser is launched or any request is sent.
func (c Config) Validate() error {
	if c.Summarizer.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Crawl.OutputDir == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidOutputDir)
	}
	if c.Crawl.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, c.Crawl.MaxDepth)
	}
	if c.Crawl.RootFanout < 0 || c.Crawl.ChildFanout < 0 {
		return fmt.Errorf("%w: root %d, child %d", ErrInvalidFanout, c.Crawl.RootFanout, c.Crawl.ChildFanout)
	}
	if c.Extract.MaxRoots <= 0 || c.Extract.MaxRelated <= 0 {
		return fmt.Errorf("%w: extraction caps must be positive, roots %d, related %d",
			ErrInvalidFanout, c.Extract.MaxRoots, c.Extract.MaxRelated)
	}
	for name, d := range map[string]time.Duration{
		"landing":    c.Timeouts.Landing,
		"gallery":    c.Timeouts.Gallery,
		"navigation": c.Timeouts.Navigation,
		"content":    c.Timeouts.Content,
		"related":    c.Timeouts.Related,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s timeout must be positive, got %s", ErrInvalidTimeout, name, d)
		}
	}
	if c.Summarizer.Timeout < 0 {
		return fmt.Errorf("%w: summarizer timeout %s", ErrInvalidTimeout, c.Summarizer.Timeout)
	}
	if c.Summarizer.MaxRetries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRetries, c.Summarizer.MaxRetries)
	}
	for name, raw := range map[string]string{
		"landing URL":         c.Site.LandingURL,
		"origin":              c.Site.Origin,
		"summarizer endpoint": c.Summarizer.Endpoint,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s %q", ErrInvalidURL, name, raw)
		}
	}
	for name, sel := range map[string]string{
		"gallery":        c.Selectors.Gallery,
		"gallery item":   c.Selectors.GalleryItem,
		"gallery link":   c.Selectors.GalleryLink,
		"paragraph":      c.Selectors.Paragraph,
		"related anchor": c.Selectors.RelatedAnchor,
	} {
		if sel == "" {
			return fmt.Errorf("%w: %s selector is empty", ErrInvalidSelector, name)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (log.Level, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return level, nil
}

// CrawlerOptions converts the traversal settings.
func (c Config) CrawlerOptions() crawler.Options {
	return crawler.Options{
		BaseDir:     c.Crawl.OutputDir,
		MaxDepth:    c.Crawl.MaxDepth,
		RootFanout:  c.Crawl.RootFanout,
		ChildFanout: c.Crawl.ChildFanout,
		Dedupe:      c.Crawl.Dedupe,
	}
}

// ExtractOptions converts the site, selector and timeout settings.
func (c Config) ExtractOptions() extract.Options {
	return extract.Options{
		LandingURL: c.Site.LandingURL,
		Origin:     c.Site.Origin,
		Selectors: extract.Selectors{
			Gallery:       c.Selectors.Gallery,
			GalleryItem:   c.Selectors.GalleryItem,
			GalleryTitle:  c.Selectors.GalleryTitle,
			GalleryLink:   c.Selectors.GalleryLink,
			Content:       c.Selectors.Content,
			Paragraph:     c.Selectors.Paragraph,
			RelatedList:   c.Selectors.RelatedList,
			RelatedAnchor: c.Selectors.RelatedAnchor,
			RelatedTitle:  c.Selectors.RelatedTitle,
		},
		Timeouts: extract.Timeouts{
			Landing:    c.Timeouts.Landing,
			Gallery:    c.Timeouts.Gallery,
			Navigation: c.Timeouts.Navigation,
			Content:    c.Timeouts.Content,
			Related:    c.Timeouts.Related,
		},
		MaxRoots:            c.Extract.MaxRoots,
		MaxRelated:          c.Extract.MaxRelated,
		ReadabilityFallback: c.Extract.ReadabilityFallback,
	}
}

// SummarizerConfig converts the chat API settings.
func (c Config) SummarizerConfig() summarizer.Config {
	s := c.Summarizer
	return summarizer.Config{
		Endpoint:          s.Endpoint,
		Model:             s.Model,
		APIKey:            s.APIKey,
		Prompt:            s.Prompt,
		MaxInputChars:     s.MaxInputChars,
		Timeout:           s.Timeout,
		MaxRetries:        s.MaxRetries,
		BaseDelay:         s.BaseDelay,
		RequestsPerMinute: s.RequestsPerMinute,
	}
}

// BrowserOptions converts the Chrome settings.
func (c Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:    c.Browser.Headless,
		Width:       c.Browser.Width,
		Height:      c.Browser.Height,
		UserAgent:   c.Browser.UserAgent,
		ReadTimeout: c.Browser.ReadTimeout,
	}
}
