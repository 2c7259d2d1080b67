// Package crawler drives the bounded depth-first traversal: roots come from
// the landing page, every visited node is extracted, summarized and written
// to a directory derived from its position, then a depth-dependent number
// of its related links are visited in turn.
//
// The traversal is strictly sequential. A node's whole subtree completes
// before its next sibling starts, so records are written in pre-order and
// directory assignment needs no coordination.
package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/dfscrawl/internal/browser"
	"github.com/go-scripts/dfscrawl/internal/extract"
	"github.com/go-scripts/dfscrawl/internal/types"
)

// Fatal errors. Everything else is absorbed into stub records.
var (
	ErrRootDiscovery = errors.New("root discovery failed")
	ErrPersist       = errors.New("persist article")
)

// Extractor reads articles and the landing gallery from browser pages.
type Extractor interface {
	Extract(ctx context.Context, page browser.Page, url string) extract.Result
	Roots(ctx context.Context, page browser.Page) ([]types.LinkRef, error)
}

// Summarizer condenses article text. It must not fail.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Store persists one record per node directory.
type Store interface {
	Save(dir string, record types.ArticleRecord) (string, error)
}

// Reporter receives progress events.
type Reporter interface {
	RootsDiscovered(total int)
	RootStarted(index int, root types.LinkRef)
	StartProcessingPage(url string)
	FinishProcessingPage()
	Article(record types.ArticleRecord, related []types.LinkRef)
	Completed()
}

// Options bound the traversal.
type Options struct {
	BaseDir     string
	MaxDepth    int
	RootFanout  int
	ChildFanout int

	// Dedupe skips URLs already visited in this run. Off by default: a page
	// linking back to an ancestor is crawled again as a fresh node.
	Dedupe bool
}

// Deps are the collaborators a Crawler drives.
type Deps struct {
	Session    browser.Session
	Extractor  Extractor
	Summarizer Summarizer
	Store      Store
	Reporter   Reporter
	Logger     *log.Logger
}

// Stats summarizes a run.
type Stats struct {
	Roots   int
	Visited int
	Stubs   int
	Skipped int
}

// Crawler is the traversal engine.
type Crawler struct {
	opts       Options
	session    browser.Session
	extractor  Extractor
	summarizer Summarizer
	store      Store
	reporter   Reporter
	logger     *log.Logger
	visited    *Visited
	stats      Stats
}

// New wires a Crawler.
func New(opts Options, deps Deps) (*Crawler, error) {
	if deps.Session == nil || deps.Extractor == nil || deps.Summarizer == nil || deps.Store == nil {
		return nil, errors.New("crawler needs a session, extractor, summarizer and store")
	}
	if opts.MaxDepth < 0 {
		return nil, fmt.Errorf("max depth must be non-negative, got %d", opts.MaxDepth)
	}
	if opts.RootFanout < 0 || opts.ChildFanout < 0 {
		return nil, errors.New("fan-out must be non-negative")
	}

	c := &Crawler{
		opts:       opts,
		session:    deps.Session,
		extractor:  deps.Extractor,
		summarizer: deps.Summarizer,
		store:      deps.Store,
		reporter:   deps.Reporter,
		logger:     deps.Logger,
	}
	if c.reporter == nil {
		c.reporter = nopReporter{}
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if opts.Dedupe {
		c.visited = NewVisited()
	}
	return c, nil
}

// Run discovers the roots and crawls each of them in order. It stops at the
// first fatal error.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	roots, err := c.DiscoverRoots(ctx)
	if err != nil {
		return c.stats, err
	}
	c.stats.Roots = len(roots)
	c.reporter.RootsDiscovered(len(roots))

	for i, root := range roots {
		c.reporter.RootStarted(i+1, root)
		if err := c.Visit(ctx, root, 0, RootDir(c.opts.BaseDir, i+1)); err != nil {
			return c.stats, err
		}
	}

	c.reporter.Completed()
	c.logger.Info("Crawl completed",
		"roots", c.stats.Roots,
		"visited", c.stats.Visited,
		"stubs", c.stats.Stubs,
		"skipped", c.stats.Skipped,
		"output", c.opts.BaseDir)
	return c.stats, nil
}

// DiscoverRoots reads the seed articles from the landing page.
func (c *Crawler) DiscoverRoots(ctx context.Context) ([]types.LinkRef, error) {
	page, err := c.session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open page: %w", ErrRootDiscovery, err)
	}
	defer c.closePage(page, "landing")

	roots, err := c.extractor.Roots(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootDiscovery, err)
	}
	if len(roots) == 0 {
		c.logger.Warn("Landing page listed no root articles")
	}
	c.logger.Info("Discovered root articles", "count", len(roots))
	return roots, nil
}

// Visit processes node at depth and writes it to dir, then recurses into
// its related links. Nodes deeper than MaxDepth are ignored entirely.
func (c *Crawler) Visit(ctx context.Context, node types.LinkRef, depth int, dir string) error {
	if depth > c.opts.MaxDepth {
		return nil
	}
	if c.visited != nil && !c.visited.Add(node.URL) {
		c.stats.Skipped++
		c.logger.Debug("Skipping already visited article", "url", node.URL, "depth", depth)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Debug("Visiting article", "url", node.URL, "depth", depth, "dir", dir)
	c.reporter.StartProcessingPage(node.URL)
	result := c.fetch(ctx, node.URL)
	summary := c.summarizer.Summarize(ctx, result.Content)
	c.reporter.FinishProcessingPage()

	record := types.NewRecord(node, result.Content, summary)
	if _, err := c.store.Save(dir, record); err != nil {
		return fmt.Errorf("%w %s to %s: %w", ErrPersist, node.URL, dir, err)
	}

	c.stats.Visited++
	if result.Content == "" {
		c.stats.Stubs++
	}
	c.reporter.Article(record, result.Related)

	children := min(c.Fanout(depth), len(result.Related))
	for i := 0; i < children; i++ {
		if err := c.Visit(ctx, result.Related[i], depth+1, ChildDir(dir, i+1)); err != nil {
			return err
		}
	}
	return nil
}

// Fanout is the number of related links followed from a node at depth.
func (c *Crawler) Fanout(depth int) int {
	if depth == 0 {
		return c.opts.RootFanout
	}
	return c.opts.ChildFanout
}

// Stats returns the counters collected so far.
func (c *Crawler) Stats() Stats {
	return c.stats
}

// fetch extracts url in a fresh page that is closed before returning.
func (c *Crawler) fetch(ctx context.Context, url string) extract.Result {
	page, err := c.session.NewPage(ctx)
	if err != nil {
		c.logger.Error("Failed to open page", "url", url, "err", err)
		return extract.Result{}
	}
	defer c.closePage(page, url)

	return c.extractor.Extract(ctx, page, url)
}

func (c *Crawler) closePage(page browser.Page, label string) {
	if err := page.Close(); err != nil {
		c.logger.Warn("Failed to close page", "page", label, "err", err)
	}
}

type nopReporter struct{}

func (nopReporter) RootsDiscovered(int)                          {}
func (nopReporter) RootStarted(int, types.LinkRef)               {}
func (nopReporter) StartProcessingPage(string)                   {}
func (nopReporter) FinishProcessingPage()                        {}
func (nopReporter) Article(types.ArticleRecord, []types.LinkRef) {}
func (nopReporter) Completed()                                   {}
