// Package browsertest provides an in-memory browser.Session that serves
// scripted HTML documents, for tests that must not launch Chrome.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/dfscrawl/internal/browser"
)

// ErrWaitTimeout is returned by WaitFor when the selector never matches.
var ErrWaitTimeout = errors.New("wait timed out")

// Site is a fake browser session keyed by URL.
type Site struct {
	mu sync.Mutex

	documents   map[string]string
	navigateErr map[string]error

	// OpenErr, when set, makes NewPage fail.
	OpenErr error

	opened      int
	closed      int
	navigations []string
}

var _ browser.Session = (*Site)(nil)

// NewSite creates an empty fake site.
func NewSite() *Site {
	return &Site{
		documents:   make(map[string]string),
		navigateErr: make(map[string]error),
	}
}

// Serve registers the HTML returned after navigating to url.
func (s *Site) Serve(url, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[url] = html
}

// FailNavigation makes navigation to url fail with err.
func (s *Site) FailNavigation(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigateErr[url] = err
}

// NewPage opens a fake tab.
func (s *Site) NewPage(ctx context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.opened++
	return &page{site: s}, nil
}

// Opened reports how many pages were opened.
func (s *Site) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Closed reports how many pages were closed.
func (s *Site) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Navigations returns every URL navigated to, in order.
func (s *Site) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

type page struct {
	site   *Site
	url    string
	html   string
	closed bool
}

func (p *page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s := p.site
	s.mu.Lock()
	defer s.mu.Unlock()

	s.navigations = append(s.navigations, url)
	if err, ok := s.navigateErr[url]; ok {
		return err
	}
	html, ok := s.documents[url]
	if !ok {
		return fmt.Errorf("navigate %s: net::ERR_NAME_NOT_RESOLVED", url)
	}
	p.url = url
	p.html = html
	return nil
}

func (p *page) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if p.url == "" {
		return fmt.Errorf("wait for %q: page not loaded", selector)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.html))
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("wait for %q: %w", selector, ErrWaitTimeout)
	}
	return nil
}

func (p *page) HTML(ctx context.Context) (string, error) {
	if p.url == "" {
		return "", errors.New("read document: page not loaded")
	}
	return p.html, nil
}

func (p *page) Close() error {
	s := p.site
	s.mu.Lock()
	defer s.mu.Unlock()

	if !p.closed {
		p.closed = true
		s.closed++
	}
	return nil
}
