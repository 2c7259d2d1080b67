package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/dfscrawl/internal/browser"
	"github.com/go-scripts/dfscrawl/internal/types"
)

// Roots loads the landing page and returns the seed articles listed in its
// gallery. Unlike Extract, every failure is returned: without roots there is
// nothing to crawl.
func (e *Extractor) Roots(ctx context.Context, page browser.Page) ([]types.LinkRef, error) {
	landing := e.opts.LandingURL
	sel := e.opts.Selectors

	if err := page.Navigate(ctx, landing, e.opts.Timeouts.Landing); err != nil {
		return nil, fmt.Errorf("load landing page %s: %w", landing, err)
	}
	if err := page.WaitFor(ctx, sel.Gallery, e.opts.Timeouts.Gallery); err != nil {
		return nil, fmt.Errorf("find gallery %q on %s: %w", sel.Gallery, landing, err)
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read landing page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse landing page: %w", err)
	}

	return e.GalleryLinks(doc.Selection), nil
}

// GalleryLinks takes the first MaxRoots gallery items and turns them into
// link references, dropping items without a link.
func (e *Extractor) GalleryLinks(root *goquery.Selection) []types.LinkRef {
	sel := e.opts.Selectors

	items := root.Find(sel.GalleryItem)
	if e.opts.MaxRoots > 0 && items.Length() > e.opts.MaxRoots {
		items = items.Slice(0, e.opts.MaxRoots)
	}

	roots := make([]types.LinkRef, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		href, _ := item.Find(sel.GalleryLink).First().Attr("href")
		link := ResolveURL(e.origin, e.opts.LandingURL, href)
		if link == "" {
			return
		}
		roots = append(roots, types.LinkRef{
			Title: titleOf(item, sel.GalleryTitle),
			URL:   link,
		})
	})
	return roots
}
