package extract

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/go-scripts/dfscrawl/internal/browser"
	"github.com/go-scripts/dfscrawl/internal/types"
)

// paragraphSeparator joins paragraphs of an article body.
const paragraphSeparator = "\n\n"

// Result is what a single article page yields.
type Result struct {
	Content string
	Related []types.LinkRef
}

// Extract loads pageURL in page and returns its body text and related links.
//
// Extract never fails: navigation and DOM errors are logged and produce an
// empty Result, and a missing content or related container only empties
// the corresponding field.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, pageURL string) Result {
	sel := e.opts.Selectors
	to := e.opts.Timeouts

	if err := page.Navigate(ctx, pageURL, to.Navigation); err != nil {
		e.logger.Error("Failed to extract article", "url", pageURL, "err", err)
		return Result{}
	}

	if sel.Content != "" {
		if err := page.WaitFor(ctx, sel.Content, to.Content); err != nil {
			e.logger.Warn("Article content not found", "url", pageURL, "selector", sel.Content, "err", err)
		}
	}

	// Related links are optional on most pages
	if sel.RelatedList != "" {
		if err := page.WaitFor(ctx, sel.RelatedList, to.Related); err != nil {
			e.logger.Debug("No related list", "url", pageURL, "selector", sel.RelatedList)
		}
	}

	html, err := page.HTML(ctx)
	if err != nil {
		e.logger.Error("Failed to read page document", "url", pageURL, "err", err)
		return Result{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Error("Failed to parse page document", "url", pageURL, "err", err)
		return Result{}
	}

	content := ParagraphText(doc.Selection, sel.Paragraph)
	if content == "" && e.opts.ReadabilityFallback {
		content = e.readabilityText(html, pageURL)
	}

	return Result{
		Content: content,
		Related: e.RelatedLinks(doc.Selection, pageURL),
	}
}

// ParagraphText joins the trimmed text of every element matching selector,
// skipping empty paragraphs.
func ParagraphText(root *goquery.Selection, selector string) string {
	var paragraphs []string
	root.Find(selector).Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, paragraphSeparator)
}

// RelatedLinks returns at most MaxRelated related-article references in
// document order. Anchors without an href are dropped after the cap.
func (e *Extractor) RelatedLinks(root *goquery.Selection, pageURL string) []types.LinkRef {
	sel := e.opts.Selectors

	anchors := root.Find(sel.RelatedAnchor)
	if e.opts.MaxRelated > 0 && anchors.Length() > e.opts.MaxRelated {
		anchors = anchors.Slice(0, e.opts.MaxRelated)
	}

	links := make([]types.LinkRef, 0, anchors.Length())
	anchors.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := ResolveURL(e.origin, pageURL, href)
		if link == "" {
			return
		}
		links = append(links, types.LinkRef{
			Title: titleOf(a, sel.RelatedTitle),
			URL:   link,
		})
	})
	return links
}

func (e *Extractor) readabilityText(html, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), parsedURL)
	if err != nil {
		e.logger.Debug("Readability fallback failed", "url", pageURL, "err", err)
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return ""
	}
	return ParagraphText(doc.Selection, "p")
}
