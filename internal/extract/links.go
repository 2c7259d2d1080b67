package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResolveURL makes href absolute. Hrefs already starting with "http" are
// kept as-is, absolute paths are prefixed with origin, and anything else is
// resolved against pageURL (or origin when pageURL is unusable).
func ResolveURL(origin *url.URL, pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "//"):
		return origin.Scheme + ":" + href
	case strings.HasPrefix(href, "/"):
		return origin.Scheme + "://" + origin.Host + href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	base := origin
	if parsed, err := url.Parse(pageURL); err == nil && parsed.IsAbs() {
		base = parsed
	}
	return base.ResolveReference(ref).String()
}

// normalizeText trims and collapses whitespace the way rendered text reads.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// titleOf returns the normalized text of the first match of selector
// within sel, or UntitledTitle.
func titleOf(sel *goquery.Selection, selector string) string {
	var title string
	if selector == "" {
		title = normalizeText(sel.Text())
	} else {
		title = normalizeText(sel.Find(selector).First().Text())
	}
	if title == "" {
		return UntitledTitle
	}
	return title
}
