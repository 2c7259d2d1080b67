package extract

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/dfscrawl/internal/browser/browsertest"
	"github.com/go-scripts/dfscrawl/internal/types"
)

const testOrigin = "https://news.example.com"

func testOptions() Options {
	return Options{
		LandingURL: testOrigin + "/en/home",
		Origin:     testOrigin,
		Selectors: Selectors{
			Gallery:       "ul.gallery",
			GalleryItem:   "ul.gallery li",
			GalleryTitle:  "p.teaser-title",
			GalleryLink:   "a.teaser",
			Content:       "div.article",
			Paragraph:     "div.article p",
			RelatedList:   "ul.related",
			RelatedAnchor: "ul.related li a",
			RelatedTitle:  "p",
		},
		Timeouts: Timeouts{
			Landing:    time.Second,
			Gallery:    time.Second,
			Navigation: time.Second,
			Content:    time.Second,
			Related:    time.Second,
		},
		MaxRoots:   5,
		MaxRelated: 5,
	}
}

func newTestExtractor(t *testing.T, opts Options) *Extractor {
	t.Helper()
	e, err := New(opts, log.New(io.Discard))
	require.NoError(t, err)
	return e
}

func articleHTML(paragraphs []string, related string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"article\">")
	for _, p := range paragraphs {
		b.WriteString("<p>" + p + "</p>")
	}
	b.WriteString("</div>")
	b.WriteString(related)
	b.WriteString("</body></html>")
	return b.String()
}

func TestNewRejectsRelativeOrigin(t *testing.T) {
	opts := testOptions()
	opts.Origin = "/relative"

	_, err := New(opts, nil)
	assert.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	origin, _ := url.Parse(testOrigin)

	testCases := []struct {
		name    string
		pageURL string
		href    string
		want    string
	}{
		{name: "absolute kept", href: "https://other.example.org/a", want: "https://other.example.org/a"},
		{name: "absolute path prefixed", href: "/en/news/1", want: testOrigin + "/en/news/1"},
		{name: "protocol relative", href: "//cdn.example.com/x", want: "https://cdn.example.com/x"},
		{name: "relative to page", pageURL: testOrigin + "/en/news/1", href: "2", want: testOrigin + "/en/news/2"},
		{name: "relative without page", pageURL: "", href: "news/3", want: testOrigin + "/news/3"},
		{name: "empty", href: "   ", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveURL(origin, tc.pageURL, tc.href))
		})
	}
}

func TestParagraphText(t *testing.T) {
	html := articleHTML([]string{"  First paragraph. ", "", "Second <b>bold</b> paragraph."}, "")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	got := ParagraphText(doc.Selection, "div.article p")
	assert.Equal(t, "First paragraph.\n\nSecond bold paragraph.", got)
}

func TestExtract(t *testing.T) {
	pageURL := testOrigin + "/en/news/1"
	related := `<ul class="related">
		<li><a href="/en/news/2"><p> Second story </p></a></li>
		<li><a href="https://elsewhere.example.org/3"><p>Third story</p></a></li>
		<li><a href="/en/news/4"></a></li>
		<li><a><p>No link</p></a></li>
	</ul>`

	site := browsertest.NewSite()
	site.Serve(pageURL, articleHTML([]string{"Body one.", "Body two."}, related))

	e := newTestExtractor(t, testOptions())
	page, err := site.NewPage(context.Background())
	require.NoError(t, err)
	defer page.Close()

	got := e.Extract(context.Background(), page, pageURL)

	assert.Equal(t, "Body one.\n\nBody two.", got.Content)
	assert.Equal(t, []types.LinkRef{
		{Title: "Second story", URL: testOrigin + "/en/news/2"},
		{Title: "Third story", URL: "https://elsewhere.example.org/3"},
		{Title: UntitledTitle, URL: testOrigin + "/en/news/4"},
	}, got.Related)
}

func TestExtractCapsRelatedLinks(t *testing.T) {
	pageURL := testOrigin + "/en/news/1"

	var related strings.Builder
	related.WriteString(`<ul class="related">`)
	for i := 0; i < 8; i++ {
		related.WriteString(`<li><a href="/en/news/r` + string(rune('a'+i)) + `"><p>Story</p></a></li>`)
	}
	related.WriteString(`</ul>`)

	site := browsertest.NewSite()
	site.Serve(pageURL, articleHTML([]string{"Body."}, related.String()))

	e := newTestExtractor(t, testOptions())
	page, _ := site.NewPage(context.Background())
	defer page.Close()

	got := e.Extract(context.Background(), page, pageURL)
	require.Len(t, got.Related, 5)
	assert.Equal(t, testOrigin+"/en/news/ra", got.Related[0].URL)
	assert.Equal(t, testOrigin+"/en/news/re", got.Related[4].URL)
}

func TestExtractDegradesGracefully(t *testing.T) {
	pageURL := testOrigin + "/en/news/1"

	testCases := []struct {
		name        string
		setup       func(site *browsertest.Site)
		wantContent string
		wantRelated int
	}{
		{
			name: "navigation failure yields stub",
			setup: func(site *browsertest.Site) {
				site.FailNavigation(pageURL, errors.New("net::ERR_TIMED_OUT"))
			},
		},
		{
			name:  "unknown page yields stub",
			setup: func(site *browsertest.Site) {},
		},
		{
			name: "missing content keeps related links",
			setup: func(site *browsertest.Site) {
				site.Serve(pageURL, `<html><body><ul class="related"><li><a href="/x"><p>X</p></a></li></ul></body></html>`)
			},
			wantRelated: 1,
		},
		{
			name: "missing related list keeps content",
			setup: func(site *browsertest.Site) {
				site.Serve(pageURL, articleHTML([]string{"Only body."}, ""))
			},
			wantContent: "Only body.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			site := browsertest.NewSite()
			tc.setup(site)

			e := newTestExtractor(t, testOptions())
			page, _ := site.NewPage(context.Background())
			defer page.Close()

			got := e.Extract(context.Background(), page, pageURL)
			assert.Equal(t, tc.wantContent, got.Content)
			assert.Len(t, got.Related, tc.wantRelated)
		})
	}
}

func TestExtractReadabilityFallback(t *testing.T) {
	pageURL := testOrigin + "/en/news/1"
	body := strings.Repeat("The match ended with a late winner after a long spell of pressure from the home side. ", 6)
	html := `<html><head><title>Match report</title></head><body><article><h1>Match report</h1>` +
		`<p>` + body + `</p><p>` + body + `</p></article></body></html>`

	site := browsertest.NewSite()
	site.Serve(pageURL, html)

	opts := testOptions()
	opts.ReadabilityFallback = true
	e := newTestExtractor(t, opts)

	page, _ := site.NewPage(context.Background())
	defer page.Close()

	got := e.Extract(context.Background(), page, pageURL)
	assert.Contains(t, got.Content, "late winner")
}

func TestRoots(t *testing.T) {
	opts := testOptions()
	landing := `<html><body><ul class="gallery">
		<li><a class="teaser" href="/en/news/1"><p class="teaser-title"> Lead story </p></a></li>
		<li><a class="teaser" href="https://news.example.com/en/news/2"></a></li>
		<li><p class="teaser-title">No link here</p></li>
		<li><a class="teaser" href="/en/news/4"><p class="teaser-title">Four</p></a></li>
		<li><a class="teaser" href="/en/news/5"><p class="teaser-title">Five</p></a></li>
		<li><a class="teaser" href="/en/news/6"><p class="teaser-title">Six</p></a></li>
	</ul></body></html>`

	site := browsertest.NewSite()
	site.Serve(opts.LandingURL, landing)

	e := newTestExtractor(t, opts)
	page, _ := site.NewPage(context.Background())
	defer page.Close()

	roots, err := e.Roots(context.Background(), page)
	require.NoError(t, err)

	// The sixth item falls outside the cap; the third has no link.
	assert.Equal(t, []types.LinkRef{
		{Title: "Lead story", URL: testOrigin + "/en/news/1"},
		{Title: UntitledTitle, URL: testOrigin + "/en/news/2"},
		{Title: "Four", URL: testOrigin + "/en/news/4"},
		{Title: "Five", URL: testOrigin + "/en/news/5"},
	}, roots)
}

func TestRootsFailures(t *testing.T) {
	opts := testOptions()

	testCases := []struct {
		name  string
		setup func(site *browsertest.Site)
	}{
		{
			name: "landing unreachable",
			setup: func(site *browsertest.Site) {
				site.FailNavigation(opts.LandingURL, errors.New("net::ERR_CONNECTION_REFUSED"))
			},
		},
		{
			name: "gallery missing",
			setup: func(site *browsertest.Site) {
				site.Serve(opts.LandingURL, `<html><body><p>maintenance</p></body></html>`)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			site := browsertest.NewSite()
			tc.setup(site)

			e := newTestExtractor(t, opts)
			page, _ := site.NewPage(context.Background())
			defer page.Close()

			roots, err := e.Roots(context.Background(), page)
			assert.Error(t, err)
			assert.Nil(t, roots)
		})
	}
}
