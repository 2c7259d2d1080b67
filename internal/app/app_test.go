package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/dfscrawl/internal/browser"
	"github.com/go-scripts/dfscrawl/internal/browser/browsertest"
	"github.com/go-scripts/dfscrawl/internal/config"
	"github.com/go-scripts/dfscrawl/internal/summarizer"
	"github.com/go-scripts/dfscrawl/internal/writer"
)

const testOrigin = "https://news.example.com"

const landingHTML = `<html><body>
<ul class="Gallery_galleryItems__o8vSf">
  <li><a class="NewsTeaser_teaser__content__BP26f" href="/en/news/1"><p class="NewsTeaser_teaser__title__OsMxr">Late winner</p></a></li>
</ul>
</body></html>`

const articleHTML = `<html><body>
<div class="ArticleParagraph_articleParagraph__MrxYL"><p>The hosts won it late.</p></div>
<ul class="RelatedNews_list__4KkTT">
  <li><a href="/en/news/2"><p>Manager reacts</p></a></li>
</ul>
</body></html>`

const relatedHTML = `<html><body>
<div class="ArticleParagraph_articleParagraph__MrxYL"><p>The manager was delighted.</p></div>
</body></html>`

func chatAPI(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(summarizer.ChatResponse{
			Choices: []summarizer.ChatChoice{{Message: summarizer.Message{Role: "assistant", Content: "- Late drama"}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, endpoint string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Site.LandingURL = testOrigin + "/en/home"
	cfg.Site.Origin = testOrigin
	cfg.Crawl.OutputDir = t.TempDir()
	cfg.Summarizer.Endpoint = endpoint
	cfg.Summarizer.APIKey = "test-key"
	return cfg
}

func TestRunRefusesInvalidConfigBeforeLaunching(t *testing.T) {
	cfg := config.Default()
	cfg.Summarizer.APIKey = ""

	launched := false
	a := &App{
		Config: cfg,
		Logger: log.New(io.Discard),
		Launch: func(browser.Options) (browser.Session, func(), error) {
			launched = true
			return nil, nil, nil
		},
	}

	_, err := a.Run(context.Background(), io.Discard)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.False(t, launched)
}

func TestRunCrawlsAndReports(t *testing.T) {
	site := browsertest.NewSite()
	site.Serve(testOrigin+"/en/home", landingHTML)
	site.Serve(testOrigin+"/en/news/1", articleHTML)
	site.Serve(testOrigin+"/en/news/2", relatedHTML)

	cfg := testConfig(t, chatAPI(t).URL)
	released := false
	var gotOpts browser.Options
	a := &App{
		Config: cfg,
		Logger: log.New(io.Discard),
		Launch: func(opts browser.Options) (browser.Session, func(), error) {
			gotOpts = opts
			return site, func() { released = true }, nil
		},
	}

	var out bytes.Buffer
	stats, err := a.Run(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Visited)
	assert.True(t, released)
	assert.Equal(t, 1920, gotOpts.Width)
	assert.Contains(t, out.String(), "DFS from root article 1: Late winner")
	assert.Contains(t, out.String(), "  1. Manager reacts - "+testOrigin+"/en/news/2")
	assert.Contains(t, out.String(), "DFS scraping completed: 2 articles processed")

	record, err := writer.New().Load(filepath.Join(cfg.Crawl.OutputDir, "001", "related_01"))
	require.NoError(t, err)
	assert.Equal(t, "Manager reacts", record.Title)
	assert.Equal(t, "The manager was delighted.", record.Content)
	assert.Equal(t, "- Late drama", record.Summary)
}

func TestRunReportsLaunchFailure(t *testing.T) {
	a := &App{
		Config: testConfig(t, "http://127.0.0.1:1"),
		Logger: log.New(io.Discard),
		Launch: func(browser.Options) (browser.Session, func(), error) {
			return nil, nil, assert.AnError
		},
	}

	_, err := a.Run(context.Background(), io.Discard)
	assert.ErrorIs(t, err, assert.AnError)
}
