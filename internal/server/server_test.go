package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(run RunFunc) *Server {
	return New(run, log.New(io.Discard))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return rec
}

func TestRoot(t *testing.T) {
	s := newTestServer(nil)

	rec := get(t, s.Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, Banner, body["message"])
}

func TestScrapeStreamsRunOutput(t *testing.T) {
	s := newTestServer(func(ctx context.Context, out io.Writer) error {
		fmt.Fprintln(out, "DFS from root article 1: Late winner")
		fmt.Fprintln(out, "DFS scraping completed: 1 articles processed")
		return nil
	})

	rec := get(t, s.Handler(), "/scrape")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	var lines []string
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	require.Len(t, lines, 4)
	assert.Regexp(t, `^Starting scraper run: [0-9a-f]{8}$`, lines[0])
	assert.Equal(t, "DFS from root article 1: Late winner", lines[1])
	assert.Equal(t, "DFS scraping completed: 1 articles processed", lines[2])
	assert.Equal(t, "Scraper finished: ok", lines[3])
}

func TestScrapeReportsRunError(t *testing.T) {
	s := newTestServer(func(ctx context.Context, out io.Writer) error {
		return errors.New("root discovery failed: gallery not found")
	})

	rec := get(t, s.Handler(), "/scrape")
	assert.Contains(t, rec.Body.String(), "Scraper finished with error: root discovery failed: gallery not found")
}

func TestScrapeRejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := newTestServer(func(ctx context.Context, out io.Writer) error {
		close(started)
		<-release
		return nil
	})

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/scrape", http.NoBody))
	}()
	<-started

	second := get(t, s.Handler(), "/scrape")
	assert.Equal(t, http.StatusConflict, second.Code)

	close(release)
	<-done
	assert.Contains(t, first.Body.String(), "Scraper finished: ok")
}

func TestScrapeRunSurvivesClientDisconnect(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runCtxErr := make(chan error, 1)
	s := newTestServer(func(ctx context.Context, out io.Writer) error {
		close(started)
		<-release
		fmt.Fprintln(out, "written after the client left")
		runCtxErr <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/scrape", http.NoBody).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Handler().ServeHTTP(httptest.NewRecorder(), req)
	}()

	<-started
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return after the client disconnected")
	}

	close(release)
	s.Wait()
	assert.NoError(t, <-runCtxErr)

	assert.False(t, s.busy.Load())
}

func TestServeShutdownWaitsForStreamingRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	s := newTestServer(func(ctx context.Context, out io.Writer) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/scrape")
	require.NoError(t, err)
	defer resp.Body.Close()

	first, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "Starting scraper run: "))
	<-started

	cancel()
	select {
	case err := <-served:
		t.Fatalf("Serve returned before the run finished: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the run finished")
	}
	assert.True(t, finished.Load())
	assert.False(t, s.busy.Load())
}
