// Package server exposes crawl runs over HTTP. GET /scrape starts a run and
// streams its report as plain text lines until the run finishes.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Banner is returned by GET /.
const Banner = "OneFootball DFS Summarizer API"

const shutdownTimeout = 10 * time.Second

// RunFunc performs one crawl, writing its report and diagnostics to out.
type RunFunc func(ctx context.Context, out io.Writer) error

// Server serves the crawl API. At most one crawl runs at a time.
type Server struct {
	run    RunFunc
	logger *log.Logger
	engine *gin.Engine

	busy    atomic.Bool
	running sync.WaitGroup

	mu      sync.Mutex
	streams map[*stream]struct{}
}

// New builds the HTTP routes around run.
func New(run RunFunc, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{run: run, logger: logger, streams: make(map[*stream]struct{})}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))
	engine.GET("/", s.handleRoot)
	engine.GET("/scrape", s.handleScrape)
	s.engine = engine

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done. See Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. On shutdown, open
// /scrape streams are ended, then Serve waits for a crawl in progress to
// finish before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.detachStreams)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.Wait()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)

	if s.busy.Load() {
		s.logger.Info("Waiting for running crawl to finish")
	}
	s.Wait()

	if shutdownErr != nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}
	return nil
}

// Wait blocks until no crawl is running.
func (s *Server) Wait() {
	s.running.Wait()
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": Banner})
}

func (s *Server) handleScrape(c *gin.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a scraper run is already in progress"})
		return
	}

	runID := uuid.NewString()[:8]
	logger := s.logger.With("run", runID)
	out := newStream()
	s.track(out)
	defer s.untrack(out)

	// The crawl outlives the request: a client that disconnects does not
	// abort it.
	runCtx := context.WithoutCancel(c.Request.Context())
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		logger.Info("Scraper run started")
		err := s.run(runCtx, out)
		s.busy.Store(false)
		out.finish(err)
		logger.Info("Scraper run finished", "err", err)
	}()

	setStreamHeaders(c.Writer)
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "Starting scraper run: %s\n", runID)
	c.Writer.Flush()

	for {
		select {
		case chunk, ok := <-out.chunks:
			if !ok {
				if err := out.err(); err != nil {
					fmt.Fprintf(c.Writer, "\nScraper finished with error: %v\n", err)
				} else {
					fmt.Fprint(c.Writer, "\nScraper finished: ok\n")
				}
				c.Writer.Flush()
				return
			}
			if _, err := c.Writer.Write(chunk); err != nil {
				logger.Debug("Stream write failed", "err", err)
				out.detach()
				return
			}
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			logger.Info("Client disconnected; crawl continues")
			out.detach()
			return
		case <-out.gone:
			fmt.Fprint(c.Writer, "\nServer shutting down; crawl continues in the background\n")
			c.Writer.Flush()
			return
		}
	}
}

func (s *Server) track(out *stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[out] = struct{}{}
}

func (s *Server) untrack(out *stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, out)
}

// detachStreams ends every open /scrape response without stopping its run.
func (s *Server) detachStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for out := range s.streams {
		out.detach()
	}
}

func setStreamHeaders(w gin.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
