// Package summarizer produces short bullet-point summaries of article text
// through an OpenAI-compatible chat completions API.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Fixed summaries returned instead of model output.
const (
	NoSummary     = "No summary returned."
	FailedSummary = "Summary generation failed."
)

// DefaultPrompt is placed before the article text.
const DefaultPrompt = "Summarize the following football article in 3-5 bullet points:"

// Message represents a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat completions request payload
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// ChatChoice represents a choice in the completions response
type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason"`
	Message      Message `json:"message"`
}

// ChatResponse represents the completions response body
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat API returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Config describes the chat endpoint and request budget.
type Config struct {
	Endpoint          string
	Model             string
	APIKey            string
	Prompt            string
	MaxInputChars     int
	Timeout           time.Duration
	MaxRetries        int
	BaseDelay         time.Duration
	RequestsPerMinute int
}

// Summarizer calls the chat API and never fails from the caller's view.
type Summarizer struct {
	client      *http.Client
	cfg         Config
	rateLimiter *RateLimiter
	logger      *log.Logger
}

// New creates a Summarizer. It checks the configuration only; no request
// is sent until Summarize.
func New(cfg Config, logger *log.Logger) (*Summarizer, error) {
	if cfg.Endpoint == "" || cfg.Model == "" {
		return nil, errors.New("summarizer endpoint and model are required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("summarizer API key is required")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Summarizer{
		client:      &http.Client{Timeout: cfg.Timeout},
		cfg:         cfg,
		rateLimiter: PerMinute(cfg.RequestsPerMinute),
		logger:      logger,
	}, nil
}

// Summarize returns a bullet-point summary of text. Empty text is still
// sent. On any failure it logs and returns FailedSummary; when the model
// answers without content it returns NoSummary.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	prompt := BuildPrompt(s.cfg.Prompt, text, s.cfg.MaxInputChars)

	summary, err := s.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error("Summarization failed", "err", err)
		return FailedSummary
	}
	if summary == "" {
		return NoSummary
	}
	return summary
}

// Complete sends prompt as a single user message and returns the first
// choice's content, retrying transient failures with exponential backoff.
func (s *Summarizer) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ChatRequest{
		Model:    s.cfg.Model,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// Calculate backoff delay: baseDelay * 2^(attempt-1) with jitter
			delay := s.cfg.BaseDelay * time.Duration(1<<uint(attempt-1))
			delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))

			s.logger.Debug("Backing off before retry", "attempt", attempt, "delay", delay, "err", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		if err := s.rateLimiter.Wait(ctx); err != nil {
			return "", err
		}

		content, err := s.send(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("after %d attempts: %w", s.cfg.MaxRetries+1, lastErr)
}

func (s *Summarizer) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// BuildPrompt wraps text, truncated to maxChars, in the instruction prompt.
func BuildPrompt(prompt, text string, maxChars int) string {
	return prompt + "\n\n" + Truncate(text, maxChars)
}

// Truncate cuts text to at most maxChars characters without splitting a
// UTF-8 sequence. A non-positive maxChars disables truncation.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
