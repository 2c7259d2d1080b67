// Package config loads crawler settings: built-in defaults, then an optional
// YAML file, then .env and the process environment. CLI flags are applied
// last by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the config file read when no path is given.
	DefaultPath = "config.yaml"

	apiKeyEnv       = "GROQ_API_KEY"
	legacyAPIKeyEnv = "GROK_AI_API"
	logLevelEnv     = "DFSCRAWL_LOG_LEVEL"
	outputDirEnv    = "DFSCRAWL_OUTPUT"
)

// Config holds every setting of a crawl run.
type Config struct {
	LogLevel   string           `yaml:"logLevel"`
	Crawl      CrawlConfig      `yaml:"crawl"`
	Site       SiteConfig       `yaml:"site"`
	Selectors  SelectorConfig   `yaml:"selectors"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
	Extract    ExtractConfig    `yaml:"extract"`
	Browser    BrowserConfig    `yaml:"browser"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Server     ServerConfig     `yaml:"server"`
}

// CrawlConfig bounds the traversal.
type CrawlConfig struct {
	OutputDir   string `yaml:"outputDir"`
	MaxDepth    int    `yaml:"maxDepth"`
	RootFanout  int    `yaml:"rootFanout"`
	ChildFanout int    `yaml:"childFanout"`
	Dedupe      bool   `yaml:"dedupe"`
}

// SiteConfig locates the news site.
type SiteConfig struct {
	LandingURL string `yaml:"landingUrl"`
	Origin     string `yaml:"origin"`
}

// SelectorConfig holds the site's CSS selectors.
type SelectorConfig struct {
	Gallery       string `yaml:"gallery"`
	GalleryItem   string `yaml:"galleryItem"`
	GalleryTitle  string `yaml:"galleryTitle"`
	GalleryLink   string `yaml:"galleryLink"`
	Content       string `yaml:"content"`
	Paragraph     string `yaml:"paragraph"`
	RelatedList   string `yaml:"relatedList"`
	RelatedAnchor string `yaml:"relatedAnchor"`
	RelatedTitle  string `yaml:"relatedTitle"`
}

// TimeoutConfig bounds browser interactions. Values are Go durations ("20s").
type TimeoutConfig struct {
	Landing    time.Duration `yaml:"landing"`
	Gallery    time.Duration `yaml:"gallery"`
	Navigation time.Duration `yaml:"navigation"`
	Content    time.Duration `yaml:"content"`
	Related    time.Duration `yaml:"related"`
}

// ExtractConfig caps link extraction.
type ExtractConfig struct {
	MaxRoots            int  `yaml:"maxRoots"`
	MaxRelated          int  `yaml:"maxRelated"`
	ReadabilityFallback bool `yaml:"readabilityFallback"`
}

// BrowserConfig configures headless Chrome.
type BrowserConfig struct {
	Headless    bool          `yaml:"headless"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	UserAgent   string        `yaml:"userAgent"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
}

// SummarizerConfig describes the chat completions API.
type SummarizerConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	Prompt            string        `yaml:"prompt"`
	MaxInputChars     int           `yaml:"maxInputChars"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"maxRetries"`
	BaseDelay         time.Duration `yaml:"baseDelay"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
}

// ServerConfig configures the streaming HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Source says where Load reads from.
type Source struct {
	// Path of the YAML file. Empty means DefaultPath.
	Path string
	// Required makes a missing file an error.
	Required bool
	// EnvFiles are dotenv files loaded before reading the environment.
	// Nil means ".env". Missing files are ignored.
	EnvFiles []string
}

// Load builds a Config from defaults, the YAML file and the environment.
// It does not validate; call Validate once flags have been applied.
func Load(src Source) (Config, error) {
	cfg := Default()

	path := src.Path
	if path == "" {
		path = DefaultPath
	}
	if err := cfg.mergeFile(path, src.Required); err != nil {
		return cfg, err
	}

	envFiles := src.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.Summarizer.APIKey = v
	} else if v := os.Getenv(legacyAPIKeyEnv); v != "" && c.Summarizer.APIKey == "" {
		c.Summarizer.APIKey = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(outputDirEnv); v != "" {
		c.Crawl.OutputDir = v
	}
}
