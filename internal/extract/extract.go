// Package extract turns rendered pages into article text and link references.
//
// All selection happens in Go over the rendered DOM (goquery), so the
// browser is only asked to navigate, wait and hand over HTML.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
)

// UntitledTitle is used when a link carries no usable title.
const UntitledTitle = "Untitled"

// Selectors are the CSS selectors describing the target site's markup.
type Selectors struct {
	Gallery      string
	GalleryItem  string
	GalleryTitle string
	GalleryLink  string

	Content   string
	Paragraph string

	RelatedList   string
	RelatedAnchor string
	RelatedTitle  string
}

// Timeouts bound each browser interaction.
type Timeouts struct {
	Landing    time.Duration
	Gallery    time.Duration
	Navigation time.Duration
	Content    time.Duration
	Related    time.Duration
}

// Options configures an Extractor.
type Options struct {
	LandingURL string
	Origin     string
	Selectors  Selectors
	Timeouts   Timeouts
	MaxRoots   int
	MaxRelated int

	// ReadabilityFallback runs go-readability when the content selector
	// yields no text.
	ReadabilityFallback bool
}

// Extractor pulls article bodies, related links and gallery roots from pages.
type Extractor struct {
	opts   Options
	origin *url.URL
	logger *log.Logger
}

// New validates opts and builds an Extractor.
func New(opts Options, logger *log.Logger) (*Extractor, error) {
	origin, err := url.Parse(opts.Origin)
	if err != nil {
		return nil, fmt.Errorf("parse site origin %q: %w", opts.Origin, err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("site origin %q must be absolute", opts.Origin)
	}
	if opts.Selectors.Paragraph == "" || opts.Selectors.RelatedAnchor == "" {
		return nil, errors.New("paragraph and related anchor selectors are required")
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Extractor{
		opts:   opts,
		origin: &url.URL{Scheme: origin.Scheme, Host: origin.Host},
		logger: logger,
	}, nil
}
