package config

import "time"

// Default returns the built-in settings for the OneFootball news site.
func Default() Config {
	return Config{
		LogLevel: "info",
		Crawl: CrawlConfig{
			OutputDir:   "output",
			MaxDepth:    2,
			RootFanout:  5,
			ChildFanout: 2,
		},
		Site: SiteConfig{
			LandingURL: "https://onefootball.com/en/home",
			Origin:     "https://onefootball.com",
		},
		Selectors: SelectorConfig{
			Gallery:       "ul.Gallery_galleryItems__o8vSf",
			GalleryItem:   "ul.Gallery_galleryItems__o8vSf li",
			GalleryTitle:  "p.NewsTeaser_teaser__title__OsMxr",
			GalleryLink:   "a.NewsTeaser_teaser__content__BP26f",
			Content:       "div.ArticleParagraph_articleParagraph__MrxYL",
			Paragraph:     "div.ArticleParagraph_articleParagraph__MrxYL p",
			RelatedList:   "ul.RelatedNews_list__4KkTT",
			RelatedAnchor: "ul.RelatedNews_list__4KkTT li a",
			RelatedTitle:  "p",
		},
		Timeouts: TimeoutConfig{
			Landing:    30 * time.Second,
			Gallery:    30 * time.Second,
			Navigation: 20 * time.Second,
			Content:    10 * time.Second,
			Related:    5 * time.Second,
		},
		Extract: ExtractConfig{
			MaxRoots:   5,
			MaxRelated: 5,
		},
		Browser: BrowserConfig{
			Headless:    true,
			Width:       1920,
			Height:      1080,
			ReadTimeout: 10 * time.Second,
		},
		Summarizer: SummarizerConfig{
			Endpoint:      "https://api.groq.com/openai/v1/chat/completions",
			Model:         "llama3-8b-8192",
			MaxInputChars: 3000,
			Timeout:       60 * time.Second,
			MaxRetries:    2,
			BaseDelay:     time.Second,
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
	}
}
