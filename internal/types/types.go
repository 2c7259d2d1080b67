package types

// LinkRef is a reference to a page that has not been fetched yet.
// URL is always absolute.
type LinkRef struct {
	Title string `json:"title"`
	URL   string `json:"link"`
}

// ArticleRecord is the unit persisted for every visited page.
// Content may be empty when extraction failed; Summary never is.
type ArticleRecord struct {
	Title   string `json:"title"`
	URL     string `json:"link"`
	Content string `json:"content"`
	Summary string `json:"summary"`
}

// NewRecord builds the record for a visited link.
func NewRecord(link LinkRef, content, summary string) ArticleRecord {
	return ArticleRecord{
		Title:   link.Title,
		URL:     link.URL,
		Content: content,
		Summary: summary,
	}
}
