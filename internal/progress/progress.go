package progress

import (
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/dfscrawl/internal/types"
)

// Reporter prints the human-readable crawl report. It is informational
// only; nothing reads it back.
type Reporter struct {
	out       io.Writer
	spin      *spinner.Spinner
	bar       progress.Model
	heading   lipgloss.Style
	root      lipgloss.Style
	processed int
	roots     int
	mu        sync.Mutex
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithSpinner shows a spinner on w while a page is being processed.
// The spinner stays silent when w is not a terminal.
func WithSpinner(w io.Writer) Option {
	return func(r *Reporter) {
		r.spin = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	}
}

// New creates a Reporter writing to out.
func New(out io.Writer, opts ...Option) *Reporter {
	renderer := lipgloss.NewRenderer(out)
	r := &Reporter{
		out: out,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(30),
			progress.WithColorProfile(renderer.ColorProfile()),
		),
		heading: renderer.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		root:    renderer.NewStyle().Foreground(lipgloss.Color("110")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RootsDiscovered sets the number of roots the run will traverse.
func (r *Reporter) RootsDiscovered(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots = total
}

// RootStarted announces the traversal of root article index (1-based).
func (r *Reporter) RootStarted(index int, root types.LinkRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printRootProgress(index - 1)
	fmt.Fprintln(r.out, r.root.Render(fmt.Sprintf("DFS from root article %d: %s", index, root.Title)))
}

// StartProcessingPage indicates that a page is being processed
func (r *Reporter) StartProcessingPage(pageURL string) {
	if r.spin == nil {
		return
	}
	r.spin.Suffix = " " + formatSpinnerMessage(pageURL)
	r.spin.Start()
}

// FinishProcessingPage indicates that a page has been processed
func (r *Reporter) FinishProcessingPage() {
	if r.spin != nil {
		r.spin.Stop()
	}
}

// Article prints the report for one processed node.
func (r *Reporter) Article(record types.ArticleRecord, related []types.LinkRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.heading.Render("=== Article Processed ==="))
	fmt.Fprintf(r.out, "Title: %s\n", record.Title)
	fmt.Fprintf(r.out, "Summary: %s\n", record.Summary)
	fmt.Fprintf(r.out, "Link: %s\n", record.URL)
	fmt.Fprintf(r.out, "Content: %s\n", record.Content)
	if len(related) == 0 {
		fmt.Fprintln(r.out, "Related Articles: None")
		return
	}
	fmt.Fprintln(r.out, "Related Articles:")
	for i, rel := range related {
		fmt.Fprintf(r.out, "  %d. %s - %s\n", i+1, rel.Title, rel.URL)
	}
}

// Completed prints the closing line of a run.
func (r *Reporter) Completed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printRootProgress(r.roots)
	fmt.Fprintln(r.out, r.heading.Render(fmt.Sprintf("DFS scraping completed: %d articles processed", r.processed)))
}

// Processed returns the number of articles reported so far.
func (r *Reporter) Processed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed
}

// printRootProgress draws a static bar of roots completed so far.
func (r *Reporter) printRootProgress(done int) {
	if r.roots <= 0 {
		return
	}
	fmt.Fprintf(r.out, "Progress: %s %d/%d roots\n", r.bar.ViewAs(float64(done)/float64(r.roots)), done, r.roots)
}

// formatSpinnerMessage shortens long URLs for the spinner line.
func formatSpinnerMessage(urlStr string) string {
	maxLen := 60
	if len(urlStr) <= maxLen {
		return urlStr
	}

	// Keep the domain, then truncate the path
	u, err := url.Parse(urlStr)
	if err == nil && len(u.Host) < maxLen-3 {
		path := u.Path
		if len(path) > maxLen-len(u.Host)-3 {
			path = "..." + path[len(path)-(maxLen-len(u.Host)-3):]
		}
		return u.Host + path
	}
	return "..." + urlStr[len(urlStr)-maxLen:]
}
