package dom

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var statusPathPattern = regexp.MustCompile(`/status/(\d+)`)

// Page is a parsed snapshot of an X page. The tree is never mutated after Parse.
type Page struct {
	URL        string
	Root       *html.Node
	CapturedAt time.Time
}

// Source produces page snapshots, either from a live browser or from disk
type Source interface {
	Snapshot(ctx context.Context, pageURL string) (*Page, error)
}

// Parse reads an HTML document into a Page
func Parse(pageURL string, r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &Page{URL: pageURL, Root: root, CapturedAt: time.Now()}, nil
}

// ParseString is Parse for in-memory markup
func ParseString(pageURL, markup string) (*Page, error) {
	return Parse(pageURL, strings.NewReader(markup))
}

// StatusID returns the numeric status id of the page URL, or "" for non-status pages
func (p *Page) StatusID() string {
	return StatusID(p.URL)
}

// Document wraps the tree for goquery-style queries
func (p *Page) Document() *goquery.Document {
	return goquery.NewDocumentFromNode(p.Root)
}

// MainArticle returns the first top-level tweet article on the page
func (p *Page) MainArticle() *html.Node {
	articles := TopLevelArticles(p.Root)
	if len(articles) == 0 {
		return nil
	}
	return articles[0]
}

// TimelineElements returns the conversation timeline in document order. Each element is
// a timeline cell holding a tweet article; pages without cells fall back to the
// top-level articles themselves.
func (p *Page) TimelineElements() []*html.Node {
	var elements []*html.Node
	p.Document().Find(TimelineCell).Each(func(_ int, s *goquery.Selection) {
		if s.Find(TweetArticle).Length() > 0 {
			elements = append(elements, s.Nodes[0])
		}
	})
	if len(elements) > 0 {
		return elements
	}
	return TopLevelArticles(p.Root)
}

// TopLevelArticles returns tweet articles that are not nested in another article
func TopLevelArticles(root *html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range Select(TweetArticle).MatchAll(root) {
		if Closest(n.Parent, Select(TweetArticle), nil) == nil {
			out = append(out, n)
		}
	}
	return out
}

// ArticleOf returns the tweet article for a timeline element: the element itself
// when it is an article, otherwise its first article descendant.
func ArticleOf(el *html.Node) *html.Node {
	if el == nil {
		return nil
	}
	if Select(TweetArticle).Match(el) {
		return el
	}
	return Select(TweetArticle).MatchFirst(el)
}

// StatusID extracts the status id from a URL or path
func StatusID(u string) string {
	m := statusPathPattern.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return m[1]
}

// ResolveURL makes an href absolute against the X origin
func ResolveURL(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, _ := url.Parse(DefaultBaseURL)
	return base.ResolveReference(ref).String()
}

var (
	selectorMu    sync.Mutex
	selectorCache = map[string]cascadia.Selector{}
)

// Select compiles a marker selector once and caches it. Markers are constants, so a
// compile failure is a programming error.
func Select(sel string) cascadia.Selector {
	selectorMu.Lock()
	defer selectorMu.Unlock()
	if s, ok := selectorCache[sel]; ok {
		return s
	}
	s := cascadia.MustCompile(sel)
	selectorCache[sel] = s
	return s
}

// Matches reports whether an element node matches the selector
func Matches(n *html.Node, sel string) bool {
	return n != nil && n.Type == html.ElementNode && Select(sel).Match(n)
}

// Attr returns the attribute value or ""
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute is present, even when empty
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// HasClass reports whether the class attribute contains the given class
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// TextContent concatenates all descendant text nodes, like the DOM property
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			return
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return b.String()
}

// Closest walks from n up to (but not past) stop and returns the first element
// matching sel. n itself is tested.
func Closest(n *html.Node, sel cascadia.Selector, stop *html.Node) *html.Node {
	for a := n; a != nil; a = a.Parent {
		if a.Type == html.ElementNode && sel.Match(a) {
			return a
		}
		if a == stop {
			return nil
		}
	}
	return nil
}

// ClosestTag is Closest for a plain tag name
func ClosestTag(n *html.Node, tag string, stop *html.Node) *html.Node {
	for a := n; a != nil; a = a.Parent {
		if a.Type == html.ElementNode && a.Data == tag {
			return a
		}
		if a == stop {
			return nil
		}
	}
	return nil
}

// Contains reports whether n is ancestor or equal to d
func Contains(n, d *html.Node) bool {
	for a := d; a != nil; a = a.Parent {
		if a == n {
			return true
		}
	}
	return false
}

// FileSource serves a saved HTML snapshot. The requested URL is recorded as the page
// URL unless the source carries its own.
type FileSource struct {
	Path string
	URL  string
}

// Snapshot reads and parses the file
func (f FileSource) Snapshot(_ context.Context, pageURL string) (*Page, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	u := f.URL
	if u == "" {
		u = pageURL
	}
	return Parse(u, file)
}
