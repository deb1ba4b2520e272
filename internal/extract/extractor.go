// Package extract turns one tweet's DOM subtree into an ordered list of segments.
package extract

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/ibeckermayer/x2notion/internal/types"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// DefaultTitle is used when a post has no text
	DefaultTitle = "Twitter Post"
	titleRunes   = 20
)

// Extractor reads posts from the DOM of one page
type Extractor struct {
	pageURL string
	pageID  string
	now     func() time.Time
}

// New creates an extractor for posts captured from pageURL
func New(pageURL string) *Extractor {
	return &Extractor{
		pageURL: pageURL,
		pageID:  dom.StatusID(pageURL),
		now:     time.Now,
	}
}

// WithClock overrides the time source used for SavedAt and missing timestamps
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract reads one tweet. root may be the tweet article or a timeline cell holding
// it. Missing author or timestamp degrade to defaults; only a nil root fails.
func (e *Extractor) Extract(root *html.Node) (*types.ExtractedPost, error) {
	if root == nil {
		return nil, types.ErrNotFound
	}
	if a := dom.ArticleOf(root); a != nil {
		root = a
	}

	now := e.now()
	postedAt, permalink := timestampOf(root, now)

	post := &types.ExtractedPost{
		URL:      e.pageURL,
		Author:   AuthorOf(root),
		PostedAt: postedAt,
		SavedAt:  now,
		Metrics:  metricsOf(root),
	}
	if permalink != "" && dom.StatusID(permalink) != "" {
		post.URL = permalink
	}
	post.StatusID = dom.StatusID(post.URL)

	w := &walker{
		root:    root,
		postURL: post.URL,
		emitted: make(map[*html.Node]bool),
		videos:  make(map[*html.Node]bool),
	}
	w.run()

	if q := findQuotedTweet(root, e.pageID, post.StatusID); q != "" {
		w.segments = append(w.segments, types.QuotedTweet(q))
	}

	post.Segments = w.segments
	post.FullText = fullText(w.segments)
	post.Title = Title(post.FullText)
	return post, nil
}

// ExtractMain reads the first top-level tweet on the page
func (e *Extractor) ExtractMain(p *dom.Page) (*types.ExtractedPost, error) {
	return e.Extract(p.MainArticle())
}

// Title derives a document title from the first characters of the text
func Title(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(text) <= titleRunes {
		return text
	}
	return string([]rune(text)[:titleRunes]) + "..."
}

// fullText joins text runs; media between runs becomes a line break
func fullText(segments []types.Segment) string {
	var b strings.Builder
	for i, s := range segments {
		if s.IsText() {
			b.WriteString(s.Text)
		} else if i > 0 && segments[i-1].IsText() {
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// walker performs the filtered depth-first traversal of the text container.
// Text runs accumulate in pending and are flushed whenever media is emitted.
type walker struct {
	root      *html.Node
	container *html.Node
	postURL   string

	segments []types.Segment
	pending  []types.Segment
	emitted  map[*html.Node]bool
	videos   map[*html.Node]bool
	images   int
}

func (w *walker) run() {
	if text := own(w.root, dom.TweetText); text != nil {
		w.container = text.Parent
		w.walk(w.container)
	}
	w.flush()

	// Media often lives outside the text container
	if w.images == 0 || len(w.videos) == 0 {
		w.fallback(w.images == 0, len(w.videos) == 0)
	}
}

func (w *walker) walk(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}
}

func (w *walker) visit(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Svg:
		return
	case atom.Br:
		w.lineBreak()
		return
	case atom.Img:
		w.image(n)
		return
	}
	if w.rejected(n) {
		return
	}
	if v := videoElement(n); v != nil {
		w.video(v)
		return
	}
	if n.DataAtom == atom.A && w.link(n) {
		return
	}
	w.walk(n)
}

// rejected reports subtrees that never contribute content
func (w *walker) rejected(n *html.Node) bool {
	switch {
	case dom.Matches(n, dom.QuotedTweet):
		return true
	case n != w.root && dom.Matches(n, dom.TweetArticle):
		return true
	case dom.Matches(n, dom.AuthorRegion):
		return true
	case dom.Matches(n, dom.FollowControl), dom.Matches(n, dom.TranslateControl), dom.Matches(n, dom.ShowMoreControl):
		return true
	case n.DataAtom == atom.A && dom.Select(dom.TweetTimestamp).MatchFirst(n) != nil:
		return true
	case dom.Matches(n, dom.ButtonLike):
		label := strings.TrimSpace(dom.TextContent(n))
		return hasLabel(label, dom.FollowLabels) || hasLabel(label, dom.TranslateLabels)
	}
	return false
}

func hasLabel(text string, labels []string) bool {
	for _, l := range labels {
		if text == l {
			return true
		}
	}
	return false
}

func (w *walker) text(n *html.Node) {
	if n.Data == "" {
		return
	}
	var link string
	if a := dom.ClosestTag(n.Parent, "a", w.container); a != nil {
		if w.emitted[a] {
			return
		}
		link = dom.ResolveURL(dom.Attr(a, "href"))
	}
	w.appendRun(types.TextRun(n.Data, isBold(n.Parent, w.container), isItalic(n.Parent, w.container), link))
}

// link emits an anchor with text as a single run. It returns false when the anchor
// should be walked like any other element.
func (w *walker) link(a *html.Node) bool {
	href := dom.Attr(a, "href")
	text := strings.TrimSpace(linkText(a))
	if href == "" || text == "" {
		return false
	}
	url := dom.ResolveURL(href)
	w.emitted[a] = true
	for _, p := range w.pending {
		if p.Link == url && p.Text == text {
			return true
		}
	}
	w.appendRun(types.TextRun(text, isBold(a, w.container), isItalic(a, w.container), url))
	return true
}

// linkText is the anchor's text content with emoji images folded in as their alt
func linkText(a *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			return
		case n.DataAtom == atom.Img:
			if isEmojiImage(n) {
				b.WriteString(dom.Attr(n, "alt"))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(a)
	return b.String()
}

func (w *walker) image(img *html.Node) {
	src := dom.Attr(img, "src")
	if isProfilePhoto(src) {
		return
	}
	if isEmojiImage(img) {
		if alt := dom.Attr(img, "alt"); alt != "" {
			var link string
			if a := dom.ClosestTag(img.Parent, "a", w.container); a != nil && !w.emitted[a] {
				link = dom.ResolveURL(dom.Attr(a, "href"))
			}
			w.appendRun(types.TextRun(alt, isBold(img.Parent, w.container), isItalic(img.Parent, w.container), link))
		}
		return
	}
	if foreign(img, w.root) || !isContentImage(img, w.root) {
		return
	}
	w.flush()
	w.segments = append(w.segments, types.Image(src))
	w.images++
}

func (w *walker) video(v *html.Node) {
	if w.videos[v] || foreign(v, w.root) {
		return
	}
	w.videos[v] = true
	src := videoSource(v)
	if src == "" {
		src = w.postURL
	}
	if src == "" {
		return
	}
	w.flush()
	w.segments = append(w.segments, types.Video(src))
}

func (w *walker) lineBreak() {
	if len(w.pending) > 0 {
		w.pending[len(w.pending)-1].Text += "\n"
		return
	}
	w.pending = append(w.pending, types.TextRun("\n", false, false, ""))
}

// appendRun adds a run to the pending buffer, merging it into the previous run when
// both carry identical annotations.
func (w *walker) appendRun(s types.Segment) {
	if n := len(w.pending); n > 0 && w.pending[n-1].SameStyle(s) {
		w.pending[n-1].Text += s.Text
		return
	}
	w.pending = append(w.pending, s)
}

// flush moves pending runs into the segment list, dropping whitespace-only buffers
func (w *walker) flush() {
	defer func() { w.pending = nil }()
	for _, p := range w.pending {
		if strings.TrimSpace(p.Text) != "" {
			w.segments = append(w.segments, w.pending...)
			return
		}
	}
}

// fallback scans the whole tweet for media the container walk missed
func (w *walker) fallback(images, videos bool) {
	var scan func(*html.Node)
	scan = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if dom.Matches(c, dom.QuotedTweet) || dom.Matches(c, dom.TweetArticle) {
				continue
			}
			if w.container != nil && c == w.container {
				continue
			}
			switch {
			case images && c.DataAtom == atom.Img:
				src := dom.Attr(c, "src")
				if !isProfilePhoto(src) && !isEmojiImage(c) && isContentImage(c, w.root) {
					w.segments = append(w.segments, types.Image(src))
					w.images++
				}
				continue
			case videos:
				if v := videoElement(c); v != nil {
					w.video(v)
					continue
				}
			}
			scan(c)
		}
	}
	scan(w.root)
}
