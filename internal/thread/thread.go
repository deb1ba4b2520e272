// Package thread groups the timeline of a status page into the author's thread and
// the comment section below it.
package thread

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/ibeckermayer/x2notion/internal/extract"
	"github.com/ibeckermayer/x2notion/internal/types"
	"golang.org/x/net/html"
)

// DefaultMinCommentChars is the shortest standalone comment kept from non-anchor authors
const DefaultMinCommentChars = 10

// Aggregator reads threads and comments from timeline elements
type Aggregator struct {
	extractor *extract.Extractor
	minChars  int
}

// New creates an aggregator that extracts posts with ex
func New(ex *extract.Extractor) *Aggregator {
	return &Aggregator{extractor: ex, minChars: DefaultMinCommentChars}
}

// WithMinChars overrides the standalone comment length threshold
func (a *Aggregator) WithMinChars(n int) *Aggregator {
	if n >= 0 {
		a.minChars = n
	}
	return a
}

// ProbeContext inspects the timeline without extracting more than the main post
func (a *Aggregator) ProbeContext(elements []*html.Node) (*types.ThreadContext, error) {
	visible := withoutAds(elements)
	if len(visible) == 0 {
		return nil, types.ErrNotFound
	}

	main, err := a.extractor.Extract(visible[0])
	if err != nil {
		return nil, fmt.Errorf("failed to extract main post: %w", err)
	}

	length := threadLength(visible)
	return &types.ThreadContext{
		IsThread:    length > 1,
		Length:      length,
		HasComments: len(visible) > 1,
		MainPost:    main,
	}, nil
}

// CollectThread extracts the run of consecutive posts by the first post's author
func (a *Aggregator) CollectThread(elements []*html.Node) ([]types.ExtractedPost, error) {
	visible := withoutAds(elements)
	if len(visible) == 0 {
		return nil, types.ErrNotFound
	}

	n := threadLength(visible)
	posts := make([]types.ExtractedPost, 0, n)
	for _, el := range visible[:n] {
		p, err := a.extractor.Extract(el)
		if err != nil {
			return nil, fmt.Errorf("failed to extract thread post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, nil
}

// CollectComments groups every element after the thread into comment items.
// Consecutive connector-marked elements form a chain, kept whole. Other elements are
// standalone comments, kept when written by the anchor author or long enough.
func (a *Aggregator) CollectComments(elements []*html.Node) ([]types.CommentItem, error) {
	visible := withoutAds(elements)
	if len(visible) == 0 {
		return nil, types.ErrNotFound
	}
	anchor := extract.AuthorOf(visible[0]).Handle

	var items []types.CommentItem
	rest := visible[threadLength(visible):]
	for i := 0; i < len(rest); {
		j := i
		for j < len(rest) && hasConnector(rest[j]) {
			j++
		}

		if j-i >= 2 {
			chain := make([]types.ExtractedPost, 0, j-i)
			for _, el := range rest[i:j] {
				p, err := a.extractor.Extract(el)
				if err != nil {
					return nil, fmt.Errorf("failed to extract reply chain: %w", err)
				}
				chain = append(chain, *p)
			}
			items = append(items, types.Chain(chain))
			i = j
			continue
		}

		p, err := a.extractor.Extract(rest[i])
		if err != nil {
			return nil, fmt.Errorf("failed to extract comment: %w", err)
		}
		if a.keepStandalone(p, anchor) {
			items = append(items, types.Standalone(*p))
		}
		i++
	}
	return items, nil
}

func (a *Aggregator) keepStandalone(p *types.ExtractedPost, anchor string) bool {
	if anchor != "" && strings.EqualFold(p.Author.Handle, anchor) {
		return true
	}
	return utf8.RuneCountInString(strings.TrimSpace(p.Text())) >= a.minChars
}

// ExcludeThreadDuplicates removes thread posts from the comment items. A chain left
// with one post becomes standalone; an empty item is dropped.
func ExcludeThreadDuplicates(thread []types.ExtractedPost, items []types.CommentItem) []types.CommentItem {
	seen := make(map[string]bool, len(thread))
	for _, p := range thread {
		seen[postKey(p)] = true
	}

	out := make([]types.CommentItem, 0, len(items))
	for _, item := range items {
		var kept []types.ExtractedPost
		for _, p := range item.Posts {
			if !seen[postKey(p)] {
				kept = append(kept, p)
			}
		}
		switch {
		case len(kept) == 0:
		case len(kept) == 1:
			out = append(out, types.Standalone(kept[0]))
		default:
			out = append(out, types.CommentItem{Posts: kept, Chain: item.Chain})
		}
	}
	return out
}

func postKey(p types.ExtractedPost) string {
	if p.StatusID != "" {
		return p.StatusID
	}
	return p.URL
}

// IsAd reports whether a timeline element is a promoted post
func IsAd(el *html.Node) bool {
	found := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.TextNode {
			found = isAdLabel(strings.TrimSpace(n.Data))
			return
		}
		if dom.Matches(n, dom.TweetText) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(el)
	return found
}

func isAdLabel(s string) bool {
	for _, l := range dom.AdLabels {
		if strings.EqualFold(s, l) {
			return true
		}
	}
	return false
}

func withoutAds(elements []*html.Node) []*html.Node {
	out := make([]*html.Node, 0, len(elements))
	for _, el := range elements {
		if el != nil && !IsAd(el) {
			out = append(out, el)
		}
	}
	return out
}

// threadLength counts the leading run of elements by the first element's author
func threadLength(elements []*html.Node) int {
	if len(elements) == 0 {
		return 0
	}
	handle := extract.AuthorOf(elements[0]).Handle
	if handle == "" {
		return 1
	}
	n := 1
	for _, el := range elements[1:] {
		if !strings.EqualFold(extract.AuthorOf(el).Handle, handle) {
			break
		}
		n++
	}
	return n
}

func hasConnector(el *html.Node) bool {
	return dom.Select(dom.ReplyConnector).MatchFirst(el) != nil
}
