package types

import (
	"strings"
	"time"
)

// Author identifies who wrote a post
type Author struct {
	Name   string `json:"name"`
	Handle string `json:"handle"` // without the leading "@"
}

// Display returns "Name (@handle)" or just the name when the handle is unknown
func (a Author) Display() string {
	if a.Handle == "" {
		return a.Name
	}
	return a.Name + " (@" + a.Handle + ")"
}

// Metrics holds the engagement counters shown under a post
type Metrics struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Replies  int `json:"replies"`
}

// ExtractedPost is one tweet as read from the DOM. It is rebuilt from the live
// page on every save and never mutated afterwards.
type ExtractedPost struct {
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	StatusID string    `json:"status_id,omitempty"`
	Author   Author    `json:"author"`
	PostedAt time.Time `json:"posted_at"`
	SavedAt  time.Time `json:"saved_at"`
	Segments []Segment `json:"segments"`
	FullText string    `json:"full_text,omitempty"`
	Metrics  Metrics   `json:"metrics"`
}

// Text returns the post's plain text, preferring text segments over FullText
func (p *ExtractedPost) Text() string {
	var b strings.Builder
	for _, s := range p.Segments {
		if s.IsText() {
			b.WriteString(s.Text)
		}
	}
	if b.Len() == 0 {
		return p.FullText
	}
	return b.String()
}

// HasImages reports whether any image segment was extracted
func (p *ExtractedPost) HasImages() bool {
	for _, s := range p.Segments {
		if s.Kind == SegmentImage {
			return true
		}
	}
	return false
}

// ThreadContext is a cheap probe of a status page used to decide whether a full
// thread/comment aggregation is worth doing.
type ThreadContext struct {
	IsThread    bool           `json:"is_thread"`
	Length      int            `json:"length"`
	HasComments bool           `json:"has_comments"`
	MainPost    *ExtractedPost `json:"main_post"`
}

// CommentItem is either a standalone comment (one post) or a reply chain.
type CommentItem struct {
	Posts []ExtractedPost `json:"posts"`
	Chain bool            `json:"chain"`
}

// Standalone wraps a single post as a comment item
func Standalone(p ExtractedPost) CommentItem {
	return CommentItem{Posts: []ExtractedPost{p}}
}

// Chain wraps an ordered reply chain as a comment item
func Chain(posts []ExtractedPost) CommentItem {
	return CommentItem{Posts: posts, Chain: true}
}
