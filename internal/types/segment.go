package types

// SegmentKind tags the variant carried by a Segment.
type SegmentKind string

const (
	SegmentText        SegmentKind = "text"
	SegmentImage       SegmentKind = "image"
	SegmentVideo       SegmentKind = "video"
	SegmentQuotedTweet SegmentKind = "quoted_tweet"
)

// Segment is one ordered unit of extracted content. Only the fields of its Kind are set:
// text runs use Text/Bold/Italic/Link, media and quoted tweets use URL.
type Segment struct {
	Kind   SegmentKind `json:"kind"`
	Text   string      `json:"text,omitempty"`
	Bold   bool        `json:"bold,omitempty"`
	Italic bool        `json:"italic,omitempty"`
	Link   string      `json:"link,omitempty"`
	URL    string      `json:"url,omitempty"`
}

// TextRun creates a text segment
func TextRun(text string, bold, italic bool, link string) Segment {
	return Segment{Kind: SegmentText, Text: text, Bold: bold, Italic: italic, Link: link}
}

// Image creates an image segment
func Image(url string) Segment {
	return Segment{Kind: SegmentImage, URL: url}
}

// Video creates a video segment
func Video(url string) Segment {
	return Segment{Kind: SegmentVideo, URL: url}
}

// QuotedTweet creates a quoted-tweet reference segment
func QuotedTweet(url string) Segment {
	return Segment{Kind: SegmentQuotedTweet, URL: url}
}

// IsText reports whether the segment is a text run
func (s Segment) IsText() bool {
	return s.Kind == SegmentText
}

// SameStyle reports whether two text runs carry identical annotations
func (s Segment) SameStyle(o Segment) bool {
	return s.Bold == o.Bold && s.Italic == o.Italic && s.Link == o.Link
}
