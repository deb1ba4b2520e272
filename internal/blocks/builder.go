// Package blocks maps extracted posts onto Notion document blocks.
package blocks

import (
	"fmt"
	"strings"
	"time"

	"github.com/ibeckermayer/x2notion/internal/types"
)

// Labels used in generated blocks
const (
	VideoLabel       = "📹 Video: "
	VideoLinkText    = "View video"
	QuotedLabel      = "🔁 Quoted tweet"
	CommentsHeading  = "Comments"
	TweetHeadingFmt  = "Tweet %d"
	FooterFmt        = "Saved with x2notion on %s"
	footerTimeLayout = "2006-01-02 15:04:05"
)

// Builder creates document blocks from extracted posts
type Builder struct {
	location *time.Location
}

// New creates a builder that renders timestamps in loc (time.Local when nil)
func New(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{location: loc}
}

// Build renders one post. index is the post's position in its thread; only the
// first post gets a rich embed for a quoted tweet.
func (b *Builder) Build(post *types.ExtractedPost, index int) []types.Block {
	var out []types.Block

	if len(post.Segments) == 0 {
		for _, chunk := range SplitText(post.FullText, MaxTextLength) {
			if chunk != "" {
				out = append(out, types.Paragraph(types.RichText{Text: chunk}))
			}
		}
	}

	var pending []types.Segment
	flush := func() {
		for _, runs := range PackRuns(richText(pending)) {
			out = append(out, types.Paragraph(runs...))
		}
		pending = nil
	}

	for _, s := range post.Segments {
		switch s.Kind {
		case types.SegmentText:
			pending = append(pending, s)
			continue
		case types.SegmentImage:
			flush()
			out = append(out, types.ImageBlock(s.URL))
		case types.SegmentVideo:
			flush()
			out = append(out, types.Paragraph(
				types.RichText{Text: VideoLabel},
				types.RichText{Text: VideoLinkText, Link: s.URL},
			))
		case types.SegmentQuotedTweet:
			flush()
			out = append(out, quotedTweet(s.URL, index)...)
		}
	}
	flush()

	return append(out, trailer(post)...)
}

func quotedTweet(url string, index int) []types.Block {
	if index == 0 {
		return []types.Block{
			types.Paragraph(types.RichText{Text: QuotedLabel, Italic: true}),
			types.Embed(url),
		}
	}
	return []types.Block{types.Paragraph(
		types.RichText{Text: QuotedLabel + ": "},
		types.RichText{Text: url, Link: url},
	)}
}

// trailer is the author and metrics paragraphs appended after a post's content
func trailer(post *types.ExtractedPost) []types.Block {
	author := types.RichText{Text: Truncate("Author: "+post.Author.Display(), MaxTextLength)}
	if post.URL != "" {
		author.Link = post.URL
	}
	m := post.Metrics
	metrics := fmt.Sprintf("❤️ %d | 🔄 %d | 💬 %d", m.Likes, m.Retweets, m.Replies)
	return []types.Block{
		types.Paragraph(author),
		types.Paragraph(types.RichText{Text: metrics}),
	}
}

// BuildThread renders posts in order. Every post after the first is preceded by a
// divider and a "Tweet N" heading.
func (b *Builder) BuildThread(posts []types.ExtractedPost) []types.Block {
	var out []types.Block
	for i := range posts {
		if i > 0 {
			out = append(out, types.Divider(), types.Heading(fmt.Sprintf(TweetHeadingFmt, i+1), 3))
		}
		out = append(out, b.Build(&posts[i], i)...)
	}
	return out
}

// BuildFooter records when the page was saved
func (b *Builder) BuildFooter(savedAt time.Time) []types.Block {
	note := fmt.Sprintf(FooterFmt, savedAt.In(b.location).Format(footerTimeLayout))
	return []types.Block{
		types.Divider(),
		types.Paragraph(types.RichText{Text: note, Italic: true, Color: types.ColorGray}),
	}
}

// BuildCommentSection renders comment items as quotes with attribution. Posts by
// anchorHandle are highlighted. Items are separated by dividers with none after the
// last one.
func (b *Builder) BuildCommentSection(items []types.CommentItem, anchorHandle string) []types.Block {
	if len(items) == 0 {
		return nil
	}

	out := []types.Block{types.Heading(CommentsHeading, 2), types.Divider()}
	for i, item := range items {
		if i > 0 {
			out = append(out, types.Divider())
		}
		for j := range item.Posts {
			out = append(out, b.comment(&item.Posts[j], anchorHandle)...)
		}
	}
	return out
}

func (b *Builder) comment(post *types.ExtractedPost, anchorHandle string) []types.Block {
	color := types.ColorDefault
	if anchorHandle != "" && strings.EqualFold(post.Author.Handle, anchorHandle) {
		color = types.ColorBlueBackground
	}

	var out []types.Block
	runs := richText(textSegments(post))
	if len(runs) == 0 && post.FullText != "" {
		runs = []types.RichText{{Text: post.FullText}}
	}
	for _, group := range PackRuns(runs) {
		out = append(out, types.Quote(color, group...))
	}
	for _, s := range post.Segments {
		if s.Kind == types.SegmentImage {
			out = append(out, types.ImageBlock(s.URL))
		}
	}

	attribution := []types.RichText{{Text: "by "}, {Text: post.Author.Display(), Link: post.URL}}
	if !post.PostedAt.IsZero() {
		attribution = append(attribution, types.RichText{
			Text:  " · " + post.PostedAt.In(b.location).Format("2006-01-02 15:04"),
			Color: types.ColorGray,
		})
	}
	return append(out, types.Paragraph(attribution...))
}

func textSegments(post *types.ExtractedPost) []types.Segment {
	var out []types.Segment
	for _, s := range post.Segments {
		if s.IsText() {
			out = append(out, s)
		}
	}
	return out
}
