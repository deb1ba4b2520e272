package notion

import (
	"fmt"
	"time"

	"github.com/ibeckermayer/x2notion/internal/blocks"
	"github.com/ibeckermayer/x2notion/internal/types"
)

type textContent struct {
	Content string `json:"content"`
	Link    *link  `json:"link,omitempty"`
}

type link struct {
	URL string `json:"url"`
}

type annotations struct {
	Bold   bool   `json:"bold"`
	Italic bool   `json:"italic"`
	Color  string `json:"color"`
}

type richText struct {
	Type        string       `json:"type"`
	Text        textContent  `json:"text"`
	Annotations *annotations `json:"annotations,omitempty"`
}

func encodeRuns(runs []types.RichText) []richText {
	out := make([]richText, 0, len(runs))
	for _, r := range runs {
		rt := richText{Type: "text", Text: textContent{Content: r.Text}}
		if r.Link != "" {
			rt.Text.Link = &link{URL: r.Link}
		}
		if r.Bold || r.Italic || (r.Color != "" && r.Color != types.ColorDefault) {
			color := r.Color
			if color == "" {
				color = types.ColorDefault
			}
			rt.Annotations = &annotations{Bold: r.Bold, Italic: r.Italic, Color: color}
		}
		out = append(out, rt)
	}
	return out
}

func plainRichText(s string) []richText {
	return []richText{{Type: "text", Text: textContent{Content: s}}}
}

// encodeBlock converts a block into the API's block object
func encodeBlock(b types.Block) (map[string]any, error) {
	var kind string
	var body map[string]any

	switch b.Kind {
	case types.BlockParagraph:
		kind = "paragraph"
		body = map[string]any{"rich_text": encodeRuns(b.Runs)}
	case types.BlockQuote:
		kind = "quote"
		body = map[string]any{"rich_text": encodeRuns(b.Runs)}
		if b.Color != "" {
			body["color"] = b.Color
		}
	case types.BlockHeading:
		if b.Level < 1 || b.Level > 3 {
			return nil, fmt.Errorf("invalid heading level %d", b.Level)
		}
		kind = fmt.Sprintf("heading_%d", b.Level)
		body = map[string]any{"rich_text": encodeRuns(b.Runs)}
	case types.BlockImage:
		kind = "image"
		body = map[string]any{"type": "external", "external": map[string]any{"url": b.URL}}
	case types.BlockEmbed:
		kind = "embed"
		body = map[string]any{"url": b.URL}
	case types.BlockDivider:
		kind = "divider"
		body = map[string]any{}
	default:
		return nil, fmt.Errorf("unknown block kind %q", b.Kind)
	}

	return map[string]any{
		"object": "block",
		"type":   kind,
		kind:     body,
	}, nil
}

func encodeBlocks(blocks []types.Block) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		enc, err := encodeBlock(b)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

func dateProperty(t time.Time) map[string]any {
	if t.IsZero() {
		return map[string]any{"date": nil}
	}
	return map[string]any{"date": map[string]any{"start": t.Format(time.RFC3339)}}
}

// encodeProperties builds the database row properties for a page
func encodeProperties(p Page) map[string]any {
	name := blocks.Truncate(p.Title, NameLimit)
	if name == "" {
		name = DefaultTitle
	}
	sender := blocks.Truncate(p.Sender, SenderLimit)
	if sender == "" {
		sender = DefaultSender
	}

	options := make([]map[string]string, 0, len(p.Types))
	for _, t := range p.Types {
		options = append(options, map[string]string{"name": t})
	}

	var url any
	if p.URL != "" {
		url = p.URL
	}

	return map[string]any{
		"Name":     map[string]any{"title": plainRichText(name)},
		"URL":      map[string]any{"url": url},
		"Type":     map[string]any{"multi_select": options},
		"Sender":   map[string]any{"rich_text": plainRichText(sender)},
		"PostDate": dateProperty(p.PostDate),
		"SaveDate": dateProperty(p.SaveDate),
	}
}
