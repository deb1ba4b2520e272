package types

// BlockKind mirrors the Notion block types we emit
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockImage     BlockKind = "image"
	BlockEmbed     BlockKind = "embed"
	BlockDivider   BlockKind = "divider"
	BlockHeading   BlockKind = "heading"
	BlockQuote     BlockKind = "quote"
)

// Notion colors used by the builder
const (
	ColorDefault        = "default"
	ColorGray           = "gray"
	ColorBlueBackground = "blue_background"
)

// RichText is one annotated run inside a paragraph, quote or heading
type RichText struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Color  string `json:"color,omitempty"`
	Link   string `json:"link,omitempty"`
}

// Block is one output unit of the document. Paragraph and Quote use Runs, Image and
// Embed use URL, Heading uses Runs and Level. Color applies to the block itself.
type Block struct {
	Kind  BlockKind  `json:"kind"`
	Runs  []RichText `json:"runs,omitempty"`
	URL   string     `json:"url,omitempty"`
	Level int        `json:"level,omitempty"`
	Color string     `json:"color,omitempty"`
}

// Paragraph creates a paragraph block
func Paragraph(runs ...RichText) Block {
	return Block{Kind: BlockParagraph, Runs: runs}
}

// Quote creates a quote block with the given color
func Quote(color string, runs ...RichText) Block {
	return Block{Kind: BlockQuote, Runs: runs, Color: color}
}

// Heading creates a heading block of level 1-3
func Heading(text string, level int) Block {
	return Block{Kind: BlockHeading, Runs: []RichText{{Text: text}}, Level: level}
}

// ImageBlock creates an external image block
func ImageBlock(url string) Block {
	return Block{Kind: BlockImage, URL: url}
}

// Embed creates an embed block
func Embed(url string) Block {
	return Block{Kind: BlockEmbed, URL: url}
}

// Divider creates a divider block
func Divider() Block {
	return Block{Kind: BlockDivider}
}

// PlainText concatenates the text of all runs
func (b Block) PlainText() string {
	s := ""
	for _, r := range b.Runs {
		s += r.Text
	}
	return s
}
