package blocks

import "github.com/ibeckermayer/x2notion/internal/types"

// PackRuns groups annotated runs into paragraphs. Runs are never split across
// paragraphs: a new paragraph starts when adding the next run would exceed the
// budget or the rich-text item limit. Runs longer than MaxTextLength are first split
// into identically annotated pieces.
func PackRuns(runs []types.RichText) [][]types.RichText {
	var (
		groups  [][]types.RichText
		current []types.RichText
		length  int
	)
	for _, run := range splitLongRuns(runs) {
		n := TextLength(run.Text)
		if len(current) > 0 && (length+n > ParagraphBudget || len(current) >= MaxRichTextItems) {
			groups = append(groups, current)
			current, length = nil, 0
		}
		current = append(current, run)
		length += n
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func splitLongRuns(runs []types.RichText) []types.RichText {
	out := make([]types.RichText, 0, len(runs))
	for _, run := range runs {
		if TextLength(run.Text) <= MaxTextLength {
			out = append(out, run)
			continue
		}
		for _, chunk := range SplitText(run.Text, MaxTextLength) {
			piece := run
			piece.Text = chunk
			out = append(out, piece)
		}
	}
	return out
}

// richText converts text segments to rich-text runs
func richText(segments []types.Segment) []types.RichText {
	runs := make([]types.RichText, 0, len(segments))
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		runs = append(runs, types.RichText{Text: s.Text, Bold: s.Bold, Italic: s.Italic, Link: s.Link})
	}
	return runs
}
