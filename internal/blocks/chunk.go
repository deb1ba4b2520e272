package blocks

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	// MaxTextLength is the longest text content Notion accepts in one rich-text item
	MaxTextLength = 2000
	// ParagraphBudget is the packing budget for one paragraph of annotated runs
	ParagraphBudget = 1800
	// MaxRichTextItems is the most rich-text items one block may carry
	MaxRichTextItems = 100

	// splitWindow is the trailing share of a chunk searched for a sentence or word break
	splitWindow = 0.3
)

// TextLength counts characters the way the Notion API does (UTF-16 code units)
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Truncate keeps max-3 characters plus "..." when s is longer than max characters
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

// SplitText breaks plain text into chunks of at most max characters. Whole lines are
// packed together first; a line longer than max is split at the last sentence end or
// space in the final part of each window, or hard at max when there is none.
func SplitText(text string, max int) []string {
	if TextLength(text) <= max {
		return []string{text}
	}

	var chunks []string
	current := ""
	for _, line := range strings.Split(text, "\n") {
		if TextLength(current)+TextLength(line)+1 > max {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			if TextLength(line) > max {
				parts := splitLine(line, max)
				chunks = append(chunks, parts[:len(parts)-1]...)
				current = parts[len(parts)-1]
			} else {
				current = line
			}
			continue
		}
		if current != "" {
			current += "\n" + line
		} else {
			current = line
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

func splitLine(line string, max int) []string {
	r := []rune(line)
	var parts []string
	for start := 0; start < len(r); {
		end := fit(r, start, max)
		if end < len(r) {
			min := start + int(float64(end-start)*(1-splitWindow))
			if p := lastRune(r, start, end, '.'); p > min {
				end = p + 1
			} else if s := lastRune(r, start, end, ' '); s > min {
				end = s
			}
		}
		parts = append(parts, string(r[start:end]))
		start = end
	}
	return parts
}

// fit returns the largest end such that r[start:end] is at most max characters
func fit(r []rune, start, max int) int {
	n := 0
	for i := start; i < len(r); i++ {
		n += utf16.RuneLen(r[i])
		if n > max {
			if i == start {
				return start + 1
			}
			return i
		}
	}
	return len(r)
}

func lastRune(r []rune, start, end int, c rune) int {
	for i := end - 1; i > start; i-- {
		if r[i] == c {
			return i
		}
	}
	return -1
}
