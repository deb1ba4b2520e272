package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/ibeckermayer/x2notion/internal/dom"
	"golang.org/x/net/html"
)

// emojiRanges are the code point ranges treated as pictographic: symbols and
// pictographs, emoticons, transport, supplemental symbols, dingbats, regional
// indicators and skin tone modifiers.
var emojiRanges = [][2]rune{
	{0x1F300, 0x1F5FF},
	{0x1F600, 0x1F64F},
	{0x1F680, 0x1F6FF},
	{0x1F700, 0x1F77F},
	{0x1F780, 0x1F7FF},
	{0x1F800, 0x1F8FF},
	{0x1F900, 0x1F9FF},
	{0x1FA00, 0x1FA6F},
	{0x1FA70, 0x1FAFF},
	{0x2600, 0x26FF},
	{0x2700, 0x27BF},
	{0x1F1E6, 0x1F1FF},
	{0x1F3FB, 0x1F3FF},
	{0x2B00, 0x2BFF},
	{0x3030, 0x3030},
	{0x303D, 0x303D},
	{0x3297, 0x3299},
}

// Joiners may appear inside an emoji sequence but never make one on their own
const (
	variationSelector = 0xFE0F
	zeroWidthJoiner   = 0x200D
	keycapCombiner    = 0x20E3
)

// descriptiveAltWords appear in alt text of real photos, never of emoji
var descriptiveAltWords = []string{"image", "photo", "picture", "video"}

func isEmojiRune(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// isEmojiText reports whether s is 1-3 characters of emoji, joiners allowed
func isEmojiText(s string) bool {
	n := countPictographs(s)
	return n >= 1 && n <= 3 && onlyEmojiWithJoiners(s)
}

func onlyEmojiWithJoiners(s string) bool {
	found := false
	for _, r := range s {
		switch {
		case r == variationSelector || r == zeroWidthJoiner || r == keycapCombiner:
		case isEmojiRune(r):
			found = true
		default:
			return false
		}
	}
	return found
}

func countPictographs(s string) int {
	n := 0
	for _, r := range s {
		if isEmojiRune(r) {
			n++
		}
	}
	return n
}

// isEmojiImage classifies an inline image as emoji. The asset path is authoritative;
// otherwise a short emoji alt, or a short non-descriptive alt on an image carrying an
// emoji style marker.
func isEmojiImage(img *html.Node) bool {
	src := dom.Attr(img, "src")
	if strings.Contains(src, dom.EmojiAssetPath) {
		return true
	}

	alt := strings.TrimSpace(dom.Attr(img, "alt"))
	if alt == "" {
		return false
	}
	if isEmojiText(alt) {
		return true
	}
	if utf8.RuneCountInString(alt) > 4 || isDescriptiveAlt(alt) {
		return false
	}
	return hasEmojiMarker(img)
}

func isDescriptiveAlt(alt string) bool {
	lower := strings.ToLower(alt)
	for _, w := range descriptiveAltWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func hasEmojiMarker(img *html.Node) bool {
	for _, c := range strings.Fields(dom.Attr(img, "class")) {
		for _, m := range dom.EmojiClassMarkers {
			if c == m || strings.Contains(strings.ToLower(c), "emoji") {
				return true
			}
		}
	}
	return false
}
