package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/html"
)

func imgNode(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && n.Data == "img" {
			found = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if found == nil {
		t.Fatal("no img in fixture")
	}
	return found
}

func TestIsEmojiImage(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   bool
	}{
		{"emoji asset path", `<img src="https://abs-0.twimg.com/emoji/v2/svg/1f44d.svg" alt="a long description">`, true},
		{"single emoji alt", `<img src="https://example.com/x.png" alt="👍">`, true},
		{"zwj sequence", `<img src="https://example.com/x.png" alt="👩‍💻">`, true},
		{"variation selector", `<img src="https://example.com/x.png" alt="❤️">`, true},
		{"four pictographs", `<img src="https://example.com/x.png" alt="👍👍👍👍">`, false},
		{"short alt with marker", `<img class="css-9pa8cd r-4qtqp9" src="https://example.com/x.png" alt=":)">`, true},
		{"descriptive alt with marker", `<img class="r-4qtqp9" src="https://example.com/x.png" alt="Photo">`, false},
		{"short alt no marker", `<img src="https://example.com/x.png" alt=":)">`, false},
		{"media photo", `<img src="https://pbs.twimg.com/media/x.jpg" alt="Image">`, false},
		{"no alt", `<img src="https://pbs.twimg.com/media/x.jpg">`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isEmojiImage(imgNode(t, tt.markup)))
		})
	}
}

func TestIsBoldWeight(t *testing.T) {
	assert.True(t, isBoldWeight("700"))
	assert.True(t, isBoldWeight("900"))
	assert.True(t, isBoldWeight("bold"))
	assert.False(t, isBoldWeight("400"))
	assert.False(t, isBoldWeight("normal"))
	assert.False(t, isBoldWeight(""))
}

func TestStyleValue(t *testing.T) {
	assert.Equal(t, "700", styleValue("color: red; font-weight: 700", "font-weight"))
	assert.Equal(t, "italic", styleValue("FONT-STYLE:Italic", "font-style"))
	assert.Empty(t, styleValue("color: red", "font-weight"))
}
