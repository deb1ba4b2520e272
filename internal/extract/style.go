package extract

import (
	"strconv"
	"strings"

	"github.com/ibeckermayer/x2notion/internal/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// boldParentDepth is how many ancestors are checked for an inherited bold weight
const boldParentDepth = 2

// isBold reports whether text inside el should be annotated bold. A bold tag between
// el and the container always counts. An explicit weight counts only when neither of
// the two nearest ancestors is itself bold, so weight inherited from a bold wrapper
// does not mark every run.
func isBold(el, container *html.Node) bool {
	for a := el; a != nil && a != container; a = a.Parent {
		if a.DataAtom == atom.Strong || a.DataAtom == atom.B {
			return true
		}
	}
	if !hasBoldWeight(el) {
		return false
	}
	p := el.Parent
	for i := 0; i < boldParentDepth && p != nil && p.Type == html.ElementNode; i++ {
		if hasBoldWeight(p) {
			return false
		}
		p = p.Parent
	}
	return true
}

// isItalic reports whether text inside el is italic, by tag or inline font-style
func isItalic(el, container *html.Node) bool {
	for a := el; a != nil && a != container; a = a.Parent {
		if a.DataAtom == atom.Em || a.DataAtom == atom.I {
			return true
		}
		if styleValue(dom.Attr(a, "style"), "font-style") == "italic" {
			return true
		}
	}
	return false
}

// hasBoldWeight reads the weight stamped by the capture script, falling back to the
// inline style of static snapshots.
func hasBoldWeight(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	w := dom.Attr(n, dom.WeightAttr)
	if w == "" {
		w = styleValue(dom.Attr(n, "style"), "font-weight")
	}
	return isBoldWeight(w)
}

func isBoldWeight(w string) bool {
	switch w {
	case "":
		return false
	case "bold", "bolder":
		return true
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 700
}

// styleValue returns one declaration from an inline style attribute
func styleValue(style, prop string) string {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), prop) {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	return ""
}
