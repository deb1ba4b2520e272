package extract

import (
	"regexp"
	"strings"

	"github.com/ibeckermayer/x2notion/internal/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// quotedStatusPattern matches a bare status permalink, relative or on the X origin
var quotedStatusPattern = regexp.MustCompile(`^(?:https?://(?:www\.)?(?:x|twitter)\.com)?/(\w+)/status/(\d+)/?$`)

func isProfilePhoto(src string) bool {
	return strings.Contains(src, dom.ProfileImagePath)
}

func isMediaCDN(src string) bool {
	return strings.Contains(src, dom.MediaHost) && !isProfilePhoto(src)
}

// isContentImage is fail-closed: an image counts only when it sits under a media
// marker or is served from the media CDN.
func isContentImage(img, root *html.Node) bool {
	src := dom.Attr(img, "src")
	if src == "" || strings.HasPrefix(src, "data:") || isProfilePhoto(src) {
		return false
	}
	if dom.Closest(img, dom.Select(dom.TweetPhoto), root) != nil {
		return true
	}
	return isMediaCDN(src)
}

// videoElement returns n when it is a video, or the first video inside a player
// container, or nil.
func videoElement(n *html.Node) *html.Node {
	if n.DataAtom == atom.Video {
		return n
	}
	if dom.Matches(n, dom.VideoPlayer) {
		return dom.Select("video").MatchFirst(n)
	}
	return nil
}

// videoSource picks the first resolvable source of a video element. Blob URLs only
// live inside the capturing tab, so they are skipped.
func videoSource(v *html.Node) string {
	candidates := []string{dom.Attr(v, "src")}
	for _, s := range dom.Select("source[src]").MatchAll(v) {
		candidates = append(candidates, dom.Attr(s, "src"))
	}
	for _, c := range candidates {
		if c != "" && !strings.HasPrefix(c, "blob:") {
			return dom.ResolveURL(c)
		}
	}
	return ""
}

// findQuotedTweet returns the first status link under root whose id differs from
// both the page's and the post's own id.
func findQuotedTweet(root *html.Node, pageID, ownID string) string {
	for _, a := range dom.Select("a[href]").MatchAll(root) {
		m := quotedStatusPattern.FindStringSubmatch(dom.Attr(a, "href"))
		if m == nil {
			continue
		}
		id := m[2]
		if id == pageID || id == ownID {
			continue
		}
		return dom.DefaultBaseURL + "/" + m[1] + "/status/" + id
	}
	return ""
}
