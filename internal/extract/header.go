package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/ibeckermayer/x2notion/internal/types"
	"golang.org/x/net/html"
)

// UnknownAuthor is used when the author region is missing
const UnknownAuthor = "Unknown"

var metricPattern = regexp.MustCompile(`^([\d,.]+[KkMm]?)`)

// AuthorOf reads the display name and handle from a tweet's author region
func AuthorOf(root *html.Node) types.Author {
	author := types.Author{Name: UnknownAuthor}
	if a := dom.ArticleOf(root); a != nil {
		root = a
	}
	region := own(root, dom.TweetAuthor)
	if region == nil {
		return author
	}

	link := dom.Select(dom.AuthorLink).MatchFirst(region)
	if link == nil {
		link = dom.Select(`a[href^="/"]`).MatchFirst(region)
	}
	if link != nil {
		author.Handle = strings.Trim(dom.Attr(link, "href"), "/")
	}

	nameFrom := region
	if link != nil {
		nameFrom = link
	}
	name := dom.TextContent(nameFrom)
	if span := dom.Select("span").MatchFirst(nameFrom); span != nil {
		name = dom.TextContent(span)
	}
	if name = strings.TrimSpace(name); name != "" {
		author.Name = name
	}
	return author
}

// timestampOf returns the post's datetime and the permalink wrapping it
func timestampOf(root *html.Node, now time.Time) (time.Time, string) {
	t := own(root, dom.TweetTimestamp)
	if t == nil {
		return now, ""
	}

	var permalink string
	if a := dom.ClosestTag(t, "a", root); a != nil {
		permalink = dom.ResolveURL(dom.Attr(a, "href"))
	}

	posted, err := time.Parse(time.RFC3339, dom.Attr(t, "datetime"))
	if err != nil {
		return now, permalink
	}
	return posted, permalink
}

// metricsOf reads engagement counters from the action bar
func metricsOf(root *html.Node) types.Metrics {
	return types.Metrics{
		Likes:    metricValue(own(root, dom.LikeCount)),
		Retweets: metricValue(own(root, dom.RetweetCount)),
		Replies:  metricValue(own(root, dom.ReplyCount)),
	}
}

func metricValue(n *html.Node) int {
	if n == nil {
		return 0
	}
	if label := dom.Attr(n, "aria-label"); label != "" {
		if m := metricPattern.FindStringSubmatch(label); m != nil {
			return parseMetric(m[1])
		}
		return 0
	}
	return parseMetric(strings.TrimSpace(dom.TextContent(n)))
}

// parseMetric converts abbreviated metric strings like "1.2K", "5.7M", or "423" to integers
func parseMetric(s string) int {
	if s == "" {
		return 0
	}

	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	if strings.HasSuffix(strings.ToUpper(s), "K") {
		multiplier = 1000
		s = s[:len(s)-1]
	} else if strings.HasSuffix(strings.ToUpper(s), "M") {
		multiplier = 1000000
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return int(math.Round(value * multiplier))
}

// own returns the first element matching sel that belongs to root itself and not to
// a quoted tweet or a nested article.
func own(root *html.Node, sel string) *html.Node {
	for _, n := range dom.Select(sel).MatchAll(root) {
		if !foreign(n, root) {
			return n
		}
	}
	return nil
}

// foreign reports whether n sits inside a quoted tweet or an article nested in root
func foreign(n, root *html.Node) bool {
	for a := n; a != nil && a != root; a = a.Parent {
		if a.Type != html.ElementNode {
			continue
		}
		if dom.Matches(a, dom.QuotedTweet) || dom.Matches(a, dom.TweetArticle) {
			return true
		}
	}
	return false
}
