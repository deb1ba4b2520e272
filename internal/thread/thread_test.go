package thread

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/ibeckermayer/x2notion/internal/extract"
	"github.com/ibeckermayer/x2notion/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const pageURL = "https://x.com/alice/status/1"

type cellSpec struct {
	handle    string
	id        int
	text      string
	connector bool
	ad        bool
}

func cell(c cellSpec) string {
	var b strings.Builder
	b.WriteString(`<div data-testid="cellInnerDiv"`)
	if c.connector {
		b.WriteString(` data-x2n-connector="true"`)
	}
	b.WriteString(`><article data-testid="tweet">`)
	fmt.Fprintf(&b, `<div data-testid="User-Name"><a role="link" href="/%s"><span>%s</span></a></div>`, c.handle, c.handle)
	fmt.Fprintf(&b, `<a href="/%s/status/%d"><time datetime="2024-05-01T10:00:00.000Z">May 1</time></a>`, c.handle, c.id)
	if c.ad {
		b.WriteString(`<div><span>Ad</span></div>`)
	}
	fmt.Fprintf(&b, `<div><div data-testid="tweetText"><span>%s</span></div></div>`, c.text)
	b.WriteString(`</article></div>`)
	return b.String()
}

func timeline(t *testing.T, cells ...cellSpec) []*html.Node {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<html><body><div data-testid="primaryColumn">`)
	for _, c := range cells {
		b.WriteString(cell(c))
	}
	b.WriteString(`</div></body></html>`)
	page, err := dom.ParseString(pageURL, b.String())
	require.NoError(t, err)
	return page.TimelineElements()
}

func newAggregator() *Aggregator {
	return New(extract.New(pageURL))
}

func TestProbeContextThread(t *testing.T) {
	els := timeline(t,
		cellSpec{handle: "alice", id: 1, text: "part one"},
		cellSpec{handle: "alice", id: 2, text: "part two"},
		cellSpec{handle: "alice", id: 3, text: "part three"},
		cellSpec{handle: "bob", id: 4, text: "a reply from bob"},
	)

	ctx, err := newAggregator().ProbeContext(els)
	require.NoError(t, err)
	assert.True(t, ctx.IsThread)
	assert.Equal(t, 3, ctx.Length)
	assert.True(t, ctx.HasComments)
	require.NotNil(t, ctx.MainPost)
	assert.Equal(t, "part one", ctx.MainPost.FullText)
}

func TestProbeContextSinglePost(t *testing.T) {
	els := timeline(t,
		cellSpec{handle: "alice", id: 1, text: "alone"},
		cellSpec{handle: "brand", id: 9, text: "buy our stuff now", ad: true},
	)

	ctx, err := newAggregator().ProbeContext(els)
	require.NoError(t, err)
	assert.False(t, ctx.IsThread)
	assert.Equal(t, 1, ctx.Length)
	assert.False(t, ctx.HasComments)
}

func TestProbeContextNoTweets(t *testing.T) {
	_, err := newAggregator().ProbeContext(nil)
	assert.True(t, types.IsNotFound(err))

	els := timeline(t, cellSpec{handle: "brand", id: 9, text: "sponsored", ad: true})
	_, err = newAggregator().ProbeContext(els)
	assert.True(t, types.IsNotFound(err))
}

func TestCollectThreadSkipsAds(t *testing.T) {
	els := timeline(t,
		cellSpec{handle: "alice", id: 1, text: "one"},
		cellSpec{handle: "brand", id: 9, text: "promo", ad: true},
		cellSpec{handle: "alice", id: 2, text: "two"},
		cellSpec{handle: "bob", id: 3, text: "reply"},
		cellSpec{handle: "alice", id: 4, text: "late reply by alice"},
	)

	posts, err := newAggregator().CollectThread(els)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "one", posts[0].FullText)
	assert.Equal(t, "two", posts[1].FullText)
	assert.Equal(t, "https://x.com/alice/status/2", posts[1].URL)
}

func TestCollectCommentsShortStandaloneDropped(t *testing.T) {
	els := timeline(t,
		cellSpec{handle: "alice", id: 1, text: "main post"},
		cellSpec{handle: "bob", id: 2, text: "nice"},
		cellSpec{handle: "bob", id: 3, text: "+1"},
		cellSpec{handle: "bob", id: 4, text: "wow 🔥"},
	)

	items, err := newAggregator().CollectComments(els)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCollectCommentsStartAfterThread(t *testing.T) {
	els := timeline(t,
		cellSpec{handle: "alice", id: 1, text: "main post"},
		cellSpec{handle: "alice", id: 2, text: "ok"},
		cellSpec{handle: "alice", id: 3, text: "hi"},
		cellSpec{handle: "alice", id: 4, text: "yo"},
	)

	items, err := newAggregator().CollectComments(els)
	require.NoError(t, err)
	assert.Empty(t, items)

	els = timeline(t,
		cellSpec{handle: "alice", id: 1, text: "main post"},
		cellSpec{handle: "alice", id: 2, text: "ok"},
		cellSpec{handle: "bob", id: 3, text: "a reply from bob"},
		cellSpec{handle: "alice", id: 4, text: "yo"},
	)

	items, err = newAggregator().CollectComments(els)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "3", items[0].Posts[0].StatusID)
	assert.Equal(t, "4", items[1].Posts[0].StatusID)
}

func TestCollectCommentsChainKeptWhole(t *testing.T) {
	els := timeline(t,
		cellSpec{handle: "alice", id: 1, text: "main post"},
		cellSpec{handle: "bob", id: 2, text: "nice", connector: true},
		cellSpec{handle: "carol", id: 3, text: "+1", connector: true},
		cellSpec{handle: "dave", id: 4, text: "wow", connector: true},
		cellSpec{handle: "erin", id: 5, text: "this one is long enough"},
		cellSpec{handle: "alice", id: 6, text: "ok"},
		cellSpec{handle: "frank", id: 7, text: "lonely marker", connector: true},
	)

	items, err := newAggregator().CollectComments(els)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.True(t, items[0].Chain)
	require.Len(t, items[0].Posts, 3)
	assert.Equal(t, "bob", items[0].Posts[0].Author.Handle)
	assert.Equal(t, "dave", items[0].Posts[2].Author.Handle)

	assert.False(t, items[1].Chain)
	assert.Equal(t, "erin", items[1].Posts[0].Author.Handle)

	// anchor-authored comments are kept regardless of length
	assert.Equal(t, "alice", items[2].Posts[0].Author.Handle)

	assert.False(t, items[3].Chain)
	assert.Equal(t, "frank", items[3].Posts[0].Author.Handle)
}

func TestCollectCommentsMinCharsOverride(t *testing.T) {
	els := timeline(t,
		cellSpec{handle: "alice", id: 1, text: "main post"},
		cellSpec{handle: "bob", id: 2, text: "nice"},
	)

	items, err := newAggregator().WithMinChars(3).CollectComments(els)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestExcludeThreadDuplicates(t *testing.T) {
	els := timeline(t,
		cellSpec{handle: "alice", id: 1, text: "one"},
		cellSpec{handle: "alice", id: 2, text: "two", connector: true},
		cellSpec{handle: "bob", id: 3, text: "a reply in the chain", connector: true},
		cellSpec{handle: "carol", id: 4, text: "separate long comment"},
	)
	agg := newAggregator()

	thread, err := agg.CollectThread(els)
	require.NoError(t, err)
	require.Len(t, thread, 2)

	items, err := agg.CollectComments(els)
	require.NoError(t, err)
	require.Len(t, items, 2)

	items = ExcludeThreadDuplicates(thread, items)
	require.Len(t, items, 2)
	assert.False(t, items[0].Chain)
	assert.Equal(t, "bob", items[0].Posts[0].Author.Handle)
	assert.Equal(t, "carol", items[1].Posts[0].Author.Handle)
	for _, item := range items {
		for _, p := range item.Posts {
			assert.NotEqual(t, "2", p.StatusID)
		}
	}
}

func TestIsAd(t *testing.T) {
	els := timeline(t,
		cellSpec{handle: "a", id: 1, text: "Ad"},
		cellSpec{handle: "b", id: 2, text: "x", ad: true},
	)
	require.Len(t, els, 2)
	assert.False(t, IsAd(els[0]), "tweet text saying Ad is not a label")
	assert.True(t, IsAd(els[1]))
}
