package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/ibeckermayer/x2notion/internal/notion"
	"github.com/ibeckermayer/x2notion/internal/store"
	"github.com/ibeckermayer/x2notion/internal/summary"
	"github.com/ibeckermayer/x2notion/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threadURL = "https://x.com/alice/status/1"

var (
	fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	creds    = types.Credentials{APIKey: "secret", DatabaseID: "db"}
)

func cellHTML(handle, id, text string, connector bool) string {
	attr := ""
	if connector {
		attr = ` data-x2n-connector="true"`
	}
	return `<div data-testid="cellInnerDiv"` + attr + `><article data-testid="tweet">` +
		`<div data-testid="User-Name"><a role="link" href="/` + handle + `"><span>` + handle + `</span></a></div>` +
		`<a href="/` + handle + `/status/` + id + `"><time datetime="2024-05-01T10:00:00.000Z">May 1</time></a>` +
		`<div><div data-testid="tweetText"><span>` + text + `</span></div></div>` +
		`</article></div>`
}

var threadPage = `<html><body><div data-testid="primaryColumn">` +
	cellHTML("alice", "1", "First part of the thread", false) +
	cellHTML("alice", "2", "Second part of the thread", false) +
	cellHTML("bob", "3", "A thoughtful reply from bob", false) +
	cellHTML("carol", "4", "+1", false) +
	`</div></body></html>`

type fakeSource struct {
	markup string
	calls  atomic.Int32
	gate   chan struct{}
}

func (f *fakeSource) Snapshot(ctx context.Context, pageURL string) (*dom.Page, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return dom.ParseString(pageURL, f.markup)
}

type fakeNotion struct {
	mu     sync.Mutex
	bodies []map[string]any
	status int
}

func (f *fakeNotion) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(data, &body)
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"validation_error"}`))
		return
	}
	_, _ = w.Write([]byte(`{"id":"aaaa-bbbb"}`))
}

func (f *fakeNotion) requests() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.bodies...)
}

func newService(t *testing.T, src *fakeSource, api *fakeNotion, opts ...Option) *Service {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client := notion.New(types.Credentials{}, notion.WithBaseURL(srv.URL), notion.WithRateLimit(0))
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(src, client, creds, opts...)
}

func TestExtractContextAndThread(t *testing.T) {
	svc := newService(t, &fakeSource{markup: threadPage}, &fakeNotion{})

	tc, err := svc.ExtractContext(context.Background(), threadURL)
	require.NoError(t, err)
	assert.True(t, tc.IsThread)
	assert.Equal(t, 2, tc.Length)
	assert.True(t, tc.HasComments)
	assert.Equal(t, "1", tc.MainPost.StatusID)

	posts, err := svc.ExtractFullThread(context.Background(), threadURL)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Second part of the thread", posts[1].Text())

	items, err := svc.ExtractComments(context.Background(), threadURL)
	require.NoError(t, err)
	var ids []string
	for _, it := range items {
		for _, p := range it.Posts {
			ids = append(ids, p.StatusID)
		}
	}
	assert.Contains(t, ids, "3")
	assert.NotContains(t, ids, "2", "thread posts are not comments")
	assert.NotContains(t, ids, "4", "short comment from another author is dropped")
}

func TestSavePostCreatesPage(t *testing.T) {
	api := &fakeNotion{}
	svc := newService(t, &fakeSource{markup: threadPage}, api, WithTypes([]string{"Tech"}))

	res, err := svc.SavePost(context.Background(), threadURL, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "aaaa-bbbb", res.PageID)
	assert.Equal(t, notion.PageURL("aaaa-bbbb"), res.PageURL)
	assert.Equal(t, 1, res.Posts)

	reqs := api.requests()
	require.Len(t, reqs, 1)
	props := reqs[0]["properties"].(map[string]any)
	sender := props["Sender"].(map[string]any)["rich_text"].([]any)[0].(map[string]any)
	assert.Equal(t, "alice (@alice)", sender["text"].(map[string]any)["content"])
	kinds := props["Type"].(map[string]any)["multi_select"].([]any)
	assert.Equal(t, "Tech", kinds[0].(map[string]any)["name"])
}

func TestSaveThreadWithComments(t *testing.T) {
	api := &fakeNotion{}
	svc := newService(t, &fakeSource{markup: threadPage}, api)

	res, err := svc.SaveThread(context.Background(), threadURL, SaveOptions{Title: "My thread", Comments: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Posts)
	assert.Equal(t, 1, res.Comments)

	reqs := api.requests()
	require.Len(t, reqs, 1)
	raw, _ := json.Marshal(reqs[0]["children"])
	assert.Contains(t, string(raw), "Tweet 2")
	assert.Contains(t, string(raw), "Comments")
	assert.Contains(t, string(raw), "A thoughtful reply from bob")

	name := reqs[0]["properties"].(map[string]any)["Name"].(map[string]any)["title"].([]any)[0].(map[string]any)
	assert.Equal(t, "My thread", name["text"].(map[string]any)["content"])
}

func TestSaveValidatesCredentialsBeforeCapture(t *testing.T) {
	src := &fakeSource{markup: threadPage}
	srv := httptest.NewServer(&fakeNotion{})
	defer srv.Close()
	svc := NewService(src, notion.New(types.Credentials{}, notion.WithBaseURL(srv.URL)), types.Credentials{APIKey: "k"})

	_, err := svc.SavePost(context.Background(), threadURL, SaveOptions{})
	assert.True(t, types.IsValidation(err))
	assert.Zero(t, src.calls.Load())

	_, err = svc.SubmitPost(context.Background(), &types.ExtractedPost{URL: threadURL}, types.Credentials{})
	assert.True(t, types.IsValidation(err))
}

func TestSubmissionErrorSurfacesVerbatim(t *testing.T) {
	api := &fakeNotion{status: http.StatusBadRequest}
	svc := newService(t, &fakeSource{markup: threadPage}, api)

	_, err := svc.SubmitPost(context.Background(), &types.ExtractedPost{URL: threadURL, StatusID: "1", FullText: "x"}, creds)
	var subErr *types.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusBadRequest, subErr.Status)
	assert.Contains(t, subErr.Body, "validation_error")
	assert.Len(t, api.requests(), 1, "page creation is not retried")
}

func TestSecondSaveOfSamePostIsRejected(t *testing.T) {
	src := &fakeSource{markup: threadPage, gate: make(chan struct{})}
	svc := newService(t, src, &fakeNotion{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.SavePost(context.Background(), threadURL, SaveOptions{})
		done <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := svc.SubmitPost(context.Background(), &types.ExtractedPost{URL: threadURL, StatusID: "1"}, creds)
	assert.ErrorIs(t, err, types.ErrSaveInProgress)

	close(src.gate)
	require.NoError(t, <-done)

	_, err = svc.SubmitPost(context.Background(), &types.ExtractedPost{URL: threadURL, StatusID: "1", FullText: "again"}, creds)
	assert.NoError(t, err)
}

func TestSaveRecordsStatusAndEnqueuesSummary(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	q := summary.NewQueue(st, stubSummarizer{}, nopPages{}, "", 0)
	svc := newService(t, &fakeSource{markup: threadPage}, &fakeNotion{}, WithStore(st), WithQueue(q))

	res, err := svc.SavePost(context.Background(), threadURL, SaveOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.TaskID)

	status, err := st.GetStatus("1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, status.Status)
	assert.Equal(t, KindPost, status.Kind)

	tasks, err := st.PendingTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "aaaa-bbbb", tasks[0].PageID)
	assert.Equal(t, "First part of the thread", tasks[0].Text)
}

func TestSaveMany(t *testing.T) {
	src := &fakeSource{markup: threadPage}
	svc := newService(t, src, &fakeNotion{}, WithConcurrency(2))

	urls := []string{threadURL, "https://x.com/alice/status/2", "https://x.com/alice/status/3"}
	out, err := svc.SaveMany(context.Background(), urls, false, SaveOptions{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, o := range out {
		assert.Equal(t, urls[i], o.URL)
		assert.NotNil(t, o.Result)
	}
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestSaveManyJoinsFailures(t *testing.T) {
	svc := newService(t, &fakeSource{markup: `<html><body></body></html>`}, &fakeNotion{})

	out, err := svc.SaveMany(context.Background(), []string{threadURL}, true, SaveOptions{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), threadURL))
	assert.True(t, types.IsNotFound(out[0].Err))
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, string) (string, error) { return "", nil }

type nopPages struct{}

func (nopPages) UpdateRichTextProperty(context.Context, string, string, string) error { return nil }
