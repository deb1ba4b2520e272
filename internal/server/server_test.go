package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ibeckermayer/x2notion/internal/app"
	"github.com/ibeckermayer/x2notion/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	err       error
	gotURL    string
	gotCreds  types.Credentials
	gotThread app.ThreadRequest
	gotOpts   app.SaveOptions
	savedAs   string
}

func (f *fakeBackend) ExtractContext(_ context.Context, u string) (*types.ThreadContext, error) {
	f.gotURL = u
	if f.err != nil {
		return nil, f.err
	}
	return &types.ThreadContext{IsThread: true, Length: 2, HasComments: true}, nil
}

func (f *fakeBackend) ExtractFullThread(_ context.Context, u string) ([]types.ExtractedPost, error) {
	f.gotURL = u
	return []types.ExtractedPost{{URL: u}, {URL: u + "/2"}}, f.err
}

func (f *fakeBackend) ExtractComments(_ context.Context, u string) ([]types.CommentItem, error) {
	f.gotURL = u
	return nil, f.err
}

func (f *fakeBackend) SubmitPost(_ context.Context, post *types.ExtractedPost, creds types.Credentials) (*app.SaveResult, error) {
	f.gotCreds = creds
	if f.err != nil {
		return nil, f.err
	}
	return &app.SaveResult{PageID: "p1", PageURL: "https://www.notion.so/p1", Posts: 1}, nil
}

func (f *fakeBackend) SubmitThread(_ context.Context, req app.ThreadRequest, creds types.Credentials) (*app.SaveResult, error) {
	f.gotThread = req
	f.gotCreds = creds
	if f.err != nil {
		return nil, f.err
	}
	return &app.SaveResult{PageID: "p2", Posts: len(req.Posts)}, nil
}

func (f *fakeBackend) SavePost(_ context.Context, u string, opts app.SaveOptions) (*app.SaveResult, error) {
	f.gotURL, f.gotOpts, f.savedAs = u, opts, "post"
	return &app.SaveResult{PageID: "p3"}, f.err
}

func (f *fakeBackend) SaveThread(_ context.Context, u string, opts app.SaveOptions) (*app.SaveResult, error) {
	f.gotURL, f.gotOpts, f.savedAs = u, opts, "thread"
	return &app.SaveResult{PageID: "p4"}, f.err
}

var defaultCreds = types.Credentials{APIKey: "default", DatabaseID: "db"}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func newServer(b Backend) *Server {
	return New(b, Options{AllowedOrigins: []string{"chrome-extension://*"}, Credentials: defaultCreds})
}

func TestHealthz(t *testing.T) {
	rec := do(t, newServer(&fakeBackend{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestContext(t *testing.T) {
	b := &fakeBackend{}
	rec := do(t, newServer(b), http.MethodPost, "/v1/context", `{"url":"https://x.com/a/status/1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://x.com/a/status/1", b.gotURL)
	var tc types.ThreadContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tc))
	assert.True(t, tc.IsThread)
	assert.Equal(t, 2, tc.Length)
}

func TestContextRequiresURL(t *testing.T) {
	rec := do(t, newServer(&fakeBackend{}), http.MethodPost, "/v1/context", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, newServer(&fakeBackend{}), http.MethodPost, "/v1/thread", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommentsEmptyIsArray(t *testing.T) {
	rec := do(t, newServer(&fakeBackend{}), http.MethodPost, "/v1/comments", `{"url":"https://x.com/a/status/1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSubmitPostUsesDefaultCredentials(t *testing.T) {
	b := &fakeBackend{}
	rec := do(t, newServer(b), http.MethodPost, "/v1/posts", `{"post":{"url":"https://x.com/a/status/1","full_text":"hi"}}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, defaultCreds, b.gotCreds)
	assert.Contains(t, rec.Body.String(), `"page_url":"https://www.notion.so/p1"`)
}

func TestSubmitThreadWithCredentials(t *testing.T) {
	b := &fakeBackend{}
	body := `{"posts":[{"url":"u1"},{"url":"u2"}],"title":"T","types":["Tech"],"credentials":{"api_key":"k","database_id":"d"}}`
	rec := do(t, newServer(b), http.MethodPost, "/v1/threads", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, types.Credentials{APIKey: "k", DatabaseID: "d"}, b.gotCreds)
	assert.Len(t, b.gotThread.Posts, 2)
	assert.Equal(t, "T", b.gotThread.Title)
	assert.Equal(t, []string{"Tech"}, b.gotThread.Types)
}

func TestSave(t *testing.T) {
	b := &fakeBackend{}
	rec := do(t, newServer(b), http.MethodPost, "/v1/save", `{"url":"https://x.com/a/status/1","thread":true,"comments":true}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "thread", b.savedAs)
	assert.True(t, b.gotOpts.Comments)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{types.ErrNotFound, http.StatusNotFound},
		{&types.ValidationError{Field: "api_key", Message: "missing"}, http.StatusBadRequest},
		{types.ErrSaveInProgress, http.StatusConflict},
		{&types.SubmissionError{Status: 400, Body: `{"code":"validation_error"}`}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		rec := do(t, newServer(&fakeBackend{err: tc.err}), http.MethodPost, "/v1/posts", `{"post":{}}`)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}

	rec := do(t, newServer(&fakeBackend{err: &types.SubmissionError{Status: 400, Body: "raw body"}}), http.MethodPost, "/v1/posts", `{"post":{}}`)
	assert.Contains(t, rec.Body.String(), `"notion_body":"raw body"`)
	assert.Contains(t, rec.Body.String(), `"notion_status":400`)
}

func TestSubmitRateLimit(t *testing.T) {
	s := New(&fakeBackend{}, Options{SubmitRPS: 0.001, Credentials: defaultCreds})

	first := do(t, s, http.MethodPost, "/v1/posts", `{"post":{}}`)
	second := do(t, s, http.MethodPost, "/v1/posts", `{"post":{}}`)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// extraction is not limited
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/context", `{"url":"u"}`).Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/posts", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newServer(&fakeBackend{}).Handler().ServeHTTP(rec, req)

	assert.Equal(t, "chrome-extension://abcdef", rec.Header().Get("Access-Control-Allow-Origin"))
}
