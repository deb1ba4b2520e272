package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ibeckermayer/x2notion/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepSeekSummarize(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ds-key", r.Header.Get("Authorization"))
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  a summary  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	snaps := store.NewSnapshots(t.TempDir())
	ds, err := NewDeepSeek("ds-key", srv.URL+"/v1", "")
	require.NoError(t, err)
	ds.WithSnapshots(snaps)

	summary, err := ds.Summarize(context.Background(), "some tweet")
	require.NoError(t, err)
	assert.Equal(t, "a summary", summary)
	assert.Equal(t, DefaultModel, gotModel)

	exchange, _, err := store.LoadLatestJSON[store.SummaryExchange](snaps, store.StepSummary)
	require.NoError(t, err)
	assert.Equal(t, "a summary", exchange.Response)
	assert.Contains(t, exchange.Prompt, "some tweet")
}

func TestDeepSeekSummarizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer srv.Close()

	ds, err := NewDeepSeek("ds-key", srv.URL, "deepseek-chat")
	require.NoError(t, err)

	_, err = ds.Summarize(context.Background(), "text")
	assert.Error(t, err)
}

func TestNewDeepSeekRequiresKey(t *testing.T) {
	_, err := NewDeepSeek("", "", "")
	assert.Error(t, err)
}
