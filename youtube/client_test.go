package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/commentcard/quota"
)

const listBody = `{
  "kind": "youtube#commentListResponse",
  "etag": "e1",
  "pageInfo": {"totalResults": 1, "resultsPerPage": 1},
  "items": [{
    "kind": "youtube#comment",
    "etag": "e2",
    "id": "UgxABC",
    "snippet": {
      "authorDisplayName": "@ada",
      "authorProfileImageUrl": "https://yt3.example/ada.jpg",
      "textDisplay": "Hello<br>World",
      "textOriginal": "Hello\nWorld",
      "publishedAt": "2024-02-03T10:00:00Z",
      "likeCount": 1234
    }
  }]
}`

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(context.Background(), "test-key", append([]ClientOption{WithEndpoint(srv.URL + "/")}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestFetchComment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/comments", r.URL.Path)
		assert.Equal(t, "UgxABC", r.URL.Query().Get("id"))
		assert.Equal(t, "snippet", r.URL.Query().Get("part"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(listBody))
	})

	resp, err := c.FetchComment(context.Background(), "UgxABC")
	require.NoError(t, err)
	first, ok := resp.First()
	require.True(t, ok)
	assert.Equal(t, "UgxABC", first.ID)
	assert.Equal(t, "@ada", first.Snippet.AuthorDisplayName)
	assert.Equal(t, int64(1234), first.Snippet.LikeCount)
	assert.Equal(t, "Hello<br>World", first.Snippet.TextDisplay)
	ts, ok := first.Snippet.Published()
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())
	require.NotNil(t, resp.PageInfo)
	assert.Equal(t, int64(1), resp.PageInfo.TotalResults)
}

func TestFetchCommentMapsUpstreamErrors(t *testing.T) {
	cases := map[int]string{
		http.StatusForbidden:       MsgQuota,
		http.StatusNotFound:        MsgNotFound,
		http.StatusBadRequest:      MsgInvalidID,
		http.StatusUnauthorized:    MsgAuth,
		http.StatusTooManyRequests: MsgTooMany,
	}
	for code, msg := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			fmt.Fprintf(w, `{"error":{"code":%d,"message":"upstream says no"}}`, code)
		})
		_, err := c.FetchComment(context.Background(), "x")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), "status %d", code)
		assert.Equal(t, code, apiErr.StatusCode)
		assert.Equal(t, msg, apiErr.Message)
	}
}

func TestFetchCommentUnknownStatusKeepsUpstreamMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":503,"message":"backend unavailable"}}`))
	})
	_, err := c.FetchComment(context.Background(), "x")
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, "backend unavailable", err.Error())
}

func TestFetchCommentDailyQuota(t *testing.T) {
	var calls atomic.Int32
	guard := quota.NewGuard(quota.NewMemoryCounter(), 2)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(listBody))
	}, WithGuard(guard))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.FetchComment(ctx, "UgxABC")
		require.NoError(t, err)
	}
	_, err := c.FetchComment(ctx, "UgxABC")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, MsgDailyLimit, apiErr.Message)
	assert.ErrorIs(t, err, quota.ErrExceeded)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchCommentTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(50*time.Millisecond))

	_, err := c.FetchComment(context.Background(), "x")
	assert.Equal(t, http.StatusGatewayTimeout, StatusCode(err))
}

func TestFetchCommentRequiresID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	})
	_, err := c.FetchComment(context.Background(), "")
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.Error(t, err)
}
