package youtube

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/eringen/commentcard/quota"
)

// Client fetches comments through the YouTube Data API v3, spending one unit
// of the daily quota per call.
type Client struct {
	svc     *yt.Service
	guard   *quota.Guard
	limiter *rate.Limiter
	timeout time.Duration
}

type clientConfig struct {
	endpoint string
	guard    *quota.Guard
	limiter  *rate.Limiter
	timeout  time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithEndpoint points the client at another API root, for tests.
func WithEndpoint(url string) ClientOption {
	return func(c *clientConfig) { c.endpoint = url }
}

// WithGuard sets the daily quota guard. Without one, calls are not counted.
func WithGuard(g *quota.Guard) ClientOption {
	return func(c *clientConfig) { c.guard = g }
}

// WithRateLimit paces upstream calls to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) ClientOption {
	return func(c *clientConfig) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithTimeout bounds each fetch. Zero disables the deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// NewClient builds a Client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("youtube: API key is not configured")
	}
	cfg := clientConfig{
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	svcOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if cfg.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(cfg.endpoint))
	}
	svc, err := yt.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		svc:     svc,
		guard:   cfg.guard,
		limiter: cfg.limiter,
		timeout: cfg.timeout,
	}, nil
}

// FetchComment looks up a single comment by id. Every error it returns is an
// *APIError carrying the status to report.
func (c *Client) FetchComment(ctx context.Context, id string) (*ListResponse, error) {
	if id == "" {
		return nil, &APIError{StatusCode: http.StatusBadRequest, Message: "Comment ID is required"}
	}

	if c.guard != nil {
		if err := c.guard.Take(ctx); err != nil {
			if errors.Is(err, quota.ErrExceeded) {
				quotaRejections.Inc()
				return nil, &APIError{StatusCode: http.StatusTooManyRequests, Message: MsgDailyLimit, Err: err}
			}
			return nil, mapError(err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, mapError(err)
	}

	start := time.Now()
	resp, err := c.svc.Comments.List([]string{"snippet"}).Id(id).Context(ctx).Do()
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		apiErr := mapError(err)
		fetchCount.WithLabelValues(strconv.Itoa(apiErr.StatusCode)).Inc()
		log.Warn().Err(err).Str("comment_id", id).Int("status", apiErr.StatusCode).Msg("youtube fetch failed")
		return nil, apiErr
	}
	fetchCount.WithLabelValues(strconv.Itoa(resp.HTTPStatusCode)).Inc()
	return convertList(resp), nil
}

func convertList(resp *yt.CommentListResponse) *ListResponse {
	out := &ListResponse{
		Kind:  resp.Kind,
		Etag:  resp.Etag,
		Items: make([]Comment, 0, len(resp.Items)),
	}
	if resp.PageInfo != nil {
		out.PageInfo = &PageInfo{
			TotalResults:   resp.PageInfo.TotalResults,
			ResultsPerPage: resp.PageInfo.ResultsPerPage,
		}
	}
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		c := Comment{Kind: item.Kind, Etag: item.Etag, ID: item.Id}
		if s := item.Snippet; s != nil {
			c.Snippet = Snippet{
				AuthorDisplayName:     s.AuthorDisplayName,
				AuthorProfileImageURL: s.AuthorProfileImageUrl,
				AuthorChannelURL:      s.AuthorChannelUrl,
				TextDisplay:           s.TextDisplay,
				TextOriginal:          s.TextOriginal,
				PublishedAt:           s.PublishedAt,
				UpdatedAt:             s.UpdatedAt,
				LikeCount:             s.LikeCount,
			}
		}
		out.Items = append(out.Items, c)
	}
	return out
}
