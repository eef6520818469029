package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/eringen/commentcard/card"
	"github.com/eringen/commentcard/views"
	"github.com/eringen/commentcard/youtube"
)

// ErrBusy is returned when no browser slot frees up before the request's
// context ends.
var ErrBusy = errors.New("no browser available")

// BrowserOptions configures a Browser.
type BrowserOptions struct {
	// ExecPath is the Chrome executable; empty lets chromedp look it up.
	ExecPath string
	// Concurrency caps simultaneous browser processes (default 2).
	Concurrency int64
	// Timeout bounds one render including browser start-up (default 30s).
	Timeout time.Duration
}

// Browser screenshots an HTML rendition of the card in headless Chrome. Each
// render starts its own browser process and tears it down before returning.
type Browser struct {
	opts BrowserOptions
	sem  *semaphore.Weighted
}

// NewBrowser returns a browser backend.
func NewBrowser(opts BrowserOptions) *Browser {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Browser{opts: opts, sem: semaphore.NewWeighted(opts.Concurrency)}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Render(ctx context.Context, l card.Layout, text string, c youtube.Comment) ([]byte, error) {
	start := time.Now()
	png, err := b.render(ctx, l, text, c)
	observe(b.Name(), start, err)
	if err != nil {
		return nil, fail(b.Name(), err)
	}
	return png, nil
}

func (b *Browser) render(ctx context.Context, l card.Layout, text string, c youtube.Comment) ([]byte, error) {
	if l.Width <= 0 || l.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", card.ErrInvalidSize, l.Width, l.Height)
	}

	var doc strings.Builder
	data := cardData(l, text, c)
	if err := views.CardDocument(data).Render(ctx, &doc); err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	defer b.sem.Release(1)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if b.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ExecPath))
	}

	// Cancelling the browser context kills the Chrome process, so the
	// deferred cancels release it on every return path.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	vw := int64(math.Ceil(data.Width)) + 100
	vh := int64(math.Max(1200, math.Max(data.Width*1.5, data.Height+100)))

	var buf []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(vw, vh, chromedp.EmulateScale(l.Scale)),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc.String()).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{A: 0}).Do(ctx)
		}),
		chromedp.Screenshot(".card", &buf, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, errors.New("empty screenshot")
	}
	return buf, nil
}
