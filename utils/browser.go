package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"pricewatch/internal/document"
	"pricewatch/internal/types"
)

// RenderCookie is set in the browser before navigation
type RenderCookie struct {
	Name   string
	Value  string
	Domain string
}

// RenderOptions carries per-site hints for a single render
type RenderOptions struct {
	// Settle is how long to wait after navigation for scripts to populate the page
	Settle           time.Duration
	WaitFor          string
	ConsentSelectors []string
	Cookies          []RenderCookie
}

// Renderer turns a URL into a queryable document
type Renderer interface {
	Render(ctx context.Context, url string, opts RenderOptions) (document.Document, error)
}

const (
	defaultSettle  = 3 * time.Second
	waitForTimeout = 10 * time.Second
	consentPause   = time.Second
)

// BrowserClient renders pages in headless Chrome. Every call gets its own
// browser session which is torn down before Render returns.
type BrowserClient struct {
	config    *types.Config
	logger    types.Logger
	semaphore chan struct{}
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	sessions := config.MaxConcurrentRequests
	if sessions <= 0 {
		sessions = 1
	}
	return &BrowserClient{
		config:    config,
		logger:    logger,
		semaphore: make(chan struct{}, sessions),
	}
}

// Render navigates to url, applies the site hints and returns the final DOM
func (b *BrowserClient) Render(ctx context.Context, url string, opts RenderOptions) (document.Document, error) {
	select {
	case b.semaphore <- struct{}{}:
		defer func() { <-b.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	session := uuid.NewString()
	start := time.Now()
	b.logger.Debugf("[%s] rendering %s", session, url)

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(b.logger.Debugf))
	defer browserCancel()

	var html, finalURL string
	if err := chromedp.Run(browserCtx, b.actions(session, url, opts, &html, &finalURL)...); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrRenderFailed, url, err)
	}

	if b.config.MaxBodyBytes > 0 && int64(len(html)) > b.config.MaxBodyBytes {
		html = html[:b.config.MaxBodyBytes]
	}
	if finalURL == "" {
		finalURL = url
	}

	b.logger.Debugf("[%s] rendered %s in %v (%d bytes)", session, finalURL, time.Since(start), len(html))
	return document.FromHTML(html, finalURL)
}

func (b *BrowserClient) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
	}
	if ua := strings.TrimSpace(b.config.UserAgent); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	return opts
}

func (b *BrowserClient) actions(session, url string, opts RenderOptions, html, finalURL *string) []chromedp.Action {
	settle := opts.Settle
	if settle <= 0 {
		settle = defaultSettle
	}

	actions := []chromedp.Action{network.Enable()}
	for _, c := range opts.Cookies {
		cookie := c
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookie(cookie.Name, cookie.Value).WithDomain(cookie.Domain).WithPath("/").Do(ctx)
		}))
	}

	actions = append(actions,
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(url),
		chromedp.Sleep(settle),
	)
	if len(opts.ConsentSelectors) > 0 {
		actions = append(actions, b.acceptConsent(session, opts.ConsentSelectors))
	}
	if opts.WaitFor != "" {
		actions = append(actions, b.waitFor(session, opts.WaitFor))
	}

	return append(actions,
		chromedp.OuterHTML("html", html, chromedp.ByQuery),
		chromedp.Location(finalURL),
	)
}

// acceptConsent clicks the first consent button found. Missing buttons are not an error.
func (b *BrowserClient) acceptConsent(session string, selectors []string) chromedp.Action {
	encoded, _ := json.Marshal(selectors)
	script := fmt.Sprintf(`(() => {
  for (const s of %s) {
    try {
      const el = document.querySelector(s);
      if (el) { el.click(); return s; }
    } catch (e) {}
  }
  return "";
})()`, encoded)

	return chromedp.ActionFunc(func(ctx context.Context) error {
		var clicked string
		if err := chromedp.Evaluate(script, &clicked).Do(ctx); err != nil {
			b.logger.Debugf("[%s] consent handling failed: %v", session, err)
			return nil
		}
		if clicked == "" {
			return nil
		}
		b.logger.Debugf("[%s] clicked consent button %s", session, clicked)
		return chromedp.Sleep(consentPause).Do(ctx)
	})
}

// waitFor waits a bounded time for selector; a page that never shows it is still captured
func (b *BrowserClient) waitFor(session, selector string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, waitForTimeout)
		defer cancel()
		if err := chromedp.WaitReady(selector, chromedp.ByQuery).Do(waitCtx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Debugf("[%s] %s did not appear: %v", session, selector, err)
		}
		return nil
	})
}
