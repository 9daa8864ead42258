package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const headlessUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeFetcher loads pages in headless Chrome. A browser is started per
// call; it only serves the occasional blocked request.
type ChromeFetcher struct {
	Timeout   time.Duration
	Settle    time.Duration
	UserAgent string
}

func NewChromeFetcher(timeout time.Duration) *ChromeFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeFetcher{Timeout: timeout, Settle: 500 * time.Millisecond, UserAgent: headlessUserAgent}
}

func (c *ChromeFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("nil headless fetcher")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(1280, 720),
			chromedp.UserAgent(c.UserAgent),
		)...,
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	reqCtx, reqCancel := context.WithTimeout(browserCtx, c.Timeout)
	defer reqCancel()

	var html string
	err := chromedp.Run(reqCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("headless fetch %s: %w", url, err)
	}
	return html, nil
}
