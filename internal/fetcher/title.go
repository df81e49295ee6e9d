package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// TitleResolver reads the page title of a video with headless Chrome so the
// summary can be named after the video.
type TitleResolver struct {
	timeout time.Duration
}

// NewTitleResolver creates a resolver. A zero timeout means 30 seconds.
func NewTitleResolver(timeout time.Duration) *TitleResolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TitleResolver{timeout: timeout}
}

// Resolve returns the cleaned title of the page at url.
func (r *TitleResolver) Resolve(ctx context.Context, url string) (string, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var title string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Title(&title),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}

	return CleanTitle(title), nil
}

// CleanTitle strips the site suffix and notification counter from a page title.
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.TrimSuffix(title, " - YouTube Music")
	title = strings.TrimSuffix(title, " - YouTube")

	if strings.HasPrefix(title, "(") {
		if end := strings.Index(title, ") "); end > 0 {
			title = title[end+2:]
		}
	}

	return strings.TrimSpace(title)
}
