// Package browser provides shared chromedp configuration with anti-bot-detection measures.
package browser

import (
	"context"

	"github.com/chromedp/chromedp"
)

// DefaultUserAgent is a realistic Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Window size used for every capture. X lays out the primary column differently below ~1000px.
const (
	WindowWidth  = 1920
	WindowHeight = 1080
)

// Settings describes one browser launch
type Settings struct {
	Headless  bool
	UserAgent string

	// ProfileDir keeps a persistent Chrome profile when set
	ProfileDir string
}

// Options returns chromedp allocator options with anti-bot-detection measures.
// All browser instances should use this to ensure consistent stealth configuration.
func Options(s Settings) []chromedp.ExecAllocatorOption {
	ua := s.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.Headless),

		// X.com checks navigator.webdriver
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.UserAgent(ua),
		chromedp.WindowSize(WindowWidth, WindowHeight),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if s.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if s.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(s.ProfileDir))
	}

	return opts
}

// Launch starts a browser and returns a tab context. Cancel releases both the tab and the process.
func Launch(ctx context.Context, s Settings) (context.Context, context.CancelFunc) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(s)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	return tabCtx, func() {
		tabCancel()
		allocCancel()
	}
}
