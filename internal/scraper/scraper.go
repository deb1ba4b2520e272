// Package scraper captures X.com pages from a real browser as static DOM snapshots.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ibeckermayer/x2notion/internal/browser"
	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/rs/zerolog/log"
)

// Defaults for a single capture
const (
	DefaultTimeout = 60 * time.Second
	DefaultSettle  = 1500 * time.Millisecond
)

// CookieSource provides the stored X session
type CookieSource interface {
	Cookies() ([]*network.Cookie, error)
}

// Options configures captures
type Options struct {
	Headless bool

	// Timeout bounds one capture including browser start-up
	Timeout time.Duration

	// Settle is how long to let replies render after the first tweet appears
	Settle time.Duration
}

// Scraper handles capturing pages from X.com
type Scraper struct {
	opts    Options
	cookies CookieSource
}

// New creates a new scraper. A nil cookie source captures logged out.
func New(cookies CookieSource, opts Options) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	return &Scraper{opts: opts, cookies: cookies}
}

// Snapshot opens pageURL, waits for the tweets to render, stamps computed
// styles onto the DOM and returns the primary column as a parsed page.
func (s *Scraper) Snapshot(ctx context.Context, pageURL string) (*dom.Page, error) {
	cookies, err := s.sessionCookies()
	if err != nil {
		return nil, err
	}

	browserCtx, cancel := browser.Launch(ctx, browser.Settings{Headless: s.opts.Headless})
	defer cancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, s.opts.Timeout)
	defer timeoutCancel()

	if err := injectCookies(browserCtx, cookies); err != nil {
		return nil, fmt.Errorf("failed to inject cookies: %w", err)
	}

	start := time.Now()
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(dom.WaitForTweets, chromedp.ByQuery),
		chromedp.Sleep(s.opts.Settle),
	); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("no tweet rendered at %s: %w", pageURL, err)
		}
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	var markup string
	if err := chromedp.Run(browserCtx, chromedp.Evaluate(captureScript(""), &markup)); err != nil {
		return nil, fmt.Errorf("failed to capture DOM: %w", err)
	}

	page, err := dom.ParseString(pageURL, markup)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("component", "scraper").Str("url", pageURL).Int("bytes", len(markup)).
		Dur("took", time.Since(start)).Msg("captured page")
	return page, nil
}

func (s *Scraper) sessionCookies() ([]*network.Cookie, error) {
	if s.cookies == nil {
		return nil, nil
	}
	cookies, err := s.cookies.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to load X session: %w", err)
	}
	return cookies, nil
}

// injectCookies sets cookies in the browser context
func injectCookies(ctx context.Context, cookies []*network.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)
				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

// captureScript stamps font weights and reply connector markers onto the
// primary column and returns its outer HTML. A non-empty cellAttr also numbers
// every timeline cell so the live page can be addressed after parsing.
func captureScript(cellAttr string) string {
	return fmt.Sprintf(`
		(function() {
			const root = document.querySelector(%[1]q) || document.body;

			root.querySelectorAll(%[2]q).forEach(text => {
				[text, ...text.querySelectorAll('*')].forEach(el => {
					el.setAttribute(%[3]q, getComputedStyle(el).fontWeight);
				});
			});

			// The thread line is a thin coloured bar in the avatar column.
			const isLine = d => {
				const r = d.getBoundingClientRect();
				if (r.width <= 0 || r.width > 2 || r.height < 8) return false;
				const bg = getComputedStyle(d).backgroundColor;
				return bg && bg !== 'transparent' && bg !== 'rgba(0, 0, 0, 0)';
			};

			const cellAttr = %[6]q;
			root.querySelectorAll(%[4]q).forEach((cell, i) => {
				const article = cell.querySelector(%[5]q);
				let joined = false;
				if (article) {
					joined = Array.from(article.querySelectorAll('div')).some(d =>
						d.closest(%[5]q) === article && !d.closest(%[7]q) && isLine(d));
				}
				cell.setAttribute(%[8]q, joined ? 'true' : 'false');
				if (cellAttr) cell.setAttribute(cellAttr, String(i));
			});

			return root.outerHTML;
		})()
	`,
		dom.FeedContainer,
		dom.TweetText,
		dom.WeightAttr,
		dom.TimelineCell,
		dom.TweetArticle,
		cellAttr,
		dom.QuotedTweet,
		dom.ConnectorAttr,
	)
}
