package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ibeckermayer/x2notion/internal/browser"
	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/ibeckermayer/x2notion/internal/thread"
	"github.com/ibeckermayer/x2notion/internal/watch"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// CellAttr numbers timeline cells during a live scan
const CellAttr = "data-x2n-cell"

const (
	mutationBinding = "x2nMutation"
	scanTimeout     = 10 * time.Second
)

var observerScript = fmt.Sprintf(`
	(function() {
		if (window.__x2nObserver) return;
		const notify = () => { try { window[%[1]q](''); } catch (e) {} };
		window.__x2nObserver = new MutationObserver(muts => {
			if (muts.some(m => m.addedNodes.length > 0)) notify();
		});
		const start = () => window.__x2nObserver.observe(document.body, {childList: true, subtree: true});
		if (document.body) start(); else document.addEventListener('DOMContentLoaded', start);
	})()
`, mutationBinding)

// HideFunc is called after a scan hid n ad cells on url
type HideFunc func(url string, n int)

// Session is a live browser tab whose timeline is kept free of ads.
// Every main-frame navigation replaces the watcher.
type Session struct {
	tab     context.Context
	watcher *watch.Manager
	onHide  HideFunc

	mainFrame cdp.FrameID
	hidden    atomic.Int64
}

// Watch opens startURL in a browser tab and hides ad cells until ctx is done.
// It returns the number of cells hidden.
func (s *Scraper) Watch(ctx context.Context, startURL string, onHide HideFunc) (int64, error) {
	cookies, err := s.sessionCookies()
	if err != nil {
		return 0, err
	}

	tabCtx, cancel := browser.Launch(ctx, browser.Settings{Headless: s.opts.Headless})
	defer cancel()

	sess := &Session{
		tab:     tabCtx,
		watcher: watch.New(watch.DefaultDelay),
		onHide:  onHide,
	}
	defer sess.watcher.Stop()

	if err := injectCookies(tabCtx, cookies); err != nil {
		return 0, fmt.Errorf("failed to inject cookies: %w", err)
	}

	chromedp.ListenTarget(tabCtx, sess.handleEvent)

	if err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := runtime.AddBinding(mutationBinding).Do(ctx); err != nil {
				return err
			}
			_, err := page.AddScriptToEvaluateOnNewDocument(observerScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(startURL),
	); err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", startURL, err)
	}

	log.Info().Str("component", "session").Str("url", startURL).Msg("watching page")
	<-ctx.Done()

	if errors.Is(ctx.Err(), context.Canceled) {
		return sess.hidden.Load(), nil
	}
	return sess.hidden.Load(), ctx.Err()
}

// handleEvent runs on the target's event goroutine and must not block
func (sess *Session) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventBindingCalled:
		if e.Name == mutationBinding {
			sess.watcher.Notify()
		}
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		sess.mainFrame = e.Frame.ID
		go sess.reset(e.Frame.URL)
	case *page.EventNavigatedWithinDocument:
		if e.FrameID == sess.mainFrame {
			go sess.reset(e.URL)
		}
	}
}

func (sess *Session) reset(url string) {
	sess.watcher.Reset(url, func() { sess.scan(url) })
}

func (sess *Session) scan(url string) {
	ctx, cancel := context.WithTimeout(sess.tab, scanTimeout)
	defer cancel()

	var markup string
	if err := chromedp.Run(ctx, chromedp.Evaluate(captureScript(CellAttr), &markup)); err != nil {
		log.Debug().Err(err).Str("component", "session").Msg("scan failed")
		return
	}
	p, err := dom.ParseString(url, markup)
	if err != nil {
		log.Debug().Err(err).Str("component", "session").Msg("scan parse failed")
		return
	}

	ads := adCells(p.Root)
	if len(ads) == 0 {
		return
	}
	if err := chromedp.Run(ctx, chromedp.Evaluate(hideScript(ads), nil)); err != nil {
		log.Warn().Err(err).Str("component", "session").Msg("failed to hide ads")
		return
	}

	sess.hidden.Add(int64(len(ads)))
	log.Debug().Str("component", "session").Str("url", url).Int("ads", len(ads)).Msg("hid ad cells")
	if sess.onHide != nil {
		sess.onHide(url, len(ads))
	}
}

// adCells returns the numbers of visible timeline cells classified as ads
func adCells(root *html.Node) []string {
	var out []string
	for _, cell := range dom.Select(dom.TimelineCell).MatchAll(root) {
		if !dom.HasAttr(cell, CellAttr) || isHidden(cell) {
			continue
		}
		if thread.IsAd(cell) {
			out = append(out, dom.Attr(cell, CellAttr))
		}
	}
	return out
}

func isHidden(n *html.Node) bool {
	return dom.Matches(n, `[style*="display: none"]`)
}

func hideScript(cells []string) string {
	ids, _ := json.Marshal(cells)
	return fmt.Sprintf(`
		%s.forEach(i => {
			const cell = document.querySelector('[%s="' + i + '"]');
			if (cell) cell.style.display = 'none';
		});
	`, ids, CellAttr)
}
