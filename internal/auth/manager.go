package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/ibeckermayer/x2notion/internal/browser"
	"github.com/rs/zerolog/log"
)

// LoginTimeout is how long the user has to finish logging in
const LoginTimeout = 5 * time.Minute

var homeURLs = map[string]bool{
	"https://x.com/home":       true,
	"https://twitter.com/home": true,
}

// Manager handles X.com authentication
type Manager struct {
	cookieStore *CookieStore
	poll        time.Duration
}

// NewManager creates a new auth manager
func NewManager(cookieStore *CookieStore) *Manager {
	return &Manager{cookieStore: cookieStore, poll: 2 * time.Second}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated() bool {
	return m.cookieStore.IsValid()
}

// Login opens a visible browser window for the user to log in to X.com
// and stores the session cookies once the home timeline is reached.
func (m *Manager) Login(ctx context.Context) error {
	browserCtx, cancel := browser.Launch(ctx, browser.Settings{Headless: false})
	defer cancel()

	log.Info().Str("component", "auth").Msg("waiting for login in browser window")
	if err := chromedp.Run(browserCtx, chromedp.Navigate("https://x.com/login")); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}

	cookies, err := m.waitForLogin(browserCtx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := m.cookieStore.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	log.Info().Str("component", "auth").Int("cookies", len(cookies)).Str("path", m.cookieStore.Path()).Msg("login saved")
	return nil
}

// waitForLogin polls until the tab is on the home page with an auth cookie
func (m *Manager) waitForLogin(ctx context.Context) ([]*network.Cookie, error) {
	timeout := time.After(LoginTimeout)
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return nil, errors.New("login timeout exceeded")
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var url string
			if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
				continue
			}
			if !homeURLs[url] {
				continue
			}
			cookies, err := extractCookies(ctx)
			if err != nil {
				continue
			}
			if hasAuthCookie(cookies) {
				return cookies, nil
			}
		}
	}
}

func hasAuthCookie(cookies []*network.Cookie) bool {
	for _, c := range cookies {
		if c.Name == AuthCookie && c.Value != "" {
			return true
		}
	}
	return false
}

// extractCookies gets all cookies from the browser
func extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)
	return cookies, err
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	if err := m.cookieStore.Clear(); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	log.Info().Str("component", "auth").Msg("logged out")
	return nil
}

// Cookies returns the stored X cookies for use in capture
func (m *Manager) Cookies() ([]*network.Cookie, error) {
	return m.cookieStore.XCookies()
}
