package auth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/ibeckermayer/x2notion/internal/config"
)

// Cookie names X uses for a logged-in session
const (
	AuthCookie = "auth_token"
	CSRFCookie = "ct0"
)

// ErrNotLoggedIn is returned when no usable session is stored
var ErrNotLoggedIn = errors.New("not logged in to X; run `x2notion login`")

// CookieStore handles storage of X.com session cookies
type CookieStore struct {
	path string
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	dir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cookies.json"), nil
}

// Path returns where cookies are stored
func (cs *CookieStore) Path() string {
	return cs.path
}

// Save persists cookies to disk with the earliest auth cookie expiry
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(cs.path), 0700); err != nil {
		return err
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry(cookies),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk. A missing file is ErrNotLoggedIn.
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// IsValid checks if stored cookies are present and unexpired
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}
	return stored.valid(time.Now())
}

func (s *StoredCookies) valid(now time.Time) bool {
	if !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt) {
		return false
	}
	var hasAuth, hasCSRF bool
	for _, c := range s.Cookies {
		switch c.Name {
		case AuthCookie:
			hasAuth = c.Value != ""
		case CSRFCookie:
			hasCSRF = c.Value != ""
		}
	}
	return hasAuth && hasCSRF
}

// Clear removes stored cookies. Clearing an empty store is not an error.
func (cs *CookieStore) Clear() error {
	if err := os.Remove(cs.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// XCookies returns only the x.com and twitter.com cookies
func (cs *CookieStore) XCookies() ([]*network.Cookie, error) {
	stored, err := cs.Load()
	if err != nil {
		return nil, err
	}
	if !stored.valid(time.Now()) {
		return nil, ErrNotLoggedIn
	}

	var out []*network.Cookie
	for _, c := range stored.Cookies {
		if isXDomain(c.Domain) {
			out = append(out, c)
		}
	}
	return out, nil
}

func isXDomain(domain string) bool {
	d := strings.TrimPrefix(domain, ".")
	return d == "x.com" || d == "twitter.com"
}

// earliestExpiry is the first expiry among the session cookies.
// Session-only cookies (no expiry) are ignored.
func earliestExpiry(cookies []*network.Cookie) time.Time {
	var earliest time.Time
	for _, c := range cookies {
		if c.Name != AuthCookie && c.Name != CSRFCookie {
			continue
		}
		if c.Expires <= 0 {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0)
		if earliest.IsZero() || exp.Before(earliest) {
			earliest = exp
		}
	}
	return earliest
}
