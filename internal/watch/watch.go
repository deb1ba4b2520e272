// Package watch keeps a single debounced page watcher alive across URL changes.
package watch

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/rs/zerolog/log"
)

// DefaultDelay is how long a mutation burst must be quiet before a scan runs
const DefaultDelay = 300 * time.Millisecond

// ScanFunc re-scans the current page
type ScanFunc func()

// Manager owns at most one active watcher. Reset replaces it on navigation.
type Manager struct {
	delay time.Duration

	mu     sync.Mutex
	active *watcher
	gen    uint64
}

type watcher struct {
	url      string
	gen      uint64
	scan     ScanFunc
	debounce func(func())
	stopped  bool
}

// New creates a manager using the given debounce delay. A zero delay selects DefaultDelay.
func New(delay time.Duration) *Manager {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Manager{delay: delay}
}

// Reset tears down the current watcher and starts one for url.
// The scan runs once immediately for the new page.
func (m *Manager) Reset(url string, scan ScanFunc) {
	m.mu.Lock()
	m.stopLocked()
	m.gen++
	w := &watcher{
		url:      url,
		gen:      m.gen,
		scan:     scan,
		debounce: debounce.New(m.delay),
	}
	m.active = w
	m.mu.Unlock()

	log.Debug().Str("component", "watch").Str("url", url).Uint64("generation", w.gen).Msg("watcher reset")
	m.fire(w)
}

// Notify records a DOM mutation. Bursts collapse into one scan after the delay.
func (m *Manager) Notify() {
	m.mu.Lock()
	w := m.active
	m.mu.Unlock()
	if w == nil {
		return
	}
	w.debounce(func() { m.fire(w) })
}

// URL returns the URL of the active watcher, or "" when stopped
func (m *Manager) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.url
}

// Stop tears down the active watcher. Pending scans are discarded.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.active == nil {
		return
	}
	m.active.stopped = true
	// Replacing the pending call cancels it.
	m.active.debounce(func() {})
	m.active = nil
}

func (m *Manager) fire(w *watcher) {
	m.mu.Lock()
	live := !w.stopped && m.active == w
	m.mu.Unlock()
	if !live || w.scan == nil {
		return
	}
	w.scan()
}
