package watch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testDelay = 30 * time.Millisecond

func TestResetScansImmediately(t *testing.T) {
	m := New(testDelay)
	var scans atomic.Int32

	m.Reset("https://x.com/home", func() { scans.Add(1) })

	assert.Equal(t, int32(1), scans.Load())
	assert.Equal(t, "https://x.com/home", m.URL())
}

func TestNotifyDebouncesBurst(t *testing.T) {
	m := New(testDelay)
	var scans atomic.Int32
	m.Reset("https://x.com/home", func() { scans.Add(1) })

	for i := 0; i < 20; i++ {
		m.Notify()
	}

	assert.Eventually(t, func() bool { return scans.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, int32(2), scans.Load())
}

func TestResetReplacesWatcher(t *testing.T) {
	m := New(testDelay)
	var first, second atomic.Int32

	m.Reset("https://x.com/a/status/1", func() { first.Add(1) })
	m.Notify()
	m.Reset("https://x.com/b/status/2", func() { second.Add(1) })
	m.Notify()

	time.Sleep(4 * testDelay)
	assert.Equal(t, int32(1), first.Load(), "old watcher must not fire after reset")
	assert.Equal(t, int32(2), second.Load())
	assert.Equal(t, "https://x.com/b/status/2", m.URL())
}

func TestStopDiscardsPending(t *testing.T) {
	m := New(testDelay)
	var scans atomic.Int32
	m.Reset("https://x.com/home", func() { scans.Add(1) })

	m.Notify()
	m.Stop()
	m.Notify()

	time.Sleep(4 * testDelay)
	assert.Equal(t, int32(1), scans.Load())
	assert.Empty(t, m.URL())
}
