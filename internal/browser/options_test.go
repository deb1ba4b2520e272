package browser

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
)

func TestOptionsExtendDefaults(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)

	headful := Options(Settings{})
	headless := Options(Settings{Headless: true})
	profile := Options(Settings{Headless: true, ProfileDir: t.TempDir()})

	assert.Greater(t, len(headful), base)
	assert.Len(t, headless, len(headful)+1, "headless adds disable-gpu")
	assert.Len(t, profile, len(headless)+1, "profile dir adds user-data-dir")
}

func TestOptionsDoNotMutateDefaults(t *testing.T) {
	before := len(chromedp.DefaultExecAllocatorOptions)
	_ = Options(Settings{Headless: true})
	assert.Equal(t, before, len(chromedp.DefaultExecAllocatorOptions))
}
