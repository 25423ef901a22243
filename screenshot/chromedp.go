package screenshot

import (
	"context"
	"errors"

	"github.com/chromedp/chromedp"
)

// pngQuality makes chromedp.FullScreenshot encode PNG; anything lower is JPEG
const pngQuality = 100

// ChromeDriver captures PNG screenshots from a chromedp browser tab
type ChromeDriver struct {
	tab      context.Context
	fullPage bool
}

// NewChromeDriver wraps a context created by chromedp.NewContext
func NewChromeDriver(tab context.Context) *ChromeDriver {
	return &ChromeDriver{tab: tab}
}

// WithFullPage captures the whole page instead of the viewport
func (d *ChromeDriver) WithFullPage() *ChromeDriver {
	d.fullPage = true
	return d
}

// CaptureScreenshot implements Driver. The capture is aborted when ctx is done.
func (d *ChromeDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	if d.tab == nil || chromedp.FromContext(d.tab) == nil {
		return nil, errors.New("chromedp tab context is required")
	}

	runCtx, cancel := context.WithCancel(d.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if d.fullPage {
		action = chromedp.FullScreenshot(&buf, pngQuality)
	}
	if err := chromedp.Run(runCtx, action); err != nil {
		return nil, err
	}
	return buf, nil
}
