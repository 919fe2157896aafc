// internal/browser/renderer.go

// Package browser renders pages in headless Chrome so single-page sites can
// be evaluated after their scripts have run.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/valpere/crosslink/internal/config"
	"github.com/valpere/crosslink/internal/utils"
)

// SnapshotRecorder observes snapshot outcomes.
type SnapshotRecorder interface {
	RecordSnapshot(success bool, duration time.Duration)
}

// Renderer takes DOM snapshots of rendered pages. Every snapshot runs in a
// fresh browser tab of one shared browser process.
type Renderer struct {
	cfg         config.BrowserConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	recorder    SnapshotRecorder
	logger      utils.Logger
}

// NewRenderer starts the browser allocator. The browser process itself is
// launched lazily on the first snapshot.
func NewRenderer(cfg config.BrowserConfig, recorder SnapshotRecorder) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)

	return &Renderer{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: cancel,
		recorder:    recorder,
		logger:      utils.NewComponentLogger("browser"),
	}
}

func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	}

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// snapshotActions navigates to url, waits for the page and captures the
// final location and the outer HTML.
func (r *Renderer) snapshotActions(url string, finalURL, html *string) []chromedp.Action {
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if r.cfg.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(r.cfg.WaitSelector, chromedp.ByQuery))
	}
	return append(actions,
		chromedp.Location(finalURL),
		chromedp.OuterHTML("html", html, chromedp.ByQuery),
	)
}

// Snapshot loads url and returns the URL the browser ended on together with
// the rendered HTML.
func (r *Renderer) Snapshot(ctx context.Context, url string) (finalURL, html string, err error) {
	start := time.Now()
	defer func() {
		if r.recorder != nil {
			r.recorder.RecordSnapshot(err == nil, time.Since(start))
		}
	}()

	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()

	timeoutCtx, cancel := context.WithTimeout(tabCtx, r.cfg.Timeout)
	defer cancel()

	// Stop the tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err = chromedp.Run(timeoutCtx, r.snapshotActions(url, &finalURL, &html)...); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", url, err)
	}

	r.logger.Debugf("rendered %s (%d bytes) in %s", finalURL, len(html), time.Since(start))
	return finalURL, html, nil
}

// Close shuts down the browser.
func (r *Renderer) Close() error {
	r.allocCancel()
	return nil
}
