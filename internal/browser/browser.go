// Package browser owns the shared headless-browser instance every
// extractor renders pages through. One Chrome process serves all scans;
// each fetch opens a fresh tab, and the underlying process is recycled
// once a page cap is reached to bound memory growth.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultNavTimeout = 30 * time.Second

type Manager struct {
	headless   bool
	maxPages   int
	navTimeout time.Duration

	mu          sync.Mutex
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancelCtx   context.CancelFunc
	pagesOpened int
	activePages int
}

func New(headless bool, maxPages int) *Manager {
	return &Manager{
		headless:   headless,
		maxPages:   maxPages,
		navTimeout: defaultNavTimeout,
	}
}

// FetchHTML navigates a new tab to url and returns the rendered document.
// Tabs from concurrent callers share the browser process; the per-call
// timeout guarantees a wedged navigation cannot hang a scan.
func (m *Manager) FetchHTML(ctx context.Context, url string) (string, error) {
	parent, release, err := m.checkout()
	if err != nil {
		return "", err
	}
	defer release()

	tabCtx, cancelTab := chromedp.NewContext(parent)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, m.navTimeout)
	defer cancelTimeout()

	// Honor the caller's deadline too.
	go func() {
		select {
		case <-ctx.Done():
			cancelTab()
		case <-tabCtx.Done():
		}
	}()

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}
	return html, nil
}

// checkout hands back the live browser context, starting or recycling the
// process as needed, and a release func tracking active tabs.
func (m *Manager) checkout() (context.Context, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Recycle only between tabs; in-flight pages are never killed.
	if m.browserCtx != nil && m.pagesOpened >= m.maxPages && m.activePages == 0 {
		slog.Info("Recycling browser instance", "pagesOpened", m.pagesOpened)
		m.shutdownLocked()
	}

	if m.browserCtx == nil {
		if err := m.startLocked(); err != nil {
			return nil, nil, err
		}
	}

	m.pagesOpened++
	m.activePages++
	return m.browserCtx, func() {
		m.mu.Lock()
		m.activePages--
		m.mu.Unlock()
	}, nil
}

func (m *Manager) startLocked() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// Start the browser process eagerly so a broken Chrome install fails here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelCtx()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	m.allocCancel = allocCancel
	m.browserCtx = browserCtx
	m.cancelCtx = cancelCtx
	m.pagesOpened = 0
	return nil
}

// Reset force-recycles the browser process. The offer-sync pass calls it
// after a per-item timeout so one wedged page cannot poison later fetches.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browserCtx != nil {
		slog.Warn("Forcing browser reset", "pagesOpened", m.pagesOpened)
		m.shutdownLocked()
	}
}

func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownLocked()
}

func (m *Manager) shutdownLocked() {
	if m.cancelCtx != nil {
		m.cancelCtx()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.browserCtx = nil
	m.cancelCtx = nil
	m.allocCancel = nil
	m.pagesOpened = 0
	m.activePages = 0
}
