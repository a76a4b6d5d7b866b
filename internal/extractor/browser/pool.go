// Package browser provides headless browser automation for scraping
// JS-rendered retailer pages.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrPoolClosed is returned by Acquire once Close has run
var ErrPoolClosed = errors.New("browser pool is closed")

// Pool manages browser pages for concurrent extraction
type Pool struct {
	browser  *rod.Browser
	pagePool chan *rod.Page
	maxPages int
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// PoolConfig holds configuration for the browser pool
type PoolConfig struct {
	MaxPages    int           // Maximum concurrent pages (default: 3)
	PageTimeout time.Duration // Timeout for page operations (default: 60s)
	Headless    bool          // Run in headless mode (default: true)
	UserDataDir string        // Browser user data directory (optional)
}

// DefaultPoolConfig returns the default pool configuration
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxPages:    3,
		PageTimeout: 60 * time.Second, // JS-heavy product pages render slowly
		Headless:    true,
	}
}

// NewPool creates a browser pool with the given configuration
func NewPool(cfg PoolConfig, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-setuid-sandbox")

	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	pool := &Pool{
		browser:  browser,
		pagePool: make(chan *rod.Page, cfg.MaxPages),
		maxPages: cfg.MaxPages,
		logger:   logger,
	}

	// Pre-warm pool with pages
	for i := 0; i < cfg.MaxPages; i++ {
		page, err := pool.createPage(cfg.PageTimeout)
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("creating page %d: %w", i, err)
		}
		pool.pagePool <- page
	}

	logger.Info("Browser pool initialized",
		slog.Int("max_pages", cfg.MaxPages),
		slog.Bool("headless", cfg.Headless),
	)

	return pool, nil
}

// createPage creates a new browser page with default settings
func (p *Pool) createPage(timeout time.Duration) (*rod.Page, error) {
	page, err := p.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}

	page = page.Timeout(timeout)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1920,
		Height: 1080,
	}); err != nil {
		return nil, err
	}

	// Basic anti-detection
	_, err = page.Eval(`() => {
		Object.defineProperty(navigator, 'webdriver', {
			get: () => undefined
		});
		Object.defineProperty(navigator, 'plugins', {
			get: () => [1, 2, 3, 4, 5]
		});
		Object.defineProperty(navigator, 'languages', {
			get: () => ['en-GB', 'en']
		});
	}`)
	if err != nil {
		p.logger.Warn("Failed to apply stealth mode", slog.String("error", err.Error()))
	}

	return page, nil
}

// Acquire gets a page from the pool (blocks if none available)
func (p *Pool) Acquire(ctx context.Context) (*rod.Page, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	select {
	case page, ok := <-p.pagePool:
		// Close may shut the channel while we are blocked here.
		if !ok {
			return nil, ErrPoolClosed
		}
		return page, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a page to the pool
func (p *Pool) Release(page *rod.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = page.Close()
		return
	}

	// Clear page state before returning
	_ = page.Navigate("about:blank")
	_ = page.SetCookies(nil)

	select {
	case p.pagePool <- page:
	default:
		_ = page.Close()
	}
}

// Close shuts down the browser pool
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	close(p.pagePool)
	for page := range p.pagePool {
		_ = page.Close()
	}

	if err := p.browser.Close(); err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}

	p.logger.Info("Browser pool closed")
	return nil
}
