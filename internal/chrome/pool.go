// Package chrome keeps a warm headless Chrome with a bounded number of tabs.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	u "github.com/pvineet44/mm-invite/internal/utils"
)

var (
	ErrPoolDisabled = errors.New("chrome pool disabled")
	ErrPoolClosed   = errors.New("chrome pool closed")
)

// Tab is one leased browser tab. Ctx is only valid until Release.
type Tab struct {
	Ctx    context.Context
	cancel context.CancelFunc
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Enabled      bool      `json:"enabled"`
	Capacity     int       `json:"capacity"`
	Idle         int       `json:"idle"`
	InUse        int       `json:"in_use"`
	PoolSizeConf int       `json:"pool_size_conf"`
	ProfileDir   string    `json:"profile_dir"`
	TimeoutSecs  int       `json:"timeout_secs"`
	Restarts     int       `json:"restarts"`
	LastRestart  time.Time `json:"last_restart"`
}

// Pool bounds concurrent renders to the configured number of tabs, all in
// one browser process.
type Pool struct {
	mu  sync.Mutex
	cfg u.Config
	sem chan struct{}

	browserCtx    context.Context
	browserCancel context.CancelFunc
	started       bool

	profileDir  string
	closed      bool
	restarts    int
	lastRestart time.Time
}

// NewPool prepares a pool. Chrome itself is started by the first Acquire.
func NewPool(cfg u.Config) (*Pool, error) {
	size := cfg.PDF.ChromePoolSize
	if size <= 0 {
		return nil, ErrPoolDisabled
	}

	dir, err := CreateProfileDir(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pool{cfg: cfg, sem: make(chan struct{}, size), profileDir: dir}
	p.browserCtx, p.browserCancel = NewBrowser(cfg, dir)
	for range size {
		p.sem <- struct{}{}
	}
	u.Info("Chrome pool ready", "size", size, "profile_dir", dir)
	return p, nil
}

// CreateProfileDir makes a fresh Chrome profile under pdf.user_data_dir,
// creating the base directory when needed.
func CreateProfileDir(cfg u.Config) (string, error) {
	base := cfg.PDF.UserDataDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create profile base dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, "chrome-profile-*")
	if err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}
	return dir, nil
}

// Acquire waits for a free slot and opens a new tab in the shared browser.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.sem:
	}

	if err := p.ensureBrowser(); err != nil {
		p.putToken()
		return nil, err
	}

	p.mu.Lock()
	parent := p.browserCtx
	p.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(parent)
	return &Tab{Ctx: tabCtx, cancel: cancel}, nil
}

// ensureBrowser starts Chrome so later tabs attach to one process instead of
// each spawning their own.
func (p *Pool) ensureBrowser() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || chromedp.FromContext(p.browserCtx) == nil {
		return nil
	}
	if err := chromedp.Run(p.browserCtx); err != nil {
		// The failed context cannot be reused.
		p.browserCancel()
		p.browserCtx, p.browserCancel = NewBrowser(p.cfg, p.profileDir)
		return fmt.Errorf("start chrome: %w", err)
	}
	p.started = true
	return nil
}

// Release closes the tab and frees its slot. renderErr is the outcome of the
// work done in the tab and is only used for logging.
func (p *Pool) Release(tab *Tab, renderErr error) {
	if tab != nil && tab.cancel != nil {
		tab.cancel()
	}
	if renderErr != nil && IsSessionInterrupted(renderErr) {
		u.Warn("Chrome tab released after interrupted session", "error", renderErr)
	}
	p.putToken()
}

func (p *Pool) putToken() {
	select {
	case p.sem <- struct{}{}:
	default:
	}
}

// Restart replaces the browser process and its profile directory. Tabs
// already leased keep their (now dead) contexts and fail on next use.
func (p *Pool) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.profileDir != "" {
		_ = os.RemoveAll(p.profileDir)
	}

	dir, err := CreateProfileDir(p.cfg)
	if err != nil {
		return err
	}
	p.profileDir = dir
	p.browserCtx, p.browserCancel = NewBrowser(p.cfg, dir)
	p.started = false
	p.restarts++
	p.lastRestart = time.Now()

	u.Warn("Chrome pool restarted", "restarts", p.restarts, "profile_dir", dir)
	return nil
}

// Close stops the browser and removes the profile. Safe to call twice.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.profileDir != "" {
		_ = os.RemoveAll(p.profileDir)
	}
}

func (p *Pool) Stats(timeoutSecs int) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	capacity := cap(p.sem)
	idle := len(p.sem)
	return Stats{
		Enabled:      !p.closed && capacity > 0,
		Capacity:     capacity,
		Idle:         idle,
		InUse:        capacity - idle,
		PoolSizeConf: p.cfg.PDF.ChromePoolSize,
		ProfileDir:   p.profileDir,
		TimeoutSecs:  timeoutSecs,
		Restarts:     p.restarts,
		LastRestart:  p.lastRestart,
	}
}

var interruptedMarkers = []string{
	"target closed",
	"session closed",
	"websocket: close",
	"broken pipe",
	"connection reset",
}

// IsSessionInterrupted reports errors caused by the browser or tab going away
// rather than by the page being rendered.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range interruptedMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
