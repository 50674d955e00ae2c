package render

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/pvineet44/mm-invite/internal/chrome"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

const acquireTimeout = 5 * time.Second

// ChromeEngine prints HTML with headless Chrome, through a warm tab pool when
// pdf.chrome_pool_size > 0 and a throwaway browser otherwise.
type ChromeEngine struct {
	cfg u.Config

	poolMu sync.Mutex
	pool   *chrome.Pool
}

func NewChromeEngine(cfg u.Config) *ChromeEngine {
	return &ChromeEngine{cfg: cfg}
}

func (e *ChromeEngine) timeout() time.Duration {
	return time.Duration(e.cfg.PDF.TimeoutSecs) * time.Second
}

// Pool returns the tab pool, creating it on first use. A nil pool with a nil
// error means pooling is disabled.
func (e *ChromeEngine) Pool() (*chrome.Pool, error) {
	e.poolMu.Lock()
	defer e.poolMu.Unlock()

	if e.cfg.PDF.ChromePoolSize <= 0 {
		return nil, nil
	}
	if e.pool != nil {
		return e.pool, nil
	}
	pool, err := chrome.NewPool(e.cfg)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	return pool, nil
}

// Stats reports pool state; a disabled pool reports only its configuration.
func (e *ChromeEngine) Stats() (chrome.Stats, error) {
	pool, err := e.Pool()
	if err != nil {
		return chrome.Stats{}, err
	}
	if pool == nil {
		return chrome.Stats{PoolSizeConf: e.cfg.PDF.ChromePoolSize, TimeoutSecs: e.cfg.PDF.TimeoutSecs}, nil
	}
	return pool.Stats(e.cfg.PDF.TimeoutSecs), nil
}

func (e *ChromeEngine) Close() {
	e.poolMu.Lock()
	defer e.poolMu.Unlock()
	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
}

func (e *ChromeEngine) PrintPDF(ctx context.Context, html string, size PageSize) ([]byte, error) {
	pool, err := e.Pool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return e.printOneShot(ctx, html, size)
	}

	runOnce := func() ([]byte, error) {
		acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
		defer cancel()

		tab, err := pool.Acquire(acquireCtx)
		if err != nil {
			return nil, err
		}
		tabCtx, cancelTab := context.WithTimeout(tab.Ctx, e.timeout())
		stop := context.AfterFunc(ctx, cancelTab)
		buf, renderErr := printInTab(tabCtx, html, size)
		stop()
		cancelTab()

		pool.Release(tab, renderErr)
		return buf, renderErr
	}

	buf, err := runOnce()
	if err != nil && needsRestart(err) && ctx.Err() == nil {
		u.Warn("Chrome session interrupted; restarting pool and retrying once", "error", err)
		_ = pool.Restart()
		return runOnce()
	}
	return buf, err
}

// needsRestart reports a dead browser or tab. Deadlines mean a busy pool or a
// slow page, and restarting would cancel every other tab.
func needsRestart(err error) bool {
	return chrome.IsSessionInterrupted(err) && !errors.Is(err, context.DeadlineExceeded)
}

func (e *ChromeEngine) printOneShot(ctx context.Context, html string, size PageSize) ([]byte, error) {
	dir, err := chrome.CreateProfileDir(e.cfg)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	browserCtx, cancelBrowser := chrome.NewBrowser(e.cfg, dir)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, e.timeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return printInTab(runCtx, html, size)
}

// printInTab loads html into the tab behind ctx and prints it edge to edge.
func printInTab(ctx context.Context, html string, size PageSize) ([]byte, error) {
	var pdf []byte
	var ready bool
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Poll(`Array.from(document.images).every(i => i.complete)`, &ready,
			chromedp.WithPollingInterval(20*time.Millisecond)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(size.WidthInches()).
				WithPaperHeight(size.HeightInches()).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPageRanges("1").
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
