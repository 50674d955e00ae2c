package chrome

import (
	"context"
	"os"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"

	u "github.com/pvineet44/mm-invite/internal/utils"
)

// BrowserPath picks the Chrome binary: config first, then CHROME_BIN, then
// whatever rod's launcher finds on the system. Empty means let chromedp search.
func BrowserPath(cfg u.Config) string {
	if cfg.PDF.ChromePath != "" {
		return cfg.PDF.ChromePath
	}
	if v := os.Getenv("CHROME_BIN"); v != "" {
		return v
	}
	if p, ok := launcher.LookPath(); ok {
		return p
	}
	return ""
}

// AllocatorOptions are the exec allocator flags shared by the pool and one-shot renders.
func AllocatorOptions(cfg u.Config, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// Software rendering only; containers rarely have a usable GPU.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p := BrowserPath(cfg); p != "" {
		opts = append(opts, chromedp.ExecPath(p))
	}
	if cfg.PDF.ChromeNoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}

// NewBrowser returns a browser context that starts Chrome on first use. cancel
// stops the browser; the caller removes profileDir.
func NewBrowser(cfg u.Config, profileDir string) (context.Context, context.CancelFunc) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(cfg, profileDir)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return browserCtx, func() {
		browserCancel()
		allocCancel()
	}
}
