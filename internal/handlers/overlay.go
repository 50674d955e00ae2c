package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pvineet44/mm-invite/internal/chrome"
	"github.com/pvineet44/mm-invite/internal/geometry"
	"github.com/pvineet44/mm-invite/internal/imageinfo"
	"github.com/pvineet44/mm-invite/internal/naming"
	"github.com/pvineet44/mm-invite/internal/render"
	"github.com/pvineet44/mm-invite/internal/storage"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

// OverlayService bundles configuration and collaborators for the invite endpoints.
type OverlayService struct {
	Config   *u.Config
	Redis    *redis.Client
	Renderer render.Renderer
	Chrome   *render.ChromeEngine
	Outputs  *storage.Store
	Uploads  *storage.Uploads
}

// NewOverlayService wires the renderer selected in config. rdb may be nil.
func NewOverlayService(cfg u.Config, rdb *redis.Client) *OverlayService {
	r, eng := render.New(cfg)
	return &OverlayService{
		Config:   &cfg,
		Redis:    rdb,
		Renderer: r,
		Chrome:   eng,
		Outputs:  storage.NewOutputStore(cfg),
		Uploads:  storage.NewUploads(cfg),
	}
}

// Close releases the browser, if any.
func (svc *OverlayService) Close() {
	if svc.Chrome != nil {
		svc.Chrome.Close()
	}
}

// apiRequest accepts numbers either as JSON numbers or numeric strings.
type apiRequest struct {
	Text      string      `json:"text"`
	FileName  string      `json:"file_name"`
	XPosition json.Number `json:"x_position"`
	YPosition json.Number `json:"y_position"`
	FontSize  json.Number `json:"font_size"`
	TextColor string      `json:"text_color"`
}

func (r apiRequest) get(name string) string {
	switch name {
	case "text":
		return r.Text
	case "file_name":
		return r.FileName
	case "x_position":
		return r.XPosition.String()
	case "y_position":
		return r.YPosition.String()
	case "font_size":
		return r.FontSize.String()
	case "text_color":
		return r.TextColor
	}
	return ""
}

// HandleGeneratePDF renders the overlay onto the configured background, stores
// it under the output directory and answers 201 {url, path}.
func (svc *OverlayService) HandleGeneratePDF(c *fiber.Ctx) error {
	var body apiRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}
	req, err := parseOverlayRequest(body.get, *svc.Config)
	if err != nil {
		return err
	}

	bg, err := imageinfo.Load(svc.Config.Storage.BackgroundPath)
	if err != nil {
		u.Error("Background image unavailable", "path", svc.Config.Storage.BackgroundPath, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Background image unavailable")
	}

	pdf, err := svc.generate(c.UserContext(), req, bg)
	if err != nil {
		return err
	}

	name := svc.outputName(req)
	art, err := svc.Outputs.Save(name, pdf)
	if err != nil {
		u.Error("Failed to store PDF", "name", name, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to store PDF")
	}

	u.Info("PDF generated", "path", art.Path, "bytes", len(pdf), "request_id", c.GetRespHeader(fiber.HeaderXRequestID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"url":  art.URL,
		"path": art.Path,
	})
}

func (svc *OverlayService) outputName(req OverlayRequest) string {
	raw := req.FileName
	if raw == "" {
		raw = req.Text
	}
	return naming.SanitizeWithDefault(raw, svc.Config.Overlay.DefaultFileStem)
}

// generate runs geometry, cache and render for one overlay.
func (svc *OverlayService) generate(ctx context.Context, req OverlayRequest, bg imageinfo.Image) ([]byte, error) {
	overlay := render.Overlay{
		Image:    bg.Data,
		MIME:     bg.MIME,
		Text:     req.Text,
		XPercent: req.X,
		YPercent: req.Y,
		FontSize: req.FontSize,
		Color:    req.Color,
		Geometry: geometry.Compute(bg.Dimensions),
	}

	cacheKey := computeOverlayCacheKey(overlay)
	useCache := svc.Redis != nil && svc.Config.Cache.PDFCacheEnabled
	if useCache {
		if cached, err := getCachedPDF(ctx, svc.Redis, cacheKey); err == nil && cached != nil {
			return cached, nil
		}
	}

	pdf, err := svc.Renderer.Render(ctx, overlay)
	if err != nil {
		return nil, svc.renderError(err)
	}
	if limit := svc.Config.Limits.MaxPDFBytes; limit > 0 && len(pdf) > limit {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
	}

	if useCache {
		setCachedPDF(ctx, svc.Redis, cacheKey, pdf, svc.Config.Cache.PDFCacheTTL)
	}
	return pdf, nil
}

func (svc *OverlayService) renderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		u.Error("PDF generation timeout", "timeout_secs", svc.Config.PDF.TimeoutSecs, "error", err.Error())
		return fiber.NewError(fiber.StatusRequestTimeout, "PDF rendering took too long")
	}
	if chrome.IsSessionInterrupted(err) {
		u.Error("Chrome session interrupted", "error", err.Error())
		return fiber.NewError(fiber.StatusServiceUnavailable, "Chrome session interrupted")
	}
	u.Error("PDF generation failed", "error", err.Error())
	return fiber.NewError(fiber.StatusInternalServerError, "PDF generation failed")
}

// computeOverlayCacheKey hashes the background and every field that changes
// the rendered page.
func computeOverlayCacheKey(o render.Overlay) string {
	bg := sha256.Sum256(o.Image)
	h := sha256.New()
	h.Write(bg[:])
	for _, part := range []string{
		o.Text,
		strconv.FormatFloat(o.XPercent, 'f', -1, 64),
		strconv.FormatFloat(o.YPercent, 'f', -1, 64),
		strconv.Itoa(o.FontSize),
		o.Color,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "pdfcache:" + hex.EncodeToString(h.Sum(nil))
}

func getCachedPDF(ctx context.Context, rdb *redis.Client, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	cached, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		u.Warn("Redis read failed", "error", err)
		return nil, err
	}
	if !bytes.HasPrefix(cached, []byte("%PDF")) {
		u.Warn("Ignoring malformed cache entry", "key", key)
		return nil, nil
	}
	u.Info("PDF cache hit", "key", key)
	return cached, nil
}

func setCachedPDF(ctx context.Context, rdb *redis.Client, key string, data []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		u.Warn("Redis write failed", "error", err)
	}
}

// HandleChromeStats exposes the Chrome tab pool state.
func (svc *OverlayService) HandleChromeStats(c *fiber.Ctx) error {
	if svc.Chrome == nil {
		return c.JSON(fiber.Map{
			"enabled": false,
			"engine":  svc.Config.PDF.Engine,
		})
	}
	st, err := svc.Chrome.Stats()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Chrome pool init failed: "+err.Error())
	}
	return c.JSON(fiber.Map{
		"engine":         svc.Config.PDF.Engine,
		"enabled":        st.Enabled,
		"capacity":       st.Capacity,
		"idle":           st.Idle,
		"in_use":         st.InUse,
		"pool_size_conf": st.PoolSizeConf,
		"profile_dir":    st.ProfileDir,
		"timeout_secs":   st.TimeoutSecs,
		"restarts":       st.Restarts,
		"last_restart":   st.LastRestart,
	})
}
