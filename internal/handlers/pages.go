package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pvineet44/mm-invite/internal/imageinfo"
	"github.com/pvineet44/mm-invite/internal/storage"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

//go:embed templates/*.html
var pageFS embed.FS

var pages = template.Must(template.ParseFS(pageFS, "templates/*.html"))

// UploadsRoute is where uploaded backgrounds are served from.
const UploadsRoute = "/storage/uploads"

func renderPage(c *fiber.Ctx, name string, data any) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		u.Error("Template execution failed", "template", name, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func css(v float64) template.CSS {
	return template.CSS(strconv.FormatFloat(v, 'f', -1, 64))
}

// HandleIndex serves the upload form.
func (svc *OverlayService) HandleIndex(c *fiber.Ctx) error {
	cfg := svc.Config
	dims := imageinfo.Dimensions(cfg.Storage.BackgroundPath)
	return renderPage(c, "index.html", map[string]any{
		"Width":    dims.Width,
		"Height":   dims.Height,
		"MaxText":  cfg.Limits.MaxTextLength,
		"X":        cfg.Overlay.DefaultX,
		"Y":        cfg.Overlay.DefaultY,
		"MinFont":  u.MinFontSize,
		"MaxFont":  u.MaxFontSize,
		"FontSize": cfg.Overlay.DefaultFontSize,
		"Color":    cfg.Overlay.DefaultColor,
	})
}

// HandlePreview stores the uploaded background and shows the overlay on it
// with a form to download the PDF.
func (svc *OverlayService) HandlePreview(c *fiber.Ctx) error {
	req, err := parseOverlayRequest(formValues(c), *svc.Config)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid image: required")
	}
	if limit := svc.Config.Limits.MaxUploadBytes; limit > 0 && fh.Size > int64(limit) {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Invalid image: file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid image: unreadable")
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid image: unreadable")
	}

	img := imageinfo.FromBytes(data)
	if img.Format == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid image: unsupported format")
	}

	ref, err := svc.Uploads.Save(data, "."+img.Format)
	if err != nil {
		u.Error("Failed to store upload", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to store upload")
	}
	u.Info("Background uploaded", "ref", ref, "bytes", len(data))

	return renderPage(c, "preview.html", map[string]any{
		"ImageURL":  UploadsRoute + "/" + ref,
		"ImagePath": ref,
		"Width":     img.Dimensions.Width,
		"Height":    img.Dimensions.Height,
		"Text":      req.Text,
		"FileName":  req.FileName,
		"X":         css(req.X),
		"Y":         css(req.Y),
		"FontSize":  req.FontSize,
		"Color":     template.CSS(req.Color),
	})
}

// HandleDownload renders a previously uploaded background and returns the PDF
// as an attachment. Nothing is stored.
func (svc *OverlayService) HandleDownload(c *fiber.Ctx) error {
	req, err := parseOverlayRequest(formValues(c), *svc.Config)
	if err != nil {
		return err
	}

	full, err := svc.Uploads.Resolve(c.FormValue("image_path"))
	switch {
	case errors.Is(err, storage.ErrInvalidReference):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid image_path")
	case err != nil:
		return fiber.NewError(fiber.StatusNotFound, "Image not found")
	}

	bg, err := imageinfo.Load(full)
	if err != nil {
		u.Error("Uploaded image unreadable", "path", full, "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Uploaded image unavailable")
	}

	pdf, err := svc.generate(c.UserContext(), req, bg)
	if err != nil {
		return err
	}

	c.Attachment(svc.outputName(req))
	c.Type("pdf")
	return c.Send(pdf)
}
