package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"

	"github.com/pvineet44/mm-invite/internal/handlers"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

// SetupApp creates the invite server. rdb and tokens may be nil.
func SetupApp(cfg u.Config, rdb *redis.Client, tokens *u.TokenStore) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             cfg.Limits.MaxUploadBytes + 1<<20,
		ErrorHandler:          jsonErrorHandler,
	})

	RegisterMiddleware(app, cfg, tokens)
	RegisterRoutes(app, cfg, rdb)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

func jsonErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		msg = e.Message
	}

	u.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}

// RegisterRoutes mounts the form flow, the JSON API and the public files.
func RegisterRoutes(app *fiber.App, cfg u.Config, rdb *redis.Client) {
	svc := handlers.NewOverlayService(cfg, rdb)
	app.Hooks().OnShutdown(func() error {
		svc.Close()
		return nil
	})

	app.Static("/pdfs", cfg.Storage.OutputDir)
	app.Static(handlers.UploadsRoute, cfg.Storage.UploadsDir)

	app.Get("/", svc.HandleIndex)
	app.Post("/preview", svc.HandlePreview)
	app.Post("/download", svc.HandleDownload)

	api := app.Group("/api")
	api.Post("/generate-pdf", svc.HandleGeneratePDF)
	api.Get("/chrome/stats", svc.HandleChromeStats)
	api.Get("/monitor", monitor.New())
}
