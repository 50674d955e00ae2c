package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultPDFAPIURL is the invite server's generate endpoint on a local install.
const DefaultPDFAPIURL = "http://127.0.0.1:8000/api/generate-pdf"

// Generated is the invite server's answer to a generate request.
type Generated struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// PDFAPI asks an invite server to render a PDF for a name.
type PDFAPI struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewPDFAPI(url string) *PDFAPI {
	return &PDFAPI{URL: url, Timeout: 60 * time.Second}
}

func (p *PDFAPI) Generate(ctx context.Context, text string) (Generated, error) {
	if err := ctx.Err(); err != nil {
		return Generated{}, err
	}
	a := fiber.Post(p.URL).
		JSON(fiber.Map{"text": text}).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(agentTimeout(ctx, p.Timeout))
	if p.APIKey != "" {
		a.Set("X-API-Key", p.APIKey)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return Generated{}, fmt.Errorf("reach pdf api at %s: %w", p.URL, errors.Join(errs...))
	}
	if code != fiber.StatusOK && code != fiber.StatusCreated {
		return Generated{}, &APIError{Service: "pdf api", Status: code, Body: string(body)}
	}

	var g Generated
	if err := json.Unmarshal(body, &g); err != nil {
		return Generated{}, fmt.Errorf("pdf api returned non-JSON payload: %s", truncate(string(body), 200))
	}
	if g.URL == "" || g.Path == "" {
		return Generated{}, errors.New("pdf api response missing url or path")
	}
	return g, nil
}
