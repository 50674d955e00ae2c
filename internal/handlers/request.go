package handlers

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	u "github.com/pvineet44/mm-invite/internal/utils"
)

// OverlayRequest is a validated overlay. Build it with parseOverlayRequest only.
type OverlayRequest struct {
	Text     string
	FileName string
	X        float64
	Y        float64
	FontSize int
	Color    string
}

type fieldKind int

const (
	kindText fieldKind = iota
	kindNumber
	kindInt
	kindColor
)

// fieldRule describes one recognised input field. Length limits for text
// fields come from config; numeric bounds are inclusive.
type fieldRule struct {
	Name     string
	Kind     fieldKind
	Required bool
	Min, Max float64
}

var overlayFields = []fieldRule{
	{Name: "text", Kind: kindText, Required: true},
	{Name: "file_name", Kind: kindText},
	{Name: "x_position", Kind: kindNumber, Min: 0, Max: 100},
	{Name: "y_position", Kind: kindNumber, Min: 0, Max: 100},
	{Name: "font_size", Kind: kindInt, Min: u.MinFontSize, Max: u.MaxFontSize},
	{Name: "text_color", Kind: kindColor},
}

// parseOverlayRequest validates the raw values returned by get against
// overlayFields and fills defaults from config.
func parseOverlayRequest(get func(string) string, cfg u.Config) (OverlayRequest, error) {
	req := OverlayRequest{
		X:        cfg.Overlay.DefaultX,
		Y:        cfg.Overlay.DefaultY,
		FontSize: cfg.Overlay.DefaultFontSize,
		Color:    cfg.Overlay.DefaultColor,
	}

	for _, rule := range overlayFields {
		raw := strings.TrimSpace(get(rule.Name))
		if raw == "" {
			if rule.Required {
				return req, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid %s: required", rule.Name))
			}
			continue
		}

		switch rule.Kind {
		case kindText:
			limit := cfg.Limits.MaxTextLength
			if rule.Name == "file_name" {
				limit = cfg.Limits.MaxFileNameLength
			}
			if utf8.RuneCountInString(raw) > limit {
				return req, fiber.NewError(fiber.StatusRequestEntityTooLarge,
					fmt.Sprintf("Invalid %s: longer than %d characters", rule.Name, limit))
			}
			if rule.Name == "text" {
				req.Text = raw
			} else {
				req.FileName = raw
			}

		case kindNumber, kindInt:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < rule.Min || v > rule.Max {
				return req, fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("Invalid %s: must be a number between %g and %g", rule.Name, rule.Min, rule.Max))
			}
			if rule.Kind == kindInt {
				if v != math.Trunc(v) {
					return req, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid %s: must be a whole number", rule.Name))
				}
				req.FontSize = int(v)
				continue
			}
			if rule.Name == "x_position" {
				req.X = v
			} else {
				req.Y = v
			}

		case kindColor:
			if _, err := u.ParseHexColor(raw); err != nil {
				return req, fiber.NewError(fiber.StatusBadRequest, "Invalid text_color: must be #RGB or #RRGGBB")
			}
			req.Color = raw
		}
	}
	return req, nil
}

// formValues reads overlay fields from a form or multipart body.
func formValues(c *fiber.Ctx) func(string) string {
	return func(name string) string { return c.FormValue(name) }
}
