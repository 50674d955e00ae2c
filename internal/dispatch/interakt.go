package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// InteraktEndpoint is the public message API.
const InteraktEndpoint = "https://api.interakt.ai/v1/public/message/"

const defaultSendTimeout = 30 * time.Second

// APIError is a non-2xx answer from a remote API.
type APIError struct {
	Service string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s responded with %d: %s", e.Service, e.Status, truncate(e.Body, 200))
}

// DocumentData is the media part of a document message.
type DocumentData struct {
	MediaURL string `json:"mediaUrl"`
	Message  string `json:"message,omitempty"`
}

// DocumentMessage sends a hosted PDF.
type DocumentMessage struct {
	CountryCode  string       `json:"countryCode"`
	PhoneNumber  string       `json:"phoneNumber"`
	Type         string       `json:"type"`
	Data         DocumentData `json:"data"`
	CallbackData string       `json:"callbackData,omitempty"`
}

// Template names an approved WhatsApp template and its placeholder values.
type Template struct {
	Name         string     `json:"name"`
	LanguageCode string     `json:"languageCode"`
	BodyValues   []string   `json:"bodyValues"`
	ButtonValues [][]string `json:"buttonValues"`
	HeaderValues []string   `json:"headerValues,omitempty"`
	FileName     string     `json:"fileName,omitempty"`
	Caption      string     `json:"caption,omitempty"`
}

// TemplateMessage sends a template, usually with the invite linked from a button.
type TemplateMessage struct {
	CountryCode  string   `json:"countryCode"`
	PhoneNumber  string   `json:"phoneNumber"`
	Type         string   `json:"type"`
	Template     Template `json:"template"`
	CallbackData string   `json:"callbackData,omitempty"`
	CampaignID   string   `json:"campaignId,omitempty"`
}

// Attachment is a PDF uploaded with a multipart document message.
type Attachment struct {
	FileName string
	Data     []byte
}

// Sender delivers messages to one recipient each.
type Sender interface {
	SendDocument(ctx context.Context, msg DocumentMessage) error
	SendTemplate(ctx context.Context, msg TemplateMessage) error
	SendAttachment(ctx context.Context, msg DocumentMessage, file Attachment) error
}

// InteraktClient talks to the Interakt public API using a Basic API key.
type InteraktClient struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

func NewInteraktClient(apiKey string) *InteraktClient {
	return &InteraktClient{Endpoint: InteraktEndpoint, APIKey: apiKey, Timeout: defaultSendTimeout}
}

// FormatCountryCode adds the leading plus Interakt expects in payloads.
func FormatCountryCode(code string) string {
	if strings.HasPrefix(code, "+") {
		return code
	}
	return "+" + code
}

func (c *InteraktClient) SendDocument(ctx context.Context, msg DocumentMessage) error {
	msg.Type = "Document"
	msg.CountryCode = FormatCountryCode(msg.CountryCode)
	a := fiber.Post(c.Endpoint).JSON(msg)
	return c.do(ctx, a)
}

func (c *InteraktClient) SendTemplate(ctx context.Context, msg TemplateMessage) error {
	msg.Type = "Template"
	msg.CountryCode = FormatCountryCode(msg.CountryCode)
	if msg.Template.BodyValues == nil {
		msg.Template.BodyValues = []string{}
	}
	if msg.Template.ButtonValues == nil {
		msg.Template.ButtonValues = [][]string{}
	}
	a := fiber.Post(c.Endpoint).JSON(msg)
	return c.do(ctx, a)
}

// SendAttachment uploads the PDF itself instead of pointing at a hosted copy.
func (c *InteraktClient) SendAttachment(ctx context.Context, msg DocumentMessage, file Attachment) error {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("countryCode", FormatCountryCode(msg.CountryCode))
	args.Set("phoneNumber", msg.PhoneNumber)
	args.Set("type", "Document")
	if msg.Data.Message != "" {
		args.Set("message", msg.Data.Message)
	}
	if msg.CallbackData != "" {
		args.Set("callbackData", msg.CallbackData)
	}

	ff := fiber.AcquireFormFile()
	defer fiber.ReleaseFormFile(ff)
	ff.Fieldname = "file"
	ff.Name = file.FileName
	ff.Content = file.Data

	a := fiber.Post(c.Endpoint).FileData(ff).MultipartForm(args)
	return c.do(ctx, a)
}

func (c *InteraktClient) do(ctx context.Context, a *fiber.Agent) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return err
	}
	a.Set(fiber.HeaderAuthorization, "Basic "+c.APIKey).
		Timeout(agentTimeout(ctx, c.Timeout))

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("interakt request: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return &APIError{Service: "interakt", Status: code, Body: string(body)}
	}
	return nil
}

// agentTimeout bounds a request by the context deadline when that comes first.
func agentTimeout(ctx context.Context, fallback time.Duration) time.Duration {
	if fallback <= 0 {
		fallback = defaultSendTimeout
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < fallback {
			return max(left, time.Millisecond)
		}
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
