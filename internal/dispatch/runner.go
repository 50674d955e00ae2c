package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"

	u "github.com/pvineet44/mm-invite/internal/utils"
)

// Send modes.
const (
	SendDocument  = "document"
	SendTemplate  = "template"
	SendMultipart = "multipart"
)

// HeaderDocument makes the template header carry the invitee's own PDF.
const HeaderDocument = "document"

// TemplateOptions configure template sends.
type TemplateOptions struct {
	Name     string
	Language string
	// Header is "" for an optional static HeaderURL, or HeaderDocument.
	Header       string
	BodyValues   []string
	ButtonValues [][]string
	HeaderURL    string
	Caption      string
}

// Options control one dispatch run.
type Options struct {
	Send         string
	DryRun       bool
	ResumeFrom   string
	Message      string
	CallbackData string
	CampaignID   string
	Template     TemplateOptions
}

// Summary counts what happened to each row.
type Summary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Runner walks invitees strictly in order. Each row gets at most one send attempt.
type Runner struct {
	Source  Source
	Sender  Sender
	Options Options
}

// Run processes every invitee and returns the counters. It stops early only
// when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, invitees []Invitee) (Summary, error) {
	s := Summary{Total: len(invitees)}
	resumed := r.Options.ResumeFrom == ""

	for _, inv := range invitees {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		s.Processed++

		if inv.Name == "" {
			u.Warn("Skipping row: missing name", "line", inv.Line)
			s.Skipped++
			continue
		}
		if inv.Phone == "" {
			u.Warn("Skipping row: missing phone", "line", inv.Line, "name", inv.Name)
			s.Skipped++
			continue
		}
		if !resumed {
			if inv.Phone != r.Options.ResumeFrom {
				s.Skipped++
				continue
			}
			resumed = true
		}

		doc, err := r.Source.Resolve(ctx, inv, r.Options.DryRun)
		switch {
		case errors.Is(err, ErrPDFMissing), errors.Is(err, ErrInvalidPDF):
			u.Warn("Skipping row: no usable PDF", "line", inv.Line, "name", inv.Name, "error", err)
			s.Skipped++
			continue
		case err != nil:
			u.Error("Failed to resolve PDF", "line", inv.Line, "name", inv.Name, "error", err)
			s.Failed++
			continue
		}

		if r.Options.DryRun {
			u.Info("[dry-run] Would send invite", r.describe(inv, doc)...)
			s.Sent++
			continue
		}

		if err := r.send(ctx, inv, doc); err != nil {
			u.Error("Failed to send invite", append(r.describe(inv, doc), "error", err)...)
			s.Failed++
			continue
		}
		u.Info("Sent invite", r.describe(inv, doc)...)
		s.Sent++
	}
	return s, nil
}

func (r *Runner) send(ctx context.Context, inv Invitee, doc Document) error {
	o := r.Options
	switch o.Send {
	case SendTemplate:
		return r.Sender.SendTemplate(ctx, r.templateMessage(inv, doc))
	case SendMultipart:
		if doc.LocalPath == "" {
			return fmt.Errorf("multipart send needs a local pdf for %s", doc.FileName)
		}
		data, err := os.ReadFile(doc.LocalPath)
		if err != nil {
			return fmt.Errorf("read pdf: %w", err)
		}
		return r.Sender.SendAttachment(ctx, r.documentMessage(inv, doc), Attachment{FileName: doc.FileName, Data: data})
	default:
		return r.Sender.SendDocument(ctx, r.documentMessage(inv, doc))
	}
}

func (r *Runner) documentMessage(inv Invitee, doc Document) DocumentMessage {
	return DocumentMessage{
		CountryCode:  inv.CountryCode,
		PhoneNumber:  inv.Phone,
		Data:         DocumentData{MediaURL: doc.MediaURL, Message: r.Options.Message},
		CallbackData: r.Options.CallbackData,
	}
}

func (r *Runner) templateMessage(inv Invitee, doc Document) TemplateMessage {
	t := r.Options.Template
	tpl := Template{
		Name:         t.Name,
		LanguageCode: t.Language,
		BodyValues:   t.BodyValues,
		ButtonValues: t.ButtonValues,
		Caption:      t.Caption,
	}
	switch {
	case t.Header == HeaderDocument:
		tpl.HeaderValues = []string{doc.MediaURL}
		tpl.FileName = doc.FileName
	case len(tpl.ButtonValues) == 0:
		// The template's download button links to the invite file.
		tpl.ButtonValues = [][]string{{doc.FileName}}
		fallthrough
	default:
		if t.HeaderURL != "" {
			tpl.HeaderValues = []string{t.HeaderURL}
		}
	}
	return TemplateMessage{
		CountryCode:  inv.CountryCode,
		PhoneNumber:  inv.Phone,
		Template:     tpl,
		CallbackData: r.Options.CallbackData,
		CampaignID:   r.Options.CampaignID,
	}
}

func (r *Runner) describe(inv Invitee, doc Document) []any {
	kv := []any{
		"file", doc.FileName,
		"media_url", doc.MediaURL,
		"to", FormatCountryCode(inv.CountryCode) + " " + inv.Phone,
		"mode", r.mode(),
	}
	o := r.Options
	if o.Message != "" && o.Send != SendTemplate {
		kv = append(kv, "message", o.Message)
	}
	if o.CallbackData != "" {
		kv = append(kv, "callback_data", o.CallbackData)
	}
	if o.Send == SendTemplate {
		if o.CampaignID != "" {
			kv = append(kv, "campaign_id", o.CampaignID)
		}
		if o.Template.Header == HeaderDocument {
			kv = append(kv, "header", HeaderDocument)
		} else if o.Template.HeaderURL != "" {
			kv = append(kv, "header_url", o.Template.HeaderURL)
		}
	}
	return kv
}

func (r *Runner) mode() string {
	if r.Options.Send == "" {
		return SendDocument
	}
	return r.Options.Send
}
