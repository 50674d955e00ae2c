package main

import (
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/pvineet44/mm-invite/internal/dispatch"
)

// dispatchFlags holds everything the send command reads from flags or env.
type dispatchFlags struct {
	csvPath    string
	pdfDir     string
	source     string
	send       string
	resumeFrom string
	dryRun     bool
	envFile    string
	logLevel   string

	endpoint     string
	mediaBaseURL string
	message      string
	callbackData string
	campaignID   string

	templateName     string
	templateLanguage string
	bodyValues       string
	buttonValues     string
	templateHeader   string
	headerURL        string
	headerCaption    string

	pdfAPIURL string
	pdfAPIKey string
	fileURL   string
	fileName  string
}

// envDefaults maps flags to the variables that fill them when not given.
var envDefaults = map[string]string{
	"endpoint":            "WHATSAPP_API_ENDPOINT",
	"media-base-url":      "WHATSAPP_MEDIA_BASE_URL",
	"document-message":    "WHATSAPP_DOCUMENT_MESSAGE",
	"callback-data":       "WHATSAPP_CALLBACK_DATA",
	"campaign-id":         "WHATSAPP_CAMPAIGN_ID",
	"pdf-api-url":         "PDF_API_URL",
	"pdf-api-key":         "PDF_API_KEY",
	"file-url":            "WHATSAPP_STATIC_FILE_URL",
	"file-name":           "WHATSAPP_STATIC_FILE_NAME",
	"header-caption":      "WHATSAPP_HEADER_CAPTION",
	"template-header-url": "WHATSAPP_TEMPLATE_HEADER_URL",
}

func newDispatchFlagSet(f *dispatchFlags, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("invite-dispatch", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false

	fs.StringVar(&f.csvPath, "csv", "csvs/invitees.csv", "CSV file with one invitee per row")
	fs.StringVar(&f.pdfDir, "pdf-dir", "pdfs", "directory holding pre-rendered PDFs (source=local)")
	fs.StringVar(&f.source, "source", dispatch.ModeLocal, "where PDFs come from: local, api or static")
	fs.StringVar(&f.send, "send", dispatch.SendDocument, "message kind: document, template or multipart")
	fs.StringVar(&f.resumeFrom, "resume-from", "", "skip rows until this phone number")
	fs.BoolVarP(&f.dryRun, "dry-run", "n", false, "log what would be sent without calling any API")
	fs.StringVar(&f.envFile, "env-file", ".env", "load variables from this file; the process env wins")
	fs.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")

	fs.StringVar(&f.endpoint, "endpoint", dispatch.InteraktEndpoint, "Interakt message endpoint")
	fs.StringVar(&f.mediaBaseURL, "media-base-url", dispatch.DefaultMediaBaseURL, "base URL local PDFs are published under")
	fs.StringVar(&f.message, "document-message", "", "text sent along with the document")
	fs.StringVar(&f.callbackData, "callback-data", "", "callbackData echoed by Interakt webhooks")
	fs.StringVar(&f.campaignID, "campaign-id", "", "Interakt campaignId (template sends)")

	fs.StringVar(&f.templateName, "template-name", "", "Interakt template name (send=template)")
	fs.StringVar(&f.templateLanguage, "template-language", "en", "template language code")
	fs.StringVar(&f.bodyValues, "template-body-values", "", "comma separated body placeholder values")
	fs.StringVar(&f.buttonValues, "template-button-values", "", "semicolon separated button groups, each comma separated")
	fs.StringVar(&f.templateHeader, "template-header", "", `template header: "" (static --template-header-url) or "document" (the invitee's PDF)`)
	fs.StringVar(&f.headerURL, "template-header-url", "", "media URL used as the template header")
	fs.StringVar(&f.headerCaption, "header-caption", "", "caption shown below the header media")

	fs.StringVar(&f.pdfAPIURL, "pdf-api-url", dispatch.DefaultPDFAPIURL, "invite server generate endpoint (source=api)")
	fs.StringVar(&f.pdfAPIKey, "pdf-api-key", "", "X-API-Key for the invite server")
	fs.StringVar(&f.fileURL, "file-url", "", "hosted PDF sent to everybody (source=static)")
	fs.StringVar(&f.fileName, "file-name", "", "file name for --file-url, defaults to the URL's base name")
	return fs
}

// applyEnv fills flags the user did not set from env or the .env file.
func applyEnv(fs *flag.FlagSet, env lookup) error {
	for name, key := range envDefaults {
		if fs.Changed(name) {
			continue
		}
		if v := env.get(key); v != "" {
			if err := fs.Set(name, v); err != nil {
				return fmt.Errorf("%w: %s from %s: %v", ErrUsage, name, key, err)
			}
		}
	}
	// A static URL from the environment implies the static source.
	if !fs.Changed("source") && env.get("WHATSAPP_STATIC_FILE_URL") != "" {
		_ = fs.Set("source", dispatch.ModeStatic)
	}
	return nil
}

func (f *dispatchFlags) validate() error {
	switch f.source {
	case dispatch.ModeLocal, dispatch.ModeAPI:
	case dispatch.ModeStatic:
		if strings.TrimSpace(f.fileURL) == "" {
			return fmt.Errorf("%w: --source=static needs --file-url", ErrUsage)
		}
	default:
		return fmt.Errorf("%w: unknown --source %q", ErrUsage, f.source)
	}
	switch f.send {
	case dispatch.SendDocument:
	case dispatch.SendTemplate:
		if strings.TrimSpace(f.templateName) == "" {
			return fmt.Errorf("%w: --send=template needs --template-name", ErrUsage)
		}
		if f.templateHeader != "" && f.templateHeader != dispatch.HeaderDocument {
			return fmt.Errorf("%w: unknown --template-header %q", ErrUsage, f.templateHeader)
		}
	case dispatch.SendMultipart:
		if f.source != dispatch.ModeLocal {
			return fmt.Errorf("%w: --send=multipart needs --source=local", ErrUsage)
		}
	default:
		return fmt.Errorf("%w: unknown --send %q", ErrUsage, f.send)
	}
	if f.source == dispatch.ModeAPI && strings.TrimSpace(f.pdfAPIURL) == "" {
		return fmt.Errorf("%w: --source=api needs --pdf-api-url", ErrUsage)
	}
	return nil
}

func parseBodyValues(raw string) []string {
	if raw == "" {
		return nil
	}
	vals := strings.Split(raw, ",")
	for i := range vals {
		vals[i] = strings.TrimSpace(vals[i])
	}
	return vals
}

func parseButtonValues(raw string) [][]string {
	var groups [][]string
	for chunk := range strings.SplitSeq(raw, ";") {
		var group []string
		for v := range strings.SplitSeq(chunk, ",") {
			if v = strings.TrimSpace(v); v != "" {
				group = append(group, v)
			}
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}
