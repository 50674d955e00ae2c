package dispatch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"

	u "github.com/pvineet44/mm-invite/internal/utils"
)

func init() {
	api.DisableConfigDir()
	u.SetLoggerForTest(zerolog.Nop())
}

// writePDF creates a one page PDF named name in dir.
func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(40, 40, name)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return p
}

// countingServer counts hits and answers every request with status and body.
func countingServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

type sent struct {
	kind       string
	document   DocumentMessage
	template   TemplateMessage
	attachment Attachment
}

// fakeSender records messages instead of sending them.
type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeSender) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	return f.err
}

func (f *fakeSender) SendDocument(_ context.Context, msg DocumentMessage) error {
	return f.record(sent{kind: SendDocument, document: msg})
}

func (f *fakeSender) SendTemplate(_ context.Context, msg TemplateMessage) error {
	return f.record(sent{kind: SendTemplate, template: msg})
}

func (f *fakeSender) SendAttachment(_ context.Context, msg DocumentMessage, file Attachment) error {
	return f.record(sent{kind: SendMultipart, document: msg, attachment: file})
}
