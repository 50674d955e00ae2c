package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFAPI_Generate(t *testing.T) {
	var gotText, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotText = body.Text
		gotKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"url":"http://h/pdfs/Asha.pdf","path":"pdfs/Asha.pdf"}`))
	}))
	defer srv.Close()

	p := NewPDFAPI(srv.URL)
	p.APIKey = "tok"
	g, err := p.Generate(context.Background(), "Asha")
	require.NoError(t, err)
	assert.Equal(t, "Asha", gotText)
	assert.Equal(t, "tok", gotKey)
	assert.Equal(t, Generated{URL: "http://h/pdfs/Asha.pdf", Path: "pdfs/Asha.pdf"}, g)
}

func TestPDFAPI_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"not json", http.StatusOK, `<html>`},
		{"missing path", http.StatusCreated, `{"url":"u"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := countingServer(t, tt.status, tt.body)
			_, err := NewPDFAPI(srv.URL).Generate(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestPDFAPI_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewPDFAPI(url).Generate(context.Background(), "x")
	assert.Error(t, err)
}
