// Package dispatch sends personalised invite PDFs to the people listed in a CSV
// file through the Interakt WhatsApp API.
package dispatch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pvineet44/mm-invite/internal/naming"
)

// DefaultCountryCode is used when a row carries none.
const DefaultCountryCode = "91"

var ErrNoHeader = errors.New("csv has no header row")

// Invitee is one CSV row after alias resolution.
type Invitee struct {
	Line        int
	Name        string
	Phone       string
	CountryCode string
	// PDFFile overrides the name used to find the invite PDF.
	PDFFile string
}

// fieldAliases maps each field to the header names accepted for it, first match wins.
var fieldAliases = map[string][]string{
	"display_name": {"display_name", "Display Name", "name", "Name", "full_name", "fullName"},
	"first_name":   {"first_name", "firstName", "firstname"},
	"last_name":    {"last_name", "lastName", "lastname"},
	"gender":       {"gender", "salutation"},
	"phone":        {"phone", "mobileNo", "mobile"},
	"country_code": {"country_code", "countryCode", "isdCode"},
	"pdf_file":     {"pdf_file", "pdfFile", "pdf_name", "pdfName", "pdf_filename", "pdfFilename"},
}

// PDFName is the file name the invitee's PDF is expected under.
func (i Invitee) PDFName() string {
	if i.PDFFile != "" {
		return naming.Sanitize(i.PDFFile)
	}
	return naming.Sanitize(i.Name)
}

// ReadInviteesFile opens path and reads it with ReadInvitees.
func ReadInviteesFile(path string) ([]Invitee, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadInvitees(f)
}

// ReadInvitees parses a CSV with a header row. Rows are returned even when
// fields are missing; the runner decides what to skip.
func ReadInvitees(r io.Reader) ([]Invitee, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var invitees []Invitee
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		record := make(map[string]string, len(header))
		for i, key := range header {
			if key == "" || i >= len(row) {
				continue
			}
			record[key] = strings.TrimSpace(row[i])
		}
		invitees = append(invitees, inviteeFromRecord(line, record))
	}
	return invitees, nil
}

func inviteeFromRecord(line int, record map[string]string) Invitee {
	name := pick(record, "display_name")
	if name == "" {
		first, last, gender := pick(record, "first_name"), pick(record, "last_name"), pick(record, "gender")
		if first != "" || last != "" || gender != "" {
			parts := []string{"Shri"}
			for _, p := range []string{strings.TrimSpace(first + gender), last} {
				if p != "" {
					parts = append(parts, p)
				}
			}
			name = strings.Join(parts, " ")
		}
	}
	return Invitee{
		Line:        line,
		Name:        strings.TrimSpace(name),
		Phone:       pick(record, "phone"),
		CountryCode: NormaliseCountryCode(pick(record, "country_code")),
		PDFFile:     pick(record, "pdf_file"),
	}
}

func pick(record map[string]string, field string) string {
	for _, key := range fieldAliases[field] {
		if v := record[key]; v != "" {
			return v
		}
	}
	return ""
}

// NormaliseCountryCode strips a leading plus and defaults to DefaultCountryCode.
func NormaliseCountryCode(code string) string {
	code = strings.TrimPrefix(strings.TrimSpace(code), "+")
	if code == "" {
		return DefaultCountryCode
	}
	return code
}
