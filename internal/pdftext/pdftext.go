// Package pdftext extracts plain text from PDF documents for analysis.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText indicates the document contains no extractable text, which
// usually means a scanned PDF without an OCR layer.
var ErrNoText = errors.New("pdf contains no extractable text")

// Extract pulls the plain text out of a PDF held in memory. It returns the
// concatenated text of all pages and the page count.
//
// Pages that fail to decode are skipped rather than failing the whole
// document; malformed content streams on one page are common in the wild.
// ErrNoText is returned when every page came back empty.
func Extract(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	numPages := reader.NumPage()
	var sb strings.Builder

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		return "", numPages, ErrNoText
	}

	return sb.String(), numPages, nil
}
