// Package textextract turns uploaded files into plain text.
package textextract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"semantic-plagiarism/internal/model"
)

// Supported reports whether the file extension can be extracted.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".text", ".pdf":
		return true
	}
	return false
}

// Extract reads r fully and returns its text. Plain text must be valid UTF-8 (a BOM is
// dropped); PDFs go through the PDF text layer. Unsupported or unreadable input
// wraps model.ErrInvalidInput.
func Extract(filename string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: read %q: %v", model.ErrInvalidInput, filename, err)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".text":
		b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: %q is not UTF-8 text", model.ErrInvalidInput, filename)
		}
		return string(b), nil
	case ".pdf":
		text, err := extractPDF(b)
		if err != nil {
			return "", fmt.Errorf("%w: read pdf %q: %v", model.ErrInvalidInput, filename, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", model.ErrInvalidInput, filename)
	}
}

// extractPDF returns an empty string if the PDF has no extractable text.
func extractPDF(b []byte) (text string, err error) {
	if len(b) == 0 {
		return "", nil
	}
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(out), ""), nil
}
