package loader

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"rsc.io/pdf"
)

// Load extracts plain text from raw upload bytes based on the filename
// extension. Only .txt and .pdf are supported.
func Load(content []byte, filename string) (string, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".txt"):
		return loadTxt(content), nil
	case strings.HasSuffix(lower, ".pdf"):
		return loadPDF(content)
	default:
		return "", fmt.Errorf("unsupported file type: %s, only .txt and .pdf are supported", filename)
	}
}

// loadTxt decodes UTF-8 and falls back to Latin-1, which accepts any byte
// sequence, so text extraction itself never fails for .txt uploads.
func loadTxt(content []byte) string {
	if utf8.Valid(content) {
		return strings.TrimSpace(string(content))
	}
	runes := make([]rune, len(content))
	for i, b := range content {
		runes[i] = rune(b)
	}
	return strings.TrimSpace(string(runes))
}

func loadPDF(content []byte) (text string, err error) {
	// The pdf package panics on malformed input; an unreadable upload must
	// surface as an extraction error, not a crash.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		var sb strings.Builder
		for _, t := range page.Content().Text {
			clean := strings.ReplaceAll(t.S, "\x00", "")
			sb.WriteString(clean)
			sb.WriteString(" ")
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			pages = append(pages, s)
		}
	}
	return strings.TrimSpace(strings.Join(pages, "\n\n")), nil
}
