// Package extractor pulls plain text out of raw uploads before they
// are handed to the analyzer. Image formats yield no text; the
// analyzer reads those directly.
package extractor

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/pkoster/beleghub/internal/core/domain"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(file domain.IngestFile) (string, error) {
	switch kind(file) {
	case "pdf":
		return extractPDF(file.Data)
	case "xlsx":
		return extractXLSX(file.Data)
	case "image":
		return "", nil
	default:
		return extractPlaintext(file.Data), nil
	}
}

func kind(file domain.IngestFile) string {
	ext := strings.ToLower(filepath.Ext(file.Name))
	contentType := strings.ToLower(file.ContentType)

	switch {
	case ext == ".pdf" || contentType == "application/pdf":
		return "pdf"
	case ext == ".xlsx" || strings.Contains(contentType, "spreadsheetml"):
		return "xlsx"
	case strings.HasPrefix(contentType, "image/"),
		ext == ".png", ext == ".jpg", ext == ".jpeg", ext == ".webp", ext == ".heic":
		return "image"
	default:
		return "text"
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractXLSX(data []byte) (string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer workbook.Close()

	var sb strings.Builder
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func extractPlaintext(data []byte) string {
	if !utf8.Valid(data) {
		return ""
	}
	return strings.TrimSpace(string(data))
}
