// Package extractor pulls per-page text out of uploaded PDF documents.
// Text recognition itself is delegated to the PDF text-layer reader; pages
// without a text layer (scanned images) yield empty strings and extraction
// continues.
package extractor

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askinvoice/internal/domain"
)

// PDF extracts the text layer of PDF files.
type PDF struct {
	logger *zap.Logger
}

// NewPDF creates a PDF text extractor.
func NewPDF(logger *zap.Logger) *PDF {
	return &PDF{logger: logger}
}

// Extract returns the ordered per-page text of a PDF document. An unreadable
// document is a document-level error (domain.ErrDocumentOpen); an unreadable
// page contributes an empty string and does not abort the document.
func (e *PDF) Extract(name string, data []byte) (domain.Document, error) {
	reader, err := openReader(data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("open %s: %v: %w", name, err, domain.ErrDocumentOpen)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		text, err := pageText(reader, i)
		if err != nil {
			e.logger.Warn("page yielded no text",
				zap.String("document", name), zap.Int("page", i), zap.Error(err))
			text = ""
		}
		pages = append(pages, text)
	}

	return domain.Document{Name: name, Pages: pages}, nil
}

// openReader isolates the parser, which panics on some malformed files.
func openReader(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageText isolates per-page text extraction the same way.
func pageText(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page: %v", r)
		}
	}()
	page := reader.Page(num)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d has no content", num)
	}
	return page.GetPlainText(nil)
}
