// Package source turns stored text resources into documents ready for ingestion.
package source

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"rag-agent/internal/chunker"
	"rag-agent/internal/domain"
)

// Load reads the resource at path and splits it into one chunk per line.
// PDF files are reduced to their plain text first.
func Load(path string) (domain.Document, error) {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		data, err = readPDF(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.Document{}, domain.NewServiceError(domain.ServiceFilesystem, "read "+path, err)
	}
	if !utf8.Valid(data) {
		return domain.Document{}, domain.NewServiceError(domain.ServiceFilesystem, "decode "+path, domain.ErrInvalidText)
	}
	return FromText(path, string(data)), nil
}

// FromText builds a document from in-memory text. The full text is kept verbatim.
func FromText(id, text string) domain.Document {
	return domain.Document{
		ID:      id,
		Content: text,
		Chunks:  chunker.Lines(text),
	}
}

func readPDF(path string) ([]byte, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
