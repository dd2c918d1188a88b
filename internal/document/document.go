// Package document classifies uploaded contracts and extracts text from the
// formats that can be read locally.
package document

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

var (
	// ErrUnsupportedFormat is returned for extensions outside the allowed set
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrTooLarge is returned when an upload exceeds the size limit
	ErrTooLarge = errors.New("document exceeds size limit")

	// ErrEmpty is returned for zero-byte uploads or documents with no text
	ErrEmpty = errors.New("document is empty")
)

// Kind is a supported document format
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindText Kind = "text"
)

var extensions = map[string]struct {
	kind Kind
	mime string
}{
	".pdf":  {KindPDF, "application/pdf"},
	".docx": {KindDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".txt":  {KindText, "text/plain"},
	".md":   {KindText, "text/markdown"},
}

// Document is an uploaded contract ready for assessment
type Document struct {
	Name     string
	Kind     Kind
	MIMEType string
	Data     []byte

	// Text is the locally extracted content, empty for PDFs
	Text string
}

// NeedsUpload reports whether the document must be handed to the inference
// provider as a file because no text could be extracted locally
func (d *Document) NeedsUpload() bool {
	return d.Kind == KindPDF
}

// Classify maps a filename to its kind and media type by extension
func Classify(name string) (Kind, string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	info, ok := extensions[ext]
	if !ok {
		return "", "", eris.Wrapf(ErrUnsupportedFormat, "%q (supported: .pdf, .docx, .txt, .md)", ext)
	}
	return info.kind, info.mime, nil
}

// Load validates an upload and extracts its text where possible. A
// non-positive maxBytes disables the size check.
func Load(name string, data []byte, maxBytes int64) (*Document, error) {
	if len(data) == 0 {
		return nil, eris.Wrapf(ErrEmpty, "%s", name)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, eris.Wrapf(ErrTooLarge, "%s is %d bytes, limit %d", name, len(data), maxBytes)
	}

	kind, mime, err := Classify(name)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Name:     filepath.Base(name),
		Kind:     kind,
		MIMEType: mime,
		Data:     data,
	}

	switch kind {
	case KindDOCX:
		doc.Text, err = DocxText(data)
		if err != nil {
			return nil, err
		}
	case KindText:
		doc.Text = plainText(data)
	}

	if kind != KindPDF && strings.TrimSpace(doc.Text) == "" {
		return nil, eris.Wrapf(ErrEmpty, "%s has no text", name)
	}
	return doc, nil
}

func plainText(data []byte) string {
	s := string(data)
	s = strings.TrimPrefix(s, "\ufeff")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}
