package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	bodyPart      = "word/document.xml"
	maxBodyBytes  = 64 << 20
)

// DocxText returns the paragraph text of a .docx body. Tables come out one
// cell per line; headers, footers and comments are ignored.
func DocxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "open docx archive")
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == bodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", eris.Errorf("docx archive has no %s", bodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return "", eris.Wrap(err, "open docx body")
	}
	defer func() { _ = rc.Close() }()

	return wordText(io.LimitReader(rc, maxBodyBytes))
}

func wordText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", eris.Wrap(err, "parse docx body")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "tc":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimRight(line, " \t"); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}
