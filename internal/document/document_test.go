package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>SUPPLY AGREEMENT</w:t></w:r></w:p>
    <w:p>
      <w:r><w:t xml:space="preserve">Seller: </w:t></w:r>
      <w:r><w:t>Acme Ltd</w:t></w:r>
    </w:p>
    <w:p><w:r><w:t>Term</w:t><w:tab/><w:t>24 months</w:t><w:br/><w:t>renewable</w:t></w:r></w:p>
    <w:tbl><w:tr>
      <w:tc><w:p><w:r><w:t>Price</w:t></w:r></w:p></w:tc>
      <w:tc><w:p><w:r><w:t>EUR 10 &amp; VAT</w:t></w:r></w:p></w:tc>
    </w:tr></w:tbl>
  </w:body>
</w:document>`

func buildDocx(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDocxText(t *testing.T) {
	data := buildDocx(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   docxBody,
	})

	text, err := DocxText(data)
	require.NoError(t, err)
	assert.Equal(t, "SUPPLY AGREEMENT\nSeller: Acme Ltd\nTerm\t24 months\nrenewable\nPrice\nEUR 10 & VAT", text)
}

func TestDocxText_Invalid(t *testing.T) {
	_, err := DocxText([]byte("not a zip"))
	assert.Error(t, err)

	_, err = DocxText(buildDocx(t, map[string]string{"word/other.xml": "<x/>"}))
	assert.Error(t, err)

	_, err = DocxText(buildDocx(t, map[string]string{"word/document.xml": "<w:document><unclosed>"}))
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		mime string
	}{
		{"contract.PDF", KindPDF, "application/pdf"},
		{"contract.docx", KindDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"notes.txt", KindText, "text/plain"},
		{"terms.md", KindText, "text/markdown"},
	}
	for _, tt := range tests {
		kind, mime, err := Classify(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.kind, kind, tt.name)
		assert.Equal(t, tt.mime, mime, tt.name)
	}

	for _, name := range []string{"contract.doc", "archive.zip", "noext"} {
		_, _, err := Classify(name)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat), name)
	}
}

func TestLoad(t *testing.T) {
	doc, err := Load("uploads/contract.pdf", []byte("%PDF-1.7 ..."), 1024)
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", doc.Name)
	assert.True(t, doc.NeedsUpload())
	assert.Empty(t, doc.Text)

	doc, err = Load("terms.txt", []byte("\ufeffClause 1\r\nClause 2"), 0)
	require.NoError(t, err)
	assert.False(t, doc.NeedsUpload())
	assert.Equal(t, "Clause 1\nClause 2", doc.Text)

	docx := buildDocx(t, map[string]string{"word/document.xml": docxBody})
	doc, err = Load("agreement.docx", docx, 0)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Acme Ltd")
	assert.Equal(t, docx, doc.Data)
}

func TestLoad_Rejections(t *testing.T) {
	_, err := Load("a.pdf", nil, 0)
	assert.True(t, errors.Is(err, ErrEmpty))

	_, err = Load("a.pdf", bytes.Repeat([]byte("x"), 11), 10)
	assert.True(t, errors.Is(err, ErrTooLarge))

	_, err = Load("a.exe", []byte("MZ"), 0)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = Load("blank.md", []byte("  \n\t"), 0)
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestPlainText_InvalidUTF8(t *testing.T) {
	assert.Equal(t, "ok\uFFFDok", plainText([]byte{'o', 'k', 0xff, 'o', 'k'}))
}
