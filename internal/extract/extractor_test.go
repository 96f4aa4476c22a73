package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeRunner struct {
	stdout  []byte
	err     error
	name    string
	args    []string
	spooled []byte
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	// the input path is the second to last argument
	if len(args) >= 2 {
		f.spooled, _ = os.ReadFile(args[len(args)-2])
	}
	if f.err != nil {
		return nil, []byte("Syntax Error: Couldn't find trailer dictionary"), f.err
	}
	return f.stdout, nil, nil
}

func buildZip(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Project Alpha</w:t></w:r><w:r><w:t xml:space="preserve"> kickoff</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>   </w:t></w:r></w:p>
    <w:p><w:r><w:t>Held on 2024-01-10</w:t></w:r></w:p>
  </w:body>
</w:document>`

func slideXML(texts ...string) string {
	var b bytes.Buffer
	b.WriteString(`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree>`)
	for _, txt := range texts {
		fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="1" name="t"/></p:nvSpPr><p:txBody><a:bodyPr/><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`, txt)
	}
	b.WriteString(`<p:pic><p:nvPicPr><p:cNvPr id="9" name="img"/></p:nvPicPr></p:pic>`)
	b.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return b.String()
}

func TestExtractDOCX(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	data := buildZip(t, map[string]string{"word/document.xml": docxBody})

	res := e.Extract(context.Background(), data, ".DOCX")
	assert.Equal(t, MethodDOCX, res.Method)
	assert.Equal(t, "Project Alpha kickoff\nHeld on 2024-01-10", res.Text)
}

func presentationParts(targets ...string) map[string]string {
	var ids, rels bytes.Buffer
	for i, target := range targets {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="%s"/>`, i+2, target)
	}
	return map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst><p:sldIdLst>` + ids.String() + `</p:sldIdLst></p:presentation>`,
		"ppt/_rels/presentation.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>` + rels.String() + `</Relationships>`,
	}
}

func TestExtractPPTXFollowsDeckOrder(t *testing.T) {
	parts := presentationParts("slides/slide3.xml", "slides/slide1.xml", "/ppt/slides/slide2.xml")
	parts["ppt/slides/slide1.xml"] = slideXML("First in deck")
	parts["ppt/slides/slide2.xml"] = slideXML("Closing")
	parts["ppt/slides/slide3.xml"] = slideXML()
	// left over from a deleted slide, not referenced by the presentation
	parts["ppt/slides/slide9.xml"] = slideXML("Orphan")

	res := NewExtractor(Config{}, nil).Extract(context.Background(), buildZip(t, parts), "pptx")
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "--- Slide 2 ---\nFirst in deck\n\n--- Slide 3 ---\nClosing", res.Text)
}

func TestExtractPPTXReorderedDeck(t *testing.T) {
	parts := presentationParts("slides/slide2.xml", "slides/slide1.xml")
	parts["ppt/slides/slide1.xml"] = slideXML("First in deck")
	parts["ppt/slides/slide2.xml"] = slideXML("Second in deck")

	res := NewExtractor(Config{}, nil).Extract(context.Background(), buildZip(t, parts), "pptx")
	assert.Equal(t, "--- Slide 1 ---\nSecond in deck\n\n--- Slide 2 ---\nFirst in deck", res.Text)
}

func TestExtractPPTXWithoutPresentationPart(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	data := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml":  slideXML("Intro", "Agenda"),
		"ppt/slides/slide2.xml":  slideXML(),
		"ppt/slides/slide10.xml": slideXML("Wrap up"),
		"ppt/slides/slide3.xml":  slideXML("Budget"),
	})

	res := e.Extract(context.Background(), data, "pptx")
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t,
		"--- Slide 1 ---\nIntro\nAgenda\n\n--- Slide 3 ---\nBudget\n\n--- Slide 4 ---\nWrap up",
		res.Text)
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Name"))
	require.NoError(t, f.SetCellValue("Sheet1", "C1", "Qty"))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "Widget"))
	require.NoError(t, f.SetCellValue("Sheet1", "C3", 4))
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	_, err = f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "B2", "ship in March"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res := NewExtractor(Config{}, nil).Extract(context.Background(), buf.Bytes(), "xlsx")
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "--- Sheet: Sheet1 ---\nName | Qty\nWidget | 4\n\n--- Sheet: Notes ---\nship in March", res.Text)
}

func TestExtractPDFJoinsNonEmptyPages(t *testing.T) {
	r := &fakeRunner{stdout: []byte("first page\n\f   \n\fthird page\n\f")}
	e := NewExtractor(Config{Pdftotext: "/usr/bin/pdftotext"}, nil, WithRunner(r))
	pdf := []byte("%PDF-1.7 fake")

	res := e.Extract(context.Background(), pdf, "pdf")
	assert.Equal(t, "first page\n\nthird page", res.Text)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "/usr/bin/pdftotext", r.name)
	assert.Equal(t, "-", r.args[len(r.args)-1])
	assert.Equal(t, pdf, r.spooled)
}

func TestExtractCorruptFilesReturnEmpty(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	e := NewExtractor(Config{}, nil, WithRunner(r))
	garbage := []byte("this is not an office document")

	for _, ext := range []string{"pdf", "docx", "pptx", "xlsx"} {
		t.Run(ext, func(t *testing.T) {
			res := e.Extract(context.Background(), garbage, ext)
			assert.Empty(t, res.Text)
			assert.NotEmpty(t, res.Warnings)
		})
	}
}

func TestExtractDOCXWithoutDocumentPart(t *testing.T) {
	data := buildZip(t, map[string]string{"word/styles.xml": "<styles/>"})
	res := NewExtractor(Config{}, nil).Extract(context.Background(), data, "docx")
	assert.Empty(t, res.Text)
}

func TestDecodeFallback(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		charset string
	}{
		{"utf8", []byte("Project Alpha kickoff 2024-01-10"), "Project Alpha kickoff 2024-01-10", "utf-8"},
		{"utf8 drops invalid bytes", []byte("caf\xe9 ok"), "caf ok", "utf-8"},
		{"latin1 only", []byte{0xe9, 0xe8}, "éè", "latin-1"},
		{"empty", nil, NotExtractable, ""},
		{"whitespace", []byte(" \n\t "), NotExtractable, ""},
		{"nul bytes", []byte{0, 0, 0}, NotExtractable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, charset := decodeFallback(tt.data)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.charset, charset)
		})
	}
}

func TestExtractPlainTextUsesDecoding(t *testing.T) {
	res := NewExtractor(Config{}, nil).Extract(context.Background(), []byte("# Notes\nhello"), ".md")
	assert.Equal(t, "# Notes\nhello", res.Text)
	assert.Equal(t, "decode-utf-8", res.Method)

	res = NewExtractor(Config{}, nil).Extract(context.Background(), nil, "txt")
	assert.Equal(t, NotExtractable, res.Text)
	assert.Equal(t, MethodNone, res.Method)
}

func TestEstimateProcessingSeconds(t *testing.T) {
	assert.Equal(t, 5, EstimateProcessingSeconds(0))
	assert.Equal(t, 15, EstimateProcessingSeconds(100*1024))
	assert.Equal(t, 45, EstimateProcessingSeconds(1024*1024))
	assert.Equal(t, 90, EstimateProcessingSeconds(10*1024*1024))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("Quarterly.XLSX"))
	assert.False(t, IsSupported("photo.heic"))
	assert.Contains(t, SupportedExtensions(), ".pptx")
}
