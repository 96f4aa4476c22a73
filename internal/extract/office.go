package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var errNoDocumentPart = errors.New("document part not found")

func openZip(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open ooxml archive: %w", err)
	}
	return zr, nil
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// paragraphs walks WordprocessingML/DrawingML and returns the text of each
// <p> element in document order. Runs (<t>) are concatenated, <tab> and <br>
// become whitespace.
func paragraphs(content []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var (
		out    []string
		cur    strings.Builder
		depth  int // nesting of <p>
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "t":
				inText = depth > 0
			case "tab":
				if depth > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth > 0 {
					depth--
				}
				if depth == 0 {
					out = append(out, cur.String())
					cur.Reset()
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return out, nil
}

func nonBlank(lines []string) []string {
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, strings.TrimSpace(l))
		}
	}
	return kept
}

func docxText(_ context.Context, data []byte) (string, int, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", 0, err
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		content, err := readPart(f)
		if err != nil {
			return "", 0, err
		}
		paras, err := paragraphs(content)
		if err != nil {
			return "", 0, fmt.Errorf("parse document.xml: %w", err)
		}
		kept := nonBlank(paras)
		return strings.Join(kept, "\n"), 1, nil
	}
	return "", 0, errNoDocumentPart
}

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

const relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

type presentationPart struct {
	SlideIDs []struct {
		Attrs []xml.Attr `xml:",any,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsPart struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func decodePart(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return errNoDocumentPart
	}
	content, err := readPart(f)
	if err != nil {
		return err
	}
	return xml.Unmarshal(content, v)
}

// deckOrder lists slide parts as ppt/presentation.xml orders them. Parts the
// presentation does not reference are not slides of the deck.
func deckOrder(files map[string]*zip.File) ([]*zip.File, error) {
	var pres presentationPart
	if err := decodePart(files, "ppt/presentation.xml", &pres); err != nil {
		return nil, err
	}
	var rels relationshipsPart
	if err := decodePart(files, "ppt/_rels/presentation.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		if strings.HasPrefix(r.Target, "/") {
			targets[r.ID] = strings.TrimPrefix(r.Target, "/")
		} else {
			targets[r.ID] = path.Join("ppt", r.Target)
		}
	}

	var slides []*zip.File
	for _, id := range pres.SlideIDs {
		for _, a := range id.Attrs {
			if a.Name.Space != relNS || a.Name.Local != "id" {
				continue
			}
			if f, ok := files[targets[a.Value]]; ok {
				slides = append(slides, f)
			}
		}
	}
	if len(slides) == 0 {
		return nil, errNoDocumentPart
	}
	return slides, nil
}

// partOrder is the fallback for archives without a usable presentation part:
// slides sorted by the number in their part name.
func partOrder(files map[string]*zip.File) []*zip.File {
	type numbered struct {
		num  int
		file *zip.File
	}
	var found []numbered
	for name, f := range files {
		m := slidePart.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		found = append(found, numbered{num: n, file: f})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].num < found[j].num })
	out := make([]*zip.File, len(found))
	for i, n := range found {
		out[i] = n.file
	}
	return out
}

func pptxText(_ context.Context, data []byte) (string, int, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", 0, err
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	slides, err := deckOrder(files)
	if err != nil {
		slides = partOrder(files)
	}
	if len(slides) == 0 {
		return "", 0, errNoDocumentPart
	}

	var blocks []string
	for i, f := range slides {
		content, err := readPart(f)
		if err != nil {
			// one unreadable slide does not cost us the rest of the deck
			continue
		}
		shapes, err := shapeTexts(content)
		if err != nil || len(shapes) == 0 {
			continue
		}
		// markers count skipped slides so they match the deck position
		blocks = append(blocks, fmt.Sprintf("--- Slide %d ---\n%s", i+1, strings.Join(shapes, "\n")))
	}
	return strings.Join(blocks, "\n\n"), len(blocks), nil
}

// shapeTexts returns the text of every text-bearing shape (<txBody>) on a slide.
// Paragraphs inside one shape are joined with newlines.
func shapeTexts(content []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var (
		shapes []string
		paras  []string
		cur    strings.Builder
		inBody bool
		inPara bool
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return shapes, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "txBody":
				inBody, paras = true, nil
			case "p":
				inPara = inBody
				cur.Reset()
			case "t":
				inText = inPara
			case "br":
				if inPara {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					paras = append(paras, cur.String())
				}
				inPara = false
			case "txBody":
				if txt := strings.TrimSpace(strings.Join(paras, "\n")); txt != "" {
					shapes = append(shapes, txt)
				}
				inBody = false
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return shapes, nil
}
