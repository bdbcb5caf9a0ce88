package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/invoice-entities/internal/common"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

func (e *Extractor) extractDocx(path string) (Result, error) {
	paras, err := readDocxParagraphs(path)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: strings.Join(paras, "\n"), Method: MethodDocxXML}, nil
}

// readDocxParagraphs returns the text of every non-empty body paragraph in
// document order.
func readDocxParagraphs(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open container: %v", common.ErrParse, err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: word/document.xml not found", common.ErrParse)
	}
	rc, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open document part: %v", common.ErrParse, err)
	}
	defer rc.Close()

	paras, err := parseParagraphs(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrParse, err)
	}
	return paras, nil
}

// parseParagraphs keeps only paragraphs that are direct children of w:body.
// Table cells and text boxes are not part of the body paragraph list.
func parseParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out       []string
		path      []xml.Name
		para      *strings.Builder
		paraDepth int
		inTextBox int
		inT       bool
	)
	isWord := func(n xml.Name, local string) bool { return n.Space == wordNS && n.Local == local }
	active := func() bool { return para != nil && inTextBox == 0 }

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			parent := xml.Name{}
			if len(path) > 0 {
				parent = path[len(path)-1]
			}
			path = append(path, t.Name)
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if para == nil && isWord(parent, "body") {
					para = &strings.Builder{}
					paraDepth = len(path)
				}
			case "txbxContent":
				inTextBox++
			case "t":
				inT = true
			case "tab":
				if active() {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if active() {
					para.WriteByte('\n')
				}
			}
		case xml.EndElement:
			depth := len(path)
			if depth > 0 {
				path = path[:depth-1]
			}
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inT = false
			case "txbxContent":
				inTextBox--
			case "p":
				if para != nil && depth == paraDepth {
					if para.Len() > 0 {
						out = append(out, para.String())
					}
					para = nil
				}
			}
		case xml.CharData:
			if inT && active() {
				para.Write(t)
			}
		}
	}
	return out, nil
}
