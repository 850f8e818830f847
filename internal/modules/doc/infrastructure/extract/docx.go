package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// extractDOCX 从 OOXML 包内 word/document.xml 取段落文本，
// 非空段落以空行相连
func (e *Extractor) extractDOCX(_ context.Context, path string) (string, map[string]any, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()

	var docXML io.ReadCloser
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			if docXML, err = f.Open(); err != nil {
				return "", nil, err
			}
			break
		}
	}
	if docXML == nil {
		return "", nil, errors.New("docx: word/document.xml 缺失")
	}
	defer docXML.Close()

	paragraphs, err := readParagraphs(docXML, "p", "t")
	if err != nil {
		return "", nil, err
	}
	return strings.Join(paragraphs, "\n\n"), map[string]any{"paragraphs": len(paragraphs)}, nil
}

// readParagraphs 流式遍历 XML，按段落元素聚合文本元素内容，
// 丢弃空段落。paraLocal/textLocal 为待匹配的本地元素名（忽略命名空间）
func readParagraphs(r io.Reader, paraLocal, textLocal string) ([]string, error) {
	dec := xml.NewDecoder(r)
	var paragraphs []string
	var cur strings.Builder
	depth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == paraLocal {
				depth++
				if depth == 1 {
					cur.Reset()
				}
			}
			if depth > 0 && t.Name.Local == textLocal {
				var content string
				if err := dec.DecodeElement(&content, &t); err != nil {
					return nil, err
				}
				cur.WriteString(content)
			}
		case xml.EndElement:
			if t.Name.Local == paraLocal && depth > 0 {
				depth--
				if depth == 0 {
					if s := strings.TrimSpace(cur.String()); s != "" {
						paragraphs = append(paragraphs, s)
					}
				}
			}
		}
	}
	return paragraphs, nil
}
