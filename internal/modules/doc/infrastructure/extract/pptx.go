package extract

import (
	"archive/zip"
	"context"
	"sort"
	"strconv"
	"strings"
)

// extractPPTX 遍历 ppt/slides/slideN.xml，按页码顺序收集各形状
// 文本框内容，非空者以空行相连
func (e *Extractor) extractPPTX(_ context.Context, path string) (string, map[string]any, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()

	type slide struct {
		order int
		name  string
	}
	var slides []slide
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			num := strings.TrimSuffix(strings.TrimPrefix(f.Name, "ppt/slides/slide"), ".xml")
			order, err := strconv.Atoi(num)
			if err != nil {
				continue
			}
			slides = append(slides, slide{order: order, name: f.Name})
		}
	}
	// 包内条目顺序不保证，按页码排
	sort.Slice(slides, func(i, j int) bool { return slides[i].order < slides[j].order })

	byName := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		byName[f.Name] = f
	}

	var shapeTexts []string
	for _, s := range slides {
		rc, err := byName[s.name].Open()
		if err != nil {
			return "", nil, err
		}
		// txBody 为形状的文本容器，a:t 为其中的文本片段
		texts, err := readParagraphs(rc, "txBody", "t")
		rc.Close()
		if err != nil {
			return "", nil, err
		}
		shapeTexts = append(shapeTexts, texts...)
	}

	return strings.Join(shapeTexts, "\n\n"), map[string]any{"slides": len(slides)}, nil
}
