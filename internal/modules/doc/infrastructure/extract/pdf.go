package extract

import (
	"context"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// extractPDF 逐页抽取 PDF 内嵌文本，并统计疑似表格数量。
// 全文抽取为空（扫描件）时转 OCR 光栅化识别。
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, map[string]any, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", nil, err
	}
	defer doc.Close()

	var pages []string
	tables := 0
	for n := 0; n < doc.NumPage(); n++ {
		pageText, err := doc.Text(n)
		if err != nil {
			return "", nil, err
		}
		tables += countTables(pageText)
		if t := strings.TrimSpace(pageText); t != "" {
			pages = append(pages, t)
		}
	}

	text := strings.Join(pages, "\n")
	meta := map[string]any{
		"pages":        doc.NumPage(),
		"tables_found": tables,
	}

	if strings.TrimSpace(text) == "" {
		// 无内嵌文本层，走 OCR 兜底
		ocrText, err := e.ocr.RecognizePDF(ctx, path)
		if err != nil {
			return "", nil, err
		}
		text = ocrText
	}
	return text, meta, nil
}

// countTables 表格计数启发：连续 2 行以上出现多列对齐
// （制表符或两个以上连续空格分隔）视为一张表
func countTables(pageText string) int {
	count := 0
	run := 0
	for _, line := range strings.Split(pageText, "\n") {
		if isTabularLine(line) {
			run++
			continue
		}
		if run >= 2 {
			count++
		}
		run = 0
	}
	if run >= 2 {
		count++
	}
	return count
}

func isTabularLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	return strings.Count(line, "\t") >= 1 || strings.Contains(line, "  ")
}
