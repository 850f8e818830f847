package extract

import (
	"context"
	"encoding/csv"
	"os"
	"strings"
)

// extractCSV 将表格渲染为制表符分隔的文本表，首行视为列名。
// 行宽不齐时短行补空串
func extractCSV(_ context.Context, path string) (string, map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", nil, err
	}
	if len(records) == 0 {
		return "", map[string]any{"columns": []string{}, "rows": 0}, nil
	}

	columns := records[0]
	width := len(columns)
	for _, row := range records {
		if len(row) > width {
			width = len(row)
		}
	}

	var b strings.Builder
	for i, row := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < width; col++ {
			if col > 0 {
				b.WriteByte('\t')
			}
			if col < len(row) {
				b.WriteString(row[col])
			}
		}
	}

	meta := map[string]any{
		"columns": columns,
		"rows":    len(records) - 1,
	}
	return b.String(), meta, nil
}
