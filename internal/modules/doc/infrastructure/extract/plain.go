package extract

import (
	"context"
	"os"
	"strings"
)

// extractPlain 未识别格式的兜底：按 UTF-8 宽容解码，
// 非法字节序列直接丢弃而非报错
func extractPlain(_ context.Context, path string) (string, map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return strings.ToValidUTF8(string(b), ""), map[string]any{}, nil
}
