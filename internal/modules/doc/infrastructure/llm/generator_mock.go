package llm

import (
	"context"
	"fmt"
	"strings"

	"DocPilot/internal/modules/doc/domain/repository"
)

// MockGenerator 离线假生成器：不调用任何模型，直接摘取上下文首段
// 作为"答案"返回，供本地联调与测试
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (g *MockGenerator) Generate(ctx context.Context, contextText, question string) (string, error) {
	_ = ctx
	first := strings.TrimSpace(contextText)
	if i := strings.Index(first, "\n\n"); i >= 0 {
		first = first[:i]
	}
	if first == "" {
		return "未找到相关内容", nil
	}
	return fmt.Sprintf("根据已有资料：%s", first), nil
}

var _ repository.Generator = (*MockGenerator)(nil)
