package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"DocPilot/internal/modules/doc/domain/repository"
)

// 生成提示词模板：检索上下文在前，问题在后
const answerPromptTemplate = "Context:\n%s\n\nQuestion: %s\n\nAnswer:"

// EinoGenerator 把 Eino ChatModel 适配为 Generator 能力
type EinoGenerator struct {
	chatModel model.BaseChatModel
}

func NewEinoGenerator(cm model.BaseChatModel) *EinoGenerator {
	return &EinoGenerator{chatModel: cm}
}

func (g *EinoGenerator) Generate(ctx context.Context, contextText, question string) (string, error) {
	msgs := []*schema.Message{
		{Role: schema.User, Content: fmt.Sprintf(answerPromptTemplate, contextText, question)},
	}
	resp, err := g.chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

var _ repository.Generator = (*EinoGenerator)(nil)
