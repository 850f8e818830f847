package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/compose"

	"DocPilot/internal/modules/doc/domain/repository"
)

// 检索取 top-5，生成上下文只用其中前 3 条：
// 召回多给一点便于前端展示来源，上下文窄一点省生成模型窗口
const (
	retrieveTopK = 5
	contextTopN  = 3
)

// 问答链的业务性终止条件，由接口层映射为 400/404
var (
	ErrBlankQuery          = errors.New("query text is blank")
	ErrNoRelevantDocuments = errors.New("no relevant documents found")
)

type AnswerRequest struct {
	Query string
	// AskerID 提问者标识，可为空（匿名问答）
	AskerID string
}

type AnswerSource struct {
	ID        string  `json:"id"`
	ChunkText string  `json:"chunk_text"`
	Metadata  string  `json:"metadata"`
	Score     float32 `json:"score"`
}

type AnswerResult struct {
	Answer  string         `json:"answer"`
	Sources []AnswerSource `json:"sources"`
}

// AnswerPipeline 问答编排：
// 校验 -> 向量化查询 -> top-K 检索 -> 拼上下文 -> 生成 -> 落审计记录。
// 检索为空时以 ErrNoRelevantDocuments 终止，不触发生成
type AnswerPipeline struct {
	coordinator repository.StoreCoordinator
	history     repository.QueryHistoryRepository
	embedder    embedding.Embedder
	generator   repository.Generator

	r compose.Runnable[*AnswerRequest, *AnswerResult]
}

func NewAnswerPipeline(
	coordinator repository.StoreCoordinator,
	history repository.QueryHistoryRepository,
	embedder embedding.Embedder,
	generator repository.Generator,
) (*AnswerPipeline, error) {
	if coordinator == nil || history == nil || embedder == nil || generator == nil {
		return nil, fmt.Errorf("answer pipeline missing dependency")
	}
	p := &AnswerPipeline{
		coordinator: coordinator,
		history:     history,
		embedder:    embedder,
		generator:   generator,
	}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

func (p *AnswerPipeline) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	return p.r.Invoke(ctx, &req)
}
