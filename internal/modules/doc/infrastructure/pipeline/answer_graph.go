package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"

	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
	"DocPilot/pkg/zlog"
)

type answerState struct {
	Req *AnswerRequest

	QueryVector []float32
	Hits        []repository.VectorSearchHit
	ContextText string
	Answer      string

	Start time.Time
	Err   error
}

func (p *AnswerPipeline) buildGraph(ctx context.Context) (compose.Runnable[*AnswerRequest, *AnswerResult], error) {
	const (
		Validate     = "Validate"
		EmbedQuery   = "EmbedQuery"
		Retrieve     = "Retrieve"
		BuildContext = "BuildContext"
		Generate     = "Generate"
		Persist      = "Persist"
	)

	g := compose.NewGraph[*AnswerRequest, *AnswerResult]()

	_ = g.AddLambdaNode(Validate, compose.InvokableLambdaWithOption(p.validateNode), compose.WithNodeName(Validate))
	_ = g.AddLambdaNode(EmbedQuery, compose.InvokableLambdaWithOption(p.embedQueryNode), compose.WithNodeName(EmbedQuery))
	_ = g.AddLambdaNode(Retrieve, compose.InvokableLambdaWithOption(p.retrieveNode), compose.WithNodeName(Retrieve))
	_ = g.AddLambdaNode(BuildContext, compose.InvokableLambdaWithOption(p.buildContextNode), compose.WithNodeName(BuildContext))
	_ = g.AddLambdaNode(Generate, compose.InvokableLambdaWithOption(p.generateNode), compose.WithNodeName(Generate))
	_ = g.AddLambdaNode(Persist, compose.InvokableLambdaWithOption(p.persistNode), compose.WithNodeName(Persist))

	_ = g.AddEdge(compose.START, Validate)
	_ = g.AddEdge(Validate, EmbedQuery)
	_ = g.AddEdge(EmbedQuery, Retrieve)
	_ = g.AddEdge(Retrieve, BuildContext)
	_ = g.AddEdge(BuildContext, Generate)
	_ = g.AddEdge(Generate, Persist)
	_ = g.AddEdge(Persist, compose.END)

	return g.Compile(ctx, compose.WithGraphName("DocAnswerPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

func (p *AnswerPipeline) validateNode(ctx context.Context, req *AnswerRequest, _ ...any) (*answerState, error) {
	_ = ctx
	st := &answerState{Req: req, Start: time.Now()}
	if req == nil || strings.TrimSpace(req.Query) == "" {
		st.Err = ErrBlankQuery
	}
	return st, nil
}

func (p *AnswerPipeline) embedQueryNode(ctx context.Context, st *answerState, _ ...any) (*answerState, error) {
	if st.Err != nil {
		return st, nil
	}

	vectors, err := p.embedder.EmbedStrings(ctx, []string{st.Req.Query})
	if err != nil {
		st.Err = fmt.Errorf("embed query: %w", err)
		return st, nil
	}
	if len(vectors) != 1 {
		st.Err = fmt.Errorf("embed query: got %d vectors, want 1", len(vectors))
		return st, nil
	}
	vec32 := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		vec32[i] = float32(v)
	}
	st.QueryVector = vec32
	return st, nil
}

func (p *AnswerPipeline) retrieveNode(ctx context.Context, st *answerState, _ ...any) (*answerState, error) {
	if st.Err != nil {
		return st, nil
	}

	hits, err := p.coordinator.QueryNearest(ctx, st.QueryVector, retrieveTopK)
	if err != nil {
		st.Err = fmt.Errorf("vector search: %w", err)
		return st, nil
	}
	if len(hits) == 0 {
		st.Err = ErrNoRelevantDocuments
		return st, nil
	}
	st.Hits = hits
	return st, nil
}

func (p *AnswerPipeline) buildContextNode(ctx context.Context, st *answerState, _ ...any) (*answerState, error) {
	_ = ctx
	if st.Err != nil {
		return st, nil
	}

	n := contextTopN
	if len(st.Hits) < n {
		n = len(st.Hits)
	}
	parts := make([]string, 0, n)
	for _, h := range st.Hits[:n] {
		if t := strings.TrimSpace(h.Content); t != "" {
			parts = append(parts, t)
		}
	}
	st.ContextText = strings.Join(parts, "\n\n")
	return st, nil
}

func (p *AnswerPipeline) generateNode(ctx context.Context, st *answerState, _ ...any) (*answerState, error) {
	if st.Err != nil {
		return st, nil
	}

	answer, err := p.generator.Generate(ctx, st.ContextText, st.Req.Query)
	if err != nil {
		st.Err = fmt.Errorf("generate answer: %w", err)
		return st, nil
	}
	st.Answer = answer
	return st, nil
}

func (p *AnswerPipeline) persistNode(ctx context.Context, st *answerState, _ ...any) (*AnswerResult, error) {
	if st.Err != nil {
		zlog.Warn("问答流程终止",
			zap.Int64("durationMs", elapsedMs(st.Start)),
			zap.Error(st.Err))
		return nil, st.Err
	}

	ids := make([]string, 0, len(st.Hits))
	sources := make([]AnswerSource, 0, len(st.Hits))
	for _, h := range st.Hits {
		ids = append(ids, h.ID)
		sources = append(sources, AnswerSource{
			ID:        h.ID,
			ChunkText: h.Content,
			Metadata:  h.MetadataJSON,
			Score:     h.Score,
		})
	}

	idsJSON, _ := json.Marshal(ids)
	record := &entity.QueryHistory{
		QueryText: st.Req.Query,
		TopIds:    string(idsJSON),
		Answer:    st.Answer,
		CreatedAt: time.Now(),
	}
	if asker := strings.TrimSpace(st.Req.AskerID); asker != "" {
		record.UserId = sql.NullString{String: asker, Valid: true}
	}
	if err := p.history.Create(ctx, record); err != nil {
		// 审计落库失败不吞答案，但必须让调用方知道
		return nil, fmt.Errorf("persist query record: %w", err)
	}

	zlog.Info("问答完成",
		zap.Int("retrieved", len(st.Hits)),
		zap.Int64("durationMs", elapsedMs(st.Start)))
	return &AnswerResult{Answer: st.Answer, Sources: sources}, nil
}
