package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"

	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/pkg/zlog"
)

type ingestState struct {
	Req *IngestRequest

	Doc        *entity.Document
	Text       string
	Metadata   map[string]any
	Chunks     []string
	Embeddings [][]float64
	ChunkCount int

	// Done 置位后后续节点全部直通（零切片早停）
	Done  bool
	Start time.Time
	Err   error
}

func (p *IngestPipeline) buildGraph(ctx context.Context) (compose.Runnable[*IngestRequest, *IngestResult], error) {
	const (
		Load        = "Load"
		Extract     = "Extract"
		PersistText = "PersistText"
		Chunk       = "Chunk"
		Embed       = "Embed"
		Replace     = "Replace"
		Finalize    = "Finalize"
	)

	g := compose.NewGraph[*IngestRequest, *IngestResult]()

	_ = g.AddLambdaNode(Load, compose.InvokableLambdaWithOption(p.loadNode), compose.WithNodeName(Load))
	_ = g.AddLambdaNode(Extract, compose.InvokableLambdaWithOption(p.extractNode), compose.WithNodeName(Extract))
	_ = g.AddLambdaNode(PersistText, compose.InvokableLambdaWithOption(p.persistTextNode), compose.WithNodeName(PersistText))
	_ = g.AddLambdaNode(Chunk, compose.InvokableLambdaWithOption(p.chunkNode), compose.WithNodeName(Chunk))
	_ = g.AddLambdaNode(Embed, compose.InvokableLambdaWithOption(p.embedNode), compose.WithNodeName(Embed))
	_ = g.AddLambdaNode(Replace, compose.InvokableLambdaWithOption(p.replaceNode), compose.WithNodeName(Replace))
	_ = g.AddLambdaNode(Finalize, compose.InvokableLambdaWithOption(p.finalizeNode), compose.WithNodeName(Finalize))

	_ = g.AddEdge(compose.START, Load)
	_ = g.AddEdge(Load, Extract)
	_ = g.AddEdge(Extract, PersistText)
	_ = g.AddEdge(PersistText, Chunk)
	_ = g.AddEdge(Chunk, Embed)
	_ = g.AddEdge(Embed, Replace)
	_ = g.AddEdge(Replace, Finalize)
	_ = g.AddEdge(Finalize, compose.END)

	return g.Compile(ctx, compose.WithGraphName("DocIngestPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

func (p *IngestPipeline) loadNode(ctx context.Context, req *IngestRequest, _ ...any) (*ingestState, error) {
	st := &ingestState{Req: req, Start: time.Now()}
	if req == nil || req.DocumentID <= 0 {
		st.Err = fmt.Errorf("invalid document id")
		return st, nil
	}

	doc, err := p.docs.GetByID(ctx, req.DocumentID)
	if err != nil {
		st.Err = fmt.Errorf("load document %d: %w", req.DocumentID, err)
		return st, nil
	}
	if doc == nil {
		st.Err = fmt.Errorf("document %d not found", req.DocumentID)
		return st, nil
	}
	st.Doc = doc
	return st, nil
}

func (p *IngestPipeline) extractNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st.Err != nil {
		return st, nil
	}
	// 单格式处理失败已在 Extractor 内降级为空文本，不会在此报错
	st.Text, st.Metadata = p.extractor.Extract(ctx, st.Doc.FilePath)
	return st, nil
}

func (p *IngestPipeline) persistTextNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st.Err != nil {
		return st, nil
	}

	metaJSON := "{}"
	if len(st.Metadata) > 0 {
		if bs, err := json.Marshal(st.Metadata); err == nil {
			metaJSON = string(bs)
		}
	}
	// 抽取结果先落库再继续，后续失败时现场仍可追查
	if err := p.docs.UpdateExtraction(ctx, st.Doc.Id, st.Text, metaJSON); err != nil {
		st.Err = fmt.Errorf("persist extracted text: %w", err)
		return st, nil
	}

	if blankText(st.Text) {
		zlog.Info("文档无可用文本，按零切片结束",
			zap.Int64("documentId", st.Doc.Id),
			zap.String("fileType", st.Doc.FileType))
		st.Done = true
	}
	return st, nil
}

func (p *IngestPipeline) chunkNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	_ = ctx
	if st.Err != nil || st.Done {
		return st, nil
	}

	st.Chunks = p.chunker.Chunk(st.Text)
	if len(st.Chunks) == 0 {
		st.Done = true
	}
	return st, nil
}

func (p *IngestPipeline) embedNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st.Err != nil || st.Done {
		return st, nil
	}

	vectors, err := p.embedder.EmbedStrings(ctx, st.Chunks)
	if err != nil {
		st.Err = fmt.Errorf("embed %d chunks: %w", len(st.Chunks), err)
		return st, nil
	}
	st.Embeddings = vectors
	return st, nil
}

func (p *IngestPipeline) replaceNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st.Err != nil || st.Done {
		return st, nil
	}

	n, err := p.coordinator.ReplaceChunksAndVectors(ctx, st.Doc, st.Chunks, st.Embeddings)
	if err != nil {
		st.Err = fmt.Errorf("replace chunks and vectors: %w", err)
		return st, nil
	}
	st.ChunkCount = n
	return st, nil
}

func (p *IngestPipeline) finalizeNode(ctx context.Context, st *ingestState, _ ...any) (*IngestResult, error) {
	_ = ctx
	if st.Err != nil {
		docID := int64(0)
		if st.Req != nil {
			docID = st.Req.DocumentID
		}
		zlog.Error("文档摄取失败",
			zap.Int64("documentId", docID),
			zap.Int64("durationMs", elapsedMs(st.Start)),
			zap.Error(st.Err))
		return nil, st.Err
	}

	res := &IngestResult{
		DocumentID: st.Doc.Id,
		FileType:   st.Doc.FileType,
		TextChars:  len([]rune(st.Text)),
		Chunks:     st.ChunkCount,
		DurationMs: elapsedMs(st.Start),
	}
	zlog.Info("文档摄取完成",
		zap.Int64("documentId", res.DocumentID),
		zap.String("fileType", res.FileType),
		zap.Int("chunks", res.Chunks),
		zap.Int64("durationMs", res.DurationMs))
	return res, nil
}
