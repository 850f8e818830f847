package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/compose"

	"DocPilot/internal/modules/doc/domain/repository"
	"DocPilot/internal/modules/doc/infrastructure/chunking"
)

type IngestRequest struct {
	DocumentID int64
}

type IngestResult struct {
	DocumentID int64  `json:"document_id"`
	FileType   string `json:"file_type"`
	TextChars  int    `json:"text_chars"`
	Chunks     int    `json:"chunks"`
	DurationMs int64  `json:"duration_ms"`
}

// IngestPipeline 文档摄取编排：
// 加载 -> 抽取 -> 回填文本 -> 切片 -> 向量化 -> 双写替换。
// 抽取文本为空或切片为空是合法的零切片结局，不算失败。
type IngestPipeline struct {
	docs        repository.DocumentRepository
	coordinator repository.StoreCoordinator
	extractor   repository.TextExtractor
	embedder    embedding.Embedder
	chunker     *chunking.RecursiveChunker

	r compose.Runnable[*IngestRequest, *IngestResult]
}

func NewIngestPipeline(
	docs repository.DocumentRepository,
	coordinator repository.StoreCoordinator,
	extractor repository.TextExtractor,
	embedder embedding.Embedder,
	chunker *chunking.RecursiveChunker,
) (*IngestPipeline, error) {
	if docs == nil || coordinator == nil || extractor == nil || embedder == nil {
		return nil, fmt.Errorf("ingest pipeline missing dependency")
	}
	if chunker == nil {
		chunker = chunking.NewRecursiveChunker(chunking.DefaultChunkSize, chunking.DefaultChunkOverlap)
	}
	p := &IngestPipeline{
		docs:        docs,
		coordinator: coordinator,
		extractor:   extractor,
		embedder:    embedder,
		chunker:     chunker,
	}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// Ingest 跑完整条摄取链，返回写入的 chunk 数等统计。
// 注意：相同文档的并发摄取不安全，调用方（service 层）负责串行化
func (p *IngestPipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	return p.r.Invoke(ctx, &req)
}

// blankText 全空白判定，覆盖零切片早停
func blankText(s string) bool {
	return strings.TrimSpace(s) == ""
}

// elapsedMs 自 start 起经过的毫秒数
func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
