package dualstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
	"DocPilot/pkg/zlog"
)

// Coordinator StoreCoordinator 的默认实现。
//
// 写入顺序固定为「先向量库后 MySQL」：向量写失败时 MySQL 无残留；
// MySQL 写失败时向量库可能残留本次条目。重建前按 document_id 直接
// 清向量库（不回查 MySQL 行），重跑一次摄取即可清掉这类残留。
type Coordinator struct {
	vectors repository.VectorStore
	chunks  repository.ChunkRepository
	// globalPurge 兼容旧系统行为：重建前清空全部集合与 chunk 表。
	// 多文档部署下会误删其他文档数据，默认关闭，只按文档定点清理
	globalPurge bool
	now         func() time.Time
}

var _ repository.StoreCoordinator = (*Coordinator)(nil)

func NewCoordinator(vectors repository.VectorStore, chunks repository.ChunkRepository, globalPurge bool) *Coordinator {
	return &Coordinator{
		vectors:     vectors,
		chunks:      chunks,
		globalPurge: globalPurge,
		now:         time.Now,
	}
}

// VectorID 切片在向量库中的关联 id，凭 id 即可还原文档与序号
func VectorID(documentID int64, chunkIndex int) string {
	return fmt.Sprintf("doc%d_chunk%d", documentID, chunkIndex)
}

func (c *Coordinator) ReplaceChunksAndVectors(ctx context.Context, doc *entity.Document, chunks []string, embeddings [][]float64) (int, error) {
	if doc == nil {
		return 0, fmt.Errorf("nil document")
	}
	// 数量不符时整体失败，不产生任何写入（包括清理）
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	if err := c.purge(ctx, doc.Id); err != nil {
		return 0, fmt.Errorf("purge stale entries: %w", err)
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	now := c.now()
	items := make([]repository.VectorUpsertItem, 0, len(chunks))
	rows := make([]entity.Chunk, 0, len(chunks))
	for i, text := range chunks {
		vectorID := VectorID(doc.Id, i)
		vec32 := make([]float32, len(embeddings[i]))
		for j, v := range embeddings[i] {
			vec32[j] = float32(v)
		}
		items = append(items, repository.VectorUpsertItem{
			ID:           vectorID,
			Vector:       vec32,
			DocumentID:   doc.Id,
			ChunkIndex:   int64(i),
			Content:      text,
			MetadataJSON: fmt.Sprintf(`{"document_id":%d,"chunk_index":%d}`, doc.Id, i),
		})
		rows = append(rows, entity.Chunk{
			DocumentId: doc.Id,
			ChunkIndex: i,
			Content:    text,
			VectorId:   vectorID,
			CreatedAt:  now,
		})
	}

	// 先向量库后 MySQL，两步之间无跨库事务
	if _, err := c.vectors.Upsert(ctx, items); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}
	if err := c.chunks.CreateBatch(ctx, rows); err != nil {
		return 0, fmt.Errorf("insert chunk rows: %w", err)
	}
	return len(chunks), nil
}

func (c *Coordinator) purge(ctx context.Context, documentID int64) error {
	if c.globalPurge {
		ids, err := c.vectors.ListAllIDs(ctx)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			zlog.Warn("globalPurge 开启，清空全部向量与 chunk",
				zap.Int("vectorCount", len(ids)))
			if err := c.vectors.DeleteByIDs(ctx, ids); err != nil {
				return err
			}
		}
		return c.chunks.DeleteAll(ctx)
	}

	// 按 document_id 清向量库而非回查 MySQL 行：上一轮「向量已写、
	// 行插入失败」的残留向量在 MySQL 中不可见，回查会漏删
	if err := c.vectors.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	return c.chunks.DeleteByDocument(ctx, documentID)
}

func (c *Coordinator) QueryNearest(ctx context.Context, vector []float32, k int) ([]repository.VectorSearchHit, error) {
	return c.vectors.Search(ctx, vector, k)
}
