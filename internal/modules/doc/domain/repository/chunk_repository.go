package repository

import (
	"context"

	"DocPilot/internal/modules/doc/domain/entity"
)

// ChunkRepository 负责 chunk 行（MySQL）的持久化
type ChunkRepository interface {
	// CreateBatch 批量写入一个文档的全部 chunk
	CreateBatch(ctx context.Context, chunks []entity.Chunk) error

	// ListByDocument 按 chunk_index 升序返回文档的全部 chunk
	ListByDocument(ctx context.Context, documentID int64) ([]entity.Chunk, error)

	DeleteByDocument(ctx context.Context, documentID int64) error

	// DeleteAll 清空 chunk 表（仅 globalPurge 兼容路径使用）
	DeleteAll(ctx context.Context) error
}
