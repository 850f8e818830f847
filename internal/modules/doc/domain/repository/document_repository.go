package repository

import (
	"context"

	"DocPilot/internal/modules/doc/domain/entity"
)

// DocumentRepository 负责文档元数据（MySQL）的持久化
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error

	// GetByID 未找到时返回 (nil, nil)
	GetByID(ctx context.Context, id int64) (*entity.Document, error)

	List(ctx context.Context, limit, offset int) ([]entity.Document, error)

	// UpdateExtraction 回填抽取文本与元数据（只更新这两列）
	UpdateExtraction(ctx context.Context, id int64, text string, metadataJSON string) error
}
