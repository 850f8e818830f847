package repository

import (
	"context"

	"DocPilot/internal/modules/doc/domain/entity"
)

// QueryHistoryRepository 问答审计记录的持久化（只追加，不修改不删除）
type QueryHistoryRepository interface {
	Create(ctx context.Context, record *entity.QueryHistory) error
	ListRecent(ctx context.Context, limit int) ([]entity.QueryHistory, error)
}
