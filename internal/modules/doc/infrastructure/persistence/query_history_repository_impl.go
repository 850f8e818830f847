package persistence

import (
	"context"

	"gorm.io/gorm"

	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
)

type queryHistoryRepositoryImpl struct {
	db *gorm.DB
}

func NewQueryHistoryRepository(db *gorm.DB) repository.QueryHistoryRepository {
	return &queryHistoryRepositoryImpl{db: db}
}

func (r *queryHistoryRepositoryImpl) Create(ctx context.Context, record *entity.QueryHistory) error {
	if record == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *queryHistoryRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]entity.QueryHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []entity.QueryHistory
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
