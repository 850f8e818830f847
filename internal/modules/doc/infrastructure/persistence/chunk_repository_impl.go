package persistence

import (
	"context"

	"gorm.io/gorm"

	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
)

type chunkRepositoryImpl struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) repository.ChunkRepository {
	return &chunkRepositoryImpl{db: db}
}

func (r *chunkRepositoryImpl) CreateBatch(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&chunks, 200).Error
}

func (r *chunkRepositoryImpl) ListByDocument(ctx context.Context, documentID int64) ([]entity.Chunk, error) {
	var chunks []entity.Chunk
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	return chunks, err
}


func (r *chunkRepositoryImpl) DeleteByDocument(ctx context.Context, documentID int64) error {
	return r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&entity.Chunk{}).Error
}

func (r *chunkRepositoryImpl) DeleteAll(ctx context.Context) error {
	// gorm 拒绝无条件删除，给一个恒真条件
	return r.db.WithContext(ctx).
		Where("id > ?", 0).
		Delete(&entity.Chunk{}).Error
}
