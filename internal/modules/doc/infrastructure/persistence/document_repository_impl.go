package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
)

type documentRepositoryImpl struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) repository.DocumentRepository {
	return &documentRepositoryImpl{db: db}
}

func (r *documentRepositoryImpl) Create(ctx context.Context, doc *entity.Document) error {
	if doc == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepositoryImpl) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&doc).Error
	if err == nil {
		return &doc, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *documentRepositoryImpl) List(ctx context.Context, limit, offset int) ([]entity.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var docs []entity.Document
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&docs).Error
	return docs, err
}

func (r *documentRepositoryImpl) UpdateExtraction(ctx context.Context, id int64, text string, metadataJSON string) error {
	if metadataJSON == "" {
		metadataJSON = "{}"
	}
	return r.db.WithContext(ctx).Model(&entity.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"extracted_text": text,
			"metadata_json":  metadataJSON,
		}).Error
}
