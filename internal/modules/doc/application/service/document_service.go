package service

import (
	"context"
	"strings"
	"time"

	"DocPilot/internal/modules/doc/application/dto/respond"
	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
	"DocPilot/pkg/xerr"
)

// DocumentService 文档查询与手动重摄取
type DocumentService interface {
	Get(ctx context.Context, id int64) (*respond.DocumentRespond, error)
	List(ctx context.Context, page, pageSize int) (*respond.DocumentListRespond, error)
	Reingest(ctx context.Context, documentID int64) (*respond.ReingestRespond, error)
}

type documentService struct {
	docs   repository.DocumentRepository
	chunks repository.ChunkRepository
	ingest IngestService
}

func NewDocumentService(docs repository.DocumentRepository, chunks repository.ChunkRepository, ingest IngestService) DocumentService {
	return &documentService{docs: docs, chunks: chunks, ingest: ingest}
}

func (s *documentService) Get(ctx context.Context, id int64) (*respond.DocumentRespond, error) {
	if id <= 0 {
		return nil, xerr.ErrParam
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, xerr.ErrNotFound
	}
	out := toDocumentRespond(doc)
	// 异步上传的切片数上传时未知，详情页回查补上；列表页不回查
	if rows, err := s.chunks.ListByDocument(ctx, id); err == nil {
		out.Chunks = len(rows)
	}
	return &out, nil
}

func (s *documentService) List(ctx context.Context, page, pageSize int) (*respond.DocumentListRespond, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	docs, err := s.docs.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	out := &respond.DocumentListRespond{Documents: make([]respond.DocumentRespond, 0, len(docs))}
	for i := range docs {
		out.Documents = append(out.Documents, toDocumentRespond(&docs[i]))
	}
	return out, nil
}

func (s *documentService) Reingest(ctx context.Context, documentID int64) (*respond.ReingestRespond, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, xerr.ErrNotFound
	}

	chunks, err := s.ingest.Ingest(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &respond.ReingestRespond{DocumentID: documentID, Chunks: chunks}, nil
}

func toDocumentRespond(doc *entity.Document) respond.DocumentRespond {
	meta := doc.MetadataJson
	if strings.TrimSpace(meta) == "" {
		meta = "{}"
	}
	return respond.DocumentRespond{
		ID:         doc.Id,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		TextChars:  len([]rune(doc.ExtractedText)),
		Metadata:   []byte(meta),
		UploadedAt: doc.UploadedAt.Format(time.RFC3339),
	}
}
