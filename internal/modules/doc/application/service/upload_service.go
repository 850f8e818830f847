package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"DocPilot/internal/modules/doc/application/dto/respond"
	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
	"DocPilot/internal/modules/doc/infrastructure/extract"
	"DocPilot/internal/modules/doc/infrastructure/mq"
	"DocPilot/internal/modules/doc/infrastructure/queue"
	"DocPilot/pkg/util"
	"DocPilot/pkg/xerr"
	"DocPilot/pkg/zlog"
)

// UploadService 上传边界：落盘文件、建文档记录、触发摄取
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, askerID string) (*respond.UploadRespond, error)
}

type uploadService struct {
	docs       repository.DocumentRepository
	ingest     IngestService
	publisher  mq.Publisher
	topic      string
	storageDir string
	// async 为 true 且 publisher 可用时上传只入队，由消费者摄取
	async bool
}

func NewUploadService(docs repository.DocumentRepository, ingest IngestService, publisher mq.Publisher, topic, storageDir string, async bool) UploadService {
	return &uploadService{
		docs:       docs,
		ingest:     ingest,
		publisher:  publisher,
		topic:      topic,
		storageDir: storageDir,
		async:      async,
	}
}

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, askerID string) (*respond.UploadRespond, error) {
	if file == nil || strings.TrimSpace(file.Filename) == "" {
		return nil, xerr.New(xerr.BadRequest, "缺少上传文件")
	}
	if s.docs == nil || s.ingest == nil {
		return nil, xerr.ErrServerError
	}

	filename := filepath.Base(file.Filename)
	path, err := s.saveFile(file, filename)
	if err != nil {
		zlog.Error("上传文件落盘失败", zap.String("filename", filename), zap.Error(err))
		return nil, xerr.ErrServerError
	}

	doc := &entity.Document{
		FilePath:     path,
		Filename:     filename,
		FileType:     extract.DetectFileType(filename),
		MetadataJson: "{}",
		UploadedAt:   time.Now(),
	}
	if asker := strings.TrimSpace(askerID); asker != "" {
		doc.UserId = sql.NullString{String: asker, Valid: true}
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	out := &respond.UploadRespond{
		DocumentID: doc.Id,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
	}

	if s.async && s.publisher != nil {
		if err := queue.PublishIngestTask(ctx, s.publisher, s.topic, doc.Id); err != nil {
			zlog.Error("摄取任务入队失败", zap.Int64("documentId", doc.Id), zap.Error(err))
			return nil, xerr.ErrServerError
		}
		out.Async = true
		return out, nil
	}

	chunks, err := s.ingest.Ingest(ctx, doc.Id)
	if err != nil {
		// 摄取失败按服务端错误上抛，带上失败原因
		return nil, xerr.New(xerr.InternalServerError, fmt.Sprintf("文档摄取失败: %v", err))
	}
	out.Chunks = chunks
	return out, nil
}

// saveFile 以随机文件名保存，保留原扩展名供后续按格式分派
func (s *uploadService) saveFile(file *multipart.FileHeader, filename string) (string, error) {
	dir := s.storageDir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(dir, util.GenerateUUID()+strings.ToLower(filepath.Ext(filename)))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
