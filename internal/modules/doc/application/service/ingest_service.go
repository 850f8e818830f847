package service

import (
	"context"
	"sync"

	"DocPilot/internal/modules/doc/infrastructure/pipeline"
	"DocPilot/pkg/xerr"
)

// IngestService 文档摄取入口。
//
// 摄取链里的「清理旧数据再整体重写」在并发下会互相踩踏，
// 服务层用互斥锁保证进程内同一时刻至多一次摄取在跑；
// 队列模式下单分区消费者天然串行，锁在那条路径上只是兜底。
type IngestService interface {
	Ingest(ctx context.Context, documentID int64) (int, error)
}

type ingestService struct {
	pipeline *pipeline.IngestPipeline
	mu       sync.Mutex
}

func NewIngestService(p *pipeline.IngestPipeline) IngestService {
	return &ingestService{pipeline: p}
}

func (s *ingestService) Ingest(ctx context.Context, documentID int64) (int, error) {
	if s.pipeline == nil {
		return 0, xerr.ErrServerError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.pipeline.Ingest(ctx, pipeline.IngestRequest{DocumentID: documentID})
	if err != nil {
		return 0, err
	}
	return res.Chunks, nil
}
