package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"DocPilot/internal/modules/doc/application/dto/request"
	"DocPilot/internal/modules/doc/application/dto/respond"
	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
	"DocPilot/internal/modules/doc/infrastructure/pipeline"
	"DocPilot/pkg/redis"
	"DocPilot/pkg/xerr"
	"DocPilot/pkg/zlog"
)

// SearchService 文档问答服务
type SearchService interface {
	Search(ctx context.Context, req request.SearchRequest, askerID string) (*respond.SearchRespond, error)
}

// answerer 问答流水线入口，便于替换实现
type answerer interface {
	Answer(ctx context.Context, req pipeline.AnswerRequest) (*pipeline.AnswerResult, error)
}

// answerCache 答案缓存。命中与否都不影响审计：每次完成的问答
// 必须落一条 QueryHistory
type answerCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string)
}

type searchService struct {
	pipeline answerer
	history  repository.QueryHistoryRepository
	// cache 为 nil 时关闭缓存
	cache answerCache
}

func NewSearchService(p answerer, history repository.QueryHistoryRepository, cacheTTLSeconds int) SearchService {
	var cache answerCache
	if cacheTTLSeconds > 0 {
		cache = &redisAnswerCache{ttl: time.Duration(cacheTTLSeconds) * time.Second}
	}
	return &searchService{pipeline: p, history: history, cache: cache}
}

func (s *searchService) Search(ctx context.Context, req request.SearchRequest, askerID string) (*respond.SearchRespond, error) {
	if s.pipeline == nil {
		return nil, xerr.ErrServerError
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, xerr.New(xerr.BadRequest, "query 不能为空")
	}

	cacheKey := answerCacheKey(query)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			var out respond.SearchRespond
			if json.Unmarshal([]byte(cached), &out) == nil {
				zlog.Debug("答案缓存命中", zap.String("key", cacheKey))
				// 命中也算一次完成的问答，照常落审计记录
				if err := s.persistCachedAnswer(ctx, query, askerID, &out); err != nil {
					return nil, fmt.Errorf("persist query record: %w", err)
				}
				return &out, nil
			}
		}
	}

	res, err := s.pipeline.Answer(ctx, pipeline.AnswerRequest{Query: query, AskerID: askerID})
	if err != nil {
		if errors.Is(err, pipeline.ErrBlankQuery) {
			return nil, xerr.New(xerr.BadRequest, "query 不能为空")
		}
		if errors.Is(err, pipeline.ErrNoRelevantDocuments) {
			return nil, xerr.New(xerr.NotFound, "未检索到相关文档")
		}
		return nil, err
	}

	out := &respond.SearchRespond{
		Answer:  res.Answer,
		Sources: make([]respond.SearchSource, 0, len(res.Sources)),
	}
	for _, src := range res.Sources {
		meta := src.Metadata
		if strings.TrimSpace(meta) == "" {
			meta = "{}"
		}
		out.Sources = append(out.Sources, respond.SearchSource{
			ID:        src.ID,
			ChunkText: src.ChunkText,
			Metadata:  json.RawMessage(meta),
			Score:     src.Score,
		})
	}

	if s.cache != nil {
		if bs, err := json.Marshal(out); err == nil {
			s.cache.Set(ctx, cacheKey, string(bs))
		}
	}
	return out, nil
}

// persistCachedAnswer 缓存命中路径的审计落库，记录结构与流水线一致
func (s *searchService) persistCachedAnswer(ctx context.Context, query, askerID string, out *respond.SearchRespond) error {
	if s.history == nil {
		return fmt.Errorf("history repository not configured")
	}
	ids := make([]string, 0, len(out.Sources))
	for _, src := range out.Sources {
		ids = append(ids, src.ID)
	}
	idsJSON, _ := json.Marshal(ids)
	record := &entity.QueryHistory{
		QueryText: query,
		TopIds:    string(idsJSON),
		Answer:    out.Answer,
		CreatedAt: time.Now(),
	}
	if asker := strings.TrimSpace(askerID); asker != "" {
		record.UserId = sql.NullString{String: asker, Valid: true}
	}
	return s.history.Create(ctx, record)
}

func answerCacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "doc:answer:" + hex.EncodeToString(sum[:])
}

// redisAnswerCache 基于 pkg/redis 的默认缓存实现，未连接时静默跳过
type redisAnswerCache struct {
	ttl time.Duration
}

func (c *redisAnswerCache) Get(ctx context.Context, key string) (string, bool) {
	if !redis.IsConnected() {
		return "", false
	}
	v, err := redis.Get(ctx, key)
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *redisAnswerCache) Set(ctx context.Context, key string, value string) {
	if !redis.IsConnected() {
		return
	}
	_ = redis.Set(ctx, key, value, c.ttl)
}
