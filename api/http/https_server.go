package http

import (
	"context"
	"fmt"
	"strings"

	"DocPilot/internal/config"
	"DocPilot/internal/initial"
	jwtMiddleware "DocPilot/internal/middleware/jwt"
	"DocPilot/internal/modules/doc/application/service"
	"DocPilot/internal/modules/doc/domain/repository"
	"DocPilot/internal/modules/doc/infrastructure/chunking"
	"DocPilot/internal/modules/doc/infrastructure/dualstore"
	"DocPilot/internal/modules/doc/infrastructure/embedding"
	"DocPilot/internal/modules/doc/infrastructure/extract"
	"DocPilot/internal/modules/doc/infrastructure/llm"
	"DocPilot/internal/modules/doc/infrastructure/mq"
	"DocPilot/internal/modules/doc/infrastructure/mq/kafka"
	"DocPilot/internal/modules/doc/infrastructure/ocr"
	"DocPilot/internal/modules/doc/infrastructure/persistence"
	"DocPilot/internal/modules/doc/infrastructure/pipeline"
	"DocPilot/internal/modules/doc/infrastructure/queue"
	"DocPilot/internal/modules/doc/infrastructure/vectordb"
	docHandler "DocPilot/internal/modules/doc/interface/http"
	"DocPilot/pkg/ssl"
	"DocPilot/pkg/zlog"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var GE *gin.Engine

// IngestWorker 异步摄取消费者，仅 async 模式下非 nil，由 main 启动
var IngestWorker *queue.IngestConsumerWorker

func init() {
	conf := config.GetConfig()

	GE = gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	GE.Use(cors.New(corsConfig))
	GE.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))

	ctx := context.Background()

	// 向量化与生成客户端
	embedder, embMeta, err := embedding.NewEmbedderFromConfig(ctx, conf)
	if err != nil {
		zlog.Fatal(fmt.Sprintf("embedder init failed: %v", err))
	}
	zlog.Info(fmt.Sprintf("embedder ready: provider=%s model=%s dim=%d", embMeta.Provider, embMeta.Model, embMeta.Dim))

	var generator repository.Generator
	chatProvider := strings.ToLower(strings.TrimSpace(conf.AIConfig.ChatModel.Provider))
	if chatProvider == "" || chatProvider == "mock" {
		zlog.Warn("chat model 未配置，问答走离线假生成器")
		generator = llm.NewMockGenerator()
	} else {
		chatModel, cmMeta, err := llm.NewChatModelFromConfig(ctx, conf)
		if err != nil {
			zlog.Fatal(fmt.Sprintf("chat model init failed: %v", err))
		}
		zlog.Info(fmt.Sprintf("chat model ready: provider=%s model=%s", cmMeta.Provider, cmMeta.Model))
		generator = llm.NewEinoGenerator(chatModel)
	}

	// OCR 引擎 + 按格式分派的抽取器
	ocrEngine, err := ocr.NewEngine(conf.OCRConfig.Languages, int(conf.OCRConfig.RasterDPI))
	if err != nil {
		zlog.Fatal(fmt.Sprintf("ocr engine init failed: %v", err))
	}
	extractor := extract.NewExtractor(ocrEngine)

	// 存储层
	if initial.MilvusClient == nil {
		zlog.Fatal("milvus 未配置，无法提供向量检索")
	}
	vectorStore, err := vectordb.NewMilvusStore(
		initial.MilvusClient,
		conf.MilvusConfig.CollectionName,
		conf.MilvusConfig.VectorDim,
		conf.MilvusConfig.MetricType,
	)
	if err != nil {
		zlog.Fatal(fmt.Sprintf("milvus store init failed: %v", err))
	}

	docRepo := persistence.NewDocumentRepository(initial.GormDB)
	chunkRepo := persistence.NewChunkRepository(initial.GormDB)
	historyRepo := persistence.NewQueryHistoryRepository(initial.GormDB)
	coordinator := dualstore.NewCoordinator(vectorStore, chunkRepo, conf.IngestConfig.GlobalPurge)

	// 编排层
	chunker := chunking.NewRecursiveChunker(conf.IngestConfig.ChunkSize, conf.IngestConfig.ChunkOverlap)
	ingestPipeline, err := pipeline.NewIngestPipeline(docRepo, coordinator, extractor, embedder, chunker)
	if err != nil {
		zlog.Fatal(fmt.Sprintf("ingest pipeline init failed: %v", err))
	}
	answerPipeline, err := pipeline.NewAnswerPipeline(coordinator, historyRepo, embedder, generator)
	if err != nil {
		zlog.Fatal(fmt.Sprintf("answer pipeline init failed: %v", err))
	}

	// 应用层
	ingestSvc := service.NewIngestService(ingestPipeline)
	searchSvc := service.NewSearchService(answerPipeline, historyRepo, conf.RedisConfig.AnswerCacheTTLSeconds)
	docSvc := service.NewDocumentService(docRepo, chunkRepo, ingestSvc)

	// 异步摄取（可选）：单分区 topic + 消费者组，全局串行
	var publisher mq.Publisher
	async := conf.IngestConfig.Async && len(conf.KafkaConfig.Brokers) > 0
	if async {
		adminCfg := kafka.TopicAdminConfig{Brokers: conf.KafkaConfig.Brokers, ClientID: conf.KafkaConfig.ClientID}
		if err := kafka.EnsureTopic(adminCfg, conf.KafkaConfig.IngestTopic, conf.KafkaConfig.Partitions, conf.KafkaConfig.Replication); err != nil {
			zlog.Fatal(fmt.Sprintf("kafka ensure topic failed: %v", err))
		}
		publisher, err = kafka.NewPublisher(kafka.PublisherConfig{Brokers: conf.KafkaConfig.Brokers, ClientID: conf.KafkaConfig.ClientID})
		if err != nil {
			zlog.Fatal(fmt.Sprintf("kafka publisher init failed: %v", err))
		}
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:  conf.KafkaConfig.Brokers,
			GroupID:  conf.KafkaConfig.ConsumerGroupID,
			Topics:   []string{conf.KafkaConfig.IngestTopic},
			ClientID: conf.KafkaConfig.ClientID,
		})
		if err != nil {
			zlog.Fatal(fmt.Sprintf("kafka consumer init failed: %v", err))
		}
		IngestWorker, err = queue.NewIngestConsumerWorker(consumer, ingestSvc)
		if err != nil {
			zlog.Fatal(fmt.Sprintf("ingest worker init failed: %v", err))
		}
	}

	uploadSvc := service.NewUploadService(docRepo, ingestSvc, publisher, conf.KafkaConfig.IngestTopic, conf.StorageConfig.Dir, async)

	docH := docHandler.NewDocumentHandler(uploadSvc, docSvc)
	searchH := docHandler.NewSearchHandler(searchSvc)

	// 上传与问答匿名可用，带 token 时记录归属
	open := GE.Group("/")
	open.Use(jwtMiddleware.OptionalAuth())
	open.POST("/doc/upload", docH.Upload)
	open.POST("/doc/search", searchH.Search)

	authed := GE.Group("/")
	authed.Use(jwtMiddleware.Auth())
	authed.POST("/doc/reingest", docH.Reingest)
	authed.GET("/doc/list", docH.List)
	authed.GET("/doc/get", docH.Get)
}
