package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"DocPilot/internal/modules/doc/infrastructure/mq"
	"DocPilot/pkg/zlog"
)

// IngestTask 摄取队列消息体
type IngestTask struct {
	DocumentID int64 `json:"document_id"`
}

// Ingestor 由 application 层的摄取服务实现，避免反向依赖
type Ingestor interface {
	Ingest(ctx context.Context, documentID int64) (int, error)
}

// PublishIngestTask 把文档摄取任务投递到队列。
// key 用文档 id，哈希分区下同文档任务保序
func PublishIngestTask(ctx context.Context, pub mq.Publisher, topic string, documentID int64) error {
	if pub == nil {
		return errors.New("publisher is nil")
	}
	if documentID <= 0 {
		return fmt.Errorf("invalid document id: %d", documentID)
	}
	payload, err := json.Marshal(IngestTask{DocumentID: documentID})
	if err != nil {
		return err
	}
	_, err = pub.Publish(ctx, mq.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(documentID, 10)),
		Value: payload,
	})
	return err
}

// IngestConsumerWorker 消费摄取任务并调用摄取服务。
// 配合单分区 topic 使用即得全局串行摄取
type IngestConsumerWorker struct {
	consumer mq.Consumer
	ingestor Ingestor
}

func NewIngestConsumerWorker(consumer mq.Consumer, ingestor Ingestor) (*IngestConsumerWorker, error) {
	if consumer == nil || ingestor == nil {
		return nil, errors.New("ingest worker missing dependency")
	}
	return &IngestConsumerWorker{consumer: consumer, ingestor: ingestor}, nil
}

// Run 阻塞消费直到 ctx 取消
func (w *IngestConsumerWorker) Run(ctx context.Context) error {
	return w.consumer.Run(ctx, w)
}

func (w *IngestConsumerWorker) Close() error {
	return w.consumer.Close()
}

func (w *IngestConsumerWorker) Handle(ctx context.Context, msg mq.Message) error {
	var task IngestTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		// 消息体损坏重试无意义，记日志后按已处理提交
		zlog.Error("摄取消息解析失败，跳过",
			zap.ByteString("value", msg.Value), zap.Error(err))
		return nil
	}
	if task.DocumentID <= 0 {
		zlog.Error("摄取消息缺少文档 id，跳过", zap.ByteString("value", msg.Value))
		return nil
	}

	chunks, err := w.ingestor.Ingest(ctx, task.DocumentID)
	if err != nil {
		zlog.Error("队列摄取失败",
			zap.Int64("documentId", task.DocumentID), zap.Error(err))
		return err
	}
	zlog.Info("队列摄取完成",
		zap.Int64("documentId", task.DocumentID), zap.Int("chunks", chunks))
	return nil
}
