package mq

import "context"

// 消息队列抽象：摄取任务经单分区 topic 串行投递，
// broker 细节（sarama）由 kafka 子包适配

type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type PublishResult struct {
	Partition int32
	Offset    int64
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) (PublishResult, error)
	Close() error
}

type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type Consumer interface {
	// Run 阻塞消费直到 ctx 取消或发生不可恢复错误
	Run(ctx context.Context, handler Handler) error
	Close() error
}
