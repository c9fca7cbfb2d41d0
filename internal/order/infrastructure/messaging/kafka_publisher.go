// Package messaging 基于 Kafka 的领域事件发布实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/ecommerce/internal/order/domain"
)

// KafkaEventPublisher 将领域事件写入 Kafka
// 事件主题即 topic，key 用业务 ID 保证同一聚合的事件有序。
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher 创建 Kafka 事件发布者
func NewKafkaEventPublisher(brokers []string) *KafkaEventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           5 * time.Second,
	}
	return &KafkaEventPublisher{writer: writer}
}

// Publish 序列化事件并写入对应 topic
func (p *KafkaEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
}

// Close 关闭底层 writer
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// NoopEventPublisher 事件发布者的空实现，测试和降级启动时使用
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return nil
}

var _ domain.EventPublisher = (*KafkaEventPublisher)(nil)
var _ domain.EventPublisher = NoopEventPublisher{}
