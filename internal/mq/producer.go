package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/INTEARnear/trade-indexer/internal/config"
	"github.com/INTEARnear/trade-indexer/pkg/utils"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	defaultBatchSize = 32 * 1024
	defaultLingerMs  = 5
)

// NewKafkaProducer 创建 Kafka 生产者，缺失的输出 topic 先行创建
func NewKafkaProducer(cfg config.KafkaProducerConfig) (*kafka.Producer, error) {
	// 创建管理员客户端来管理 topic
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	meta, err := adminClient.GetMetadata(nil, true, 10000)
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	brokerCount := len(meta.Brokers)

	replicationFactor := 1
	if brokerCount > 1 {
		replicationFactor = 2
	}
	logx.Infof("Kafka broker count = %d, using replication factor = %d", brokerCount, replicationFactor)

	existingTopics := make(map[string]bool)
	for _, topic := range meta.Topics {
		existingTopics[topic.Topic] = true
	}

	// 三个输出流各一个 topic，不存在则创建
	wanted := []struct {
		topic      string
		partitions int
	}{
		{cfg.Topics.Pool, cfg.Partitions.Pool},
		{cfg.Topics.Swap, cfg.Partitions.Swap},
		{cfg.Topics.PoolChange, cfg.Partitions.PoolChange},
	}

	var topicsToCreate []kafka.TopicSpecification
	for _, w := range wanted {
		if existingTopics[w.topic] {
			continue
		}
		partitions := w.partitions
		if partitions <= 0 {
			partitions = 1
		}
		topicsToCreate = append(topicsToCreate, kafka.TopicSpecification{
			Topic:             w.topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
	}

	if len(topicsToCreate) > 0 {
		results, err := adminClient.CreateTopics(ctx, topicsToCreate)
		if err != nil {
			return nil, fmt.Errorf("failed to create topics: %w", err)
		}
		for _, result := range results {
			if result.Error.Code() != kafka.ErrNoError {
				return nil, fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
			}
		}
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := cfg.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		// 基础连接
		"bootstrap.servers": cfg.Brokers,
		"client.id":         fmt.Sprintf("trade-indexer-%s", utils.GetLocalIP()),

		// 生产环境建议 SASL_SSL，这里默认 PLAINTEXT
		//"security.protocol": "SASL_SSL",
		//"sasl.mechanisms":   "SCRAM-SHA-256",
		//"sasl.username":     "user",
		//"sasl.password":     "password",

		// 可靠性保障：幂等生产者，全副本确认
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"max.in.flight.requests.per.connection": 5, // 幂等场景下最大值为 5

		// 超时与重试
		"delivery.timeout.ms": 30000,
		"request.timeout.ms":  30000,
		"retries":             5,
		"retry.backoff.ms":    100,

		// 性能优化
		"batch.size":       batchSize,
		"linger.ms":        lingerMs,
		"compression.type": "none",

		// 消息大小
		"message.max.bytes": 2 * 1024 * 1024, // 2MB
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return producer, nil
}
