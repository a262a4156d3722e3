package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/INTEARnear/trade-indexer/internal/config"
	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/emitter"
	"github.com/INTEARnear/trade-indexer/internal/metrics"
	"github.com/INTEARnear/trade-indexer/internal/mq"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/zeromicro/go-zero/core/logx"
)

// ErrRetryBudgetExhausted 表示发布方的重试预算用尽。
// 调用方必须停止摄入后续区块：事件历史的持久性优先于活性。
var ErrRetryBudgetExhausted = errors.New("publisher: retry budget exhausted")

// eventBatch 是单 topic 单区块的消息载荷：事件按全序键排列，
// 每条事件自带定位字段，消费侧可按键判重与校验顺序。
type eventBatch struct {
	BlockHeight uint64      `json:"block_height"`
	Stream      string      `json:"stream"`
	Events      interface{} `json:"events"`
}

// KafkaPublisher 把 canonical 事件批量追加到三个输出 topic。
// 每个区块最多三条消息（每流一条），整批确认后才视为发布完成。
type KafkaPublisher struct {
	producer *kafka.Producer
	topics   map[string]string // 流名 → topic
	cfg      config.PublishConfig
}

func NewKafkaPublisher(producer *kafka.Producer, cfg config.KafkaProducerConfig, pub config.PublishConfig) *KafkaPublisher {
	if pub.MaxAttempts <= 0 {
		pub.MaxAttempts = 5
	}
	if pub.BackoffMs <= 0 {
		pub.BackoffMs = 200
	}
	if pub.MaxBackoffMs <= 0 {
		pub.MaxBackoffMs = 5000
	}
	if pub.SendTimeoutMs <= 0 {
		pub.SendTimeoutMs = 10000
	}
	return &KafkaPublisher{
		producer: producer,
		topics: map[string]string{
			core.StreamTradePool:       cfg.Topics.Pool,
			core.StreamTradeSwap:       cfg.Topics.Swap,
			core.StreamTradePoolChange: cfg.Topics.PoolChange,
		},
		cfg: pub,
	}
}

// PublishBlock 发布一个区块的全部事件并等待确认。
// 瞬时失败按指数退避重试，预算耗尽返回 ErrRetryBudgetExhausted。
func (p *KafkaPublisher) PublishBlock(ctx context.Context, height uint64, events *emitter.BlockEvents) error {
	jobs, err := p.buildJobs(height, events)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	sendTimeout := time.Duration(p.cfg.SendTimeoutMs) * time.Millisecond
	backoff := time.Duration(p.cfg.BackoffMs) * time.Millisecond
	maxBackoff := time.Duration(p.cfg.MaxBackoffMs) * time.Millisecond

	pending := jobs
	for attempt := 1; ; attempt++ {
		_, failed := mq.SendKafkaJobs(ctx, p.producer, pending, sendTimeout)
		if len(failed) == 0 {
			metrics.AddPublished(core.StreamTradePool, len(events.PoolEvents))
			metrics.AddPublished(core.StreamTradeSwap, len(events.SwapEvents))
			metrics.AddPublished(core.StreamTradePoolChange, len(events.PoolChangeEvents))
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("publish block %d: %w", height, ctx.Err())
		}
		if attempt >= p.cfg.MaxAttempts {
			return fmt.Errorf("publish block %d after %d attempts (%v): %w",
				height, attempt, failed[0].Err, ErrRetryBudgetExhausted)
		}

		// 重发只针对失败的消息；重发布对消费侧是允许的 no-op（按键判重）
		pending = pending[:0]
		for _, res := range failed {
			pending = append(pending, res.Job)
		}
		logx.Errorf("publisher: block %d attempt %d, %d message(s) failed: %v, retrying in %v",
			height, attempt, len(failed), failed[0].Err, backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("publish block %d: %w", height, ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (p *KafkaPublisher) buildJobs(height uint64, events *emitter.BlockEvents) ([]*mq.KafkaJob, error) {
	key := []byte(strconv.FormatUint(height, 10))

	var jobs []*mq.KafkaJob
	add := func(stream string, payload interface{}, count int) error {
		if count == 0 {
			return nil
		}
		value, err := json.Marshal(&eventBatch{
			BlockHeight: height,
			Stream:      stream,
			Events:      payload,
		})
		if err != nil {
			return fmt.Errorf("marshal %s batch at block %d: %w", stream, height, err)
		}
		jobs = append(jobs, &mq.KafkaJob{
			Topic:     p.topics[stream],
			Partition: kafka.PartitionAny,
			Key:       key,
			Value:     value,
		})
		return nil
	}

	if err := add(core.StreamTradePool, events.PoolEvents, len(events.PoolEvents)); err != nil {
		return nil, err
	}
	if err := add(core.StreamTradeSwap, events.SwapEvents, len(events.SwapEvents)); err != nil {
		return nil, err
	}
	if err := add(core.StreamTradePoolChange, events.PoolChangeEvents, len(events.PoolChangeEvents)); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Close 冲刷未确认的消息并关闭生产者
func (p *KafkaPublisher) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
}
