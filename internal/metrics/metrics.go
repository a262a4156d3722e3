package metrics

import "github.com/zeromicro/go-zero/core/metric"

const namespace = "trade_indexer"

// 跳过原因码。每条原始记录要么产出 TradeAction，要么按原因计数，
// 不允许静默丢弃。
const (
	ReasonUnrecognized = "unrecognized_protocol"
	ReasonMalformed    = "malformed_record"
	ReasonNotTrade     = "not_trade"
)

var (
	recordsDecoded = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "records_decoded_total",
		Help:      "已成功解码为 TradeAction 的原始记录数",
		Labels:    []string{"protocol"},
	})

	recordsSkipped = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "records_skipped_total",
		Help:      "按原因码统计的跳过记录数",
		Labels:    []string{"reason"},
	})

	eventsPublished = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: namespace,
		Subsystem: "publisher",
		Name:      "events_published_total",
		Help:      "按输出流统计的已发布事件数",
		Labels:    []string{"stream"},
	})

	blocksProcessed = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "blocks_processed_total",
		Help:      "已完整发布并推进 checkpoint 的区块数",
		Labels:    []string{},
	})
)

func IncDecoded(protocol string) {
	recordsDecoded.Inc(protocol)
}

func IncSkipped(reason string) {
	recordsSkipped.Inc(reason)
}

func AddPublished(stream string, n int) {
	eventsPublished.Add(float64(n), stream)
}

func IncBlockProcessed() {
	blocksProcessed.Inc()
}
