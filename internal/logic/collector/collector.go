package collector

import (
	"errors"
	"fmt"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/metrics"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/zeromicro/go-zero/core/logx"
)

// TxActions 是一笔交易内按发出顺序收齐的已解码 action 列表。
// 零 action 的交易同样合法，不产出事件但不阻碍 checkpoint 推进。
type TxActions struct {
	TxIndex uint32
	Hash    types.Hash
	Actions []*core.TradeAction
}

// Collector 按交易聚拢解码结果。解码本身无状态，
// Collector 只负责顺序校验和跳过计数。
type Collector struct {
	registry *decoder.Registry
}

func New(registry *decoder.Registry) *Collector {
	return &Collector{registry: registry}
}

// CollectTx 逐条解码一笔交易的原始记录，保持发出顺序。
// log index 必须严格递增，乱序视为外部协作方违约，返回致命错误。
func (c *Collector) CollectTx(blockHeight uint64, tx *source.Transaction) (*TxActions, error) {
	out := &TxActions{
		TxIndex: tx.TxIndex,
		Hash:    tx.Hash,
	}

	seen := false
	var lastLogIndex uint32
	for _, rec := range tx.Records {
		if seen && rec.LogIndex <= lastLogIndex {
			return nil, fmt.Errorf("%w: tx %d log index %d after %d",
				types.ErrOrderingViolation, tx.TxIndex, rec.LogIndex, lastLogIndex)
		}
		seen = true
		lastLogIndex = rec.LogIndex

		pos := types.Pos{
			BlockHeight: blockHeight,
			TxIndex:     tx.TxIndex,
			LogIndex:    rec.LogIndex,
		}
		action, err := c.registry.DecodeRecord(&rec, tx, pos)
		if err != nil {
			reason := skipReason(err)
			if reason == metrics.ReasonMalformed {
				logx.Errorf("collector: malformed record at %s from %s: %v", pos, rec.Contract, err)
			}
			metrics.IncSkipped(reason)
			continue
		}
		metrics.IncDecoded(action.Protocol)
		out.Actions = append(out.Actions, action)
	}
	return out, nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, decoder.ErrUnrecognizedProtocol):
		return metrics.ReasonUnrecognized
	case errors.Is(err, common.ErrNotTradeRecord):
		return metrics.ReasonNotTrade
	default:
		return metrics.ReasonMalformed
	}
}
