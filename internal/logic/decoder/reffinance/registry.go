package reffinance

import (
	"strings"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

const Protocol = "ref"

const (
	MainnetContract = types.AccountID("v2.ref-finance.near")
	TestnetContract = types.AccountID("ref-finance-101.testnet")
)

// RegisterHandlers 注册 Ref Finance 的记录解码逻辑
func RegisterHandlers(m map[types.AccountID]common.RecordHandler, testnet bool) {
	contract := MainnetContract
	if testnet {
		contract = TestnetContract
	}
	m[contract] = handleRecord
}

// handleRecord 是 Ref Finance 的主分发入口。
// Ref v2 不发 EVENT_JSON：swap 和流动性都是纯文本日志，按前缀路由；
// storage DataUpdate 走 borsh 池子状态解码。
func handleRecord(rec *source.RawRecord, tx *source.Transaction, pos types.Pos) (*core.TradeAction, error) {
	if rec.Kind == source.RecordState {
		return extractPoolState(rec, pos)
	}

	log := string(rec.Data)
	switch {
	case strings.HasPrefix(log, "Swapped ") || strings.HasPrefix(log, "Swap_by_output "):
		return extractSwap(rec, tx, pos)
	case strings.HasPrefix(log, liquidityAddedPrefix):
		return extractLiquidityAdded(rec, tx, pos)
	case strings.Contains(log, liquidityRemovedMark):
		return extractLiquidityRemoved(rec, tx, pos)
	default:
		return nil, common.ErrNotTradeRecord
	}
}
