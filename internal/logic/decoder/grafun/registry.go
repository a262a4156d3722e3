package grafun

import (
	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

const Protocol = "grafun"

const Contract = types.AccountID("gra-fun.near")

// RegisterHandlers 注册 GraFun 的记录解码逻辑。GraFun 只在主网部署。
func RegisterHandlers(m map[types.AccountID]common.RecordHandler, testnet bool) {
	if testnet {
		return
	}
	m[Contract] = handleRecord
}

func handleRecord(rec *source.RawRecord, _ *source.Transaction, pos types.Pos) (*core.TradeAction, error) {
	if rec.Kind == source.RecordState {
		return extractPoolState(rec, pos)
	}
	ev, isEvent, err := common.ParseEventLog(rec.Data)
	if err != nil {
		return nil, common.Malformed("event_json", err)
	}
	if !isEvent || ev.Event != "token_swap" {
		return nil, common.ErrNotTradeRecord
	}
	return extractSwap(ev, pos)
}
