package veax

import (
	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

const Protocol = "veax"

const Contract = types.AccountID("veax.near")

// RegisterHandlers 注册 Veax 的记录解码逻辑。Veax 只在主网部署。
func RegisterHandlers(m map[types.AccountID]common.RecordHandler, testnet bool) {
	if testnet {
		return
	}
	m[Contract] = handleRecord
}

func handleRecord(rec *source.RawRecord, _ *source.Transaction, pos types.Pos) (*core.TradeAction, error) {
	if rec.Kind != source.RecordLog {
		return nil, common.ErrNotTradeRecord
	}
	ev, isEvent, err := common.ParseEventLog(rec.Data)
	if err != nil {
		return nil, common.Malformed("event_json", err)
	}
	if !isEvent || ev.Standard != "veax" {
		return nil, common.ErrNotTradeRecord
	}

	switch ev.Event {
	case "swap":
		return extractSwap(ev, pos)
	case "update_pool_state":
		return extractPoolState(ev, pos)
	default:
		return nil, common.ErrNotTradeRecord
	}
}
