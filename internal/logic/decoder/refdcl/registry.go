package refdcl

import (
	"fmt"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

const Protocol = "refdcl"

const Contract = types.AccountID("dclv2.ref-labs.near")

// RegisterHandlers 注册 Ref DCL（集中流动性）的记录解码逻辑。测试网合约地址未知。
func RegisterHandlers(m map[types.AccountID]common.RecordHandler, testnet bool) {
	if testnet {
		return
	}
	m[Contract] = handleRecord
}

// CreatePoolID 生成协议限定的 pool ID。DCL 的 pool_id 本身就是字符串
// （token_a|token_b|fee），直接加前缀。
func CreatePoolID(poolID string) string {
	return fmt.Sprintf("REFDCL-%s", poolID)
}

// swap 事件还带 protocol_fee / total_fee 字段，这里只取 swap 腿需要的部分
type swapEventData struct {
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	PoolID    string `json:"pool_id"`
	Swapper   string `json:"swapper"`
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
}

func handleRecord(rec *source.RawRecord, _ *source.Transaction, pos types.Pos) (*core.TradeAction, error) {
	if rec.Kind != source.RecordLog {
		return nil, common.ErrNotTradeRecord
	}
	ev, isEvent, err := common.ParseEventLog(rec.Data)
	if err != nil {
		return nil, common.Malformed("event_json", err)
	}
	if !isEvent || ev.Standard != "dcl.ref" || ev.Event != "swap" {
		return nil, common.ErrNotTradeRecord
	}

	var data swapEventData
	if err := common.UnmarshalSingle(ev.Data, &data); err != nil {
		return nil, common.Malformed("swap data", err)
	}
	if data.PoolID == "" {
		return nil, common.Malformed("swap data", fmt.Errorf("empty pool_id"))
	}

	trader, err := types.TryAccountIDFromString(data.Swapper)
	if err != nil {
		return nil, common.Malformed("swapper", err)
	}
	tokenIn, err := types.TryAccountIDFromString(data.TokenIn)
	if err != nil {
		return nil, common.Malformed("token_in", err)
	}
	tokenOut, err := types.TryAccountIDFromString(data.TokenOut)
	if err != nil {
		return nil, common.Malformed("token_out", err)
	}
	amountIn, err := types.ParseU128(data.AmountIn)
	if err != nil {
		return nil, common.Malformed("amount_in", err)
	}
	amountOut, err := types.ParseU128(data.AmountOut)
	if err != nil {
		return nil, common.Malformed("amount_out", err)
	}

	return &core.TradeAction{
		Pos:       pos,
		Kind:      core.ActionSwap,
		Protocol:  Protocol,
		Pool:      CreatePoolID(data.PoolID),
		Trader:    trader,
		AssetIn:   tokenIn,
		AmountIn:  amountIn,
		AssetOut:  tokenOut,
		AmountOut: amountOut,
	}, nil
}
