package aidols

import (
	"fmt"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

const Protocol = "aidols"

const Contract = types.AccountID("aidols.near")

const wnear = types.AccountID("wrap.near")

// RegisterHandlers 注册 AIdols 的记录解码逻辑。AIdols 只在主网部署。
func RegisterHandlers(m map[types.AccountID]common.RecordHandler, testnet bool) {
	if testnet {
		return
	}
	m[Contract] = handleRecord
}

// CreatePoolID 生成协议限定的 pool ID：bonding curve 池子以 token 命名
func CreatePoolID(token types.AccountID) string {
	return fmt.Sprintf("AIDOLS-%s", token)
}

type swapEventData struct {
	InputAmount  string `json:"input_amount"`
	InputToken   string `json:"input_token"`
	OutputAmount string `json:"output_amount"`
	OutputToken  string `json:"output_token"`
	UserID       string `json:"user_id"`
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

	var data swapEventData
	if err := common.UnmarshalSingle(ev.Data, &data); err != nil {
		return nil, common.Malformed("token_swap data", err)
	}

	trader, err := types.TryAccountIDFromString(data.UserID)
	if err != nil {
		return nil, common.Malformed("user_id", err)
	}
	tokenIn, err := types.TryAccountIDFromString(data.InputToken)
	if err != nil {
		return nil, common.Malformed("input_token", err)
	}
	tokenOut, err := types.TryAccountIDFromString(data.OutputToken)
	if err != nil {
		return nil, common.Malformed("output_token", err)
	}
	amountIn, err := types.ParseU128(data.InputAmount)
	if err != nil {
		return nil, common.Malformed("input_amount", err)
	}
	amountOut, err := types.ParseU128(data.OutputAmount)
	if err != nil {
		return nil, common.Malformed("output_amount", err)
	}

	poolToken := tokenIn
	if tokenIn == wnear {
		poolToken = tokenOut
	}

	return &core.TradeAction{
		Pos:       pos,
		Kind:      core.ActionSwap,
		Protocol:  Protocol,
		Pool:      CreatePoolID(poolToken),
		Trader:    trader,
		AssetIn:   tokenIn,
		AmountIn:  amountIn,
		AssetOut:  tokenOut,
		AmountOut: amountOut,
	}, nil
}
