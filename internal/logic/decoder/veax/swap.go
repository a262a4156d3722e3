package veax

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

// CreatePoolID 生成协议限定的 pool ID：Veax 池子由 token 对唯一确定
func CreatePoolID(tokenA, tokenB types.AccountID) string {
	return fmt.Sprintf("VEAX-%s-%s", tokenA, tokenB)
}

// Veax 事件的 data 是单个对象（非 NEP-297 数组），tokens/amounts 是 (in, out) 二元组
type swapEventData struct {
	User    string    `json:"user"`
	Tokens  [2]string `json:"tokens"`
	Amounts [2]string `json:"amounts"`
}

func extractSwap(ev *common.EventLog, pos types.Pos) (*core.TradeAction, error) {
	var data swapEventData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		return nil, common.Malformed("swap data", err)
	}

	trader, err := types.TryAccountIDFromString(data.User)
	if err != nil {
		return nil, common.Malformed("user", err)
	}
	tokenIn, err := types.TryAccountIDFromString(data.Tokens[0])
	if err != nil {
		return nil, common.Malformed("token_in", err)
	}
	tokenOut, err := types.TryAccountIDFromString(data.Tokens[1])
	if err != nil {
		return nil, common.Malformed("token_out", err)
	}
	amountIn, err := types.ParseU128(data.Amounts[0])
	if err != nil {
		return nil, common.Malformed("amount_in", err)
	}
	amountOut, err := types.ParseU128(data.Amounts[1])
	if err != nil {
		return nil, common.Malformed("amount_out", err)
	}

	return &core.TradeAction{
		Pos:       pos,
		Kind:      core.ActionSwap,
		Protocol:  Protocol,
		Pool:      CreatePoolID(tokenIn, tokenOut),
		Trader:    trader,
		AssetIn:   tokenIn,
		AmountIn:  amountIn,
		AssetOut:  tokenOut,
		AmountOut: amountOut,
	}, nil
}

type poolStateEventData struct {
	Pool    [2]string `json:"pool"`
	Amounts [2]string `json:"amounts"`
	FeeRate uint32    `json:"fee_rate"`
}

// extractPoolState 解析 update_pool_state 事件，构造携带完整状态的 ActionPoolEdit
func extractPoolState(ev *common.EventLog, pos types.Pos) (*core.TradeAction, error) {
	var data poolStateEventData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		return nil, common.Malformed("pool state data", err)
	}

	tokenA, err := types.TryAccountIDFromString(data.Pool[0])
	if err != nil {
		return nil, common.Malformed("pool token", err)
	}
	tokenB, err := types.TryAccountIDFromString(data.Pool[1])
	if err != nil {
		return nil, common.Malformed("pool token", err)
	}
	amountA, err := types.ParseU128(data.Amounts[0])
	if err != nil {
		return nil, common.Malformed("pool amount", err)
	}
	amountB, err := types.ParseU128(data.Amounts[1])
	if err != nil {
		return nil, common.Malformed("pool amount", err)
	}

	poolID := CreatePoolID(tokenA, tokenB)
	state := &core.PoolState{
		PoolID:   poolID,
		Protocol: Protocol,
		PoolKind: "concentrated",
		Tokens:   []types.AccountID{tokenA, tokenB},
		Reserves: map[types.AccountID]*big.Int{
			tokenA: amountA,
			tokenB: amountB,
		},
		TotalFee: data.FeeRate,
		Version:  pos,
	}

	return &core.TradeAction{
		Pos:      pos,
		Kind:     core.ActionPoolEdit,
		Protocol: Protocol,
		Pool:     poolID,
		State:    state,
	}, nil
}
