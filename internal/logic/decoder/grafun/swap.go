package grafun

import (
	"fmt"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

const wnear = types.AccountID("wrap.near")

// CreatePoolID 生成协议限定的 pool ID：GraFun 的池子以非 wNEAR 一侧的 token 命名
func CreatePoolID(token types.AccountID) string {
	return fmt.Sprintf("GRAFUN-%s", token)
}

// GraFun 的 token_swap 事件 data 是数组；字段里还带 bonding curve 的
// 储备快照与价格信息，这里只取 swap 腿需要的部分。
type swapEventData struct {
	InputAmount  string `json:"input_amount"`
	InputToken   string `json:"input_token"`
	OutputAmount string `json:"output_amount"`
	OutputToken  string `json:"output_token"`
	UserID       string `json:"user_id"`
}

func extractSwap(ev *common.EventLog, pos types.Pos) (*core.TradeAction, error) {
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

	// 买卖两个方向共用一个池子，池子固定以非 wNEAR 的 token 命名
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
