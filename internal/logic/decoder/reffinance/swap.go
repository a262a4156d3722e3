package reffinance

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

// Ref 的池子 ID 是递增整数；超出该上界基本可以断定是配对错位。
const maxPoolID = 420_000

// CreatePoolID 生成协议限定的 pool ID
func CreatePoolID(poolID uint64) string {
	return fmt.Sprintf("REF-%d", poolID)
}

type swapLeg struct {
	tokenIn   types.AccountID
	amountIn  *big.Int
	tokenOut  types.AccountID
	amountOut *big.Int
}

// parseSwapLog 解析 "Swapped <amount> <token> for <amount> <token>" 文本日志，
// "Swap_by_output " 前缀共用同一格式。token_out 之后可能跟逗号开头的手续费明细。
func parseSwapLog(data []byte) (*swapLeg, bool) {
	body, ok := strings.CutPrefix(string(data), "Swapped ")
	if !ok {
		body, ok = strings.CutPrefix(string(data), "Swap_by_output ")
	}
	if !ok {
		return nil, false
	}
	inPart, outPart, ok := strings.Cut(body, " for ")
	if !ok {
		return nil, false
	}
	if i := strings.IndexByte(outPart, ','); i >= 0 {
		outPart = outPart[:i]
	}
	amountInStr, tokenInStr, ok := strings.Cut(inPart, " ")
	if !ok {
		return nil, false
	}
	amountOutStr, tokenOutStr, ok := strings.Cut(outPart, " ")
	if !ok {
		return nil, false
	}
	tokenIn, err := types.TryAccountIDFromString(tokenInStr)
	if err != nil {
		return nil, false
	}
	tokenOut, err := types.TryAccountIDFromString(tokenOutStr)
	if err != nil {
		return nil, false
	}
	amountIn, err := types.ParseU128(amountInStr)
	if err != nil {
		return nil, false
	}
	amountOut, err := types.ParseU128(amountOutStr)
	if err != nil {
		return nil, false
	}
	return &swapLeg{
		tokenIn:   tokenIn,
		amountIn:  amountIn,
		tokenOut:  tokenOut,
		amountOut: amountOut,
	}, true
}

type swapAction struct {
	PoolID uint64 `json:"pool_id"`
}

// swapActionPools 从 receipt 的方法参数里按声明顺序收集 pool id。
// swap 日志本身不带 pool，与参数按位配对是唯一的关联手段。
// ft_on_transfer 的参数包了一层：msg 是持有 actions 或 hot_zap_actions 的 JSON 字符串。
func swapActionPools(calls []source.MethodCall) []uint64 {
	var pools []uint64
	for _, call := range calls {
		switch call.Method {
		case "swap", "swap_by_output", "execute_actions":
			var args struct {
				Actions []swapAction `json:"actions"`
			}
			if err := json.Unmarshal(call.Args, &args); err != nil {
				continue
			}
			for _, a := range args.Actions {
				pools = append(pools, a.PoolID)
			}
		case "ft_on_transfer":
			var args struct {
				Msg string `json:"msg"`
			}
			if err := json.Unmarshal(call.Args, &args); err != nil {
				continue
			}
			var exec struct {
				Actions []swapAction `json:"actions"`
			}
			if err := json.Unmarshal([]byte(args.Msg), &exec); err == nil && len(exec.Actions) > 0 {
				for _, a := range exec.Actions {
					pools = append(pools, a.PoolID)
				}
				continue
			}
			var hotZap struct {
				HotZapActions []swapAction `json:"hot_zap_actions"`
			}
			if err := json.Unmarshal([]byte(args.Msg), &hotZap); err == nil {
				for _, a := range hotZap.HotZapActions {
					pools = append(pools, a.PoolID)
				}
			}
		}
	}
	return pools
}

// extractSwap 把 receipt 里第 N 条 swap 日志与方法参数里的第 N 个 pool_id 配对。
// 日志数与 pool 数对不上说明配对不可信，整条记录按损坏丢弃。
func extractSwap(rec *source.RawRecord, tx *source.Transaction, pos types.Pos) (*core.TradeAction, error) {
	leg, ok := parseSwapLog(rec.Data)
	if !ok {
		return nil, common.Malformed("swap log", fmt.Errorf("unparseable: %q", rec.Data))
	}

	ordinal, total := 0, 0
	for i := range tx.Records {
		r := &tx.Records[i]
		if r.Kind != source.RecordLog || r.Contract != rec.Contract {
			continue
		}
		if _, ok := parseSwapLog(r.Data); !ok {
			continue
		}
		if r.LogIndex < rec.LogIndex {
			ordinal++
		}
		total++
	}

	pools := swapActionPools(tx.Calls)
	if len(pools) != total {
		return nil, common.Malformed("swap log",
			fmt.Errorf("%d swap logs but %d pool actions", total, len(pools)))
	}
	poolID := pools[ordinal]
	if poolID > maxPoolID {
		return nil, common.Malformed("swap log", fmt.Errorf("pool id too high: %d", poolID))
	}

	return &core.TradeAction{
		Pos:       pos,
		Kind:      core.ActionSwap,
		Protocol:  Protocol,
		Pool:      CreatePoolID(poolID),
		Trader:    tx.Trader,
		AssetIn:   leg.tokenIn,
		AmountIn:  leg.amountIn,
		AssetOut:  leg.tokenOut,
		AmountOut: leg.amountOut,
	}, nil
}
