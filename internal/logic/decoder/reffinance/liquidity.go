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

const (
	liquidityAddedPrefix  = `Liquidity added ["`
	liquidityRemovedMark  = ` shares of liquidity removed: receive back ["`
	liquidityMintedMark   = `"], minted `
	liquiditySharesSuffix = " shares"
)

// methodPoolID 从 receipt 的方法参数 {"pool_id":N} 里取 pool id。
// 流动性日志不带 pool，只能靠同 receipt 的方法调用定位。
func methodPoolID(calls []source.MethodCall, method string) (uint64, bool) {
	for _, call := range calls {
		if call.Method != method {
			continue
		}
		var args struct {
			PoolID uint64 `json:"pool_id"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil {
			continue
		}
		return args.PoolID, true
	}
	return 0, false
}

// parseAmountList 解析 `<amount> <token>", "<amount> <token>` 形式的金额串
func parseAmountList(s string) (map[types.AccountID]*big.Int, error) {
	amounts := make(map[types.AccountID]*big.Int)
	for _, entry := range strings.Split(s, `", "`) {
		amountStr, tokenStr, ok := strings.Cut(entry, " ")
		if !ok {
			return nil, fmt.Errorf("bad amount entry: %q", entry)
		}
		amount, err := types.ParseU128(amountStr)
		if err != nil {
			return nil, err
		}
		token, err := types.TryAccountIDFromString(tokenStr)
		if err != nil {
			return nil, err
		}
		amounts[token] = amount
	}
	return amounts, nil
}

// extractLiquidityAdded 解析
// `Liquidity added ["<amount> <token>", ...], minted <shares> shares`，
// pool id 取自同 receipt 的 add_liquidity 参数。
func extractLiquidityAdded(rec *source.RawRecord, tx *source.Transaction, pos types.Pos) (*core.TradeAction, error) {
	poolID, ok := methodPoolID(tx.Calls, "add_liquidity")
	if !ok {
		return nil, common.ErrNotTradeRecord
	}
	if poolID > maxPoolID {
		return nil, common.Malformed("liquidity log", fmt.Errorf("pool id too high: %d", poolID))
	}

	body, ok := strings.CutPrefix(string(rec.Data), liquidityAddedPrefix)
	if !ok {
		return nil, common.ErrNotTradeRecord
	}
	body, ok = strings.CutSuffix(body, liquiditySharesSuffix)
	if !ok {
		return nil, common.Malformed("liquidity log", fmt.Errorf("missing shares suffix: %q", rec.Data))
	}
	amountsPart, sharesPart, ok := strings.Cut(body, liquidityMintedMark)
	if !ok {
		return nil, common.Malformed("liquidity log", fmt.Errorf("missing minted shares: %q", rec.Data))
	}
	if _, err := types.ParseU128(sharesPart); err != nil {
		return nil, common.Malformed("liquidity shares", err)
	}
	amounts, err := parseAmountList(amountsPart)
	if err != nil {
		return nil, common.Malformed("liquidity amounts", err)
	}

	return &core.TradeAction{
		Pos:      pos,
		Kind:     core.ActionLiquidityAdd,
		Protocol: Protocol,
		Pool:     CreatePoolID(poolID),
		Trader:   tx.Trader,
		Amounts:  amounts,
	}, nil
}

// extractLiquidityRemoved 解析
// `<shares> shares of liquidity removed: receive back ["<amount> <token>", ...]`，
// pool id 取自同 receipt 的 remove_liquidity 参数。金额无符号，方向由 Kind 表达。
func extractLiquidityRemoved(rec *source.RawRecord, tx *source.Transaction, pos types.Pos) (*core.TradeAction, error) {
	poolID, ok := methodPoolID(tx.Calls, "remove_liquidity")
	if !ok {
		return nil, common.ErrNotTradeRecord
	}
	if poolID > maxPoolID {
		return nil, common.Malformed("liquidity log", fmt.Errorf("pool id too high: %d", poolID))
	}

	sharesPart, rest, ok := strings.Cut(string(rec.Data), liquidityRemovedMark)
	if !ok {
		return nil, common.ErrNotTradeRecord
	}
	if _, err := types.ParseU128(sharesPart); err != nil {
		return nil, common.Malformed("liquidity shares", err)
	}
	rest, ok = strings.CutSuffix(rest, `"]`)
	if !ok {
		return nil, common.Malformed("liquidity log", fmt.Errorf("missing closing bracket: %q", rec.Data))
	}
	amounts, err := parseAmountList(rest)
	if err != nil {
		return nil, common.Malformed("liquidity amounts", err)
	}

	return &core.TradeAction{
		Pos:      pos,
		Kind:     core.ActionLiquidityRemove,
		Protocol: Protocol,
		Pool:     CreatePoolID(poolID),
		Trader:   tx.Trader,
		Amounts:  amounts,
	}, nil
}
