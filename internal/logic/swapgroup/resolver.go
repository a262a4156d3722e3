package swapgroup

import (
	"fmt"
	"math/big"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

// Group 表示一条逻辑 swap 路径：单跳或多跳，同一交易内同一 trader 发起。
// 每个 swap action 恰好属于一个 Group。
type Group struct {
	Trader types.AccountID

	// Hops 按发出顺序排列，只含 ActionSwap
	Hops []*core.TradeAction

	// NetChanges 是 token → 有符号净变动（正=收到，负=付出）。
	// 组内既收又付、完全对冲的中间资产不出现在映射中。
	NetChanges map[types.AccountID]*big.Int
}

// Resolve 将一笔交易的有序 action 列表划分为逻辑 swap 组。
// 分组规则是局部邻接：同一 trader 的上一跳 asset_out 喂给下一跳
// asset_in 时延长当前组，否则开新组。只按发出顺序判定，不做路径重建。
// 非 swap action 不参与分组，由调用方直接交给 pool 状态跟踪。
func Resolve(actions []*core.TradeAction) ([]*Group, error) {
	var groups []*Group
	open := make(map[types.AccountID]*Group)

	for _, action := range actions {
		if action.Kind != core.ActionSwap {
			continue
		}

		cur := open[action.Trader]
		if cur != nil {
			last := cur.Hops[len(cur.Hops)-1]
			if last.AssetOut == action.AssetIn {
				cur.Hops = append(cur.Hops, action)
				continue
			}
		}

		// 链条断开：开新组。旧组保持在 groups 中的创建顺位。
		g := &Group{
			Trader: action.Trader,
			Hops:   []*core.TradeAction{action},
		}
		open[action.Trader] = g
		groups = append(groups, g)
	}

	for _, g := range groups {
		if err := netChanges(g); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// netChanges 累加各跳的进出腿并剔除完全对冲的中间资产。
// 越出 i128 范围说明 decoder 或 schema 有缺陷，按致命错误上抛。
func netChanges(g *Group) error {
	changes := make(map[types.AccountID]*big.Int)
	add := func(token types.AccountID, delta *big.Int) {
		cur, ok := changes[token]
		if !ok {
			cur = new(big.Int)
			changes[token] = cur
		}
		cur.Add(cur, delta)
	}

	for _, hop := range g.Hops {
		add(hop.AssetIn, new(big.Int).Neg(hop.AmountIn))
		add(hop.AssetOut, hop.AmountOut)
	}

	for token, amount := range changes {
		if amount.Sign() == 0 {
			delete(changes, token)
			continue
		}
		if err := types.CheckI128(amount); err != nil {
			return fmt.Errorf("swapgroup: net change for %s at %s: %w",
				token, g.Hops[0].Pos, err)
		}
	}

	g.NetChanges = changes
	return nil
}

// GroupID 返回组的稳定标识：首跳的 log index。
// 组按首跳顺序产出，所以该标识在交易内单调递增。
func (g *Group) GroupID() uint32 {
	return g.Hops[0].Pos.LogIndex
}
