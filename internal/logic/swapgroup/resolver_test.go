package swapgroup

import (
	"math/big"
	"testing"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkSwap(logIndex uint32, trader, tokenIn string, amountIn int64, tokenOut string, amountOut int64) *core.TradeAction {
	return &core.TradeAction{
		Pos:       types.Pos{BlockHeight: 100, TxIndex: 0, LogIndex: logIndex},
		Kind:      core.ActionSwap,
		Protocol:  "ref",
		Pool:      "REF-1",
		Trader:    types.AccountID(trader),
		AssetIn:   types.AccountID(tokenIn),
		AmountIn:  big.NewInt(amountIn),
		AssetOut:  types.AccountID(tokenOut),
		AmountOut: big.NewInt(amountOut),
	}
}

// 多跳链条：USDC -> ETH -> DAI，中间资产完全对冲
func TestResolve_MultiHopNetting(t *testing.T) {
	actions := []*core.TradeAction{
		mkSwap(0, "w.near", "usdc.near", 100, "eth.near", 5),
		mkSwap(1, "w.near", "eth.near", 5, "dai.near", 99),
	}

	groups, err := Resolve(actions)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Len(t, g.Hops, 2)
	assert.Equal(t, types.AccountID("w.near"), g.Trader)
	assert.Equal(t, uint32(0), g.GroupID())

	require.Len(t, g.NetChanges, 2, "中间资产 ETH 应该完全对冲")
	assert.Equal(t, int64(-100), g.NetChanges["usdc.near"].Int64())
	assert.Equal(t, int64(99), g.NetChanges["dai.near"].Int64())
	assert.NotContains(t, g.NetChanges, types.AccountID("eth.near"))
}

// 单跳：组大小为 1，净变动等于该跳的进出腿
func TestResolve_SingleHop(t *testing.T) {
	groups, err := Resolve([]*core.TradeAction{
		mkSwap(0, "w.near", "usdc.near", 100, "eth.near", 5),
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Len(t, g.Hops, 1)
	assert.Equal(t, int64(-100), g.NetChanges["usdc.near"].Int64())
	assert.Equal(t, int64(5), g.NetChanges["eth.near"].Int64())
}

// 同一 trader 链条断开：asset_in 不接上一跳的 asset_out，开新组
func TestResolve_BrokenChain(t *testing.T) {
	groups, err := Resolve([]*core.TradeAction{
		mkSwap(0, "w.near", "usdc.near", 100, "eth.near", 5),
		mkSwap(1, "w.near", "dai.near", 50, "near", 7),
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Hops, 1)
	assert.Len(t, groups[1].Hops, 1)
	assert.Equal(t, uint32(0), groups[0].GroupID())
	assert.Equal(t, uint32(1), groups[1].GroupID())
}

// 不同 trader 的 swap 交错出现：各自的链条不受对方打断
func TestResolve_InterleavedTraders(t *testing.T) {
	groups, err := Resolve([]*core.TradeAction{
		mkSwap(0, "alice.near", "usdc.near", 100, "eth.near", 5),
		mkSwap(1, "bob.near", "near", 10, "dai.near", 30),
		mkSwap(2, "alice.near", "eth.near", 5, "dai.near", 99),
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// 组按首跳的发出顺序输出
	assert.Equal(t, types.AccountID("alice.near"), groups[0].Trader)
	assert.Len(t, groups[0].Hops, 2)
	assert.Equal(t, types.AccountID("bob.near"), groups[1].Trader)
	assert.Len(t, groups[1].Hops, 1)
}

// 往返 swap：X -> Y 再 Y -> X，全部资产净额归零后不出现在映射中
func TestResolve_RoundTripFullCancel(t *testing.T) {
	groups, err := Resolve([]*core.TradeAction{
		mkSwap(0, "w.near", "usdc.near", 100, "eth.near", 5),
		mkSwap(1, "w.near", "eth.near", 5, "usdc.near", 100),
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].NetChanges)
}

// 非 swap action 不参与分组
func TestResolve_NonSwapIgnored(t *testing.T) {
	liquidity := &core.TradeAction{
		Pos:      types.Pos{BlockHeight: 100, LogIndex: 0},
		Kind:     core.ActionLiquidityAdd,
		Pool:     "REF-1",
		Trader:   "w.near",
		Amounts:  map[types.AccountID]*big.Int{"usdc.near": big.NewInt(100)},
		Protocol: "ref",
	}
	groups, err := Resolve([]*core.TradeAction{
		liquidity,
		mkSwap(1, "w.near", "usdc.near", 100, "eth.near", 5),
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Hops, 1)
}

// 空输入与无 swap 的交易
func TestResolve_Empty(t *testing.T) {
	groups, err := Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

// 净额越出 i128 范围：decoder 缺陷，必须上抛
func TestResolve_Overflow(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 127) // 正好越过 i128 上界
	a := mkSwap(0, "w.near", "usdc.near", 1, "eth.near", 1)
	a.AmountOut = huge

	_, err := Resolve([]*core.TradeAction{a})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "i128")
}
