package emitter

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/pooltracker"
	"github.com/INTEARnear/trade-indexer/internal/logic/swapgroup"
	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx() core.EventContext {
	return TxContext(100, 1724300000123456789, 2, types.Hash{0x01})
}

func TestTxContext(t *testing.T) {
	ctx := testCtx()
	assert.Equal(t, uint64(100), ctx.BlockHeight)
	assert.Equal(t, uint32(2), ctx.TxIndex)
	// 纳秒时间戳超出 JSON number 安全范围，必须是字符串
	assert.Equal(t, "1724300000123456789", ctx.BlockTimestampNanosec)
	assert.Equal(t, types.Hash{0x01}.String(), ctx.TransactionID)
}

func TestRenderPoolEvent_Swap(t *testing.T) {
	action := &core.TradeAction{
		Pos:       types.Pos{BlockHeight: 100, TxIndex: 2, LogIndex: 5},
		Kind:      core.ActionSwap,
		Protocol:  "ref",
		Pool:      "REF-17",
		Trader:    "alice.near",
		AssetIn:   "usdc.near",
		AmountIn:  big.NewInt(100),
		AssetOut:  "eth.near",
		AmountOut: big.NewInt(5),
	}

	ev := RenderPoolEvent(testCtx(), action)
	assert.Equal(t, uint32(5), ev.LogIndex)
	assert.Equal(t, "REF-17", ev.Pool)
	assert.Equal(t, "swap", ev.ActionKind)
	assert.Equal(t, "usdc.near", ev.TokenIn)
	assert.Equal(t, "100", ev.AmountIn)
	assert.Equal(t, "eth.near", ev.TokenOut)
	assert.Equal(t, "5", ev.AmountOut)
	assert.Nil(t, ev.Amounts)

	// swap 事件序列化后不应携带流动性字段
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"amounts"`)
}

func TestRenderPoolEvent_Liquidity(t *testing.T) {
	action := &core.TradeAction{
		Pos:    types.Pos{BlockHeight: 100, TxIndex: 2, LogIndex: 3},
		Kind:   core.ActionLiquidityAdd,
		Pool:   "REF-17",
		Trader: "lp.near",
		Amounts: map[types.AccountID]*big.Int{
			"usdc.near": big.NewInt(1000),
			"eth.near":  big.NewInt(40),
		},
	}

	ev := RenderPoolEvent(testCtx(), action)
	assert.Equal(t, "liquidity_add", ev.ActionKind)
	assert.Equal(t, map[string]string{"usdc.near": "1000", "eth.near": "40"}, ev.Amounts)
	assert.Empty(t, ev.TokenIn)
}

func TestRenderSwapEvent(t *testing.T) {
	group := &swapgroup.Group{
		Trader: "alice.near",
		Hops: []*core.TradeAction{
			{Pos: types.Pos{BlockHeight: 100, TxIndex: 2, LogIndex: 4}, Pool: "REF-17"},
			{Pos: types.Pos{BlockHeight: 100, TxIndex: 2, LogIndex: 5}, Pool: "REF-42"},
		},
		NetChanges: map[types.AccountID]*big.Int{
			"usdc.near": big.NewInt(-100),
			"dai.near":  big.NewInt(99),
		},
	}

	ev := RenderSwapEvent(testCtx(), group)
	assert.Equal(t, uint32(4), ev.GroupID, "group id 取首跳 log index")
	assert.Equal(t, "alice.near", ev.Trader)
	assert.Equal(t, map[string]string{"usdc.near": "-100", "dai.near": "99"}, ev.BalanceChanges)
	require.Len(t, ev.Hops, 2)
	assert.Equal(t, core.HopRef{Pool: "REF-17", LogIndex: 4}, ev.Hops[0])
	assert.Equal(t, core.HopRef{Pool: "REF-42", LogIndex: 5}, ev.Hops[1])
}

func TestRenderPoolChangeEvent(t *testing.T) {
	post := &core.PoolState{
		PoolID:   "REF-17",
		Protocol: "ref",
		PoolKind: "simple_pool",
		Tokens:   []types.AccountID{"usdc.near", "eth.near"},
		Reserves: map[types.AccountID]*big.Int{
			"usdc.near": big.NewInt(5000),
			"eth.near":  big.NewInt(200),
		},
		TotalFee: 30,
		Inferred: true,
	}
	delta := &pooltracker.Delta{
		Action: &core.TradeAction{
			Pos:  types.Pos{BlockHeight: 100, TxIndex: 2, LogIndex: 6},
			Kind: core.ActionSwap,
			Pool: "REF-17",
		},
		Pre:  nil,
		Post: post,
	}

	ev := RenderPoolChangeEvent(testCtx(), delta)
	assert.Equal(t, "swap", ev.TriggerKind)
	assert.Nil(t, ev.PreState, "首次观测的 pool 没有 pre 状态")
	require.NotNil(t, ev.PostState)
	assert.Equal(t, "5000", ev.PostState.Reserves["usdc.near"])
	assert.True(t, ev.PostState.Inferred)

	// pre_state 即使为 null 也必须出现在 JSON 里，下游依赖该字段判断首观测
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"pre_state":null`)
}

func TestBlockEvents_EmptyAndTotal(t *testing.T) {
	var events BlockEvents
	assert.True(t, events.Empty())
	assert.Equal(t, 0, events.Total())

	events.SwapEvents = append(events.SwapEvents, &core.SwapEvent{})
	events.PoolEvents = append(events.PoolEvents, &core.PoolEvent{}, &core.PoolEvent{})
	assert.False(t, events.Empty())
	assert.Equal(t, 3, events.Total())
}
