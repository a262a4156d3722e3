package emitter

import (
	"strconv"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/pooltracker"
	"github.com/INTEARnear/trade-indexer/internal/logic/swapgroup"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

// 纯渲染层：把聚合结果转成三类 canonical 事件。无 I/O、无重试，
// 金额在上游已做过范围校验，这里只负责编码成 JSON 视图。

// BlockEvents 汇集一个区块产出的全部事件，各流内部保持全序键顺序。
type BlockEvents struct {
	PoolEvents       []*core.PoolEvent
	SwapEvents       []*core.SwapEvent
	PoolChangeEvents []*core.PoolChangeEvent
}

func (e *BlockEvents) Empty() bool {
	return len(e.PoolEvents) == 0 && len(e.SwapEvents) == 0 && len(e.PoolChangeEvents) == 0
}

// Total 返回事件总数
func (e *BlockEvents) Total() int {
	return len(e.PoolEvents) + len(e.SwapEvents) + len(e.PoolChangeEvents)
}

// TxContext 构造一笔交易内所有事件共享的定位字段
func TxContext(blockHeight, blockTimestampNanosec uint64, txIndex uint32, txHash types.Hash) core.EventContext {
	return core.EventContext{
		BlockHeight:           blockHeight,
		TxIndex:               txIndex,
		BlockTimestampNanosec: strconv.FormatUint(blockTimestampNanosec, 10),
		TransactionID:         txHash.String(),
	}
}

// RenderPoolEvent 渲染 trade_pool 事件：每个触达 pool 的 action 一条
func RenderPoolEvent(ctx core.EventContext, action *core.TradeAction) *core.PoolEvent {
	ev := &core.PoolEvent{
		EventContext: ctx,
		LogIndex:     action.Pos.LogIndex,
		Pool:         action.Pool,
		ActionKind:   action.Kind.String(),
		Trader:       action.Trader.String(),
	}
	switch action.Kind {
	case core.ActionSwap:
		ev.TokenIn = action.AssetIn.String()
		ev.AmountIn = action.AmountIn.String()
		ev.TokenOut = action.AssetOut.String()
		ev.AmountOut = action.AmountOut.String()
	case core.ActionLiquidityAdd, core.ActionLiquidityRemove:
		ev.Amounts = make(map[string]string, len(action.Amounts))
		for token, amount := range action.Amounts {
			ev.Amounts[token.String()] = amount.String()
		}
	}
	return ev
}

// RenderSwapEvent 渲染 trade_swap 事件：每个 SwapGroup 一条
func RenderSwapEvent(ctx core.EventContext, group *swapgroup.Group) *core.SwapEvent {
	ev := &core.SwapEvent{
		EventContext:   ctx,
		GroupID:        group.GroupID(),
		Trader:         group.Trader.String(),
		BalanceChanges: core.FormatBalanceChanges(group.NetChanges),
		Hops:           make([]core.HopRef, 0, len(group.Hops)),
	}
	for _, hop := range group.Hops {
		ev.Hops = append(ev.Hops, core.HopRef{
			Pool:     hop.Pool,
			LogIndex: hop.Pos.LogIndex,
		})
	}
	return ev
}

// RenderPoolChangeEvent 渲染 trade_pool_change 事件：每次实际状态变更一条
func RenderPoolChangeEvent(ctx core.EventContext, delta *pooltracker.Delta) *core.PoolChangeEvent {
	return &core.PoolChangeEvent{
		EventContext: ctx,
		LogIndex:     delta.Action.Pos.LogIndex,
		Pool:         delta.Action.Pool,
		TriggerKind:  delta.Action.Kind.String(),
		PreState:     core.SnapshotPoolState(delta.Pre),
		PostState:    core.SnapshotPoolState(delta.Post),
	}
}
