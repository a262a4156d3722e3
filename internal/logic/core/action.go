package core

import (
	"math/big"

	"github.com/INTEARnear/trade-indexer/internal/types"
)

// ActionKind 枚举 TradeAction 的种类
type ActionKind uint8

const (
	ActionSwap ActionKind = iota + 1
	ActionLiquidityAdd
	ActionLiquidityRemove
	ActionPoolEdit
	ActionPoolCreate
)

func (k ActionKind) String() string {
	switch k {
	case ActionSwap:
		return "swap"
	case ActionLiquidityAdd:
		return "liquidity_add"
	case ActionLiquidityRemove:
		return "liquidity_remove"
	case ActionPoolEdit:
		return "pool_edit"
	case ActionPoolCreate:
		return "pool_create"
	default:
		return "unknown"
	}
}

// TradeAction 表示一条已解码的原子链上效果，解码后不可变。
// Pos 是系统全局唯一的全序键；每条原始记录最多产出一个 TradeAction。
type TradeAction struct {
	Pos      types.Pos
	Kind     ActionKind
	Protocol string // 协议标识：ref / veax / grafun / aidols
	Pool     string // 协议限定 pool ID，例如 REF-79、VEAX-a.near-b.near
	Trader   types.AccountID

	// swap 腿（仅 ActionSwap）
	AssetIn   types.AccountID
	AmountIn  *big.Int
	AssetOut  types.AccountID
	AmountOut *big.Int

	// 流动性变更（仅 ActionLiquidityAdd / ActionLiquidityRemove）：
	// token → 无符号金额，方向由 Kind 决定
	Amounts map[types.AccountID]*big.Int

	// pool 创建 / 状态同步（仅 ActionPoolCreate / ActionPoolEdit）
	State *PoolState
}

// TouchesPool 判断该 action 是否影响 pool 状态
func (a *TradeAction) TouchesPool() bool {
	return a.Pool != ""
}
