package pooltracker

import (
	"fmt"
	"math/big"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

// Delta 描述一次 pool 状态变更：触发 action 加变更前后的快照。
// Pre 为 nil 表示该 pool 首次被观测到。
type Delta struct {
	Action *core.TradeAction
	Pre    *core.PoolState
	Post   *core.PoolState
}

// Tracker 独占持有全部 pool 状态（单写者）。
// action 必须按 (block, tx, log) 全序严格递增地喂入，
// 乱序套用会腐蚀推导出的储备量，所以乱序一律致命。
type Tracker struct {
	pools   map[string]*core.PoolState
	lastPos types.Pos
	applied bool
}

func New() *Tracker {
	return &Tracker{pools: make(map[string]*core.PoolState)}
}

// Apply 将一个 action 套用到其 pool 的状态上。
// 返回 nil Delta 表示无事件：action 不触达 pool，或变更为 no-op。
func (t *Tracker) Apply(action *core.TradeAction) (*Delta, error) {
	if !action.TouchesPool() {
		return nil, nil
	}
	if t.applied && !t.lastPos.Before(action.Pos) {
		return nil, fmt.Errorf("%w: pool action at %s after %s",
			types.ErrOrderingViolation, action.Pos, t.lastPos)
	}
	t.applied = true
	t.lastPos = action.Pos

	state, known := t.pools[action.Pool]
	var pre *core.PoolState
	if known {
		pre = state.Clone()
	} else {
		// 懒初始化：没见过创建动作的 pool 打上 inferred 标记，
		// 储备量从零起算，等后续权威状态记录覆盖。
		state = &core.PoolState{
			PoolID:   action.Pool,
			Protocol: action.Protocol,
			Reserves: make(map[types.AccountID]*big.Int),
			Inferred: action.Kind != core.ActionPoolCreate,
		}
		t.pools[action.Pool] = state
	}

	switch action.Kind {
	case core.ActionSwap:
		addReserve(state, action.AssetIn, action.AmountIn)
		subReserve(state, action.AssetOut, action.AmountOut)
	case core.ActionLiquidityAdd:
		for token, amount := range action.Amounts {
			addReserve(state, token, amount)
		}
	case core.ActionLiquidityRemove:
		for token, amount := range action.Amounts {
			subReserve(state, token, amount)
		}
	case core.ActionPoolCreate, core.ActionPoolEdit:
		// 链上同步下来的权威状态整体覆盖可追踪字段
		syncState(state, action.State)
	default:
		return nil, fmt.Errorf("pooltracker: unexpected action kind %s at %s",
			action.Kind, action.Pos)
	}
	state.Version = action.Pos

	// no-op 的 PoolEdit 只更新版本元数据，不发空变更事件
	if pre.Equal(state) {
		return nil, nil
	}
	return &Delta{Action: action, Pre: pre, Post: state.Clone()}, nil
}

// Snapshot 返回某个 pool 当前状态的副本，未知 pool 返回 nil。
func (t *Tracker) Snapshot(poolID string) *core.PoolState {
	return t.pools[poolID].Clone()
}

// PoolCount 返回已跟踪的 pool 数
func (t *Tracker) PoolCount() int {
	return len(t.pools)
}

func addReserve(state *core.PoolState, token types.AccountID, amount *big.Int) {
	if amount == nil {
		return
	}
	cur, ok := state.Reserves[token]
	if !ok {
		cur = new(big.Int)
		state.Reserves[token] = cur
		state.Tokens = append(state.Tokens, token)
	}
	cur.Add(cur, amount)
}

func subReserve(state *core.PoolState, token types.AccountID, amount *big.Int) {
	if amount == nil {
		return
	}
	addReserve(state, token, new(big.Int).Neg(amount))
}

func syncState(state, authoritative *core.PoolState) {
	if authoritative == nil {
		return
	}
	state.PoolKind = authoritative.PoolKind
	state.Tokens = append([]types.AccountID(nil), authoritative.Tokens...)
	state.TotalFee = authoritative.TotalFee
	state.Reserves = make(map[types.AccountID]*big.Int, len(authoritative.Reserves))
	for token, amount := range authoritative.Reserves {
		state.Reserves[token] = new(big.Int).Set(amount)
	}
	if authoritative.SharesTotalSupply != nil {
		state.SharesTotalSupply = new(big.Int).Set(authoritative.SharesTotalSupply)
	} else {
		state.SharesTotalSupply = nil
	}
	state.Inferred = false
}
