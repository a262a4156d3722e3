package core

import (
	"math/big"

	"github.com/INTEARnear/trade-indexer/internal/types"
)

// PoolState 表示单个池子的当前可追踪状态。
// 实例归 pooltracker 独占持有（单写者），对外只交付 Clone 出来的快照。
type PoolState struct {
	PoolID   string
	Protocol string // ref / veax / grafun / aidols
	PoolKind string // 协议内细分：simple_pool / stable_swap_pool / rated_swap_pool / degen_swap_pool / concentrated / bonding_curve

	Tokens   []types.AccountID
	Reserves map[types.AccountID]*big.Int

	// 费率，按协议各自的 FEE_DIVISOR 口径存原始值
	TotalFee uint32

	SharesTotalSupply *big.Int

	// Inferred 表示从未观测到创建动作，状态由首次引用时懒初始化
	Inferred bool

	// Version 是最后一次变更该状态的 action 的全序键
	Version types.Pos
}

// Clone 深拷贝一份快照，金额逐个复制，保证单写者不变量不被旁路。
func (s *PoolState) Clone() *PoolState {
	if s == nil {
		return nil
	}
	out := &PoolState{
		PoolID:   s.PoolID,
		Protocol: s.Protocol,
		PoolKind: s.PoolKind,
		Tokens:   append([]types.AccountID(nil), s.Tokens...),
		TotalFee: s.TotalFee,
		Inferred: s.Inferred,
		Version:  s.Version,
	}
	if s.Reserves != nil {
		out.Reserves = make(map[types.AccountID]*big.Int, len(s.Reserves))
		for token, amount := range s.Reserves {
			out.Reserves[token] = new(big.Int).Set(amount)
		}
	}
	if s.SharesTotalSupply != nil {
		out.SharesTotalSupply = new(big.Int).Set(s.SharesTotalSupply)
	}
	return out
}

// Equal 比较两份状态的可追踪字段（不含 Version 与 Inferred 标记）。
// 用于判定 PoolEdit 是否为 no-op，避免发出空变更事件。
func (s *PoolState) Equal(other *PoolState) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.PoolID != other.PoolID || s.Protocol != other.Protocol ||
		s.PoolKind != other.PoolKind || s.TotalFee != other.TotalFee {
		return false
	}
	if len(s.Tokens) != len(other.Tokens) {
		return false
	}
	for i := range s.Tokens {
		if s.Tokens[i] != other.Tokens[i] {
			return false
		}
	}
	if len(s.Reserves) != len(other.Reserves) {
		return false
	}
	for token, amount := range s.Reserves {
		o, ok := other.Reserves[token]
		if !ok || amount.Cmp(o) != 0 {
			return false
		}
	}
	if (s.SharesTotalSupply == nil) != (other.SharesTotalSupply == nil) {
		return false
	}
	if s.SharesTotalSupply != nil && s.SharesTotalSupply.Cmp(other.SharesTotalSupply) != 0 {
		return false
	}
	return true
}
