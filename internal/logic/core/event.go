package core

import (
	"math/big"

	"github.com/INTEARnear/trade-indexer/internal/types"
)

// 三个输出流的流名
const (
	StreamTradePool       = "trade_pool"
	StreamTradeSwap       = "trade_swap"
	StreamTradePoolChange = "trade_pool_change"
)

// 所有金额在 JSON 中以十进制字符串编码（u128/i128 超出 JSON number 安全范围）。

// EventContext 是三类事件共有的定位字段
type EventContext struct {
	BlockHeight           uint64 `json:"block_height"`
	TxIndex               uint32 `json:"tx_index"`
	BlockTimestampNanosec string `json:"block_timestamp_nanosec"`
	TransactionID         string `json:"transaction_id"`
}

// PoolEvent（trade_pool）：每个触达 pool 的 TradeAction 一条
type PoolEvent struct {
	EventContext
	LogIndex   uint32 `json:"log_index"`
	Pool       string `json:"pool"`
	ActionKind string `json:"action_kind"`
	Trader     string `json:"trader"`

	// swap 腿，仅 action_kind == "swap"
	TokenIn   string `json:"token_in,omitempty"`
	AmountIn  string `json:"amount_in,omitempty"`
	TokenOut  string `json:"token_out,omitempty"`
	AmountOut string `json:"amount_out,omitempty"`

	// 流动性变更金额，仅 liquidity_add / liquidity_remove
	Amounts map[string]string `json:"amounts,omitempty"`
}

// HopRef 在 SwapEvent 中引用一跳对应的 PoolEvent
type HopRef struct {
	Pool     string `json:"pool"`
	LogIndex uint32 `json:"log_index"`
}

// SwapEvent（trade_swap）：每个 SwapGroup 一条，携带净余额变动
type SwapEvent struct {
	EventContext
	GroupID uint32 `json:"group_id"`
	Trader  string `json:"trader"`

	// token → 有符号净变动（十进制字符串，正=收到，负=付出）；
	// 中间资产完全对冲后不出现在映射中
	BalanceChanges map[string]string `json:"balance_changes"`

	Hops []HopRef `json:"hops"`
}

// PoolStateSnapshot 是 PoolState 的 JSON 视图
type PoolStateSnapshot struct {
	PoolID            string            `json:"pool_id"`
	Protocol          string            `json:"protocol"`
	PoolKind          string            `json:"pool_kind"`
	Tokens            []string          `json:"tokens"`
	Reserves          map[string]string `json:"reserves"`
	TotalFee          uint32            `json:"total_fee"`
	SharesTotalSupply string            `json:"shares_total_supply,omitempty"`
	Inferred          bool              `json:"inferred,omitempty"`
}

// PoolChangeEvent（trade_pool_change）：每次 pool 状态实际变化一条
type PoolChangeEvent struct {
	EventContext
	LogIndex    uint32             `json:"log_index"`
	Pool        string             `json:"pool"`
	TriggerKind string             `json:"trigger_kind"`
	PreState    *PoolStateSnapshot `json:"pre_state"` // 首次观测到的 pool 为 null
	PostState   *PoolStateSnapshot `json:"post_state"`
}

// SnapshotPoolState 将内部 PoolState 渲染为 JSON 视图
func SnapshotPoolState(s *PoolState) *PoolStateSnapshot {
	if s == nil {
		return nil
	}
	snap := &PoolStateSnapshot{
		PoolID:   s.PoolID,
		Protocol: s.Protocol,
		PoolKind: s.PoolKind,
		Tokens:   make([]string, 0, len(s.Tokens)),
		Reserves: make(map[string]string, len(s.Reserves)),
		TotalFee: s.TotalFee,
		Inferred: s.Inferred,
	}
	for _, token := range s.Tokens {
		snap.Tokens = append(snap.Tokens, token.String())
	}
	for token, amount := range s.Reserves {
		snap.Reserves[token.String()] = amount.String()
	}
	if s.SharesTotalSupply != nil {
		snap.SharesTotalSupply = s.SharesTotalSupply.String()
	}
	return snap
}

// FormatBalanceChanges 将净变动 map 渲染为十进制字符串 map
func FormatBalanceChanges(changes map[types.AccountID]*big.Int) map[string]string {
	out := make(map[string]string, len(changes))
	for token, amount := range changes {
		out[token.String()] = amount.String()
	}
	return out
}
