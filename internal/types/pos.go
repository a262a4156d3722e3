package types

import "fmt"

// Pos 是系统全局唯一的全序键 (block_height, tx_index, log_index)。
// 所有 TradeAction、CanonicalEvent 以及 PoolState 版本号都挂在该键上，
// 下游按字典序即可还原链上顺序。
type Pos struct {
	BlockHeight uint64
	TxIndex     uint32
	LogIndex    uint32
}

// Before 按 (block, tx, log) 字典序比较
func (p Pos) Before(other Pos) bool {
	if p.BlockHeight != other.BlockHeight {
		return p.BlockHeight < other.BlockHeight
	}
	if p.TxIndex != other.TxIndex {
		return p.TxIndex < other.TxIndex
	}
	return p.LogIndex < other.LogIndex
}

func (p Pos) String() string {
	return fmt.Sprintf("%d/%d/%d", p.BlockHeight, p.TxIndex, p.LogIndex)
}
