package source

import (
	"context"
	"errors"

	"github.com/INTEARnear/trade-indexer/internal/types"
)

// RecordKind 区分 receipt 日志记录与合约状态变更记录
type RecordKind uint8

const (
	RecordLog   RecordKind = 1 // receipt 执行日志（EVENT_JSON 等）
	RecordState RecordKind = 2 // 合约 storage DataUpdate（borsh 编码）
)

// RawRecord 表示数据源交付的一条原始记录，解码前不做任何协议假设。
// LogIndex 在所属交易内严格递增，与 (BlockHeight, TxIndex) 共同构成全序键。
type RawRecord struct {
	LogIndex uint32
	Contract types.AccountID // 产生该记录的合约账户
	Kind     RecordKind
	Key      []byte // 仅 RecordState：storage key（含前缀）
	Data     []byte // 日志原文或 storage value
}

// MethodCall 表示 receipt 中的一次合约方法调用。
// Ref 的 swap 日志不携带 pool id，必须回到方法参数里按位配对，
// 所以调用列表随 Transaction 一起交付给解码层。
type MethodCall struct {
	Method string
	Args   []byte // 原始 JSON 参数
}

// Transaction 表示一个执行单元内按序产生的全部原始记录。
// NEAR 上事件归属的最小原子单位是 receipt，多跳 swap 的各跳日志
// 都落在同一个 receipt 里，因此这里以 receipt 为交易粒度。
type Transaction struct {
	TxIndex uint32
	Hash    types.Hash // receipt ID

	// Trader 是该 receipt 的经济发起方：默认为 predecessor；
	// ft_on_transfer 场景下 predecessor 是 token 合约，
	// 数据源会尽力解析到父 receipt 的 predecessor。
	Trader types.AccountID

	Calls   []MethodCall
	Records []RawRecord
}

// Block 表示一个确定性高度上的完整区块。
// 链上不存在的高度由数据源补位成空 Block（Txs 为空），保证高度连续交付。
type Block struct {
	Height           uint64
	TimestampNanosec uint64
	Hash             types.Hash
	Txs              []*Transaction
}

// ErrEndOfChain 表示数据源已经没有更多区块（仅回填模式会出现）
var ErrEndOfChain = errors.New("source: end of chain")

// TransientError 表示数据源的临时故障，调用方应退避重试，不推进 checkpoint。
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "source transient error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient 判断 err 是否为可重试的数据源错误
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// BlockSource 是链数据源边界。实现必须按高度不减的顺序交付区块；
// 重复交付已 checkpoint 的区块是允许的，由流水线按全序键跳过。
type BlockSource interface {
	// Seek 设置下一次 NextBlock 返回的起始高度（通常为 checkpoint+1）
	Seek(height uint64)
	// NextBlock 阻塞获取下一个区块；临时故障返回 *TransientError，
	// 回填到终点返回 ErrEndOfChain。
	NextBlock(ctx context.Context) (*Block, error)
}
