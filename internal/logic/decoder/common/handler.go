package common

import (
	"errors"
	"fmt"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

// RecordHandler 定义统一的记录解码函数签名。
// 解码是纯函数：同一条记录无论何时解码结果一致，每条记录最多产出一个 TradeAction。
// tx 给的是记录所属的完整 receipt：Ref 的 swap 日志不带 pool id，
// 必须结合同 receipt 的方法参数按位配对。
//
// 返回值约定：
//   - (action, nil)：成功解码
//   - (nil, ErrNotTradeRecord)：合约已注册，但该记录不是我们追踪的事件（跳过并计数）
//   - (nil, *MalformedRecordError)：记录损坏 / 字段非法（跳过并计数，绝不 panic）
type RecordHandler func(rec *source.RawRecord, tx *source.Transaction, pos types.Pos) (*core.TradeAction, error)

// ErrNotTradeRecord 表示合约已注册但记录与任何已知事件格式不匹配
var ErrNotTradeRecord = errors.New("decoder: not a trade record")

// MalformedRecordError 表示记录内容非法。链上数据不可信，
// 解码失败只能跳过计数，绝不允许让单条坏记录拖垮流水线。
type MalformedRecordError struct {
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoder: malformed record (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decoder: malformed record (%s)", e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Malformed 构造 MalformedRecordError
func Malformed(reason string, err error) error {
	return &MalformedRecordError{Reason: reason, Err: err}
}
