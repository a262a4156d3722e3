package types

import "errors"

// ErrOrderingViolation 表示外部协作方违反了顺序前置条件：
// 数据源回退了区块高度，或单笔交易内 log index 乱序。
// 下游正确性依赖顺序，该错误一律致命，不允许绕过。
var ErrOrderingViolation = errors.New("ordering violation")
