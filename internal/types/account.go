package types

import (
	"fmt"
	"strings"
)

// AccountID 表示 NEAR 账户 ID（合约地址、交易者、token 均为账户 ID）。
// 长度限制与字符集校验见 https://nomicon.io/DataStructures/Account
type AccountID string

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

func (a AccountID) String() string {
	return string(a)
}

// TryAccountIDFromString 校验并构造 AccountID，失败时返回 error（用于不信任输入路径）
func TryAccountIDFromString(s string) (AccountID, error) {
	if len(s) < minAccountIDLen || len(s) > maxAccountIDLen {
		return "", fmt.Errorf("invalid account id length: got %d, input=%q", len(s), s)
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return "", fmt.Errorf("invalid account id: empty part in %q", s)
		}
		for i := 0; i < len(part); i++ {
			c := part[i]
			ok := c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '_'
			if !ok {
				return "", fmt.Errorf("invalid account id char %q in %q", c, s)
			}
			if (c == '-' || c == '_') && (i == 0 || i == len(part)-1) {
				return "", fmt.Errorf("invalid account id separator position in %q", s)
			}
		}
	}
	return AccountID(s), nil
}
