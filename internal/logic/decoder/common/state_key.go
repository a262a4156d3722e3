package common

import (
	"encoding/binary"
	"fmt"

	"github.com/INTEARnear/trade-indexer/internal/types"
)

// BorshAccountID 解码 borsh 编码的 AccountId：4 字节小端长度 + 原始字节。
// bonding curve 合约把 token 账号当作 storage key 的一部分，
// 解出来还要过一遍账号格式校验。
func BorshAccountID(data []byte) (types.AccountID, error) {
	if len(data) < 4 {
		return "", fmt.Errorf("account id key too short: %d bytes", len(data))
	}
	n := binary.LittleEndian.Uint32(data)
	if uint32(len(data)-4) != n {
		return "", fmt.Errorf("account id key length mismatch: header %d, payload %d", n, len(data)-4)
	}
	return types.TryAccountIDFromString(string(data[4:]))
}
