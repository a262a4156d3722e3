package types

import (
	"fmt"
	"math/big"
)

// 金额统一用 big.Int 表示：链上 token 余额是 u128，净变动是 i128，
// 两者都超出 uint64 可表示范围。序列化时按十进制字符串输出。

var (
	maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// ParseU128 将十进制字符串解析为非负 u128 金额，超界或非法输入返回 error。
func ParseU128(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	if v.Cmp(maxU128) > 0 {
		return nil, fmt.Errorf("amount %q exceeds u128 range", s)
	}
	return v, nil
}

// CheckI128 校验有符号金额处于 i128 范围内。
// 越界意味着 decoder 或 schema 缺陷，调用方应将其视为致命错误。
func CheckI128(v *big.Int) error {
	if v.Cmp(maxI128) > 0 || v.Cmp(minI128) < 0 {
		return fmt.Errorf("amount %s exceeds i128 range", v.String())
	}
	return nil
}
