package reffinance

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/near/borsh-go"
)

// Ref 合约 storage 中的池子记录，borsh 编码。
// 布局来源：ref-contracts 的 Pool 枚举，字段顺序不能动。
// 注意前缀从 b"p" 换成了 0x00（合约升级 a196f4a），两种都要认。

type swapVolume struct {
	Input  big.Int
	Output big.Int
}

type simplePool struct {
	TokenAccountIDs   []string
	Amounts           []big.Int
	Volumes           []swapVolume
	TotalFee          uint32
	ExchangeFee       uint32
	ReferralFee       uint32
	SharesPrefix      []byte
	SharesTotalSupply big.Int
}

type stableSwapPool struct {
	TokenAccountIDs   []string
	TokenDecimals     []uint8
	CAmounts          []big.Int
	Volumes           []swapVolume
	TotalFee          uint32
	SharesPrefix      []byte
	SharesTotalSupply big.Int
	InitAmpFactor     big.Int
	TargetAmpFactor   big.Int
	InitAmpTime       uint64
	StopAmpTime       uint64
}

type refPool struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	SimplePool     simplePool
	StableSwapPool stableSwapPool
	RatedSwapPool  stableSwapPool
	DegenSwapPool  stableSwapPool
}

const (
	variantSimplePool = iota
	variantStableSwapPool
	variantRatedSwapPool
	variantDegenSwapPool
)

// extractPoolState 解析 storage DataUpdate 为 ActionPoolEdit（携带完整新状态）。
// key 不是池子记录的记录返回 ErrNotTradeRecord，让上层按 reason 计数。
func extractPoolState(rec *source.RawRecord, pos types.Pos) (*core.TradeAction, error) {
	key := rec.Key
	var withoutPrefix []byte
	switch {
	case bytes.HasPrefix(key, []byte{0x00}):
		withoutPrefix = key[1:]
	case bytes.HasPrefix(key, []byte("p")):
		withoutPrefix = key[1:]
	default:
		return nil, common.ErrNotTradeRecord
	}
	if len(withoutPrefix) != 8 {
		return nil, common.Malformed("pool key", fmt.Errorf("unexpected key length %d", len(withoutPrefix)))
	}
	rawPoolID := binary.LittleEndian.Uint64(withoutPrefix)
	if rawPoolID > maxPoolID {
		return nil, common.Malformed("pool key", fmt.Errorf("pool id too high: %d", rawPoolID))
	}

	var pool refPool
	if err := borsh.Deserialize(&pool, rec.Data); err != nil {
		return nil, common.Malformed("pool borsh", err)
	}

	poolID := CreatePoolID(rawPoolID)
	state, err := buildPoolState(poolID, &pool, pos)
	if err != nil {
		return nil, common.Malformed("pool state", err)
	}

	return &core.TradeAction{
		Pos:      pos,
		Kind:     core.ActionPoolEdit,
		Protocol: Protocol,
		Pool:     poolID,
		State:    state,
	}, nil
}

func buildPoolState(poolID string, pool *refPool, pos types.Pos) (*core.PoolState, error) {
	switch uint8(pool.Enum) {
	case variantSimplePool:
		p := &pool.SimplePool
		return buildReserves(poolID, "simple_pool", p.TokenAccountIDs, p.Amounts,
			p.TotalFee, &p.SharesTotalSupply, pos)
	case variantStableSwapPool:
		p := &pool.StableSwapPool
		return buildReserves(poolID, "stable_swap_pool", p.TokenAccountIDs, p.CAmounts,
			p.TotalFee, &p.SharesTotalSupply, pos)
	case variantRatedSwapPool:
		p := &pool.RatedSwapPool
		return buildReserves(poolID, "rated_swap_pool", p.TokenAccountIDs, p.CAmounts,
			p.TotalFee, &p.SharesTotalSupply, pos)
	case variantDegenSwapPool:
		p := &pool.DegenSwapPool
		return buildReserves(poolID, "degen_swap_pool", p.TokenAccountIDs, p.CAmounts,
			p.TotalFee, &p.SharesTotalSupply, pos)
	default:
		return nil, fmt.Errorf("unknown pool variant %d", pool.Enum)
	}
}

func buildReserves(
	poolID, poolKind string,
	tokenIDs []string,
	amounts []big.Int,
	totalFee uint32,
	sharesTotalSupply *big.Int,
	pos types.Pos,
) (*core.PoolState, error) {
	if len(tokenIDs) == 0 || len(tokenIDs) != len(amounts) {
		return nil, fmt.Errorf("tokens/amounts length mismatch: %d vs %d", len(tokenIDs), len(amounts))
	}
	state := &core.PoolState{
		PoolID:            poolID,
		Protocol:          Protocol,
		PoolKind:          poolKind,
		Tokens:            make([]types.AccountID, 0, len(tokenIDs)),
		Reserves:          make(map[types.AccountID]*big.Int, len(tokenIDs)),
		TotalFee:          totalFee,
		SharesTotalSupply: new(big.Int).Set(sharesTotalSupply),
		Version:           pos,
	}
	for i, tokenStr := range tokenIDs {
		token, err := types.TryAccountIDFromString(tokenStr)
		if err != nil {
			return nil, fmt.Errorf("token %q: %w", tokenStr, err)
		}
		state.Tokens = append(state.Tokens, token)
		state.Reserves[token] = new(big.Int).Set(&amounts[i])
	}
	return state, nil
}
