package aidols

import (
	"bytes"
	"math/big"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/near/borsh-go"
)

// AIdols 合约 storage 中的池子记录，borsh 编码，字段顺序不能动。
// key 是 0x00 前缀 + borsh AccountId。
type poolStateRecord struct {
	TokenHold  big.Int
	WnearHold  big.Int
	IsDeployed bool
	IsTradable bool
}

// extractPoolState 解析 storage DataUpdate 为 ActionPoolEdit
func extractPoolState(rec *source.RawRecord, pos types.Pos) (*core.TradeAction, error) {
	if !bytes.HasPrefix(rec.Key, []byte{0x00}) {
		return nil, common.ErrNotTradeRecord
	}
	token, err := common.BorshAccountID(rec.Key[1:])
	if err != nil {
		return nil, common.Malformed("pool key", err)
	}

	var pool poolStateRecord
	if err := borsh.Deserialize(&pool, rec.Data); err != nil {
		return nil, common.Malformed("pool borsh", err)
	}

	poolID := CreatePoolID(token)
	return &core.TradeAction{
		Pos:      pos,
		Kind:     core.ActionPoolEdit,
		Protocol: Protocol,
		Pool:     poolID,
		State: &core.PoolState{
			PoolID:   poolID,
			Protocol: Protocol,
			PoolKind: "bonding_curve",
			Tokens:   []types.AccountID{token, wnear},
			Reserves: map[types.AccountID]*big.Int{
				token: new(big.Int).Set(&pool.TokenHold),
				wnear: new(big.Int).Set(&pool.WnearHold),
			},
			SharesTotalSupply: new(big.Int),
			Version:           pos,
		},
	}, nil
}
