package collector

import (
	"math/big"
	"testing"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试用 handler：data 为 "swap" 时产出一个 action，"skip" 时返回 ErrNotTradeRecord，
// 其他一律 malformed。
func testRegistry() *decoder.Registry {
	r := decoder.NewRegistry()
	r.Register("dex.near", func(rec *source.RawRecord, tx *source.Transaction, pos types.Pos) (*core.TradeAction, error) {
		switch string(rec.Data) {
		case "swap":
			return &core.TradeAction{
				Pos:       pos,
				Kind:      core.ActionSwap,
				Protocol:  "dex",
				Pool:      "DEX-1",
				Trader:    "alice.near",
				AssetIn:   "usdc.near",
				AmountIn:  big.NewInt(1),
				AssetOut:  "eth.near",
				AmountOut: big.NewInt(1),
			}, nil
		case "skip":
			return nil, common.ErrNotTradeRecord
		default:
			return nil, common.Malformed("test", nil)
		}
	})
	return r
}

func rec(logIndex uint32, data string) source.RawRecord {
	return source.RawRecord{
		LogIndex: logIndex,
		Contract: "dex.near",
		Kind:     source.RecordLog,
		Data:     []byte(data),
	}
}

func TestCollectTx_OrderAndPos(t *testing.T) {
	c := New(testRegistry())
	tx := &source.Transaction{
		TxIndex: 2,
		Records: []source.RawRecord{rec(0, "swap"), rec(3, "swap"), rec(7, "swap")},
	}

	out, err := c.CollectTx(100, tx)
	require.NoError(t, err)
	require.Len(t, out.Actions, 3)
	assert.Equal(t, uint32(2), out.TxIndex)

	// action 携带的全序键对应原始记录的 log index
	for i, logIndex := range []uint32{0, 3, 7} {
		assert.Equal(t, types.Pos{BlockHeight: 100, TxIndex: 2, LogIndex: logIndex}, out.Actions[i].Pos)
	}
}

// 跳过（未识别 / 非交易 / 损坏）不报错，只影响产出的 action 数
func TestCollectTx_Skips(t *testing.T) {
	c := New(testRegistry())
	tx := &source.Transaction{
		TxIndex: 0,
		Records: []source.RawRecord{
			rec(0, "swap"),
			rec(1, "skip"),
			rec(2, "garbage"),
			{LogIndex: 3, Contract: "other.near", Kind: source.RecordLog, Data: []byte("swap")},
			rec(4, "swap"),
		},
	}

	out, err := c.CollectTx(100, tx)
	require.NoError(t, err)
	require.Len(t, out.Actions, 2)
	assert.Equal(t, uint32(0), out.Actions[0].Pos.LogIndex)
	assert.Equal(t, uint32(4), out.Actions[1].Pos.LogIndex)
}

func TestCollectTx_EmptyTx(t *testing.T) {
	c := New(testRegistry())
	out, err := c.CollectTx(100, &source.Transaction{TxIndex: 5})
	require.NoError(t, err)
	assert.Empty(t, out.Actions)
	assert.Equal(t, uint32(5), out.TxIndex)
}

// log index 乱序是外部协作方违约，必须上抛致命错误
func TestCollectTx_OrderingViolation(t *testing.T) {
	c := New(testRegistry())
	tx := &source.Transaction{
		TxIndex: 0,
		Records: []source.RawRecord{rec(2, "swap"), rec(2, "swap")},
	}
	_, err := c.CollectTx(100, tx)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrOrderingViolation)

	tx = &source.Transaction{
		TxIndex: 0,
		Records: []source.RawRecord{rec(5, "swap"), rec(1, "swap")},
	}
	_, err = c.CollectTx(100, tx)
	assert.ErrorIs(t, err, types.ErrOrderingViolation)
}
