package veax

import (
	"testing"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPos = types.Pos{BlockHeight: 124099140, TxIndex: 1, LogIndex: 0}

func logRecord(log string) *source.RawRecord {
	return &source.RawRecord{
		Contract: Contract,
		Kind:     source.RecordLog,
		Data:     []byte(log),
	}
}

// Veax 只在主网部署，testnet 模式不注册任何合约
func TestRegisterHandlers(t *testing.T) {
	m := make(map[types.AccountID]common.RecordHandler)
	RegisterHandlers(m, false)
	require.Contains(t, m, Contract)

	m = make(map[types.AccountID]common.RecordHandler)
	RegisterHandlers(m, true)
	assert.Empty(t, m)
}

// Veax 的 data 是单个对象，tokens/amounts 是 (in, out) 二元组
func TestHandleRecord_Swap(t *testing.T) {
	rec := logRecord(`EVENT_JSON:{"standard":"veax","version":"1.0.0","event":"swap",` +
		`"data":{"user":"alice.near","tokens":["usdc.near","eth.near"],"amounts":["100","5"]}}`)

	action, err := handleRecord(rec, &source.Transaction{}, testPos)
	require.NoError(t, err)
	assert.Equal(t, core.ActionSwap, action.Kind)
	assert.Equal(t, "VEAX-usdc.near-eth.near", action.Pool)
	assert.Equal(t, types.AccountID("alice.near"), action.Trader)
	assert.Equal(t, types.AccountID("usdc.near"), action.AssetIn)
	assert.Equal(t, int64(100), action.AmountIn.Int64())
	assert.Equal(t, types.AccountID("eth.near"), action.AssetOut)
	assert.Equal(t, int64(5), action.AmountOut.Int64())
}

func TestHandleRecord_PoolState(t *testing.T) {
	rec := logRecord(`EVENT_JSON:{"standard":"veax","version":"1.0.0","event":"update_pool_state",` +
		`"data":{"pool":["usdc.near","eth.near"],"amounts":["5000","200"],"fee_rate":16}}`)

	action, err := handleRecord(rec, &source.Transaction{}, testPos)
	require.NoError(t, err)
	assert.Equal(t, core.ActionPoolEdit, action.Kind)
	assert.Equal(t, "VEAX-usdc.near-eth.near", action.Pool)
	require.NotNil(t, action.State)
	assert.Equal(t, "concentrated", action.State.PoolKind)
	assert.Equal(t, uint32(16), action.State.TotalFee)
	assert.Equal(t, int64(5000), action.State.Reserves["usdc.near"].Int64())
	assert.Equal(t, int64(200), action.State.Reserves["eth.near"].Int64())
}

func TestHandleRecord_Skips(t *testing.T) {
	_, err := handleRecord(logRecord("refund from veax"), &source.Transaction{}, testPos)
	assert.ErrorIs(t, err, common.ErrNotTradeRecord)

	_, err = handleRecord(logRecord(`EVENT_JSON:{"standard":"ref","version":"1.0.0",`+
		`"event":"swap","data":[{}]}`), &source.Transaction{}, testPos)
	assert.ErrorIs(t, err, common.ErrNotTradeRecord)

	// storage 记录对 Veax 没有意义
	_, err = handleRecord(&source.RawRecord{Contract: Contract, Kind: source.RecordState,
		Key: []byte{0x00}, Data: []byte{0x01}}, &source.Transaction{}, testPos)
	assert.ErrorIs(t, err, common.ErrNotTradeRecord)
}

func TestHandleRecord_Malformed(t *testing.T) {
	var malformed *common.MalformedRecordError

	_, err := handleRecord(logRecord(`EVENT_JSON:{"standard":"veax"`), &source.Transaction{}, testPos)
	assert.ErrorAs(t, err, &malformed)

	_, err = handleRecord(logRecord(`EVENT_JSON:{"standard":"veax","version":"1.0.0","event":"swap",`+
		`"data":{"user":"alice.near","tokens":["usdc.near","eth.near"],"amounts":["abc","5"]}}`), &source.Transaction{}, testPos)
	assert.ErrorAs(t, err, &malformed)
}
