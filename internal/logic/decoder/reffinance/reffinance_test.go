package reffinance

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPos = types.Pos{BlockHeight: 124099140, TxIndex: 3, LogIndex: 0}

func call(method, args string) source.MethodCall {
	return source.MethodCall{Method: method, Args: []byte(args)}
}

// swapTx 构造一个 receipt：日志按下标排 LogIndex，方法调用原样携带
func swapTx(trader types.AccountID, calls []source.MethodCall, logs ...string) *source.Transaction {
	tx := &source.Transaction{
		TxIndex: testPos.TxIndex,
		Trader:  trader,
		Calls:   calls,
	}
	for i, log := range logs {
		tx.Records = append(tx.Records, source.RawRecord{
			LogIndex: uint32(i),
			Contract: MainnetContract,
			Kind:     source.RecordLog,
			Data:     []byte(log),
		})
	}
	return tx
}

func posAt(logIndex uint32) types.Pos {
	return types.Pos{BlockHeight: testPos.BlockHeight, TxIndex: testPos.TxIndex, LogIndex: logIndex}
}

func TestRegisterHandlers(t *testing.T) {
	m := make(map[types.AccountID]common.RecordHandler)
	RegisterHandlers(m, false)
	require.Contains(t, m, MainnetContract)

	m = make(map[types.AccountID]common.RecordHandler)
	RegisterHandlers(m, true)
	require.Contains(t, m, TestnetContract)
	assert.NotContains(t, m, MainnetContract)
}

func TestHandleRecord_Swap(t *testing.T) {
	tx := swapTx("alice.near",
		[]source.MethodCall{call("swap", `{"actions":[{"pool_id":17,"token_in":"usdc.near","token_out":"eth.near"}]}`)},
		"Swapped 100 usdc.near for 5 eth.near")

	action, err := handleRecord(&tx.Records[0], tx, posAt(0))
	require.NoError(t, err)
	require.NotNil(t, action)

	assert.Equal(t, core.ActionSwap, action.Kind)
	assert.Equal(t, Protocol, action.Protocol)
	assert.Equal(t, "REF-17", action.Pool)
	assert.Equal(t, types.AccountID("alice.near"), action.Trader)
	assert.Equal(t, types.AccountID("usdc.near"), action.AssetIn)
	assert.Equal(t, types.AccountID("eth.near"), action.AssetOut)
	assert.Equal(t, int64(100), action.AmountIn.Int64())
	assert.Equal(t, int64(5), action.AmountOut.Int64())
	assert.Equal(t, posAt(0), action.Pos)
}

// Swap_by_output 共用同一格式；token_out 后面可能跟逗号开头的手续费明细
func TestHandleRecord_SwapByOutput(t *testing.T) {
	tx := swapTx("alice.near",
		[]source.MethodCall{call("swap_by_output", `{"actions":[{"pool_id":42}]}`)},
		"Swap_by_output 100 usdc.near for 5 eth.near, total fee 3, admin fee 1")

	action, err := handleRecord(&tx.Records[0], tx, posAt(0))
	require.NoError(t, err)
	assert.Equal(t, "REF-42", action.Pool)
	assert.Equal(t, types.AccountID("eth.near"), action.AssetOut)
	assert.Equal(t, int64(5), action.AmountOut.Int64())
}

// 多跳：第 N 条 swap 日志配方法参数里的第 N 个 pool_id
func TestHandleRecord_SwapMultiHop(t *testing.T) {
	tx := swapTx("alice.near",
		[]source.MethodCall{call("execute_actions",
			`{"actions":[{"pool_id":17},{"pool_id":42}]}`)},
		"Swapped 100 usdc.near for 31 wrap.near",
		"Swapped 31 wrap.near for 5 eth.near")

	first, err := handleRecord(&tx.Records[0], tx, posAt(0))
	require.NoError(t, err)
	assert.Equal(t, "REF-17", first.Pool)

	second, err := handleRecord(&tx.Records[1], tx, posAt(1))
	require.NoError(t, err)
	assert.Equal(t, "REF-42", second.Pool)
	assert.Equal(t, types.AccountID("wrap.near"), second.AssetIn)
}

// ft_on_transfer 的参数包了一层：msg 是 JSON 字符串
func TestHandleRecord_SwapViaTransferCall(t *testing.T) {
	tx := swapTx("alice.near",
		[]source.MethodCall{call("ft_on_transfer",
			`{"sender_id":"alice.near","amount":"100","msg":"{\"actions\":[{\"pool_id\":7}]}"}`)},
		"Swapped 100 usdc.near for 5 eth.near")

	action, err := handleRecord(&tx.Records[0], tx, posAt(0))
	require.NoError(t, err)
	assert.Equal(t, "REF-7", action.Pool)

	// hot zap 变体
	tx = swapTx("alice.near",
		[]source.MethodCall{call("ft_on_transfer",
			`{"msg":"{\"hot_zap_actions\":[{\"pool_id\":9}]}"}`)},
		"Swapped 100 usdc.near for 5 eth.near")

	action, err = handleRecord(&tx.Records[0], tx, posAt(0))
	require.NoError(t, err)
	assert.Equal(t, "REF-9", action.Pool)
}

// 日志数和 pool 数对不上说明配对不可信，整条记录按损坏丢弃
func TestHandleRecord_SwapPoolMismatch(t *testing.T) {
	var malformed *common.MalformedRecordError

	tx := swapTx("alice.near", nil, "Swapped 100 usdc.near for 5 eth.near")
	_, err := handleRecord(&tx.Records[0], tx, posAt(0))
	assert.ErrorAs(t, err, &malformed)

	tx = swapTx("alice.near",
		[]source.MethodCall{call("swap", `{"actions":[{"pool_id":1},{"pool_id":2}]}`)},
		"Swapped 100 usdc.near for 5 eth.near")
	_, err = handleRecord(&tx.Records[0], tx, posAt(0))
	assert.ErrorAs(t, err, &malformed)
}

func TestHandleRecord_LiquidityAdded(t *testing.T) {
	tx := swapTx("lp.near",
		[]source.MethodCall{call("add_liquidity", `{"pool_id":17,"amounts":["1000","40"]}`)},
		`Liquidity added ["1000 usdc.near", "40 eth.near"], minted 500 shares`)

	action, err := handleRecord(&tx.Records[0], tx, posAt(0))
	require.NoError(t, err)
	assert.Equal(t, core.ActionLiquidityAdd, action.Kind)
	assert.Equal(t, "REF-17", action.Pool)
	assert.Equal(t, types.AccountID("lp.near"), action.Trader)
	assert.Equal(t, int64(1000), action.Amounts["usdc.near"].Int64())
	assert.Equal(t, int64(40), action.Amounts["eth.near"].Int64())
}

func TestHandleRecord_LiquidityRemoved(t *testing.T) {
	tx := swapTx("lp.near",
		[]source.MethodCall{call("remove_liquidity", `{"pool_id":17,"shares":"200"}`)},
		`200 shares of liquidity removed: receive back ["400 usdc.near", "16 eth.near"]`)

	action, err := handleRecord(&tx.Records[0], tx, posAt(0))
	require.NoError(t, err)
	assert.Equal(t, core.ActionLiquidityRemove, action.Kind)
	assert.Equal(t, "REF-17", action.Pool)
	assert.Equal(t, int64(400), action.Amounts["usdc.near"].Int64())
	assert.Equal(t, int64(16), action.Amounts["eth.near"].Int64())
}

func TestHandleRecord_Skips(t *testing.T) {
	// 不认识的普通日志
	tx := swapTx("alice.near", nil, "Deposit 100 usdc.near to alice.near")
	_, err := handleRecord(&tx.Records[0], tx, posAt(0))
	assert.ErrorIs(t, err, common.ErrNotTradeRecord)

	// 别家标准的 EVENT_JSON 也不归我们管
	tx = swapTx("alice.near", nil,
		`EVENT_JSON:{"standard":"nep141","version":"1.0.0","event":"ft_transfer","data":[{}]}`)
	_, err = handleRecord(&tx.Records[0], tx, posAt(0))
	assert.ErrorIs(t, err, common.ErrNotTradeRecord)

	// 流动性日志但同 receipt 没有对应方法调用
	tx = swapTx("lp.near", nil, `Liquidity added ["1000 usdc.near"], minted 500 shares`)
	_, err = handleRecord(&tx.Records[0], tx, posAt(0))
	assert.ErrorIs(t, err, common.ErrNotTradeRecord)
}

func TestHandleRecord_Malformed(t *testing.T) {
	var malformed *common.MalformedRecordError

	// swap 日志残缺
	tx := swapTx("alice.near",
		[]source.MethodCall{call("swap", `{"actions":[{"pool_id":1}]}`)},
		"Swapped 100 usdc.near for ")
	_, err := handleRecord(&tx.Records[0], tx, posAt(0))
	assert.ErrorAs(t, err, &malformed)

	// pool id 超出合理上界
	tx = swapTx("alice.near",
		[]source.MethodCall{call("swap", `{"actions":[{"pool_id":900000}]}`)},
		"Swapped 100 usdc.near for 5 eth.near")
	_, err = handleRecord(&tx.Records[0], tx, posAt(0))
	assert.ErrorAs(t, err, &malformed)

	// 流动性金额串损坏
	tx = swapTx("lp.near",
		[]source.MethodCall{call("add_liquidity", `{"pool_id":17}`)},
		`Liquidity added ["corrupted"], minted 500 shares`)
	_, err = handleRecord(&tx.Records[0], tx, posAt(0))
	assert.ErrorAs(t, err, &malformed)

	// shares 不是数字
	tx = swapTx("lp.near",
		[]source.MethodCall{call("remove_liquidity", `{"pool_id":17}`)},
		`abc shares of liquidity removed: receive back ["400 usdc.near"]`)
	_, err = handleRecord(&tx.Records[0], tx, posAt(0))
	assert.ErrorAs(t, err, &malformed)
}

func poolKey(prefix byte, id uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.LittleEndian.PutUint64(key[1:], id)
	return key
}

func stateRecord(key, value []byte) *source.RawRecord {
	return &source.RawRecord{
		LogIndex: 0,
		Contract: MainnetContract,
		Kind:     source.RecordState,
		Key:      key,
		Data:     value,
	}
}

func serializeSimplePool(t *testing.T, tokens []string, amounts []int64, fee uint32, shares int64) []byte {
	t.Helper()
	pool := refPool{Enum: variantSimplePool}
	pool.SimplePool.TokenAccountIDs = tokens
	for _, a := range amounts {
		pool.SimplePool.Amounts = append(pool.SimplePool.Amounts, *big.NewInt(a))
	}
	pool.SimplePool.TotalFee = fee
	pool.SimplePool.SharesPrefix = []byte("s")
	pool.SimplePool.SharesTotalSupply = *big.NewInt(shares)
	raw, err := borsh.Serialize(pool)
	require.NoError(t, err)
	return raw
}

func TestHandleRecord_StateSimplePool(t *testing.T) {
	value := serializeSimplePool(t, []string{"usdc.near", "eth.near"}, []int64{5000, 200}, 30, 12345)

	for _, prefix := range []byte{0x00, 'p'} {
		rec := stateRecord(poolKey(prefix, 17), value)
		action, err := handleRecord(rec, &source.Transaction{}, testPos)
		require.NoError(t, err)

		assert.Equal(t, core.ActionPoolEdit, action.Kind)
		assert.Equal(t, "REF-17", action.Pool)
		require.NotNil(t, action.State)
		assert.Equal(t, "simple_pool", action.State.PoolKind)
		assert.Equal(t, uint32(30), action.State.TotalFee)
		assert.Equal(t, int64(5000), action.State.Reserves["usdc.near"].Int64())
		assert.Equal(t, int64(200), action.State.Reserves["eth.near"].Int64())
		assert.Equal(t, int64(12345), action.State.SharesTotalSupply.Int64())
	}
}

func TestHandleRecord_StateStablePool(t *testing.T) {
	pool := refPool{Enum: variantStableSwapPool}
	pool.StableSwapPool.TokenAccountIDs = []string{"usdt.near", "usdc.near"}
	pool.StableSwapPool.TokenDecimals = []uint8{6, 6}
	pool.StableSwapPool.CAmounts = []big.Int{*big.NewInt(7000), *big.NewInt(7100)}
	pool.StableSwapPool.TotalFee = 5
	pool.StableSwapPool.SharesPrefix = []byte("s")
	pool.StableSwapPool.SharesTotalSupply = *big.NewInt(99)
	pool.StableSwapPool.InitAmpFactor = *big.NewInt(240)
	pool.StableSwapPool.TargetAmpFactor = *big.NewInt(240)
	raw, err := borsh.Serialize(pool)
	require.NoError(t, err)

	action, err := handleRecord(stateRecord(poolKey(0x00, 3001), raw), &source.Transaction{}, testPos)
	require.NoError(t, err)
	assert.Equal(t, "REF-3001", action.Pool)
	assert.Equal(t, "stable_swap_pool", action.State.PoolKind)
	assert.Equal(t, int64(7000), action.State.Reserves["usdt.near"].Int64())
}

func TestHandleRecord_StateSkipsAndMalformed(t *testing.T) {
	value := serializeSimplePool(t, []string{"usdc.near"}, []int64{1}, 30, 1)

	// 非池子前缀的 storage key 直接跳过
	_, err := handleRecord(stateRecord([]byte("accounts/alice.near"), value), &source.Transaction{}, testPos)
	assert.ErrorIs(t, err, common.ErrNotTradeRecord)

	var malformed *common.MalformedRecordError

	// 池子前缀但 key 长度不对
	_, err = handleRecord(stateRecord([]byte{0x00, 1, 2}, value), &source.Transaction{}, testPos)
	assert.ErrorAs(t, err, &malformed)

	// borsh 内容损坏
	_, err = handleRecord(stateRecord(poolKey(0x00, 17), []byte{0xff, 0xee}), &source.Transaction{}, testPos)
	assert.ErrorAs(t, err, &malformed)
}
