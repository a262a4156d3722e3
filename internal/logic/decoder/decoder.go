package decoder

import (
	"errors"
	"fmt"

	"github.com/INTEARnear/trade-indexer/internal/logic/core"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/aidols"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/common"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/grafun"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/refdcl"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/reffinance"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder/veax"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
)

// ErrUnrecognizedProtocol 表示记录来自未注册的合约
var ErrUnrecognizedProtocol = errors.New("decoder: unrecognized protocol")

// Registry 是合约账户 → 解码 handler 的路由表。
// 协议模块通过各自的 RegisterHandlers 注册进来，新增 DEX 集成只需加一个包，
// 聚合与发布阶段不需要任何改动。
type Registry struct {
	handlers map[types.AccountID]common.RecordHandler
}

// NewRegistry 构造空路由表（测试用）
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[types.AccountID]common.RecordHandler)}
}

// NewDefaultRegistry 注册全部已支持的协议
func NewDefaultRegistry(testnet bool) *Registry {
	r := NewRegistry()
	reffinance.RegisterHandlers(r.handlers, testnet)
	refdcl.RegisterHandlers(r.handlers, testnet)
	veax.RegisterHandlers(r.handlers, testnet)
	grafun.RegisterHandlers(r.handlers, testnet)
	aidols.RegisterHandlers(r.handlers, testnet)
	return r
}

// Register 注册一个合约的 handler（测试用）
func (r *Registry) Register(contract types.AccountID, h common.RecordHandler) {
	if _, ok := r.handlers[contract]; ok {
		panic(fmt.Sprintf("decoder: duplicate handler for contract %s", contract))
	}
	r.handlers[contract] = h
}

// DecodeRecord 解码一条原始记录。handler 内部 panic 被折算为 MalformedRecordError，
// 保证不可信输入无法展开调用栈。
func (r *Registry) DecodeRecord(rec *source.RawRecord, tx *source.Transaction, pos types.Pos) (action *core.TradeAction, err error) {
	handler, ok := r.handlers[rec.Contract]
	if !ok {
		return nil, ErrUnrecognizedProtocol
	}

	defer func() {
		if p := recover(); p != nil {
			action = nil
			err = common.Malformed("handler panic", fmt.Errorf("%v", p))
		}
	}()

	return handler(rec, tx, pos)
}
