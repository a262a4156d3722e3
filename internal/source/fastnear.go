package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpc"
)

// FastNearConfig 表示 FastNear 数据服务的连接配置
type FastNearConfig struct {
	Endpoint       string `yaml:"endpoint"`         // 数据服务地址，例如 https://mainnet.neardata.xyz
	EndHeight      uint64 `yaml:"end_height"`       // 回填终点高度，0 表示持续跟随链头
	PollIntervalMs int    `yaml:"poll_interval_ms"` // 追上链头后的轮询间隔（毫秒）
	RequestTimeout int    `yaml:"request_timeout_s"` // 单次请求超时（秒）
}

// FastNearClient 按高度逐个拉取区块，保证高度连续交付：
// 链上缺失的高度（NEAR 允许跳高）补位为空 Block，使 checkpoint 的严格 +1 约束成立。
type FastNearClient struct {
	cfg        FastNearConfig
	nextHeight uint64
}

func NewFastNearClient(cfg FastNearConfig) *FastNearClient {
	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = 500
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10
	}
	return &FastNearClient{cfg: cfg}
}

func (c *FastNearClient) Seek(height uint64) {
	c.nextHeight = height
}

func (c *FastNearClient) NextBlock(ctx context.Context) (*Block, error) {
	if c.cfg.EndHeight > 0 && c.nextHeight > c.cfg.EndHeight {
		return nil, ErrEndOfChain
	}

	for {
		raw, found, err := c.fetchBlock(ctx, c.nextHeight)
		if err != nil {
			return nil, err
		}
		if !found {
			// 高度可能尚未产出（在链头之后），也可能是链上跳过的高度。
			// 用最终区块高度区分两种情况。
			head, err := c.fetchHead(ctx)
			if err != nil {
				return nil, err
			}
			if c.nextHeight > head {
				// 链头未动时停在原地轮询，等出块后重新拉取
				if err := c.sleep(ctx); err != nil {
					return nil, err
				}
				continue
			}
			block := &Block{Height: c.nextHeight}
			c.nextHeight++
			return block, nil
		}

		block, err := adaptStreamerMessage(c.nextHeight, raw)
		if err != nil {
			// 区块结构非法不可重试，直接上抛给流水线判定
			return nil, fmt.Errorf("adapt block %d: %w", c.nextHeight, err)
		}
		c.nextHeight++
		return block, nil
	}
}

func (c *FastNearClient) sleep(ctx context.Context) error {
	timer := time.NewTimer(time.Duration(c.cfg.PollIntervalMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fetchBlock 拉取指定高度的区块 JSON；链上不存在的高度返回 found=false
func (c *FastNearClient) fetchBlock(ctx context.Context, height uint64) (*streamerMessage, bool, error) {
	url := fmt.Sprintf("%s/v0/block/%d", c.cfg.Endpoint, height)
	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, false, &TransientError{Err: err}
	}
	if status == http.StatusNotFound {
		return nil, false, nil
	}
	if status != http.StatusOK {
		return nil, false, &TransientError{Err: fmt.Errorf("GET %s: status %d", url, status)}
	}
	if string(body) == "null" {
		return nil, false, nil
	}

	var msg streamerMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, false, fmt.Errorf("decode block %d: %w", height, err)
	}
	return &msg, true, nil
}

func (c *FastNearClient) fetchHead(ctx context.Context) (uint64, error) {
	url := c.cfg.Endpoint + "/v0/last_block/final"
	body, status, err := c.get(ctx, url)
	if err != nil || status != http.StatusOK {
		if err == nil {
			err = fmt.Errorf("GET %s: status %d", url, status)
		}
		return 0, &TransientError{Err: err}
	}
	var msg struct {
		Block struct {
			Header struct {
				Height uint64 `json:"height"`
			} `json:"header"`
		} `json:"block"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return 0, &TransientError{Err: fmt.Errorf("decode head: %w", err)}
	}
	return msg.Block.Header.Height, nil
}

func (c *FastNearClient) get(ctx context.Context, url string) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.RequestTimeout)*time.Second)
	defer cancel()

	resp, err := httpc.Do(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// ---- FastNear（near-lake streamer message）wire 结构，只保留用到的字段 ----

type streamerMessage struct {
	Block struct {
		Header struct {
			Height            uint64 `json:"height"`
			Hash              string `json:"hash"`
			TimestampNanosec  string `json:"timestamp_nanosec"`
		} `json:"header"`
	} `json:"block"`
	Shards []struct {
		ReceiptExecutionOutcomes []struct {
			Receipt struct {
				ReceiptID     string `json:"receipt_id"`
				ReceiverID    string `json:"receiver_id"`
				PredecessorID string `json:"predecessor_id"`
				Receipt       struct {
					Action struct {
						Actions []json.RawMessage `json:"actions"`
					} `json:"Action"`
				} `json:"receipt"`
			} `json:"receipt"`
			ExecutionOutcome struct {
				Outcome struct {
					Logs       []string                   `json:"logs"`
					Status     map[string]json.RawMessage `json:"status"`
					ReceiptIDs []string                   `json:"receipt_ids"`
				} `json:"outcome"`
			} `json:"execution_outcome"`
		} `json:"receipt_execution_outcomes"`
		StateChanges []struct {
			Type   string `json:"type"`
			Change struct {
				AccountID   string `json:"account_id"`
				KeyBase64   string `json:"key_base64"`
				ValueBase64 string `json:"value_base64"`
			} `json:"change"`
		} `json:"state_changes"`
	} `json:"shards"`
}

// adaptStreamerMessage 把 streamer 消息整理成 Block：
//   - 每个执行成功的 receipt 作为一个 Transaction，日志按产生顺序编号；
//   - 各 shard 的 DataUpdate 状态变更汇总到区块末尾的一个合成 Transaction，
//     保证 pool 状态记录排在同区块 swap 日志之后被应用。
func adaptStreamerMessage(height uint64, msg *streamerMessage) (*Block, error) {
	if msg.Block.Header.Height != height {
		return nil, fmt.Errorf("height mismatch: requested %d, got %d", height, msg.Block.Header.Height)
	}
	ts, err := strconv.ParseUint(msg.Block.Header.TimestampNanosec, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", msg.Block.Header.TimestampNanosec, err)
	}
	blockHash, err := types.HashFromBase58(msg.Block.Header.Hash)
	if err != nil {
		return nil, fmt.Errorf("invalid block hash: %w", err)
	}

	block := &Block{
		Height:           height,
		TimestampNanosec: ts,
		Hash:             blockHash,
	}

	txIndex := uint32(0)
	var stateRecords []RawRecord
	stateLogIndex := uint32(0)

	// 子 receipt id → 父 receipt 的 predecessor。
	// ft_on_transfer 的 predecessor 是 token 合约，经济发起方要看父 receipt；
	// 跨区块的父 receipt 解析不到，保持 predecessor 兜底。
	parentTrader := make(map[string]types.AccountID)
	for _, shard := range msg.Shards {
		for _, outcome := range shard.ReceiptExecutionOutcomes {
			for _, produced := range outcome.ExecutionOutcome.Outcome.ReceiptIDs {
				parentTrader[produced] = types.AccountID(outcome.Receipt.PredecessorID)
			}
		}
	}

	for _, shard := range msg.Shards {
		for _, outcome := range shard.ReceiptExecutionOutcomes {
			if _, failed := outcome.ExecutionOutcome.Outcome.Status["Failure"]; failed {
				continue
			}
			if len(outcome.ExecutionOutcome.Outcome.Logs) == 0 {
				continue
			}
			receiptID, err := types.HashFromBase58(outcome.Receipt.ReceiptID)
			if err != nil {
				logx.Errorf("invalid receipt id %q at block %d: %v", outcome.Receipt.ReceiptID, height, err)
				continue
			}

			calls := parseMethodCalls(outcome.Receipt.Receipt.Action.Actions)
			trader := types.AccountID(outcome.Receipt.PredecessorID)
			for _, call := range calls {
				if call.Method == "ft_on_transfer" {
					if parent, ok := parentTrader[outcome.Receipt.ReceiptID]; ok {
						trader = parent
					}
					break
				}
			}

			tx := &Transaction{
				TxIndex: txIndex,
				Hash:    receiptID,
				Trader:  trader,
				Calls:   calls,
				Records: make([]RawRecord, 0, len(outcome.ExecutionOutcome.Outcome.Logs)),
			}
			for i, log := range outcome.ExecutionOutcome.Outcome.Logs {
				tx.Records = append(tx.Records, RawRecord{
					LogIndex: uint32(i),
					Contract: types.AccountID(outcome.Receipt.ReceiverID),
					Kind:     RecordLog,
					Data:     []byte(log),
				})
			}
			block.Txs = append(block.Txs, tx)
			txIndex++
		}

		for _, sc := range shard.StateChanges {
			if sc.Type != "data_update" {
				continue
			}
			key, err := base64.StdEncoding.DecodeString(sc.Change.KeyBase64)
			if err != nil {
				logx.Errorf("invalid state key at block %d: %v", height, err)
				continue
			}
			value, err := base64.StdEncoding.DecodeString(sc.Change.ValueBase64)
			if err != nil {
				logx.Errorf("invalid state value at block %d: %v", height, err)
				continue
			}
			stateRecords = append(stateRecords, RawRecord{
				LogIndex: stateLogIndex,
				Contract: types.AccountID(sc.Change.AccountID),
				Kind:     RecordState,
				Key:      key,
				Data:     value,
			})
			stateLogIndex++
		}
	}

	if len(stateRecords) > 0 {
		block.Txs = append(block.Txs, &Transaction{
			TxIndex: txIndex,
			Hash:    blockHash,
			Records: stateRecords,
		})
	}
	return block, nil
}

// parseMethodCalls 提取 receipt 中的 FunctionCall 动作，其余动作类型跳过。
func parseMethodCalls(actions []json.RawMessage) []MethodCall {
	var calls []MethodCall
	for _, raw := range actions {
		var action struct {
			FunctionCall struct {
				MethodName string `json:"method_name"`
				Args       string `json:"args"` // base64
			} `json:"FunctionCall"`
		}
		if err := json.Unmarshal(raw, &action); err != nil {
			continue
		}
		if action.FunctionCall.MethodName == "" {
			continue
		}
		args, err := base64.StdEncoding.DecodeString(action.FunctionCall.Args)
		if err != nil {
			continue
		}
		calls = append(calls, MethodCall{
			Method: action.FunctionCall.MethodName,
			Args:   args,
		})
	}
	return calls
}
