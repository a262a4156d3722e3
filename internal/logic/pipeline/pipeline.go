package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/INTEARnear/trade-indexer/internal/checkpoint"
	"github.com/INTEARnear/trade-indexer/internal/config"
	"github.com/INTEARnear/trade-indexer/internal/logic/collector"
	"github.com/INTEARnear/trade-indexer/internal/logic/decoder"
	"github.com/INTEARnear/trade-indexer/internal/logic/emitter"
	"github.com/INTEARnear/trade-indexer/internal/logic/pooltracker"
	"github.com/INTEARnear/trade-indexer/internal/logic/swapgroup"
	"github.com/INTEARnear/trade-indexer/internal/metrics"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/INTEARnear/trade-indexer/pkg/utils"
	"github.com/zeromicro/go-zero/core/logx"
)

// BlockPublisher 是发布边界：整块发布并等待确认
type BlockPublisher interface {
	PublishBlock(ctx context.Context, height uint64, events *emitter.BlockEvents) error
}

// Checkpoint 是水位边界，只允许逐块推进
type Checkpoint interface {
	Load(ctx context.Context) (uint64, bool, error)
	Current() (uint64, bool)
	Advance(ctx context.Context, rec *checkpoint.BlockRecord) error
}

// Pipeline 按区块顺序驱动 解码 → 聚合 → 状态跟踪 → 发布 → checkpoint。
// 解码是纯函数，块内并发；状态套用与发布保持严格顺序。
// 退出只发生在区块边界：一个区块要么完整发布并记账，要么没有开始。
type Pipeline struct {
	cfg        config.Config
	src        source.BlockSource
	collector  *collector.Collector
	tracker    *pooltracker.Tracker
	publisher  BlockPublisher
	checkpoint Checkpoint

	ctx    context.Context
	cancel func(err error)
	done   chan struct{}
	logx.Logger
}

func NewPipeline(
	cfg config.Config,
	src source.BlockSource,
	pub BlockPublisher,
	cp Checkpoint,
) *Pipeline {
	ctx, cancel := context.WithCancelCause(context.Background())
	registry := decoder.NewDefaultRegistry(cfg.Testnet)
	return &Pipeline{
		cfg:        cfg,
		src:        src,
		collector:  collector.New(registry),
		tracker:    pooltracker.New(),
		publisher:  pub,
		checkpoint: cp,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		Logger:     logx.WithContext(ctx).WithFields(logx.Field("service", "pipeline")),
	}
}

// errStopped 是 Stop 的取消原因，用于把主动停机和真正的致命错误区分开
var errStopped = errors.New("pipeline stopped")

func (p *Pipeline) Start() {
	defer close(p.done)

	if err := p.run(); err != nil && !isShutdown(err) {
		p.Errorf("pipeline 致命错误，停止摄入: %v", err)
		p.cancel(err)
	}
}

func (p *Pipeline) Stop() {
	p.cancel(errStopped)
	<-p.done
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, errStopped)
}

func (p *Pipeline) run() error {
	startHeight, err := p.resume()
	if err != nil {
		return err
	}
	p.src.Seek(startHeight)
	p.Infof("从高度 %d 开始摄入", startHeight)

	backoff := 500 * time.Millisecond
	const maxBackoff = 10 * time.Second

	for {
		select {
		case <-p.ctx.Done():
			return context.Cause(p.ctx)
		default:
		}

		block, err := p.src.NextBlock(p.ctx)
		switch {
		case err == nil:
			backoff = 500 * time.Millisecond
		case errors.Is(err, source.ErrEndOfChain):
			p.Infof("数据源到达终点高度，回填完成")
			return nil
		case source.IsTransient(err):
			p.Errorf("数据源瞬时错误，%v 后重试: %v", backoff, err)
			if err := p.sleep(backoff); err != nil {
				return err
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		default:
			return fmt.Errorf("数据源错误: %w", err)
		}

		if err := p.checkHeight(block.Height); err != nil {
			if errors.Is(err, errAlreadyProcessed) {
				p.Debugf("跳过已记账的区块 %d", block.Height)
				continue
			}
			return err
		}

		if err := p.procBlock(block); err != nil {
			return err
		}
	}
}

// resume 读取恢复点：有 checkpoint 从其后一格开始，否则用配置的起始高度
func (p *Pipeline) resume() (uint64, error) {
	height, ok, err := p.checkpoint.Load(p.ctx)
	if err != nil {
		return 0, fmt.Errorf("加载 checkpoint 失败: %w", err)
	}
	if ok {
		return height + 1, nil
	}
	return p.cfg.FastNearConf.StartHeight, nil
}

var errAlreadyProcessed = errors.New("block already checkpointed")

// checkHeight 校验数据源交付的高度：
// 低于等于水位的重投递直接跳过，跳高是顺序违约（致命）。
func (p *Pipeline) checkHeight(height uint64) error {
	cur, loaded := p.checkpoint.Current()
	if !loaded {
		return nil
	}
	if height <= cur {
		return errAlreadyProcessed
	}
	if height != cur+1 {
		return fmt.Errorf("%w: source delivered %d, checkpoint %d",
			types.ErrOrderingViolation, height, cur)
	}
	return nil
}

// procBlock 处理单个区块：并发解码，顺序聚合、发布、记账。
func (p *Pipeline) procBlock(block *source.Block) error {
	startTime := time.Now()

	// 1. 并发解码每笔交易（纯函数，无共享状态）
	type txResult struct {
		actions *collector.TxActions
		err     error
	}
	results := utils.ParallelMap(block.Txs, runtime.NumCPU()+2, func(tx *source.Transaction) txResult {
		actions, err := p.collector.CollectTx(block.Height, tx)
		return txResult{actions: actions, err: err}
	})

	// 2. 顺序聚合：swap 分组、pool 状态套用、事件渲染
	events := &emitter.BlockEvents{}
	for _, res := range results {
		if res.err != nil {
			return fmt.Errorf("区块 %d 解码失败: %w", block.Height, res.err)
		}
		if err := p.aggregateTx(block, res.actions, events); err != nil {
			return err
		}
	}

	// 3. 整块发布并等待确认
	if err := p.publisher.PublishBlock(p.ctx, block.Height, events); err != nil {
		return err
	}

	// 4. 事件确认后才推进水位
	status := checkpoint.BlockProcessed
	if events.Empty() {
		status = checkpoint.BlockEmpty
	}
	rec := &checkpoint.BlockRecord{
		Height:     block.Height,
		BlockTime:  int64(block.TimestampNanosec / 1e9),
		Status:     status,
		EventCount: events.Total(),
	}
	if err := p.checkpoint.Advance(p.ctx, rec); err != nil {
		return fmt.Errorf("推进 checkpoint 失败: %w", err)
	}

	metrics.IncBlockProcessed()
	if !events.Empty() {
		p.Infof("区块 %d 发布 %d 条事件，耗时 %v", block.Height, events.Total(), time.Since(startTime))
	}
	return nil
}

// aggregateTx 把一笔交易的 action 列表转成三类事件，追加到块级汇总
func (p *Pipeline) aggregateTx(block *source.Block, tx *collector.TxActions, events *emitter.BlockEvents) error {
	if len(tx.Actions) == 0 {
		return nil
	}
	ctx := emitter.TxContext(block.Height, block.TimestampNanosec, tx.TxIndex, tx.Hash)

	// trade_pool：每个触达 pool 的 action 一条，保持 log 顺序
	for _, action := range tx.Actions {
		if action.TouchesPool() {
			events.PoolEvents = append(events.PoolEvents, emitter.RenderPoolEvent(ctx, action))
		}
	}

	// trade_swap：swap 路径分组 + 净额
	groups, err := swapgroup.Resolve(tx.Actions)
	if err != nil {
		return fmt.Errorf("区块 %d 交易 %d swap 分组失败: %w", block.Height, tx.TxIndex, err)
	}
	for _, g := range groups {
		events.SwapEvents = append(events.SwapEvents, emitter.RenderSwapEvent(ctx, g))
	}

	// trade_pool_change：逐 action 套用到 pool 状态，只有实际变更才发事件
	for _, action := range tx.Actions {
		delta, err := p.tracker.Apply(action)
		if err != nil {
			return fmt.Errorf("区块 %d pool 状态套用失败: %w", block.Height, err)
		}
		if delta != nil {
			events.PoolChangeEvents = append(events.PoolChangeEvents, emitter.RenderPoolChangeEvent(ctx, delta))
		}
	}
	return nil
}

func (p *Pipeline) sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.ctx.Done():
		return context.Cause(p.ctx)
	case <-timer.C:
		return nil
	}
}
