package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/INTEARnear/trade-indexer/internal/types"
	"github.com/zeromicro/go-zero/core/logx"
)

// Manager 统一封装 Redis + DB + 缓冲，维护 checkpoint 水位。
// 水位只能逐块推进：Advance(h) 仅接受 h == 当前值（no-op 重放）
// 或 h == 当前值 + 1，不跳块也不回退。
type Manager struct {
	redis  *RedisStore
	db     *DBStore
	buffer *blockBuffer

	mu     sync.Mutex
	cur    uint64
	loaded bool
}

func NewManager(redis *RedisStore, db *DBStore) *Manager {
	return &Manager{
		redis:  redis,
		db:     db,
		buffer: newBlockBuffer(),
	}
}

// Load 读取恢复点：Redis 快路径优先，DB 兜底，取两者较大值。
// 返回 (0, false) 表示从未有过 checkpoint，由配置的起始高度接管。
func (m *Manager) Load(ctx context.Context) (uint64, bool, error) {
	redisHeight, redisOK, err := m.redis.LastHeight(ctx)
	if err != nil {
		return 0, false, err
	}
	dbHeight, dbOK, err := m.db.LoadHeight(ctx)
	if err != nil {
		return 0, false, err
	}
	if !redisOK && !dbOK {
		return 0, false, nil
	}

	height := redisHeight
	if dbHeight > height {
		height = dbHeight
	}

	m.mu.Lock()
	m.cur = height
	m.loaded = true
	m.mu.Unlock()
	return height, true, nil
}

// Current 返回当前水位，未加载过返回 (0, false)
func (m *Manager) Current() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur, m.loaded
}

// Advance 在区块事件全部发布确认之后推进水位。
// 首次推进接受任意起始高度；之后严格逐块：
// 等于当前值是幂等 no-op，大于当前值 +1 或小于当前值都是顺序违约。
func (m *Manager) Advance(ctx context.Context, rec *BlockRecord) error {
	m.mu.Lock()
	if m.loaded {
		switch {
		case rec.Height == m.cur:
			m.mu.Unlock()
			return nil
		case rec.Height != m.cur+1:
			cur := m.cur
			m.mu.Unlock()
			return fmt.Errorf("%w: advance to %d from checkpoint %d",
				types.ErrOrderingViolation, rec.Height, cur)
		}
	}
	m.cur = rec.Height
	m.loaded = true
	m.mu.Unlock()

	if err := m.redis.SetLastHeight(ctx, rec.Height); err != nil {
		return err
	}
	if err := m.redis.MarkBlock(ctx, rec.Height, rec.Status); err != nil {
		return err
	}

	// DB 记录走缓冲批量落盘
	m.buffer.Add(rec)
	return nil
}

// StartFlushLoop 启动后台定时 flush：缓冲的区块记录批量写 DB，
// 同时持久化当前水位。
func (m *Manager) StartFlushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.flushOnce(context.Background())
			return
		case <-ticker.C:
			m.flushOnce(ctx)
		}
	}
}

func (m *Manager) flushOnce(ctx context.Context) {
	flushed := m.buffer.Flush()
	if len(flushed) > 0 {
		if err := m.db.BatchInsertBlocks(ctx, flushed); err != nil {
			// buffer 已清空；Redis 水位仍在，丢的只是审计记录
			logx.Errorf("checkpoint: flush %d block records failed: %v", len(flushed), err)
		}
	}

	if height, ok := m.Current(); ok {
		if err := m.db.SaveHeight(ctx, height); err != nil {
			logx.Errorf("checkpoint: persist height %d failed: %v", height, err)
		}
	}
}

// StartGCLoop 启动后台 GC，定期清理历史区块记录
func (m *Manager) StartGCLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.db.DeleteOldBlocks(ctx); err != nil {
					logx.Errorf("checkpoint: gc failed: %v", err)
				}
			}
		}
	}()
}
