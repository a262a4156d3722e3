package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore 管理 Redis 中的 checkpoint 快路径：
// 最后完整发布的区块高度，加按高度的处理状态记录（重启判重用）。
type RedisStore struct {
	rdb *redis.Client
}

const (
	lastHeightKey = "checkpoint:last_height"
	blockPrefix   = "checkpoint:block"
)

// 区块状态记录只为重启后的近期判重服务，无需长期保留
const blockStatusTTL = 3 * 24 * time.Hour

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// LastHeight 读取最后完整发布的区块高度，无记录返回 (0, false)
func (r *RedisStore) LastHeight(ctx context.Context) (uint64, bool, error) {
	val, err := r.rdb.Get(ctx, lastHeightKey).Uint64()
	switch {
	case err == redis.Nil:
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("redis get last height: %w", err)
	default:
		return val, true, nil
	}
}

// SetLastHeight 写入最后完整发布的区块高度，不设 TTL
func (r *RedisStore) SetLastHeight(ctx context.Context, height uint64) error {
	if err := r.rdb.Set(ctx, lastHeightKey, height, 0).Err(); err != nil {
		return fmt.Errorf("redis set last height: %w", err)
	}
	return nil
}

func (r *RedisStore) blockKey(height uint64) string {
	return fmt.Sprintf("%s:%d", blockPrefix, height)
}

// BlockStatus 查询某高度的处理状态
func (r *RedisStore) BlockStatus(ctx context.Context, height uint64) (BlockStatus, error) {
	val, err := r.rdb.Get(ctx, r.blockKey(height)).Int()
	switch {
	case err == redis.Nil:
		return BlockUnknown, nil
	case err != nil:
		return BlockUnknown, fmt.Errorf("redis get block status: %w", err)
	case val == int(BlockProcessed):
		return BlockProcessed, nil
	case val == int(BlockEmpty):
		return BlockEmpty, nil
	default:
		return BlockUnknown, nil
	}
}

// MarkBlock 记录某高度的处理状态
func (r *RedisStore) MarkBlock(ctx context.Context, height uint64, status BlockStatus) error {
	return r.rdb.Set(ctx, r.blockKey(height), int(status), blockStatusTTL).Err()
}
