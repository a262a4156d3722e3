package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
)

// DBStore 管理 checkpoint 的持久存储：
// 单行 checkpoint 高度 + 按高度的区块处理记录（回填审计用）。
// 不做高频判重，只在 Redis 丢失后兜底恢复。
type DBStore struct {
	db *sql.DB
}

func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{db: db}
}

// LoadHeight 读取持久化的 checkpoint 高度，无记录返回 (0, false)
func (d *DBStore) LoadHeight(ctx context.Context) (uint64, bool, error) {
	var height uint64
	err := d.db.QueryRowContext(ctx,
		`SELECT height FROM checkpoint WHERE id = 1`).Scan(&height)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load checkpoint height: %w", err)
	}
	return height, true, nil
}

// SaveHeight 持久化 checkpoint 高度（单行 upsert）
func (d *DBStore) SaveHeight(ctx context.Context, height uint64) error {
	query := `
		INSERT INTO checkpoint (id, height, updated_at)
		VALUES (1, $1, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			height = EXCLUDED.height,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := d.db.ExecContext(ctx, query, height); err != nil {
		return fmt.Errorf("save checkpoint height %d: %w", height, err)
	}
	return nil
}

// BatchInsertBlocks 批量写入区块处理记录，按 batchLimit 分批。
// 高度冲突时只更新状态字段（重发布场景）。
func (d *DBStore) BatchInsertBlocks(ctx context.Context, records []*BlockRecord) error {
	if len(records) == 0 {
		return nil
	}

	const batchLimit = 1000
	for i := 0; i < len(records); i += batchLimit {
		end := i + batchLimit
		if end > len(records) {
			end = len(records)
		}
		if err := d.insertChunk(ctx, records[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (d *DBStore) insertChunk(ctx context.Context, records []*BlockRecord) error {
	query := `INSERT INTO block_log (height, block_time, status, event_count, updated_at) VALUES `
	args := make([]interface{}, 0, len(records)*4)
	placeholders := ""

	for i, rec := range records {
		placeholders += fmt.Sprintf("($%d,$%d,$%d,$%d,CURRENT_TIMESTAMP),",
			i*4+1, i*4+2, i*4+3, i*4+4)
		args = append(args, rec.Height, rec.BlockTime, rec.Status, rec.EventCount)
	}

	query += placeholders[:len(placeholders)-1] +
		` ON CONFLICT (height) DO UPDATE SET
	status = EXCLUDED.status,
	event_count = EXCLUDED.event_count,
	updated_at = CURRENT_TIMESTAMP`

	_, err := d.db.ExecContext(ctx, query, args...)
	return err
}

// DeleteOldBlocks 删除历史区块记录（进度 GC）。
// 保留最近 7 天；NEAR 约 1 秒出一个块，按高度估算保留下限。
// 分批删除防止锁表和长事务。
func (d *DBStore) DeleteOldBlocks(ctx context.Context) error {
	var latest sql.NullInt64
	if err := d.db.QueryRowContext(ctx,
		`SELECT MAX(height) FROM block_log`).Scan(&latest); err != nil {
		return fmt.Errorf("fetch latest block height: %w", err)
	}
	if !latest.Valid {
		return nil
	}

	const retainBlocks = 7 * 24 * 3600
	if uint64(latest.Int64) <= retainBlocks {
		return nil
	}
	safeHeight := uint64(latest.Int64) - retainBlocks

	const batchSize = 1000
	for {
		res, err := d.db.ExecContext(ctx,
			`DELETE FROM block_log WHERE height IN (
				SELECT height FROM block_log WHERE height < $1 ORDER BY height LIMIT $2
			)`,
			safeHeight, batchSize,
		)
		if err != nil {
			return fmt.Errorf("delete old block records: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			break
		}
	}
	return nil
}
