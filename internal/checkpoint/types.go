package checkpoint

// BlockStatus 表示区块的处理结果（统一 Redis 与 DB 编码）
type BlockStatus int

const (
	BlockUnknown   BlockStatus = 0 // 无记录
	BlockProcessed BlockStatus = 1 // 事件已全部发布
	BlockEmpty     BlockStatus = 2 // 无可识别 action，正常推进
)

// BlockRecord 表示一条待写入 DB 的区块处理记录，用于回填审计
type BlockRecord struct {
	Height     uint64
	BlockTime  int64 // Unix timestamp（秒）
	Status     BlockStatus
	EventCount int // 该区块发布的事件总数
}
