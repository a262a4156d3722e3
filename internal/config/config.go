package config

import (
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// FastNearConfig 表示区块数据源配置
type FastNearConfig struct {
	Endpoint        string `yaml:"endpoint"`          // 数据服务地址，例如 https://mainnet.neardata.xyz
	StartHeight     uint64 `yaml:"start_height"`      // 无 checkpoint 时的起始高度
	EndHeight       uint64 `yaml:"end_height"`        // 回填终点高度，0 表示持续跟随链头
	PollIntervalMs  int    `yaml:"poll_interval_ms"`  // 追上链头后的轮询间隔（毫秒）
	RequestTimeoutS int    `yaml:"request_timeout_s"` // 单次请求超时（秒）
}

func (c *FastNearConfig) ToSourceConfig() source.FastNearConfig {
	return source.FastNearConfig{
		Endpoint:       c.Endpoint,
		EndHeight:      c.EndHeight,
		PollIntervalMs: c.PollIntervalMs,
		RequestTimeout: c.RequestTimeoutS,
	}
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers   string `yaml:"brokers"`    // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    `yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs  int    `yaml:"linger_ms"`  // 批处理最大延迟（毫秒）

	Topics struct {
		Pool       string `yaml:"pool"`        // trade_pool 事件的 Kafka topic
		Swap       string `yaml:"swap"`        // trade_swap 事件的 Kafka topic
		PoolChange string `yaml:"pool_change"` // trade_pool_change 事件的 Kafka topic
	} `yaml:"topics"`

	Partitions struct {
		Pool       int `yaml:"pool"`
		Swap       int `yaml:"swap"`
		PoolChange int `yaml:"pool_change"`
	} `yaml:"partitions"`
}

// PublishConfig 表示发布重试预算配置。
// 预算耗尽视为致命错误，停止摄入：事件历史的持久性优先于活性。
type PublishConfig struct {
	MaxAttempts   int `yaml:"max_attempts"`    // 单个区块的最大发布尝试次数
	BackoffMs     int `yaml:"backoff_ms"`      // 首次重试退避（毫秒）
	MaxBackoffMs  int `yaml:"max_backoff_ms"`  // 退避上限（毫秒）
	SendTimeoutMs int `yaml:"send_timeout_ms"` // 单条消息发送并等待 ack 的超时（毫秒）
}

// CheckpointConfig 表示 checkpoint 持久化节奏配置
type CheckpointConfig struct {
	FlushIntervalSec int `yaml:"flush_interval_sec"` // 区块记录批量落 DB 的间隔（秒）
	GCIntervalSec    int `yaml:"gc_interval_sec"`    // 历史记录清理间隔（秒）
}

// Config 是主配置结构体，用于驱动索引器服务
type Config struct {
	LogConf           LogConfig           `yaml:"logger"`
	Testnet           bool                `yaml:"testnet"` // 选择各协议的测试网合约
	FastNearConf      FastNearConfig      `yaml:"fastnear"`
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"`
	PublishConf       PublishConfig       `yaml:"publish"`
	CheckpointConf    CheckpointConfig    `yaml:"checkpoint"`

	RedisAddr   string `yaml:"redis_addr"`   // Redis 地址
	PostgresDSN string `yaml:"postgres_dsn"` // PostgreSQL 数据源
}
