package svc

import (
	"database/sql"
	"fmt"

	"github.com/INTEARnear/trade-indexer/internal/checkpoint"
	"github.com/INTEARnear/trade-indexer/internal/config"
	"github.com/INTEARnear/trade-indexer/internal/mq"
	"github.com/INTEARnear/trade-indexer/internal/publisher"
	"github.com/INTEARnear/trade-indexer/pkg/logger"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql 的 pgx 驱动
)

// ServiceContext 包含索引器服务资源
type ServiceContext struct {
	Config     config.Config
	Producer   *kafka.Producer
	Publisher  *publisher.KafkaPublisher
	Redis      *redis.Client
	DB         *sql.DB
	Checkpoint *checkpoint.Manager
}

// NewServiceContext 创建一个新的服务上下文
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	// 1. 初始化 Kafka 生产者（顺带创建缺失的输出 topic）
	producer, err := mq.NewKafkaProducer(c.KafkaProducerConf)
	if err != nil {
		logger.Errorf("Kafka producer 初始化失败: %v", err)
		return nil, err
	}

	// 2. 初始化 Redis 客户端（checkpoint 快路径）
	rdb := redis.NewClient(&redis.Options{
		Addr: c.RedisAddr,
	})

	// 3. 初始化 PostgreSQL 连接（checkpoint 持久化 + 区块审计记录）
	db, err := sql.Open("pgx", c.PostgresDSN)
	if err != nil {
		logger.Errorf("PostgreSQL 连接失败: %v", err)
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sc := &ServiceContext{
		Config:     c,
		Producer:   producer,
		Publisher:  publisher.NewKafkaPublisher(producer, c.KafkaProducerConf, c.PublishConf),
		Redis:      rdb,
		DB:         db,
		Checkpoint: checkpoint.NewManager(checkpoint.NewRedisStore(rdb), checkpoint.NewDBStore(db)),
	}

	logger.Infof("服务上下文初始化完成")
	return sc, nil
}

// Close 关闭服务上下文中的资源
func (sc *ServiceContext) Close() {
	if sc.Publisher != nil {
		sc.Publisher.Close()
	}
	if sc.Redis != nil {
		_ = sc.Redis.Close()
	}
	if sc.DB != nil {
		_ = sc.DB.Close()
	}
}
