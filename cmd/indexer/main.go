package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/INTEARnear/trade-indexer/internal/checkpoint"
	"github.com/INTEARnear/trade-indexer/internal/config"
	"github.com/INTEARnear/trade-indexer/internal/logic/pipeline"
	"github.com/INTEARnear/trade-indexer/internal/source"
	"github.com/INTEARnear/trade-indexer/internal/svc"
	"github.com/INTEARnear/trade-indexer/pkg/logger"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/indexer.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	src := source.NewFastNearClient(c.FastNearConf.ToSourceConfig())

	sg := zerosvc.NewServiceGroup()
	sg.Add(checkpoint.NewFlushService(serviceContext.Checkpoint,
		c.CheckpointConf.FlushIntervalSec, c.CheckpointConf.GCIntervalSec))
	sg.Add(pipeline.NewPipeline(c, src, serviceContext.Publisher, serviceContext.Checkpoint))

	logx.Infof("Starting trade indexer")

	// 启动服务
	sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
