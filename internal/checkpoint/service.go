package checkpoint

import (
	"context"
	"time"
)

// FlushService 把 Manager 的后台落盘与 GC 适配成 go-zero service.Service
type FlushService struct {
	manager       *Manager
	flushInterval time.Duration
	gcInterval    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func NewFlushService(manager *Manager, flushIntervalSec, gcIntervalSec int) *FlushService {
	if flushIntervalSec <= 0 {
		flushIntervalSec = 5
	}
	if gcIntervalSec <= 0 {
		gcIntervalSec = 3600
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FlushService{
		manager:       manager,
		flushInterval: time.Duration(flushIntervalSec) * time.Second,
		gcInterval:    time.Duration(gcIntervalSec) * time.Second,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (s *FlushService) Start() {
	s.manager.StartGCLoop(s.ctx, s.gcInterval)
	s.manager.StartFlushLoop(s.ctx, s.flushInterval)
}

func (s *FlushService) Stop() {
	s.cancel()
}
