// Package maintenance runs scheduled housekeeping: processed-set pruning
// and storage compaction.
package maintenance

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"boxfeed/internal/pipeline"
	"boxfeed/internal/storage"
	logx "boxfeed/pkg/logx"
)

type Config struct {
	// PruneSpec is a standard 5-field cron expression (descriptors like
	// "@hourly" also work). Empty disables the job.
	PruneSpec string
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	pipe    *pipeline.Service
	backend storage.Store
	log     logx.Logger

	c *cron.Cron
}

func New(cfg Config, pipe *pipeline.Service, backend storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, pipe: pipe, backend: backend, log: log}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := strings.TrimSpace(s.cfg.PruneSpec)
	if spec == "" || s.c != nil {
		return nil
	}

	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	_, err := c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in maintenance job", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		s.runOnce(ctx)
	})
	if err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("maintenance scheduled", logx.String("spec", spec))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Service) runOnce(ctx context.Context) {
	start := time.Now()
	evicted := s.pipe.PruneProcessed(ctx, start)

	if s.backend != nil {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := s.backend.Compact(cctx); err != nil {
			s.log.Warn("storage compact failed", logx.Err(err))
		}
		cancel()
	}

	s.log.Debug("maintenance run done",
		logx.Int("evicted", evicted),
		logx.Duration("took", time.Since(start)),
	)
}
