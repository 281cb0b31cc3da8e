package onetimetoken

import (
	"context"
	"sync"
	"time"

	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/zap"
)

type Cleaner struct {
	store    Store
	interval time.Duration
	logger   *logging.Service

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewCleaner(store Store, interval time.Duration, logger *logging.Service) *Cleaner {
	return &Cleaner{store: store, interval: interval, logger: logger}
}

func (c *Cleaner) RunOnce(ctx context.Context) {
	removed, err := c.store.DeleteExpired(ctx)
	if err != nil {
		c.logger.Error("expired token cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		c.logger.Info("expired one-time tokens removed", zap.Int64("count", removed))
	}
}

// Start runs RunOnce every interval until Stop. A non-positive interval
// disables the worker.
func (c *Cleaner) Start() {
	if c.interval <= 0 || c.stop != nil {
		return
	}
	c.stop = make(chan struct{})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.RunOnce(context.Background())
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *Cleaner) Stop() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	c.wg.Wait()
	c.stop = nil
}
