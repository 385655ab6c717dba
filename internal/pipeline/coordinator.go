package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rvasily/squadvoice/pkg/logger"
)

// Coordinator owns the channel workers. It starts them, watches for
// per-channel failures and stops everything on shutdown with a bounded grace
// period for in-flight model calls.
type Coordinator struct {
	channels []*Channel
	log      *logger.Logger

	shutdownTimeout time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCoordinator creates a coordinator over the given channels.
func NewCoordinator(channels []*Channel, shutdownTimeout time.Duration, log *logger.Logger) *Coordinator {
	return &Coordinator{
		channels:        channels,
		log:             log.Named("coordinator"),
		shutdownTimeout: shutdownTimeout,
		done:            make(chan struct{}),
	}
}

// Channels returns the managed channels.
func (c *Coordinator) Channels() []*Channel { return c.channels }

// Start launches every channel. Channels run until Stop is called or their
// capture source dies; one channel dying never stops its sibling.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for _, ch := range c.channels {
		c.wg.Add(1)
		go func(ch *Channel) {
			defer c.wg.Done()
			c.log.Info("channel starting",
				logger.String("channel", ch.ID()))
			if err := ch.Run(runCtx); err != nil {
				c.log.Error("channel stopped with error",
					logger.String("channel", ch.ID()),
					logger.Error(err))
				return
			}
			c.log.Info("channel stopped",
				logger.String("channel", ch.ID()))
		}(ch)
	}

	go func() {
		c.wg.Wait()
		close(c.done)
	}()
}

// Done is closed once every channel has stopped.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Stop cancels the channels and waits up to the shutdown timeout for
// in-flight work to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-c.done:
	case <-time.After(c.shutdownTimeout):
		c.log.Warn("shutdown timeout elapsed with channels still running")
	}
}
