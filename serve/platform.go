package serve

import (
	"context"
	"sync"

	"github.com/advdv/whttp"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Platform implements [whttp.Platform] for long-running servers. Detached
// work runs on tracked goroutines so shutdown drains it instead of killing it
// with the process.
type Platform struct {
	logs *zap.Logger
	wg   sync.WaitGroup
}

// NewPlatform inits the platform. Task failures log through the given logger.
func NewPlatform(logs *zap.Logger) *Platform {
	return &Platform{logs: logs.Named("whttp").Named("platform")}
}

// WaitUntil runs fn on a tracked goroutine.
func (p *Platform) WaitUntil(fn func(ctx context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := fn(context.Background()); err != nil {
			p.logs.Error("detached task failed", zap.Error(err))
		}
	}()
}

// Drain blocks until all detached work completes or ctx expires.
func (p *Platform) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "draining detached tasks")
	}
}

var _ whttp.Platform = (*Platform)(nil)
