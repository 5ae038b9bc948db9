package serve_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/advdv/whttp/serve"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPlatformDrainWaitsForTasks(t *testing.T) {
	platform := serve.NewPlatform(zap.NewNop())

	var done int64
	release := make(chan struct{})
	platform.WaitUntil(func(context.Context) error {
		<-release
		atomic.AddInt64(&done, 1)
		return nil
	})
	platform.WaitUntil(func(context.Context) error {
		<-release
		atomic.AddInt64(&done, 1)
		return nil
	})

	close(release)
	require.NoError(t, platform.Drain(context.Background()))
	assert.Equal(t, int64(2), atomic.LoadInt64(&done))
}

func TestPlatformDrainGivesUpOnContext(t *testing.T) {
	platform := serve.NewPlatform(zap.NewNop())

	release := make(chan struct{})
	defer close(release)
	platform.WaitUntil(func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := platform.Drain(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "draining detached tasks")
}

func TestPlatformLogsTaskFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	platform := serve.NewPlatform(zap.New(core))

	platform.WaitUntil(func(context.Context) error {
		return errors.New("cleanup failed")
	})

	require.NoError(t, platform.Drain(context.Background()))

	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "detached task failed", entries[0].Message)
	assert.Equal(t, "whttp.platform", entries[0].LoggerName)
}

func TestPlatformDrainWithoutTasks(t *testing.T) {
	platform := serve.NewPlatform(zap.NewNop())
	require.NoError(t, platform.Drain(context.Background()))
}
