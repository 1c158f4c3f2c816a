package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWorkerPool_RunsTasksBeforeShutdownReturns(t *testing.T) {
	pool := NewWorkerPool(3, zap.NewNop())

	var ran atomic.Int32
	for range 20 {
		pool.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	pool.Shutdown(context.Background())

	assert.Equal(t, int32(20), ran.Load())
}

func TestWorkerPool_DropsAfterShutdown(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pool := NewWorkerPool(1, zap.New(core))
	pool.Shutdown(context.Background())
	pool.Shutdown(context.Background())

	called := false
	pool.Submit(func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Equal(t, 1, logs.FilterMessage("task submitted during shutdown, dropping").Len())
}

func TestWorkerPool_LogsFailedTask(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pool := NewWorkerPool(1, zap.New(core))

	pool.Submit(func(ctx context.Context) error {
		return errors.New("boom")
	})
	pool.Shutdown(context.Background())

	assert.Equal(t, 1, logs.FilterMessage("worker task failed").Len())
}
