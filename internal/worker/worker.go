package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

type WorkerPool struct {
	taskQueue chan Task
	wg        sync.WaitGroup
	closeMu   sync.RWMutex // guards sends against close(taskQueue)
	isClosing atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
}

func NewWorkerPool(size int, logger *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	wp := &WorkerPool{
		taskQueue: make(chan Task, 1000), // Buffer for 1000 pending tasks
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	for range size {
		wp.wg.Add(1)
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		if err := task(wp.ctx); err != nil {
			wp.logger.Warn("worker task failed", zap.Error(err))
		}
	}
}

// Submit queues t. Tasks are dropped once shutdown begins or the queue is full.
func (wp *WorkerPool) Submit(t Task) {
	wp.closeMu.RLock()
	defer wp.closeMu.RUnlock()
	if wp.isClosing.Load() {
		wp.logger.Warn("task submitted during shutdown, dropping")
		return
	}
	select {
	case wp.taskQueue <- t:
	default:
		wp.logger.Warn("task queue full, dropping task")
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. If ctx
// ends first, running tasks see their context cancelled.
func (wp *WorkerPool) Shutdown(ctx context.Context) {
	if !wp.isClosing.CompareAndSwap(false, true) {
		return
	}
	wp.closeMu.Lock()
	close(wp.taskQueue)
	wp.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		wp.cancel()
		<-done
	}
	wp.cancel()
}
