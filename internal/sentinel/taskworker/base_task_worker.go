package taskworker

import (
	"context"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/pkg/utils"
)

// ExecutionPolicy 定义任务执行后的处理策略
type ExecutionPolicy uint8

const (
	RemoveAll       ExecutionPolicy = iota // 成功或失败都移除
	RemoveOnSuccess                        // 只有成功才移除，失败保留重试
)

const (
	initItemsCap     = 128 // items map 初始容量
	maxItemsForReset = 512 // map 超过该长度时重新分配
)

// TokenTask 一条待处理的代币任务
type TokenTask struct {
	Token    string
	TaskAtMs int64
}

type TaskResult[T any] struct {
	Item TokenTask
	Data T     // 成功返回的数据
	Err  error // nil 表示成功，否则失败原因
}

type TaskExecutor[T any] func(ctx context.Context, items []TokenTask) ([]TaskResult[T], error)
type TaskCallback[T any] func(results []TaskResult[T])

// BaseTaskWorker 定时批量任务骨架：去重入队，按入队时间取批，
// 执行结果按策略决定重试还是移除。
type BaseTaskWorker[T any] struct {
	name            string
	interval        time.Duration
	batchSize       int
	executor        TaskExecutor[T]
	callback        TaskCallback[T]
	executionPolicy ExecutionPolicy

	ctx    context.Context
	cancel context.CancelFunc

	items map[string]int64
	mu    sync.Mutex // 保护 items

	lastErrLogTime atomic.Int64
}

func NewBaseTaskWorker[T any](
	name string,
	interval time.Duration,
	batchSize int,
	executor TaskExecutor[T],
	callback TaskCallback[T],
	policy ExecutionPolicy,
) *BaseTaskWorker[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &BaseTaskWorker[T]{
		name:            name,
		interval:        interval,
		batchSize:       batchSize,
		executor:        executor,
		callback:        callback,
		executionPolicy: policy,
		ctx:             ctx,
		cancel:          cancel,
		items:           make(map[string]int64, initItemsCap),
	}
}

func (w *BaseTaskWorker[T]) Start() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			drainTicker(ticker)
			w.processBatch()
		}
	}
}

func (w *BaseTaskWorker[T]) Stop() {
	w.cancel()

	w.mu.Lock()
	utils.ClearOrResetMap(&w.items, maxItemsForReset, initItemsCap)
	w.mu.Unlock()
}

func (w *BaseTaskWorker[T]) Add(tokens []TokenTask) {
	if w.ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, it := range tokens {
		if _, ok := w.items[it.Token]; !ok {
			w.items[it.Token] = it.TaskAtMs
		}
	}
}

// Discard 丢弃某个代币的待处理任务（代币已过期摘除时）
func (w *BaseTaskWorker[T]) Discard(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.items, token)
}

func drainTicker(ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
		default:
			return
		}
	}
}

// processBatch 执行一个批次
func (w *BaseTaskWorker[T]) processBatch() {
	w.mu.Lock()
	allItems := make([]TokenTask, 0, len(w.items))
	for token, atMs := range w.items {
		allItems = append(allItems, TokenTask{Token: token, TaskAtMs: atMs})
	}
	w.mu.Unlock()

	n := len(allItems)
	if n == 0 {
		return
	}

	if n > w.batchSize {
		n = w.batchSize
		sort.Slice(allItems, func(i, j int) bool {
			return allItems[i].TaskAtMs < allItems[j].TaskAtMs
		})
	}
	batch := allItems[:n]

	startExec := time.Now()
	results, err := w.executor(w.ctx, batch)
	durationExec := time.Since(startExec)
	if err != nil {
		if utils.ThrottleLog(&w.lastErrLogTime, 3*time.Second) {
			logger.Errorf("[TaskWorker:%s] executor failed: %v, duration=%v", w.name, err, durationExec)
		}
		return
	}

	var callbackDatas []TaskResult[T]
	w.mu.Lock()
	switch w.executionPolicy {
	case RemoveAll:
		callbackDatas = results
		for _, it := range batch {
			delete(w.items, it.Token)
		}
	case RemoveOnSuccess:
		callbackDatas = make([]TaskResult[T], 0, len(results))
		for _, r := range results {
			if r.Err == nil {
				callbackDatas = append(callbackDatas, r)
				delete(w.items, r.Item.Token)
			}
		}
	}
	w.mu.Unlock()

	if len(callbackDatas) > 0 {
		w.runCallback(callbackDatas)
	}
}

func (w *BaseTaskWorker[T]) runCallback(results []TaskResult[T]) {
	if w.callback == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[TaskWorker:%s] callback panicked: %v\n%s", w.name, r, string(debug.Stack()))
		}
	}()

	w.callback(results)
}
