package transport

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"motomaster/internal/conversation"
	"motomaster/internal/telegram"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev conversation.Event)
}

// Sweeper is implemented by dispatchers that expire idle sessions.
type Sweeper interface {
	SweepIdle() int
}

type ConsumerOptions struct {
	Queue         *UpdateQueue
	Dispatcher    Dispatcher
	Workers       int
	SweepInterval time.Duration
	Logger        *zap.Logger
}

// Consumer drains the update queue. With more than one worker, updates are
// sharded by chat so each chat is still handled strictly in order.
type Consumer struct {
	queue         *UpdateQueue
	dispatcher    Dispatcher
	workers       int
	sweepInterval time.Duration
	logger        *zap.Logger
}

func NewConsumer(opts ConsumerOptions) *Consumer {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		queue:         opts.Queue,
		dispatcher:    opts.Dispatcher,
		workers:       workers,
		sweepInterval: opts.SweepInterval,
		logger:        logger,
	}
}

// Run blocks until ctx is done or the queue is closed and drained.
func (c *Consumer) Run(ctx context.Context) {
	shards := make([]chan conversation.Event, c.workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan conversation.Event, 64)
		wg.Add(1)
		go func(id int, events <-chan conversation.Event) {
			defer wg.Done()
			for ev := range events {
				c.dispatcher.Dispatch(ctx, ev)
			}
			c.logger.Debug("dispatch worker stopped", zap.Int("worker", id))
		}(i, shards[i])
	}

	stopSweep := c.startSweeper(ctx)

	c.logger.Info("update consumer started", zap.Int("workers", c.workers), zap.Int("queueCapacity", c.queue.Capacity()))
	for {
		u, ok := c.queue.Dequeue(ctx)
		if !ok {
			break
		}
		ev, ok := Normalize(u)
		if !ok {
			c.logger.Debug("skipping update without text message", zap.Int64("updateId", u.UpdateID))
			continue
		}
		select {
		case shards[shardFor(ev.ChatID, c.workers)] <- ev:
		case <-ctx.Done():
		}
	}

	for _, shard := range shards {
		close(shard)
	}
	wg.Wait()
	stopSweep()
	c.logger.Info("update consumer stopped", zap.Int("pending", c.queue.Depth()))
}

func (c *Consumer) startSweeper(ctx context.Context) func() {
	sweeper, ok := c.dispatcher.(Sweeper)
	if !ok || c.sweepInterval <= 0 {
		return func() {}
	}
	return runSweeper(ctx, sweeper, c.sweepInterval)
}

func runSweeper(ctx context.Context, sweeper Sweeper, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweeper.SweepIdle()
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func shardFor(chatID int64, workers int) int {
	if workers <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(chatID, 10)))
	return int(h.Sum32() % uint32(workers))
}

// Enqueuer accepts updates for asynchronous processing.
type Enqueuer interface {
	TryEnqueue(u telegram.Update) error
}
