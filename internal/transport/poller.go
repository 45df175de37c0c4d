package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"motomaster/internal/telegram"
)

type UpdatesClient interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	DeleteWebhook(ctx context.Context) error
}

type PollerOptions struct {
	Client        UpdatesClient
	Dispatcher    Dispatcher
	PollTimeout   time.Duration
	MinBackoff    time.Duration
	MaxBackoff    time.Duration
	SweepInterval time.Duration
	Logger        *zap.Logger
}

// Poller is the pull transport: one loop fetching batches with getUpdates
// and dispatching every update of a batch, in order, before the next fetch.
type Poller struct {
	client        UpdatesClient
	dispatcher    Dispatcher
	pollTimeout   time.Duration
	minBackoff    time.Duration
	maxBackoff    time.Duration
	sweepInterval time.Duration
	logger        *zap.Logger
	offset        int64
}

func NewPoller(opts PollerOptions) *Poller {
	p := &Poller{
		client:        opts.Client,
		dispatcher:    opts.Dispatcher,
		pollTimeout:   opts.PollTimeout,
		minBackoff:    opts.MinBackoff,
		maxBackoff:    opts.MaxBackoff,
		sweepInterval: opts.SweepInterval,
		logger:        opts.Logger,
	}
	if p.pollTimeout < 0 {
		p.pollTimeout = 0
	}
	if p.minBackoff <= 0 {
		p.minBackoff = time.Second
	}
	if p.maxBackoff < p.minBackoff {
		p.maxBackoff = 30 * time.Second
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Run polls until ctx is done. Transport errors are retried with backoff and
// never end the loop.
func (p *Poller) Run(ctx context.Context) {
	if err := p.client.DeleteWebhook(ctx); err != nil {
		p.logger.Warn("failed to remove webhook before polling", zap.Error(err))
	}

	if sweeper, ok := p.dispatcher.(Sweeper); ok && p.sweepInterval > 0 {
		stop := runSweeper(ctx, sweeper, p.sweepInterval)
		defer stop()
	}

	p.logger.Info("polling started", zap.Duration("pollTimeout", p.pollTimeout))
	backoff := p.minBackoff
	for ctx.Err() == nil {
		updates, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Warn("getUpdates failed, backing off", zap.Duration("backoff", backoff), zap.Error(err))
			if !sleepContext(ctx, backoff) {
				break
			}
			backoff *= 2
			if backoff > p.maxBackoff {
				backoff = p.maxBackoff
			}
			continue
		}
		backoff = p.minBackoff

		p.dispatchBatch(ctx, updates)
	}
	p.logger.Info("polling stopped")
}

// dispatchBatch hands updates to the dispatcher in order. A turn that has
// started runs to completion even when ctx is cancelled meanwhile; the rest
// of the batch is left unconfirmed so Telegram redelivers it.
func (p *Poller) dispatchBatch(ctx context.Context, updates []telegram.Update) {
	turnCtx := context.WithoutCancel(ctx)
	for i, u := range updates {
		if ctx.Err() != nil {
			p.logger.Info("shutdown during batch, leaving updates for redelivery",
				zap.Int("pending", len(updates)-i), zap.Int64("offset", p.offset))
			return
		}
		if ev, ok := Normalize(u); ok {
			p.dispatcher.Dispatch(turnCtx, ev)
		} else {
			p.logger.Debug("skipping update without text message", zap.Int64("updateId", u.UpdateID))
		}
		if u.UpdateID >= p.offset {
			p.offset = u.UpdateID + 1
		}
	}
}

func (p *Poller) fetch(ctx context.Context) ([]telegram.Update, error) {
	// Leave the server room to answer an empty long poll before giving up.
	ctx, cancel := context.WithTimeout(ctx, p.pollTimeout+10*time.Second)
	defer cancel()
	return p.client.GetUpdates(ctx, p.offset, p.pollTimeout)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
