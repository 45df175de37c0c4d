package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"motomaster/internal/dto"
	apperrors "motomaster/internal/errors"
)

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req dto.PlaceOrderRequest) (*dto.PlaceOrderResult, error)
}

type OrderNotifier interface {
	NotifyOrder(ctx context.Context, result *dto.PlaceOrderResult)
}

// Replier delivers replies back through the transport that received the
// update.
type Replier interface {
	Reply(ctx context.Context, chatID int64, reply Reply) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

type DispatcherOptions struct {
	Placer      OrderPlacer
	Notifier    OrderNotifier
	Replier     Replier
	Logger      *zap.Logger
	IdleTimeout time.Duration
	Now         func() time.Time
}

// Dispatcher owns the live sessions and runs the effects produced by
// Transition. Callers must not dispatch two events for the same chat
// concurrently; events for different chats may be dispatched in parallel.
type Dispatcher struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	placer      OrderPlacer
	notifier    OrderNotifier
	replier     Replier
	logger      *zap.Logger
	idleTimeout time.Duration
	now         func() time.Time
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Dispatcher{
		sessions:    make(map[int64]*Session),
		placer:      opts.Placer,
		notifier:    opts.Notifier,
		replier:     opts.Replier,
		logger:      logger,
		idleTimeout: opts.IdleTimeout,
		now:         now,
	}
}

// Dispatch handles one event end to end. It never returns an error and never
// panics; failures are logged and answered with a generic reply.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	logger := d.logger.With(
		zap.String("turnId", uuid.New().String()),
		zap.Int64("chatId", ev.ChatID),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("conversation turn panicked", zap.Any("panic", r), zap.Stack("stack"))
			d.drop(ev.ChatID)
			d.reply(ctx, logger, ev.ChatID, replyGenericFailure)
		}
	}()

	now := d.now()
	session := d.load(ev.ChatID, now, logger)
	from := session.stateOrIdle()

	out := Transition(session, ev, now)
	d.store(ev.ChatID, out.Next)

	logger.Debug("conversation transition",
		zap.Stringer("from", from),
		zap.Stringer("to", out.State),
		zap.Int("effects", len(out.Effects)),
	)

	for _, reply := range out.Replies {
		d.reply(ctx, logger, ev.ChatID, reply)
	}
	for _, effect := range out.Effects {
		d.run(ctx, logger, effect)
	}
}

// State returns the current state for chatID. Expired sessions still report
// their last state until the next sweep or dispatch.
func (d *Dispatcher) State(chatID int64) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[chatID].stateOrIdle()
}

func (d *Dispatcher) ActiveSessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// SweepIdle drops every session idle for longer than the configured timeout
// and returns how many were dropped.
func (d *Dispatcher) SweepIdle() int {
	if d.idleTimeout <= 0 {
		return 0
	}
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	dropped := 0
	for chatID, s := range d.sessions {
		if s.Expired(now, d.idleTimeout) {
			delete(d.sessions, chatID)
			dropped++
		}
	}
	if dropped > 0 {
		d.logger.Info("idle sessions expired", zap.Int("count", dropped))
	}
	return dropped
}

func (d *Dispatcher) load(chatID int64, now time.Time, logger *zap.Logger) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.sessions[chatID]
	if s != nil && s.Expired(now, d.idleTimeout) {
		logger.Info("session expired", zap.Stringer("state", s.State))
		delete(d.sessions, chatID)
		return nil
	}
	return s
}

func (d *Dispatcher) store(chatID int64, next *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if next == nil {
		delete(d.sessions, chatID)
		return
	}
	d.sessions[chatID] = next
}

func (d *Dispatcher) drop(chatID int64) {
	d.store(chatID, nil)
}

func (d *Dispatcher) run(ctx context.Context, logger *zap.Logger, effect Effect) {
	switch effect.Kind {
	case EffectDeleteMessage:
		if err := d.replier.DeleteMessage(ctx, effect.ChatID, effect.MessageID); err != nil {
			logger.Warn("failed to delete message", zap.Int64("messageId", effect.MessageID), zap.Error(err))
		}
	case EffectPlaceOrder:
		d.placeOrder(ctx, logger, effect)
	default:
		panic(fmt.Sprintf("unknown effect kind %d", effect.Kind))
	}
}

func (d *Dispatcher) placeOrder(ctx context.Context, logger *zap.Logger, effect Effect) {
	result, err := d.placer.PlaceOrder(ctx, effect.Order)
	if err != nil {
		d.reply(ctx, logger, effect.ChatID, failureReply(err))
		if _, ok := apperrors.IsForbiddenError(err); ok {
			logger.Warn("order rejected", zap.Error(err))
			return
		}
		logger.Error("failed to place order", zap.Error(err))
		return
	}

	logger.Info("order placed",
		zap.Int64("orderId", result.OrderID),
		zap.Int64("customerId", result.CustomerID),
		zap.String("serviceCode", string(result.ServiceCode)),
	)

	d.reply(ctx, logger, effect.ChatID, confirmationReply(result))
	if d.notifier != nil {
		d.notifier.NotifyOrder(ctx, result)
	}
}

func failureReply(err error) Reply {
	if _, ok := apperrors.IsForbiddenError(err); ok {
		return replyCredentialMismatch
	}
	if _, ok := apperrors.IsValidationError(err); ok {
		return replyGenericFailure
	}
	return replyStorageFailure
}

func (d *Dispatcher) reply(ctx context.Context, logger *zap.Logger, chatID int64, reply Reply) {
	if err := d.replier.Reply(ctx, chatID, reply); err != nil {
		logger.Warn("failed to send reply", zap.Error(err))
	}
}
