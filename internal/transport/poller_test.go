package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motomaster/internal/conversation"
	"motomaster/internal/telegram"
)

type scriptedUpdatesClient struct {
	mu             sync.Mutex
	offsets        []int64
	script         []func() ([]telegram.Update, error)
	deleteWebhooks int
}

func (c *scriptedUpdatesClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error) {
	c.mu.Lock()
	c.offsets = append(c.offsets, offset)
	var step func() ([]telegram.Update, error)
	if len(c.script) > 0 {
		step, c.script = c.script[0], c.script[1:]
	}
	c.mu.Unlock()

	if step == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return step()
}

func (c *scriptedUpdatesClient) DeleteWebhook(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteWebhooks++
	return nil
}

func (c *scriptedUpdatesClient) seenOffsets() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.offsets...)
}

func TestPoller_DispatchesInOrderAndAdvancesOffset(t *testing.T) {
	client := &scriptedUpdatesClient{script: []func() ([]telegram.Update, error){
		func() ([]telegram.Update, error) { return nil, errors.New("connection reset") },
		func() ([]telegram.Update, error) {
			return []telegram.Update{textUpdate(5, 1, "/start"), textUpdate(6, 1, "Oil change")}, nil
		},
		func() ([]telegram.Update, error) {
			return []telegram.Update{{UpdateID: 7}, textUpdate(8, 2, "/start")}, nil
		},
	}}
	d := &recordingDispatcher{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewPoller(PollerOptions{
			Client:      client,
			Dispatcher:  d,
			PollTimeout: time.Second,
			MinBackoff:  time.Millisecond,
			MaxBackoff:  2 * time.Millisecond,
		}).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return d.count() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(client.seenOffsets()) == 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []int64{0, 0, 7, 9}, client.seenOffsets())
	assert.Equal(t, 1, client.deleteWebhooks)

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, "start", d.events[0].Command)
	assert.Equal(t, "Oil change", d.events[1].Text)
	assert.Equal(t, int64(2), d.events[2].ChatID)
}

func TestPoller_ErrorsNeverStopTheLoop(t *testing.T) {
	var script []func() ([]telegram.Update, error)
	for i := 0; i < 5; i++ {
		script = append(script, func() ([]telegram.Update, error) { return nil, errors.New("bad gateway") })
	}
	script = append(script, func() ([]telegram.Update, error) {
		return []telegram.Update{textUpdate(1, 1, "/start")}, nil
	})
	client := &scriptedUpdatesClient{script: script}
	d := &recordingDispatcher{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go NewPoller(PollerOptions{Client: client, Dispatcher: d, MinBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}).Run(ctx)

	require.Eventually(t, func() bool { return d.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestPoller_StopsOnCancel(t *testing.T) {
	client := &scriptedUpdatesClient{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewPoller(PollerOptions{Client: client, Dispatcher: &recordingDispatcher{}}).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(client.seenOffsets()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

type cancellingDispatcher struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	events  []int64
	ctxErrs []error
}

func (d *cancellingDispatcher) Dispatch(ctx context.Context, ev conversation.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) == 0 {
		d.cancel()
	}
	d.events = append(d.events, ev.MessageID)
	d.ctxErrs = append(d.ctxErrs, ctx.Err())
}

func TestPoller_ShutdownMidBatchFinishesCurrentTurnOnly(t *testing.T) {
	client := &scriptedUpdatesClient{script: []func() ([]telegram.Update, error){
		func() ([]telegram.Update, error) {
			return []telegram.Update{textUpdate(10, 1, "Ivan"), textUpdate(11, 1, "+79990000000"), textUpdate(12, 1, "secret")}, nil
		},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &cancellingDispatcher{cancel: cancel}
	p := NewPoller(PollerOptions{Client: client, Dispatcher: d, MinBackoff: time.Millisecond})

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.events, 1)
	assert.NoError(t, d.ctxErrs[0])
	assert.Equal(t, int64(11), p.offset)
	assert.Equal(t, []int64{0}, client.seenOffsets())
}

func TestNewPoller_Defaults(t *testing.T) {
	p := NewPoller(PollerOptions{})
	assert.Equal(t, time.Second, p.minBackoff)
	assert.Equal(t, 30*time.Second, p.maxBackoff)
	assert.NotNil(t, p.logger)
}
