package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"affiliate_portal_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestInMemoryBusPublishDeliversToSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	var calls atomic.Int32

	bus.Subscribe("ledger.released", HandlerFunc(func(ctx context.Context, event Event) error {
		calls.Add(1)
		return nil
	}))
	bus.Subscribe("ledger.released", HandlerFunc(func(ctx context.Context, event Event) error {
		calls.Add(1)
		return errors.New("logged, not returned")
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "ledger.released"})
	bus.Wait()

	if calls.Load() != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls.Load())
	}
}

func TestInMemoryBusPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	bus.Subscribe("payout.completed", HandlerFunc(func(ctx context.Context, event Event) error {
		return errors.New("boom")
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "payout.completed"})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom error, got %v", err)
	}

	if err := bus.PublishSync(context.Background(), testEvent{name: "unsubscribed"}); err != nil {
		t.Fatalf("expected nil for unsubscribed event, got %v", err)
	}
}
