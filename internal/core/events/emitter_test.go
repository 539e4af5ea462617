package events

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/winiceo/kevio/internal/core/domain"
)

func TestEmitter_DeliversToAllSubscribersInOrder(t *testing.T) {
	e := NewEmitter(zerolog.Nop())

	var order []int
	e.Subscribe("test.event", func(any) { order = append(order, 1) })
	e.Subscribe("test.event", func(any) { order = append(order, 2) })

	e.Emit("test.event", nil)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected delivery order [1 2], got %v", order)
	}
}

func TestEmitter_NoSubscribersIsNoop(t *testing.T) {
	e := NewEmitter(zerolog.Nop())
	e.Emit("nobody.listens", "payload") // must not panic
}

func TestEmitter_PanickingSubscriberDoesNotPropagate(t *testing.T) {
	e := NewEmitter(zerolog.Nop())

	reached := false
	e.Subscribe("test.event", func(any) { panic("boom") })
	e.Subscribe("test.event", func(any) { reached = true })

	e.Emit("test.event", nil)

	if !reached {
		t.Error("subscriber after a panicking one must still be notified")
	}
}

func TestEmitter_PayloadPassedThrough(t *testing.T) {
	e := NewEmitter(zerolog.Nop())

	var got any
	e.Subscribe(UserUpdated, func(p any) { got = p })

	want := UserUpdatedPayload{Source: "system_users", User: &domain.User{ID: "u1"}}
	e.Emit(UserUpdated, want)

	payload, ok := got.(UserUpdatedPayload)
	if !ok {
		t.Fatalf("expected UserUpdatedPayload, got %T", got)
	}
	if payload.User.ID != "u1" {
		t.Errorf("expected user u1, got %s", payload.User.ID)
	}
}

func TestEmitter_OnlyMatchingEventDelivered(t *testing.T) {
	e := NewEmitter(zerolog.Nop())

	calls := 0
	e.Subscribe("a", func(any) { calls++ })

	e.Emit("b", nil)
	if calls != 0 {
		t.Errorf("subscriber for event a must not receive event b")
	}

	e.Emit("a", nil)
	if calls != 1 {
		t.Errorf("expected exactly 1 delivery, got %d", calls)
	}
}
