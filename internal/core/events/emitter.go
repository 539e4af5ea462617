// Package events provides the process-wide change event emitter. Subscribers
// are registered once at startup and notified synchronously on each emit; a
// failing subscriber never propagates back to the producer.
package events

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/winiceo/kevio/internal/core/domain"
)

// UserUpdated is fired once per qualifying user update: a mutation that is
// neither a fresh creation nor a login-timestamp-only change.
const UserUpdated = "system_users.updated"

// UserUpdatedPayload is the payload carried by UserUpdated events.
type UserUpdatedPayload struct {
	Source string
	User   *domain.User
}

// Handler consumes an emitted event payload.
type Handler func(payload any)

// Emitter is a synchronous-dispatch pub/sub hub.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      zerolog.Logger
}

func NewEmitter(log zerolog.Logger) *Emitter {
	return &Emitter{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for an event name. Intended to be called
// during startup, before any traffic produces events.
func (e *Emitter) Subscribe(event string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], h)
}

// Emit dispatches the payload to every subscriber of the event, in
// registration order. A panicking subscriber is recovered and logged so the
// remaining subscribers and the caller are unaffected.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.RLock()
	subs := e.handlers[event]
	e.mu.RUnlock()

	for _, h := range subs {
		e.dispatch(event, h, payload)
	}
}

func (e *Emitter) dispatch(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("event", event).Any("panic", r).Msg("event subscriber panicked")
		}
	}()
	h(payload)
}
