package bridge

import "context"

// Emitter is an interface for emitting events to the UI surface.
// The app layer implements it by delegating to wailsRuntime.EventsEmit,
// which keeps the bridge independently testable with a mock emitter.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

// MockEmitter is a test-friendly Emitter that records all calls.
type MockEmitter struct {
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}
