package progress

import "context"

// Sink consumes batches of progress events. Consume is only ever called from
// the hub goroutine.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events. Hub satisfies it, and Discard drops everything.
type Emitter interface {
	Emit(evt Event)
}

// Discard is an Emitter that ignores all events.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}
