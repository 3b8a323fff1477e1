package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event names.
const (
	EventLoadStart     = "load_start"
	EventLoadDone      = "load_done"
	EventLoadFailed    = "load_failed"
	EventReloadStart   = "reload_start"
	EventReloadDone    = "reload_done"
	EventReloadFailed  = "reload_failed"
	EventUnloadStart   = "unload_start"
	EventUnloadTimeout = "unload_timeout"
	EventUnloadDone    = "unload_done"
)

// Event is one step of a model lifecycle operation. Fields carries
// step-specific detail such as the reload mode or the error; it may be nil.
type Event struct {
	Name   string
	Model  string
	At     time.Time
	Fields map[string]any
}

// EventPublisher receives lifecycle events synchronously from the
// goroutine running the operation, so Publish must return quickly.
type EventPublisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes events to Logger at debug level.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	p.Logger.Debug().Str("event", e.Name).Str("model", e.Model).Fields(e.Fields).Msg("model lifecycle")
}

// RecordingPublisher remembers every event by name.
type RecordingPublisher struct {
	mu     sync.Mutex
	byName map[string][]Event
}

func (p *RecordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byName == nil {
		p.byName = map[string][]Event{}
	}
	p.byName[e.Name] = append(p.byName[e.Name], e)
}

// Named returns the events called name in publication order.
func (p *RecordingPublisher) Named(name string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.byName[name]...)
}
