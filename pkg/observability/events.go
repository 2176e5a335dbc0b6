package observability

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Event names emitted by the retrieval and dispatch core.
const (
	EventMatchFound         = "match.found"
	EventPlanStep           = "plan.step"
	EventStepSkipped        = "plan.step_skipped"
	EventValidationVerdict  = "validation.verdict"
	EventEscalationDecision = "escalation.decision"
)

// Event is a discrete structured log event.
type Event struct {
	Level   logrus.Level
	Message string
	Fields  logrus.Fields
}

// Emitter receives structured events. Implementations decide where events go.
type Emitter interface {
	Emit(Event)
}

// LogEmitter forwards events to a logrus logger.
type LogEmitter struct {
	log logrus.FieldLogger
}

// NewLogEmitter creates an emitter writing to log.
func NewLogEmitter(log logrus.FieldLogger) *LogEmitter {
	return &LogEmitter{log: log}
}

// Emit logs the event at its level.
func (e *LogEmitter) Emit(ev Event) {
	entry := e.log.WithFields(ev.Fields)

	switch ev.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		entry.Error(ev.Message)
	case logrus.WarnLevel:
		entry.Warn(ev.Message)
	case logrus.DebugLevel, logrus.TraceLevel:
		entry.Debug(ev.Message)
	default:
		entry.Info(ev.Message)
	}
}

// Recorder keeps emitted events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records the event.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)

	return out
}

// Messages returns the messages of the recorded events in order.
func (r *Recorder) Messages() []string {
	events := r.Events()

	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Message)
	}

	return out
}

// Multi fans an event out to several emitters.
type Multi []Emitter

// Emit forwards ev to every emitter.
func (m Multi) Emit(ev Event) {
	for _, e := range m {
		e.Emit(ev)
	}
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}
