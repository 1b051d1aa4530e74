package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// JobEvent represents one lifecycle event of an enhance job
type JobEvent struct {
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	JobID        string                 `json:"job_id"`
	Stage        string                 `json:"stage,omitempty"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of job event
type EventType string

const (
	// JobQueued when a job enters the queue
	JobQueued EventType = "job_queued"
	// StageStarted when a pipeline stage begins
	StageStarted EventType = "stage_started"
	// StageValidated when a stage's candidate passed through the validator
	StageValidated EventType = "stage_validated"
	// ValidationFlagged when the validator marked a candidate risky
	ValidationFlagged EventType = "validation_flagged"
	// JobCompleted when a job finishes successfully
	JobCompleted EventType = "job_completed"
	// JobFailed when a job fails
	JobFailed EventType = "job_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event JobEvent)
	GetObserverName() string
}

// Publisher fans job events out to subscribed observers
type Publisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewPublisher creates an empty publisher
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe registers an observer
func (p *Publisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Notify delivers an event to all observers
func (p *Publisher) Notify(ctx context.Context, event JobEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, observer := range p.observers {
		observer.OnEvent(ctx, event)
	}
}

// LoggingObserver logs job events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

// OnEvent logs the event
func (o *LoggingObserver) OnEvent(ctx context.Context, event JobEvent) {
	entry := o.logger.WithFields(logrus.Fields{
		"event_type": event.EventType,
		"job_id":     event.JobID,
		"stage":      event.Stage,
		"success":    event.Success,
	})
	if event.ErrorMessage != "" {
		entry = entry.WithField("error", event.ErrorMessage)
	}
	switch event.EventType {
	case JobFailed, ValidationFlagged:
		entry.Warn("Job event")
	default:
		entry.Info("Job event")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver keeps simple in-process counters per event type
type MetricsObserver struct {
	mu     sync.Mutex
	counts map[EventType]int
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{counts: make(map[EventType]int)}
}

// OnEvent increments the counter for the event type
func (o *MetricsObserver) OnEvent(ctx context.Context, event JobEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[event.EventType]++
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Snapshot returns a copy of the current counters
func (o *MetricsObserver) Snapshot() map[EventType]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[EventType]int, len(o.counts))
	for k, v := range o.counts {
		out[k] = v
	}
	return out
}
