package monitor

import "time"

// EventType enumerates result set changes and notifications.
type EventType string

const (
	EventEntryAdded       EventType = "entry_added"
	EventEntryUpdated     EventType = "entry_updated"
	EventEntryRemoved     EventType = "entry_removed"
	EventPollingEnabled   EventType = "polling_enabled"
	EventPollingDisabled  EventType = "polling_disabled"
	EventRemovableChanged EventType = "removable_changed"
	EventResultsCleared   EventType = "results_cleared"
	EventNotification     EventType = "notification"
)

// Event is published to subscribers after each mutation or notification.
// Entries is a snapshot of the whole set at publish time.
type Event struct {
	Type    EventType `json:"type"`
	At      time.Time `json:"at"`
	Index   int       `json:"index"`
	Entry   *Entry    `json:"entry,omitempty"`
	Message string    `json:"message,omitempty"`
	Entries []Entry   `json:"entries"`
}

// Notifier shows a short message to the operator. Implementations are called
// from the dispatcher goroutine and must not block.
type Notifier interface {
	ShowMessage(text string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(text string)

// ShowMessage implements Notifier.
func (f NotifierFunc) ShowMessage(text string) { f(text) }

// Metrics receives submission counters. internal/metrics provides the
// Prometheus implementation.
type Metrics interface {
	Submitted(kind string)
	Completed(kind, result string, elapsed time.Duration)
	Entries(n int)
}

type nopMetrics struct{}

func (nopMetrics) Submitted(string)                        {}
func (nopMetrics) Completed(string, string, time.Duration) {}
func (nopMetrics) Entries(int)                             {}
