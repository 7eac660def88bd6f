// Package events publishes capture-loop events to interested listeners.
package events

import (
	"context"
	"time"
)

const (
	KindArchive = "archive"
	KindFailure = "failure"
)

// Event describes an archive admission or a device failure.
type Event struct {
	Kind       string    `json:"kind"`
	Filename   string    `json:"filename,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	Evicted    []string  `json:"evicted,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Publisher delivers events. A failed publication never affects capture;
// callers log and move on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                               {}
