// Package events fans entitlement changes out to interested listeners, either
// inside one process or across instances through redis pub/sub.
package events

import (
	"context"
	"time"
)

// TypeEntitlementsChanged is published after every committed entitlement write.
const TypeEntitlementsChanged = "entitlements.changed"

// Event describes a committed change to one student's entitlement set.
type Event struct {
	Type      string    `json:"type"`
	StudentID string    `json:"studentId"`
	VideoIDs  []int     `json:"videoIds"`
	Revision  int64     `json:"revision"`
	Operation string    `json:"operation"`
	At        time.Time `json:"at"`
}

// Bus publishes events and forwards them to subscribers.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	StartForwarder(ctx context.Context, onEvent func(evt Event)) error
	Close() error
}
