// Package audit defines the audit trail written by destructive operations
// on sales and stock lots.
package audit

import (
	"context"
	"time"

	"tillpoint/internal/core/id"
)

// Action is the kind of audited change.
type Action string

const (
	ActionUpdate     Action = "update"
	ActionDeactivate Action = "deactivate"
	ActionDelete     Action = "delete"
	ActionDeleteItem Action = "delete_item"
)

// Entry is one audit record. Changes holds a before/after diff or a snapshot.
type Entry struct {
	ID         id.ID
	EntityType string
	EntityID   id.ID
	Action     Action
	UserID     string
	Changes    map[string]any
	CreatedAt  time.Time
}

// Recorder persists audit entries. It joins the transaction carried by ctx,
// so an entry is committed or rolled back together with the change it
// describes.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Diff returns the fields whose values differ between two states, as
// {"old": ..., "new": ...} pairs. Keys missing on one side count as nil.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		oldVal, ok := oldState[key]
		if !ok || !equal(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if _, ok := newState[key]; !ok {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}
