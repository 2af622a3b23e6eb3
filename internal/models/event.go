package models

import "time"

// Event names published after successful writes.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
	EventCatCreated  = "cat.created"
	EventCatUpdated  = "cat.updated"
	EventCatDeleted  = "cat.deleted"
)

// Event is the message body sent to the event queue.
type Event struct {
	Name       string    `json:"event"`
	ID         string    `json:"id"`
	Owner      string    `json:"owner,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(name, id, owner string) Event {
	return Event{
		Name:       name,
		ID:         id,
		Owner:      owner,
		OccurredAt: time.Now().UTC(),
	}
}
