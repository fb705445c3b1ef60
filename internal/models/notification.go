package models

import (
	"fmt"
	"time"
)

// NotificationType categorises a notification.
type NotificationType string

const (
	NotificationSuggestion NotificationType = "suggestion"
	NotificationValidation NotificationType = "validation"
	NotificationAlert      NotificationType = "alert"
	NotificationReminder   NotificationType = "reminder"
	NotificationInfo       NotificationType = "info"
)

// ReadState is the notification read state. Unread notifications become read exactly once.
type ReadState string

const (
	Unread ReadState = "unread"
	Read   ReadState = "read"
)

// Transition returns the state reached by moving s to next. Moving to the current state
// is allowed and returns it unchanged.
func (s ReadState) Transition(next ReadState) (ReadState, error) {
	switch {
	case s == next && (s == Unread || s == Read):
		return s, nil
	case s == Unread && next == Read:
		return next, nil
	default:
		return s, fmt.Errorf("%w: notification %s -> %s", ErrIllegalTransition, s, next)
	}
}

// Notification is a message addressed to the current user.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	State     ReadState        `json:"state"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
}

// IsRead reports whether the notification has been read.
func (n Notification) IsRead() bool {
	return n.State == Read
}

// MarkRead returns a copy of n in the read state, keeping an existing ReadAt.
func (n Notification) MarkRead(at time.Time) Notification {
	next, err := n.State.Transition(Read)
	if err != nil {
		return n
	}
	n.State = next
	if n.ReadAt == nil {
		readAt := at
		n.ReadAt = &readAt
	}
	return n
}
