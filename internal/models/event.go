package models

import "time"

// Event is a live session members and external participants can register
// for. StartsAt drives the countdown display; there is no payment state.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Published   bool      `db:"published" json:"published"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// EventSummary adds the registration count for occupancy displays.
type EventSummary struct {
	Event
	Registrations int `db:"registrations" json:"registrations"`
}

// EventRegistration records attendance intent. Either UserID (member) or
// the external participant fields are set, never both.
type EventRegistration struct {
	ID           string    `db:"id" json:"id"`
	EventID      string    `db:"event_id" json:"event_id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	External     bool      `db:"external" json:"external"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}
