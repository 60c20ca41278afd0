// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// ReservationBookedEvent is published after a booking or hold commits.
// It carries enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type ReservationBookedEvent struct {
	ReservationID int64     `json:"reservation_id"`
	Facility      string    `json:"facility"`
	Item          string    `json:"item"`
	ClientID      string    `json:"client_id"`
	Date          string    `json:"date"`
	StartTime     float64   `json:"start_time"`
	EndTime       float64   `json:"end_time"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
	BookedAt      time.Time `json:"booked_at"`
}

// ReservationCancelledEvent is published after a cancellation commits.
// Refund is zero for cancelled holds and zero-tier cancellations.
type ReservationCancelledEvent struct {
	ReservationID int64     `json:"reservation_id"`
	ClientID      string    `json:"client_id"`
	Refund        float64   `json:"refund"`
	WasHeld       bool      `json:"was_held"`
	CancelledAt   time.Time `json:"cancelled_at"`
}
