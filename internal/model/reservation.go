package model

// Status values a reservation moves through.  A reservation is created
// as either StatusActive (paid booking) or StatusHeld (provisional
// block with no payment) and can only ever transition to
// StatusCancelled.  Cancelled is terminal; rows are never deleted or
// otherwise mutated.
const (
	StatusActive    = "active"
	StatusHeld      = "held"
	StatusCancelled = "cancelled"
)

// Reservation records a booked or held interval on one resource item.
// Times are half-hour-granular floats measured in hours from midnight
// (9.0, 9.5 ... 18.0) and the date is the calendar day being booked in
// YYYY-MM-DD form.
//
// Fields:
//  ID         – monotonically increasing identifier, assigned as
//               max-existing-id + 1 at creation and never reused.
//  Facility   – facility the item belongs to (single facility today).
//  Recurrence – recurring-booking counter, always 0 for now.
//  Date       – booked calendar day (YYYY-MM-DD).
//  Item       – item kind from the catalog (e.g. "workshop").
//  ClientID   – account the reservation is booked for.
//  StartTime  – start of the interval in half-hour float hours.
//  EndTime    – StartTime + duration.
//  Status     – one of the Status* constants above.
type Reservation struct {
	ID         int64   `json:"reservation_id"`   // reservations.reservation_id
	Facility   string  `json:"facility"`         // reservations.facility
	Recurrence int     `json:"recurrence"`       // reservations.recurrence
	Date       string  `json:"reservation_date"` // reservations.reservation_date
	Item       string  `json:"item"`             // reservations.item
	ClientID   string  `json:"client_id"`        // reservations.client_id
	StartTime  float64 `json:"start_time"`       // reservations.start_time
	EndTime    float64 `json:"end_time"`         // reservations.end_time
	Status     string  `json:"status"`           // reservations.status
}
