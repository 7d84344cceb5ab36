package models

import "time"

// Booking statuses as persisted by the marketplace API. A booking is never
// deleted, only transitioned to StatusCancelled.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusOnTheWay   = "on_the_way"
	StatusArrived    = "arrived"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Payment statuses carried on a booking.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Location is the service address for a booking.
type Location struct {
	Address   string  `json:"address"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// Booking represents a persisted booking record owned by the marketplace API.
type Booking struct {
	ID            string    `json:"id"`
	ProviderID    string    `json:"provider_id"`
	ServiceID     string    `json:"service_id"`
	AddOnIDs      []string  `json:"add_on_ids,omitempty"`
	Date          string    `json:"date"` // "YYYY-MM-DD"
	Time          string    `json:"time"` // "HH:MM"
	Location      Location  `json:"location"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   float64   `json:"total_amount"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

// Review is a user's rating of a provider, submitted after completion.
type Review struct {
	ID         string    `json:"id,omitempty"`
	ProviderID string    `json:"provider_id"`
	BookingID  string    `json:"booking_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}
