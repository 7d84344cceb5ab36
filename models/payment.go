package models

import "time"

// Payment attempt statuses reported by the mobile-money gateway.
const (
	TxInitiated  = "initiated"
	TxPending    = "pending"
	TxProcessing = "processing"
	TxCompleted  = "completed"
	TxFailed     = "failed"
)

// PaymentRequest is what the orchestrator submits to the gateway.
type PaymentRequest struct {
	BookingID string  `json:"booking_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Phone     string  `json:"phone"`
	Carrier   string  `json:"carrier"`
}

// InitiateResponse is the gateway's reply to a payment initiation.
type InitiateResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Reference     string `json:"reference,omitempty"`
	Message       string `json:"message,omitempty"`
}

// StatusResponse is the gateway's reply to a status check.
type StatusResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

// PaymentAttempt is the transient record of one payment protocol run. It is
// never persisted beyond process memory.
type PaymentAttempt struct {
	TransactionID string
	Carrier       string
	Phone         string
	Amount        float64
	Currency      string
	Status        string
	PollAttempts  int
	StartedAt     time.Time
}
