package models

// FlowStep is one stage of the fixed booking-creation sequence.
type FlowStep int

const (
	StepServiceSelection FlowStep = iota
	StepDateTime
	StepLocation
	StepSummary
	StepPaymentMethod
	StepPaymentProcessing
	StepConfirmation
)

// FlowSteps is the ordered sequence of steps a draft moves through.
var FlowSteps = []FlowStep{
	StepServiceSelection,
	StepDateTime,
	StepLocation,
	StepSummary,
	StepPaymentMethod,
	StepPaymentProcessing,
	StepConfirmation,
}

func (s FlowStep) String() string {
	switch s {
	case StepServiceSelection:
		return "service_selection"
	case StepDateTime:
		return "date_time"
	case StepLocation:
		return "location"
	case StepSummary:
		return "summary"
	case StepPaymentMethod:
		return "payment_method"
	case StepPaymentProcessing:
		return "payment_processing"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Payment method types.
const (
	MethodMobileMoney = "mobile_money"
	MethodCash        = "cash"
)

// PaymentMethod is the user's selected way to pay for a booking.
type PaymentMethod struct {
	Type     string `json:"type"`              // "mobile_money" or "cash"
	Carrier  string `json:"carrier,omitempty"` // e.g. "mtn", "vodafone", "airteltigo"
	PhoneNum string `json:"phone,omitempty"`   // wallet number for mobile money
}

// DraftResult holds what booking creation assigned to the draft.
type DraftResult struct {
	BookingID   string  `json:"booking_id"`
	TotalAmount float64 `json:"total_amount"`
	Currency    string  `json:"currency"`
}

// BookingDraft is the in-progress, not-yet-persisted booking under
// construction. It lives only for the duration of one flow instance.
type BookingDraft struct {
	ProviderID    string         `json:"provider_id"`
	ServiceID     string         `json:"service_id,omitempty"`
	AddOnIDs      []string       `json:"add_on_ids,omitempty"`
	Date          string         `json:"date,omitempty"` // "YYYY-MM-DD"
	Time          string         `json:"time,omitempty"` // "HH:MM"
	Location      *Location      `json:"location,omitempty"`
	Method        *PaymentMethod `json:"payment_method,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Result        *DraftResult   `json:"result,omitempty"`
}
