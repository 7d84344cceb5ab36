package booking

import (
	"fmt"

	"fixhub/models"
)

// State is the full state of one booking flow instance: the current step,
// the draft under construction, and per-step validity flags. Transitions are
// pure functions over State; all side effects live in the session service and
// the mutation path.
type State struct {
	Step  models.FlowStep                        `json:"step"`
	Draft models.BookingDraft                    `json:"draft"`
	Valid [int(models.StepConfirmation) + 1]bool `json:"valid"`
}

// NewState starts a flow at the first step with an empty, invalid draft for
// the given provider.
func NewState(providerID string) State {
	return State{
		Step:  models.StepServiceSelection,
		Draft: models.BookingDraft{ProviderID: providerID},
	}
}

// StepValid is the pure validity predicate for a step against a draft.
func StepValid(step models.FlowStep, d models.BookingDraft) bool {
	switch step {
	case models.StepServiceSelection:
		return d.ServiceID != ""
	case models.StepDateTime:
		return d.Date != "" && d.Time != ""
	case models.StepLocation:
		return d.Location != nil &&
			d.Location.Address != "" && d.Location.City != "" && d.Location.Region != ""
	case models.StepSummary:
		return StepValid(models.StepServiceSelection, d) &&
			StepValid(models.StepDateTime, d) &&
			StepValid(models.StepLocation, d)
	case models.StepPaymentMethod:
		return d.Method != nil
	case models.StepPaymentProcessing:
		return d.TransactionID != "" ||
			(d.Method != nil && d.Method.Type == models.MethodCash)
	case models.StepConfirmation:
		return true
	default:
		return false
	}
}

// Next advances to the following step. It fails when the current step is the
// last, or when its validity predicate does not hold. The newly entered
// step's flag starts false and must be re-validated by the next write.
func Next(s State) (State, error) {
	idx := int(s.Step)
	if idx >= len(models.FlowSteps)-1 {
		return s, fmt.Errorf("already on final step %s", s.Step)
	}
	if !StepValid(s.Step, s.Draft) {
		return s, fmt.Errorf("step %s is incomplete", s.Step)
	}
	s.Valid[idx] = true
	s.Step = models.FlowSteps[idx+1]
	s.Valid[idx+1] = false
	return s, nil
}

// Previous moves back one step. A step once completed is assumed valid when
// revisited.
func Previous(s State) (State, error) {
	idx := int(s.Step)
	if idx == 0 {
		return s, fmt.Errorf("already on first step")
	}
	s.Step = models.FlowSteps[idx-1]
	s.Valid[idx-1] = true
	return s, nil
}

// GoTo is the unguarded jump used for deep links. The target step's validity
// is re-evaluated immediately against the draft. A step outside the sequence
// leaves the state unchanged.
func GoTo(s State, step models.FlowStep) State {
	if step < models.StepServiceSelection || int(step) >= len(models.FlowSteps) {
		return s
	}
	s.Step = step
	s.Valid[int(step)] = StepValid(step, s.Draft)
	return s
}

// Reset discards the draft and returns to the first step.
func Reset(providerID string) State {
	return NewState(providerID)
}

// Draft setters. Each revalidates the current step so the flow's flag tracks
// the latest write.

func SetService(s State, serviceID string, addOnIDs []string) State {
	s.Draft.ServiceID = serviceID
	s.Draft.AddOnIDs = addOnIDs
	return revalidate(s)
}

func SetSchedule(s State, date, timeOfDay string) State {
	s.Draft.Date = date
	s.Draft.Time = timeOfDay
	return revalidate(s)
}

func SetLocation(s State, loc models.Location) State {
	s.Draft.Location = &loc
	return revalidate(s)
}

func SetMethod(s State, m models.PaymentMethod) State {
	s.Draft.Method = &m
	return revalidate(s)
}

func revalidate(s State) State {
	s.Valid[int(s.Step)] = StepValid(s.Step, s.Draft)
	return s
}
