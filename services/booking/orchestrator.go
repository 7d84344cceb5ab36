package booking

import (
	"context"
	"sync"
	"time"

	"fixhub/models"
	"fixhub/services/payment"

	"go.uber.org/zap"
)

// Orchestration run states.
const (
	RunIdle              = "idle"
	RunCreatingBooking   = "creating_booking"
	RunInitiatingPayment = "initiating_payment"
	RunVerifying         = "verifying"
	RunCompleted         = "completed"
	RunFailed            = "failed"
	RunCancelled         = "cancelled"
)

// Recovery actions offered after a failed run.
const (
	ActionRetry        = "retry"
	ActionChangeMethod = "change_payment_method"
	ActionCancel       = "cancel"
)

// CancelReasonAbandoned is the fixed reason recorded when a user cancels a
// booking out of a failed payment run.
const CancelReasonAbandoned = "payment_abandoned"

// PollConfig bounds the verification loop. Polling stops at whichever of
// MaxAttempts or Window is reached first.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Window      time.Duration
}

// DefaultPollConfig is 3s between checks, at most 10 checks, 30s total.
func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: 3 * time.Second, MaxAttempts: 10, Window: 30 * time.Second}
}

// Orchestrator drives one booking's payment run: create the booking through
// the mutation path, initiate the charge, then poll the gateway until a
// terminal status or a bound is hit. The run (state, attempt, last error)
// lives only in process memory.
type Orchestrator struct {
	mu      sync.Mutex
	state   string
	attempt *models.PaymentAttempt
	lastErr *payment.Error

	mutator *Mutator
	gateway payment.Gateway
	cfg     PollConfig
	logger  *zap.Logger

	// Injected clock and sleep so both polling bounds are testable without
	// real delays.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// Called when a verification run exhausts its bounds, to schedule a
	// deferred re-check. Optional.
	onTimeout func(transactionID, bookingID string)
}

func NewOrchestrator(mutator *Mutator, gateway payment.Gateway, cfg PollConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		state:   RunIdle,
		mutator: mutator,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithClock overrides the orchestrator's time source and sleep primitive.
func (o *Orchestrator) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *Orchestrator {
	o.now = now
	o.sleep = sleep
	return o
}

// WithTimeoutHook registers the deferred-reconciliation callback.
func (o *Orchestrator) WithTimeoutHook(fn func(transactionID, bookingID string)) *Orchestrator {
	o.onTimeout = fn
	return o
}

// State returns the run's current state.
func (o *Orchestrator) State() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the classified error of a failed run, nil otherwise.
func (o *Orchestrator) Err() *payment.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Attempt returns a copy of the current payment attempt, if any.
func (o *Orchestrator) Attempt() *models.PaymentAttempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt == nil {
		return nil
	}
	a := *o.attempt
	return &a
}

// Actions lists the recovery actions available in the current state,
// filtered by the error's retryable flag. Cancel is always present on a
// failed run.
func (o *Orchestrator) Actions() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != RunFailed {
		return nil
	}
	actions := []string{}
	if o.lastErr != nil && o.lastErr.Retryable {
		actions = append(actions, ActionRetry)
	}
	return append(actions, ActionChangeMethod, ActionCancel)
}

// SubmitPayment runs the full sequence for the flow's draft. The draft must
// satisfy the summary predicate; the orchestrator refuses to create a booking
// from incomplete data. A draft that already carries a result (a prior run
// created the booking, then the user changed payment method) skips creation.
func (o *Orchestrator) SubmitPayment(ctx context.Context, s *State) error {
	o.mu.Lock()
	// A failed run is re-enterable only through its recovery actions: Retry
	// when the error allows it, ChangeMethod (which returns the run to idle),
	// or Cancel. A blind re-submit must not re-issue a declined charge.
	if o.state == RunFailed {
		o.mu.Unlock()
		return NewFlowError("runFailed", "payment run failed; use retry, change method, or cancel")
	}
	if o.state != RunIdle {
		st := o.state
		o.mu.Unlock()
		return NewFlowError("runActive", "a payment run is already in state "+st)
	}
	if !StepValid(models.StepSummary, s.Draft) {
		o.mu.Unlock()
		return NewFlowError("incompleteDraft", "booking draft is incomplete")
	}
	if s.Draft.Method == nil {
		o.mu.Unlock()
		return NewFlowError("noMethod", "no payment method selected")
	}
	o.lastErr = nil
	o.state = RunCreatingBooking
	o.mu.Unlock()

	if s.Draft.Result == nil {
		if err := o.createBooking(ctx, s); err != nil {
			return err
		}
	}
	return o.initiate(ctx, s)
}

func (o *Orchestrator) createBooking(ctx context.Context, s *State) error {
	req := CreateBookingRequest{
		ProviderID: s.Draft.ProviderID,
		ServiceID:  s.Draft.ServiceID,
		AddOnIDs:   s.Draft.AddOnIDs,
		Date:       s.Draft.Date,
		Time:       s.Draft.Time,
		Location:   *s.Draft.Location,
	}
	created, err := o.mutator.CreateBooking(ctx, req)
	if err != nil {
		// The booking was never created; nothing to roll back. Creation
		// failures are validation-class and not retryable as a payment.
		ferr := &payment.Error{
			Code:      payment.CodeUnknown,
			Title:     "Booking Failed",
			Message:   err.Error(),
			Retryable: false,
			Action:    "Review your booking details and try again.",
		}
		o.fail(ferr)
		return ferr
	}

	s.Draft.Result = &models.DraftResult{
		BookingID:   created.ID,
		TotalAmount: created.TotalAmount,
		Currency:    created.Currency,
	}
	o.logger.Info("booking created for payment run",
		zap.String("bookingID", created.ID),
		zap.Float64("amount", created.TotalAmount))
	return nil
}

func (o *Orchestrator) initiate(ctx context.Context, s *State) error {
	o.setState(RunInitiatingPayment)

	// Cash settles on site; there is no payment protocol to run.
	if s.Draft.Method.Type == models.MethodCash {
		o.setState(RunCompleted)
		return nil
	}

	req := models.PaymentRequest{
		BookingID: s.Draft.Result.BookingID,
		Amount:    s.Draft.Result.TotalAmount,
		Currency:  s.Draft.Result.Currency,
		Phone:     s.Draft.Method.PhoneNum,
		Carrier:   s.Draft.Method.Carrier,
	}
	resp, err := o.gateway.Initiate(ctx, req)
	if err != nil {
		perr := payment.Classify(err)
		o.fail(perr)
		return perr
	}

	s.Draft.TransactionID = resp.TransactionID
	o.mu.Lock()
	o.attempt = &models.PaymentAttempt{
		TransactionID: resp.TransactionID,
		Carrier:       req.Carrier,
		Phone:         req.Phone,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        resp.Status,
		StartedAt:     o.now(),
	}
	o.mu.Unlock()

	switch resp.Status {
	case models.TxCompleted:
		o.setState(RunCompleted)
		return nil
	case models.TxPending, models.TxProcessing, models.TxInitiated:
		return o.verify(ctx, s)
	default:
		perr := payment.NewError(payment.CodeTransactionDeclined, resp.Message)
		o.fail(perr)
		return perr
	}
}

// verify polls the gateway at cfg.Interval until a terminal status, at most
// cfg.MaxAttempts requests, within cfg.Window wall-clock. Exhausting either
// bound synthesizes a Timeout error; the payment's real outcome stays
// unknown and is reconciled later. An explicit Cancel lands mid-loop: each
// iteration re-checks the run state so no further poll is issued after it.
func (o *Orchestrator) verify(ctx context.Context, s *State) error {
	o.setState(RunVerifying)
	deadline := o.now().Add(o.cfg.Window)
	txID := s.Draft.TransactionID

	for i := 0; i < o.cfg.MaxAttempts; i++ {
		if o.isCancelled() {
			return errRunCancelled
		}
		if err := o.sleep(ctx, o.cfg.Interval); err != nil {
			o.setState(RunCancelled)
			return err
		}
		if o.now().After(deadline) {
			break
		}
		if o.isCancelled() {
			return errRunCancelled
		}

		resp, err := o.gateway.Status(ctx, txID)
		o.mu.Lock()
		if o.attempt != nil {
			o.attempt.PollAttempts++
		}
		o.mu.Unlock()

		if err != nil {
			if ctx.Err() != nil {
				o.setState(RunCancelled)
				return ctx.Err()
			}
			o.logger.Warn("status check failed, continuing to poll",
				zap.String("transactionID", txID), zap.Error(err))
			continue
		}

		o.mu.Lock()
		if o.attempt != nil {
			o.attempt.Status = resp.Status
		}
		o.mu.Unlock()

		switch resp.Status {
		case models.TxCompleted:
			o.setState(RunCompleted)
			o.logger.Info("payment verified",
				zap.String("transactionID", txID),
				zap.String("bookingID", s.Draft.Result.BookingID))
			return nil
		case models.TxFailed:
			perr := payment.NewError(payment.CodeVerificationFailed, resp.Message)
			o.fail(perr)
			return perr
		}
	}

	if o.isCancelled() {
		return errRunCancelled
	}
	perr := payment.NewError(payment.CodeTimeout, "")
	o.fail(perr)
	// A cancel that raced the last poll wins: no timeout, and no
	// reconciliation for a booking the user just cancelled.
	if o.State() != RunFailed {
		return errRunCancelled
	}
	if o.onTimeout != nil {
		o.onTimeout(txID, s.Draft.Result.BookingID)
	}
	return perr
}

// Retry re-runs the failed stage: a run that died polling an existing
// transaction resumes verification; anything else re-initiates the charge.
// Only retryable failures may retry.
func (o *Orchestrator) Retry(ctx context.Context, s *State) error {
	o.mu.Lock()
	if o.state != RunFailed {
		o.mu.Unlock()
		return NewFlowError("notFailed", "nothing to retry")
	}
	if o.lastErr == nil || !o.lastErr.Retryable {
		o.mu.Unlock()
		return NewFlowError("notRetryable", "this failure cannot be retried")
	}
	resume := s.Draft.TransactionID != "" &&
		(o.lastErr.Code == payment.CodeTimeout || o.lastErr.Code == payment.CodeVerificationFailed)
	o.lastErr = nil
	o.mu.Unlock()

	if resume {
		return o.verify(ctx, s)
	}
	return o.initiate(ctx, s)
}

// ChangeMethod returns control to method selection after a failure. The
// created booking id is preserved so a re-submission skips creation.
func (o *Orchestrator) ChangeMethod(s *State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != RunFailed {
		return NewFlowError("notFailed", "can only change method after a failed run")
	}
	o.state = RunIdle
	o.attempt = nil
	o.lastErr = nil
	s.Draft.TransactionID = ""
	s.Draft.Method = nil
	return nil
}

// Cancel abandons the run. If a booking was created it is cancelled through
// the normal status-update mutation; no further cache rollback happens.
func (o *Orchestrator) Cancel(ctx context.Context, s *State) error {
	o.mu.Lock()
	state := o.state
	o.mu.Unlock()
	if state == RunCompleted {
		return NewFlowError("alreadyCompleted", "cannot cancel a completed payment")
	}

	if s.Draft.Result != nil {
		if _, err := o.mutator.CancelBooking(ctx, s.Draft.Result.BookingID, CancelReasonAbandoned); err != nil {
			return err
		}
	}
	o.setState(RunCancelled)
	return nil
}

// errRunCancelled is what an in-flight stage returns when an explicit Cancel
// overtook it; the run's terminal state is already RunCancelled.
var errRunCancelled = NewFlowError("runCancelled", "payment run was cancelled")

func (o *Orchestrator) isCancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == RunCancelled
}

// setState transitions the run. Cancelled is sticky: once a run is
// cancelled, no late stage result may overwrite it.
func (o *Orchestrator) setState(state string) {
	o.mu.Lock()
	if o.state != RunCancelled || state == RunCancelled {
		o.state = state
	}
	o.mu.Unlock()
}

func (o *Orchestrator) fail(perr *payment.Error) {
	o.mu.Lock()
	if o.state == RunCancelled {
		o.mu.Unlock()
		return
	}
	o.state = RunFailed
	o.lastErr = perr
	o.mu.Unlock()
	o.logger.Warn("payment run failed",
		zap.String("code", string(perr.Code)),
		zap.Bool("retryable", perr.Retryable))
}
