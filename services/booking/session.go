package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"fixhub/models"
	"fixhub/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService persists flow state across stateless HTTP requests. The FSM
// itself stays pure; redis holds only the serialized snapshot between
// requests, under a 30-minute TTL. Payment runs stay in process memory, one
// orchestrator per session.
type SessionService struct {
	cache  *redis.Client
	logger *zap.Logger

	mu   sync.Mutex
	runs map[string]*Orchestrator

	newRun func() *Orchestrator
}

// NewSessionService wires the service to its redis client and an
// orchestrator factory supplied by the composition root.
func NewSessionService(cacheClient *redis.Client, logger *zap.Logger, newRun func() *Orchestrator) *SessionService {
	return &SessionService{
		cache:  cacheClient,
		logger: logger,
		runs:   make(map[string]*Orchestrator),
		newRun: newRun,
	}
}

// StartFlow opens a new flow session for the given provider.
func (s *SessionService) StartFlow(ctx context.Context, providerID string) (string, State, error) {
	if providerID == "" {
		return "", State{}, NewFlowError("noProvider", "provider id is required")
	}

	sessionID := uuid.New().String()
	st := NewState(providerID)
	if err := s.save(ctx, sessionID, st); err != nil {
		return "", State{}, err
	}

	s.logger.Info("flow session started",
		zap.String("sessionID", sessionID),
		zap.String("providerID", providerID))
	return sessionID, st, nil
}

// GetFlow loads the current state of a session.
func (s *SessionService) GetFlow(ctx context.Context, sessionID string) (State, error) {
	return s.load(ctx, sessionID)
}

// SetService records the selected service and add-ons on the draft.
func (s *SessionService) SetService(ctx context.Context, sessionID, serviceID string, addOnIDs []string) (State, error) {
	return s.apply(ctx, sessionID, func(st State) (State, error) {
		return SetService(st, serviceID, addOnIDs), nil
	})
}

// SetSchedule records the chosen date and time.
func (s *SessionService) SetSchedule(ctx context.Context, sessionID, date, timeOfDay string) (State, error) {
	return s.apply(ctx, sessionID, func(st State) (State, error) {
		return SetSchedule(st, date, timeOfDay), nil
	})
}

// SetLocation records the service address.
func (s *SessionService) SetLocation(ctx context.Context, sessionID string, loc models.Location) (State, error) {
	return s.apply(ctx, sessionID, func(st State) (State, error) {
		return SetLocation(st, loc), nil
	})
}

// SetMethod records the selected payment method.
func (s *SessionService) SetMethod(ctx context.Context, sessionID string, m models.PaymentMethod) (State, error) {
	return s.apply(ctx, sessionID, func(st State) (State, error) {
		return SetMethod(st, m), nil
	})
}

// NextStep advances the flow when the current step is complete.
func (s *SessionService) NextStep(ctx context.Context, sessionID string) (State, error) {
	return s.apply(ctx, sessionID, Next)
}

// PreviousStep moves the flow back one step.
func (s *SessionService) PreviousStep(ctx context.Context, sessionID string) (State, error) {
	return s.apply(ctx, sessionID, Previous)
}

// GoToStep jumps the flow to an arbitrary step (deep links).
func (s *SessionService) GoToStep(ctx context.Context, sessionID string, step models.FlowStep) (State, error) {
	if step < models.StepServiceSelection || step > models.StepConfirmation {
		return State{}, NewFlowError("badStep", "unknown flow step")
	}
	return s.apply(ctx, sessionID, func(st State) (State, error) {
		return GoTo(st, step), nil
	})
}

// ResetFlow discards the draft and starts over at the first step, dropping
// any in-memory payment run.
func (s *SessionService) ResetFlow(ctx context.Context, sessionID string) (State, error) {
	s.dropRun(sessionID)
	return s.apply(ctx, sessionID, func(st State) (State, error) {
		return Reset(st.Draft.ProviderID), nil
	})
}

// CancelFlow abandons the session entirely: the redis key is deleted and the
// payment run discarded.
func (s *SessionService) CancelFlow(ctx context.Context, sessionID string) error {
	s.dropRun(sessionID)
	if err := s.cache.Del(ctx, utils.FlowSessionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete flow session: %w", err)
	}
	s.logger.Info("flow session cancelled", zap.String("sessionID", sessionID))
	return nil
}

// Run returns the session's payment orchestrator, creating it on first use.
func (s *SessionService) Run(sessionID string) *Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[sessionID]
	if !ok {
		run = s.newRun()
		s.runs[sessionID] = run
	}
	return run
}

// SubmitPayment drives the session's orchestrator through booking creation,
// payment initiation, and verification. The updated draft (booking id,
// transaction id) is persisted back whatever the outcome; a completed run
// advances the flow to confirmation.
func (s *SessionService) SubmitPayment(ctx context.Context, sessionID string) (State, *Orchestrator, error) {
	st, err := s.load(ctx, sessionID)
	if err != nil {
		return State{}, nil, err
	}

	run := s.Run(sessionID)
	runErr := run.SubmitPayment(ctx, &st)

	if run.State() == RunCompleted {
		st = GoTo(st, models.StepConfirmation)
	}
	if err := s.save(ctx, sessionID, st); err != nil {
		return st, run, err
	}
	return st, run, runErr
}

// RetryPayment re-runs the failed stage of the session's payment run.
func (s *SessionService) RetryPayment(ctx context.Context, sessionID string) (State, *Orchestrator, error) {
	st, err := s.load(ctx, sessionID)
	if err != nil {
		return State{}, nil, err
	}

	run := s.Run(sessionID)
	runErr := run.Retry(ctx, &st)

	if run.State() == RunCompleted {
		st = GoTo(st, models.StepConfirmation)
	}
	if err := s.save(ctx, sessionID, st); err != nil {
		return st, run, err
	}
	return st, run, runErr
}

// ChangePaymentMethod returns a failed run to method selection, keeping the
// created booking so re-submission skips creation.
func (s *SessionService) ChangePaymentMethod(ctx context.Context, sessionID string) (State, error) {
	st, err := s.load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}

	run := s.Run(sessionID)
	if err := run.ChangeMethod(&st); err != nil {
		return st, err
	}

	st = GoTo(st, models.StepPaymentMethod)
	if err := s.save(ctx, sessionID, st); err != nil {
		return st, err
	}
	return st, nil
}

// CancelPayment cancels the run (and the created booking, through the normal
// cancellation mutation) and discards the orchestrator.
func (s *SessionService) CancelPayment(ctx context.Context, sessionID string) (State, error) {
	st, err := s.load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}

	run := s.Run(sessionID)
	if err := run.Cancel(ctx, &st); err != nil {
		return st, err
	}
	s.dropRun(sessionID)

	if err := s.save(ctx, sessionID, st); err != nil {
		return st, err
	}
	return st, nil
}

func (s *SessionService) apply(ctx context.Context, sessionID string, fn func(State) (State, error)) (State, error) {
	st, err := s.load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	next, err := fn(st)
	if err != nil {
		return st, err
	}
	if err := s.save(ctx, sessionID, next); err != nil {
		return st, err
	}
	return next, nil
}

func (s *SessionService) load(ctx context.Context, sessionID string) (State, error) {
	data, err := s.cache.Get(ctx, utils.FlowSessionPrefix+sessionID).Result()
	if err == redis.Nil {
		return State{}, ErrSessionNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to load flow session: %w", err)
	}

	var st State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return State{}, fmt.Errorf("failed to parse flow session: %w", err)
	}
	return st, nil
}

func (s *SessionService) save(ctx context.Context, sessionID string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal flow session: %w", err)
	}
	if err := s.cache.Set(ctx, utils.FlowSessionPrefix+sessionID, data, utils.FlowSessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store flow session: %w", err)
	}
	return nil
}

func (s *SessionService) dropRun(sessionID string) {
	s.mu.Lock()
	delete(s.runs, sessionID)
	s.mu.Unlock()
}
