package service

import (
	"context"
	"errors"
	"time"

	"bankops/internal/collaborators/credentials"
	"bankops/internal/collaborators/devices"
	"bankops/internal/collaborators/screening"
	leases "bankops/internal/leases/service"
	ledger "bankops/internal/ledger/service"
	"bankops/internal/operations"
	orchestratorerrors "bankops/internal/orchestrator/errors"
	"bankops/internal/orchestrator/repository"
	"bankops/internal/saga"
	"bankops/pkg/auth"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/logger"
	"bankops/pkg/metrics"
	"bankops/pkg/model"
)

// SessionView is what every orchestrator call returns to the client.
type SessionView struct {
	SessionID         string             `json:"session_id"`
	Channel           model.Channel      `json:"channel"`
	State             model.SessionState `json:"state"`
	DeviceID          string             `json:"device_id,omitempty"`
	TransactionID     string             `json:"transaction_id,omitempty"`
	TransactionStatus string             `json:"transaction_status,omitempty"`
	Operation         string             `json:"operation,omitempty"`
	AmountMinor       int64              `json:"amount_minor,omitempty"`
	Amount            string             `json:"amount,omitempty"`
	NextEvents        []operations.Event `json:"next,omitempty"`
}

type TransferInput struct {
	SourceAccount string
	Destination   string
	Amount        model.Amount
}

type SweepResult struct {
	LeasesReclaimed   int `json:"leases_reclaimed"`
	SessionsCancelled int `json:"sessions_cancelled"`
}

// OrchestratorService drives ATM and transfer sessions through the operation
// state machine. It is the only writer of session state.
type OrchestratorService interface {
	AssignDevice(ctx context.Context, deviceID string) (*SessionView, error)
	VerifyCard(ctx context.Context, sessionID, cardID string) (*SessionView, error)
	VerifyPin(ctx context.Context, sessionID, pin string) (*SessionView, error)
	EnterAmount(ctx context.Context, sessionID string, op model.TransactionType, amount model.Amount) (*SessionView, error)
	Submit(ctx context.Context, sessionID string) (*SessionView, error)
	ConfirmPrint(ctx context.Context, sessionID string) (*SessionView, *model.Confirmation, error)
	Finish(ctx context.Context, sessionID string) (*SessionView, error)
	Cancel(ctx context.Context, identity *auth.Identity, sessionID string) (*SessionView, error)

	Transfer(ctx context.Context, identity *auth.Identity, in TransferInput) (*SessionView, error)

	// GetSession, Cancel and FetchConfirmation let a client reach only its own
	// sessions and transactions. ATM terminals and admins reach all of them.
	GetSession(ctx context.Context, identity *auth.Identity, sessionID string) (*SessionView, error)
	FetchConfirmation(ctx context.Context, identity *auth.Identity, transactionID string) (*model.Confirmation, error)

	// Sweep reclaims expired leases and cancels sessions idle past the timeout.
	Sweep(ctx context.Context) (SweepResult, error)
}

type Settings struct {
	DeviceLeaseTTL     time.Duration
	AccountLeaseTTL    time.Duration
	SessionIdleTimeout time.Duration
	PinRetryBudget     int
	ATMDenomination    model.Amount
	SweepBatchSize     int
	SweepConcurrency   int
}

type Dependencies struct {
	Sessions    repository.SessionRepository
	Leases      leases.LeaseManager
	Ledger      ledger.LedgerService
	Credentials credentials.Store
	Devices     devices.Registry
	Screener    screening.Screener
	Collector   metrics.Collector
	Log         *logger.Logger
}

type orchestratorService struct {
	sessions    repository.SessionRepository
	leases      leases.LeaseManager
	ledger      ledger.LedgerService
	credentials credentials.Store
	devices     devices.Registry
	screener    screening.Screener
	collector   metrics.Collector
	log         *logger.Logger
	settings    Settings
	now         func() time.Time
	release     *saga.Engine[*releaseState]
}

type Option func(*orchestratorService)

func WithClock(now func() time.Time) Option {
	return func(s *orchestratorService) {
		s.now = now
	}
}

func NewOrchestratorService(deps Dependencies, settings Settings, opts ...Option) OrchestratorService {
	if deps.Collector == nil {
		deps.Collector = metrics.NoOpCollector{}
	}
	if deps.Screener == nil {
		deps.Screener = screening.Chain{}
	}
	if settings.PinRetryBudget <= 0 {
		settings.PinRetryBudget = 3
	}
	if settings.ATMDenomination <= 0 {
		settings.ATMDenomination = 1
	}
	if settings.SweepBatchSize <= 0 {
		settings.SweepBatchSize = 100
	}
	if settings.SweepConcurrency <= 0 {
		settings.SweepConcurrency = 4
	}

	s := &orchestratorService{
		sessions:    deps.Sessions,
		leases:      deps.Leases,
		ledger:      deps.Ledger,
		credentials: deps.Credentials,
		devices:     deps.Devices,
		screener:    deps.Screener,
		collector:   deps.Collector,
		log:         deps.Log,
		settings:    settings,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.release = newReleaseEngine(s)
	return s
}

func (s *orchestratorService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *orchestratorService) load(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, orchestratorerrors.ErrSessionNotFound) {
			return nil, apperrors.NotFoundWithID("Session", sessionID)
		}
		s.log.Error("Failed to load session", "session_id", sessionID, "error", err)
		return nil, apperrors.Internal("Failed to load session", err)
	}
	return session, nil
}

// next resolves event against the state table without changing the session.
func (s *orchestratorService) next(session *model.Session, event operations.Event) (model.SessionState, error) {
	to, err := operations.Next(session.Channel, session.State, event)
	if err != nil {
		return session.State, tagged(apperrors.InvalidState(string(session.State), string(event)), session)
	}
	return to, nil
}

// persist stores the session in state to using the version check.
func (s *orchestratorService) persist(ctx context.Context, session *model.Session, to model.SessionState) error {
	from := session.State
	session.State = to
	session.UpdatedAt = s.timestamp()

	if err := s.sessions.Update(ctx, session); err != nil {
		session.State = from
		if errors.Is(err, orchestratorerrors.ErrVersionConflict) {
			s.log.Warn("Concurrent session update rejected", "session_id", session.ID, "state", from)
			return tagged(apperrors.Conflict("session changed concurrently").WithRetry(apperrors.RetryNow), session)
		}
		s.log.Error("Failed to persist session", "session_id", session.ID, "error", err)
		return apperrors.Internal("Failed to persist session", err)
	}

	if from != to {
		s.collector.RecordTransition(string(session.Channel), string(to))
		s.log.Info("Session transitioned",
			"session_id", session.ID,
			"channel", session.Channel,
			"from", from,
			"to", to,
		)
	}
	return nil
}

// tagged attaches the session coordinates to an AppError so every failure
// tells the client where the session stands.
func tagged(err error, session *model.Session) error {
	var appErr *apperrors.AppError
	if session == nil || !errors.As(err, &appErr) {
		return err
	}
	details := map[string]any{
		"session_id": session.ID,
		"state":      session.State,
	}
	if session.TransactionID != "" {
		details["transaction_id"] = session.TransactionID
	}
	return appErr.WithDetails(details)
}

func (s *orchestratorService) view(ctx context.Context, session *model.Session) *SessionView {
	v := &SessionView{
		SessionID:     session.ID,
		Channel:       session.Channel,
		State:         session.State,
		DeviceID:      session.DeviceID,
		TransactionID: session.TransactionID,
		Operation:     string(session.Operation),
		NextEvents:    operations.Events(session.Channel, session.State),
	}
	if session.Amount > 0 {
		v.AmountMinor = int64(session.Amount)
		v.Amount = session.Amount.String()
	}
	if session.TransactionID != "" {
		if tx, err := s.ledger.Get(ctx, session.TransactionID); err == nil {
			v.TransactionStatus = model.ProjectStatus(tx.Status, model.ViewAdmin)
		}
	}
	return v
}

func (s *orchestratorService) GetSession(ctx context.Context, identity *auth.Identity, sessionID string) (*SessionView, error) {
	session, err := s.loadFor(ctx, identity, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, session), nil
}

func (s *orchestratorService) FetchConfirmation(ctx context.Context, identity *auth.Identity, transactionID string) (*model.Confirmation, error) {
	if identity == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if !identity.HasRole(auth.RoleATM, auth.RoleAdmin) {
		tx, err := s.ledger.Get(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		accountID := tx.SourceAccountID
		if accountID == "" {
			accountID = tx.DestinationAccountID
		}
		account, err := s.ledger.GetAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if account.OwnerID != identity.UserID {
			s.log.Warn("Confirmation requested by non-owner", "transaction_id", transactionID, "user_id", identity.UserID)
			return nil, apperrors.Forbidden("transaction belongs to another customer")
		}
	}
	return s.ledger.Confirmation(ctx, transactionID)
}

// loadFor loads the session and checks identity may act on it.
func (s *orchestratorService) loadFor(ctx context.Context, identity *auth.Identity, sessionID string) (*model.Session, error) {
	if identity == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !identity.HasRole(auth.RoleATM, auth.RoleAdmin) && session.OwnerID != identity.UserID {
		s.log.Warn("Session requested by non-owner", "session_id", sessionID, "user_id", identity.UserID)
		return nil, apperrors.Forbidden("session belongs to another customer")
	}
	return session, nil
}

// touchLeases renews every lease the session holds. A lease that expired and
// went to another session ends this one.
func (s *orchestratorService) touchLeases(ctx context.Context, session *model.Session) error {
	renew := []struct {
		held bool
		kind model.ResourceKind
		id   string
		ttl  time.Duration
	}{
		{session.AccountLeased, model.ResourceAccount, session.AccountID, s.settings.AccountLeaseTTL},
		{session.DeviceLeased, model.ResourceDevice, session.DeviceID, s.settings.DeviceLeaseTTL},
	}

	for _, r := range renew {
		if !r.held {
			continue
		}
		if _, err := s.leases.Acquire(ctx, r.kind, r.id, session.ID, r.ttl); err != nil {
			if !apperrors.HasCode(err, apperrors.CodeAlreadyLocked) {
				return err
			}
			s.log.Warn("Session lost its lease", "session_id", session.ID, "kind", r.kind, "resource_id", r.id)
			if r.kind == model.ResourceAccount {
				session.AccountLeased = false
			} else {
				session.DeviceLeased = false
			}
			flow := flowCancel
			if operations.Settled(session.State) {
				flow = flowRelease
			}
			if _, endErr := s.end(ctx, session, flow, "lease_lost"); endErr != nil {
				s.log.Error("Failed to end session after lease loss", "session_id", session.ID, "error", endErr)
			}
			return tagged(apperrors.NotOwner(model.LeaseKey(r.kind, r.id)), session)
		}
	}
	return nil
}
