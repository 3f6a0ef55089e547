package lodging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActorRef identifies who/what triggered an operation.
type ActorRef struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor carries the admin role.
func (a ActorRef) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// ApplicationStateMachine defines lifecycle operations for accommodation
// applications. Applications begin pending and move exactly once to
// accepted or denied; both are terminal. Every mutation of the
// communication log is an insert, never an update.
type ApplicationStateMachine interface {
	Submit(ctx context.Context, actor ActorRef, accountID uuid.UUID, details ApplicationDetails) (*Application, error)
	Transition(ctx context.Context, actor ActorRef, accountID uuid.UUID, target ApplicationStatus, message string, opts ...TransitionOption) (*Application, error)
	AppendMessage(ctx context.Context, actor ActorRef, accountID uuid.UUID, message string) (*CommunicationEntry, error)
	Remove(ctx context.Context, actor ActorRef, accountID uuid.UUID) error
	CurrentStatus(app *Application) ApplicationStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*applicationStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *applicationStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *applicationStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *applicationStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewApplicationStateMachine returns the default implementation backed by
// the provided repository manager.
func NewApplicationStateMachine(repo RepositoryManager, opts ...StateMachineOption) ApplicationStateMachine {
	sm := &applicationStateMachine{
		repo: repo,
		transitions: map[ApplicationStatus]map[ApplicationStatus]struct{}{
			StatusPending: {
				StatusAccepted: {},
				StatusDenied:   {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type applicationStateMachine struct {
	repo         RepositoryManager
	transitions  map[ApplicationStatus]map[ApplicationStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	metadata TransitionMetadata
}

func (o *transitionOptions) cloneMetadata() TransitionMetadata {
	var cloned map[string]any
	if len(o.metadata.Metadata) > 0 {
		cloned = make(map[string]any, len(o.metadata.Metadata))
		for k, v := range o.metadata.Metadata {
			cloned[k] = v
		}
	}

	return TransitionMetadata{
		Reason:   o.metadata.Reason,
		Metadata: cloned,
	}
}

func (sm *applicationStateMachine) Submit(ctx context.Context, actor ActorRef, accountID uuid.UUID, details ApplicationDetails) (*Application, error) {
	record := &Application{
		AccountID:         accountID,
		AccommodationType: details.AccommodationType,
		Location:          details.Location,
		Status:            StatusPending,
		DateSubmitted:     sm.now(),
	}

	created, err := sm.repo.Applications().Submit(ctx, record)
	if err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAppSubmitted,
		Actor:     actor,
		AccountID: accountID.String(),
		ToStatus:  StatusPending,
	})

	return created, nil
}

func (sm *applicationStateMachine) Transition(ctx context.Context, actor ActorRef, accountID uuid.UUID, target ApplicationStatus, message string, opts ...TransitionOption) (*Application, error) {
	if !actor.IsAdmin() {
		return nil, ErrActorForbidden.WithMetadata(map[string]any{
			"actor": actor.ID,
			"role":  actor.Role,
		})
	}

	if !IsDecisionStatus(target) {
		return nil, ErrIllegalTransition.WithMetadata(map[string]any{
			"to":     target,
			"reason": "target is not a decision status",
		})
	}

	options := sm.buildTransitionOptions(opts...)

	var app *Application
	err := sm.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := sm.repo.Applications().GetByAccountTx(ctx, tx, accountID)
		if err != nil {
			if IsNotFoundError(err) {
				return ErrApplicationNotFound.WithMetadata(map[string]any{
					"account_id": accountID.String(),
				})
			}
			return err
		}

		record.EnsureStatus()
		from := record.Status

		if !sm.canTransition(from, target) {
			return ErrIllegalTransition.WithMetadata(map[string]any{
				"from": from,
				"to":   target,
			})
		}

		updated, err := sm.repo.Applications().UpdateStatusTx(ctx, tx, record.ID, target)
		if err != nil {
			return err
		}

		entry := &CommunicationEntry{
			ApplicationID: record.ID,
			Message:       message,
			SentBy:        actor.Role,
			SentAt:        sm.now(),
		}
		if _, err := sm.repo.Applications().AppendEntryTx(ctx, tx, entry); err != nil {
			return err
		}
		record.Log = append(record.Log, entry)

		sm.applyStatus(record, updated, target)
		app = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventAppStatusChanged,
		Actor:      actor,
		AccountID:  accountID.String(),
		FromStatus: StatusPending,
		ToStatus:   target,
		Metadata:   sm.transitionMetadata(options.cloneMetadata()),
	})

	return app, nil
}

func (sm *applicationStateMachine) AppendMessage(ctx context.Context, actor ActorRef, accountID uuid.UUID, message string) (*CommunicationEntry, error) {
	record, err := sm.repo.Applications().GetByAccount(ctx, accountID)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrApplicationNotFound.WithMetadata(map[string]any{
				"account_id": accountID.String(),
			})
		}
		return nil, err
	}

	entry := &CommunicationEntry{
		ApplicationID: record.ID,
		Message:       message,
		SentBy:        actor.Role,
		SentAt:        sm.now(),
	}

	created, err := sm.repo.Applications().AppendEntry(ctx, entry)
	if err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAppMessageAppended,
		Actor:     actor,
		AccountID: accountID.String(),
		Metadata: map[string]any{
			"sent_by": actor.Role,
		},
	})

	return created, nil
}

func (sm *applicationStateMachine) Remove(ctx context.Context, actor ActorRef, accountID uuid.UUID) error {
	if !actor.IsAdmin() {
		return ErrActorForbidden.WithMetadata(map[string]any{
			"actor": actor.ID,
			"role":  actor.Role,
		})
	}

	err := sm.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := sm.repo.Applications().RemoveByAccountTx(ctx, tx, accountID); err != nil {
			return err
		}

		if err := sm.repo.Accounts().RemoveTx(ctx, tx, accountID); err != nil {
			if IsNotFoundError(err) {
				return ErrAccountNotFound.WithMetadata(map[string]any{
					"account_id": accountID.String(),
				})
			}
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountRemoved,
		Actor:     actor,
		AccountID: accountID.String(),
	})

	return nil
}

func (sm *applicationStateMachine) CurrentStatus(app *Application) ApplicationStatus {
	if app == nil {
		return ""
	}
	app.EnsureStatus()
	return app.Status
}

func (sm *applicationStateMachine) canTransition(from, to ApplicationStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *applicationStateMachine) buildTransitionOptions(opts ...TransitionOption) *transitionOptions {
	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

func (sm *applicationStateMachine) applyStatus(record, updated *Application, target ApplicationStatus) {
	if updated != nil && updated.Status != "" {
		record.Status = updated.Status
		return
	}
	record.Status = target
}

func (sm *applicationStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{ID: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}

func (sm *applicationStateMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
