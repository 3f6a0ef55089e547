package lodging

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Applications persists accommodation applications and their append-only
// communication log. Log entries live in their own table and are only
// ever inserted, so concurrent appends both survive.
type Applications interface {
	repository.Repository[*Application]

	GetByAccount(ctx context.Context, accountID uuid.UUID) (*Application, error)
	GetByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*Application, error)

	Submit(ctx context.Context, record *Application) (*Application, error)
	SubmitTx(ctx context.Context, tx bun.IDB, record *Application) (*Application, error)

	ListByStatus(ctx context.Context, status ApplicationStatus) ([]*Application, error)

	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ApplicationStatus) (*Application, error)

	AppendEntry(ctx context.Context, entry *CommunicationEntry) (*CommunicationEntry, error)
	AppendEntryTx(ctx context.Context, tx bun.IDB, entry *CommunicationEntry) (*CommunicationEntry, error)

	RemoveByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error
}

type applications struct {
	repository.Repository[*Application]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Applications                        = (*applications)(nil)
	_ repository.Repository[*Application] = (*applications)(nil)
)

type ApplicationsOption func(*applications)

// WithApplicationsClock injects a custom clock (useful for tests).
func WithApplicationsClock(clock func() time.Time) ApplicationsOption {
	return func(a *applications) {
		if clock != nil {
			a.now = clock
		}
	}
}

func NewApplicationsRepository(db *bun.DB, opts ...ApplicationsOption) Applications {
	repo := repository.NewRepository[*Application](db, repository.ModelHandlers[*Application]{
		NewRecord: func() *Application { return &Application{} },
		GetID: func(a *Application) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Application, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "account_id"
		},
	})

	repoApps := &applications{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoApps)
		}
	}

	return repoApps
}

func (a *applications) GetByAccount(ctx context.Context, accountID uuid.UUID) (*Application, error) {
	return a.GetByAccountTx(ctx, a.db, accountID)
}

func (a *applications) GetByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*Application, error) {
	record := &Application{}
	err := tx.NewSelect().
		Model(record).
		Relation("Log", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sent_at ASC")
		}).
		Where("?TableAlias.account_id = ?", accountID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"account_id": accountID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *applications) Submit(ctx context.Context, record *Application) (*Application, error) {
	return a.SubmitTx(ctx, a.db, record)
}

func (a *applications) SubmitTx(ctx context.Context, tx bun.IDB, record *Application) (*Application, error) {
	prepareApplicationDefaults(record, a.now)

	if _, err := a.GetByAccountTx(ctx, tx, record.AccountID); err == nil {
		return nil, ErrDuplicateApplication.WithMetadata(map[string]any{
			"account_id": record.AccountID.String(),
		})
	} else if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateApplication.WithMetadata(map[string]any{
				"account_id": record.AccountID.String(),
			})
		}
		return nil, err
	}

	return created, nil
}

func (a *applications) ListByStatus(ctx context.Context, status ApplicationStatus) ([]*Application, error) {
	records := []*Application{}

	q := a.db.NewSelect().
		Model(&records).
		Relation("Account").
		Relation("Log", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sent_at ASC")
		}).
		Order("date_submitted ASC")

	if status != "" {
		q = q.Where("?TableAlias.status = ?", status)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *applications) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ApplicationStatus) (*Application, error) {
	record := &Application{
		ID:     id,
		Status: status,
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *applications) AppendEntry(ctx context.Context, entry *CommunicationEntry) (*CommunicationEntry, error) {
	return a.AppendEntryTx(ctx, a.db, entry)
}

func (a *applications) AppendEntryTx(ctx context.Context, tx bun.IDB, entry *CommunicationEntry) (*CommunicationEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = a.now()
	}

	if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

func (a *applications) RemoveByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	record, err := a.GetByAccountTx(ctx, tx, accountID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil
		}
		return err
	}

	if _, err := tx.NewDelete().
		Model((*CommunicationEntry)(nil)).
		Where("application_id = ?", record.ID).
		Exec(ctx); err != nil {
		return err
	}

	_, err = tx.NewDelete().
		Model((*Application)(nil)).
		Where("id = ?", record.ID).
		Exec(ctx)
	return err
}

func prepareApplicationDefaults(record *Application, now func() time.Time) {
	if record == nil {
		return
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.DateSubmitted.IsZero() {
		record.DateSubmitted = now()
	}
}
