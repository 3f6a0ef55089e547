package lodging

import (
	"context"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts persists provider-registered accounts.
type Accounts interface {
	repository.Repository[*Account]

	GetBySubject(ctx context.Context, subject string) (*Account, error)
	GetBySubjectTx(ctx context.Context, tx bun.IDB, subject string) (*Account, error)

	Register(ctx context.Context, record *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	ListAll(ctx context.Context) ([]*Account, error)

	Remove(ctx context.Context, id uuid.UUID) error
	RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "subject_id"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetBySubject(ctx context.Context, subject string) (*Account, error) {
	return a.GetBySubjectTx(ctx, a.db, subject)
}

func (a *accounts) GetBySubjectTx(ctx context.Context, tx bun.IDB, subject string) (*Account, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"subject": subject,
			})
	}

	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.subject_id = ?", subject).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"subject": subject,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Register(ctx context.Context, record *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, record)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record)

	if _, err := a.GetBySubjectTx(ctx, tx, record.SubjectID); err == nil {
		return nil, ErrDuplicateAccount.WithMetadata(map[string]any{
			"subject": record.SubjectID,
		})
	} else if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAccount.WithMetadata(map[string]any{
				"subject": record.SubjectID,
			})
		}
		return nil, err
	}

	return created, nil
}

func (a *accounts) ListAll(ctx context.Context) ([]*Account, error) {
	records := []*Account{}
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *accounts) Remove(ctx context.Context, id uuid.UUID) error {
	return a.RemoveTx(ctx, a.db, id)
}

func (a *accounts) RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.EnsureRole()

	if record.ID == uuid.Nil {
		record.ID = AccountIDForSubject(record.SubjectID)
	}
}

// AccountIDForSubject maps a provider subject identifier to the account
// primary key. UUID subjects are used as-is; anything else derives a
// stable UUID so repeated registrations of the same subject collide on
// the primary key too, not just on the unique subject column.
func AccountIDForSubject(subject string) uuid.UUID {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return uuid.New()
	}

	if id, err := uuid.Parse(subject); err == nil {
		return id
	}

	if id, err := hashid.NewUUID(subject); err == nil {
		return id
	}

	return uuid.New()
}
