package lodging_test

import (
	"context"
	"database/sql"
	"sync"

	lodging "github.com/goliatone/go-lodging"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockAccounts implements lodging.Accounts. The embedded repository
// interface covers the generic methods the tests never touch.
type MockAccounts struct {
	mock.Mock
	repository.Repository[*lodging.Account]
}

func (m *MockAccounts) GetBySubject(ctx context.Context, subject string) (*lodging.Account, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.Account), args.Error(1)
}

func (m *MockAccounts) GetBySubjectTx(ctx context.Context, tx bun.IDB, subject string) (*lodging.Account, error) {
	args := m.Called(ctx, tx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.Account), args.Error(1)
}

func (m *MockAccounts) Register(ctx context.Context, record *lodging.Account) (*lodging.Account, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.Account), args.Error(1)
}

func (m *MockAccounts) RegisterTx(ctx context.Context, tx bun.IDB, record *lodging.Account) (*lodging.Account, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.Account), args.Error(1)
}

func (m *MockAccounts) ListAll(ctx context.Context) ([]*lodging.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*lodging.Account), args.Error(1)
}

func (m *MockAccounts) Remove(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockApplications implements lodging.Applications.
type MockApplications struct {
	mock.Mock
	repository.Repository[*lodging.Application]
}

func (m *MockApplications) GetByAccount(ctx context.Context, accountID uuid.UUID) (*lodging.Application, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.Application), args.Error(1)
}

func (m *MockApplications) GetByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*lodging.Application, error) {
	args := m.Called(ctx, tx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.Application), args.Error(1)
}

func (m *MockApplications) Submit(ctx context.Context, record *lodging.Application) (*lodging.Application, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.Application), args.Error(1)
}

func (m *MockApplications) SubmitTx(ctx context.Context, tx bun.IDB, record *lodging.Application) (*lodging.Application, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.Application), args.Error(1)
}

func (m *MockApplications) ListByStatus(ctx context.Context, status lodging.ApplicationStatus) ([]*lodging.Application, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*lodging.Application), args.Error(1)
}

func (m *MockApplications) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status lodging.ApplicationStatus) (*lodging.Application, error) {
	args := m.Called(ctx, tx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.Application), args.Error(1)
}

func (m *MockApplications) AppendEntry(ctx context.Context, entry *lodging.CommunicationEntry) (*lodging.CommunicationEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.CommunicationEntry), args.Error(1)
}

func (m *MockApplications) AppendEntryTx(ctx context.Context, tx bun.IDB, entry *lodging.CommunicationEntry) (*lodging.CommunicationEntry, error) {
	args := m.Called(ctx, tx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lodging.CommunicationEntry), args.Error(1)
}

func (m *MockApplications) RemoveByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	args := m.Called(ctx, tx, accountID)
	return args.Error(0)
}

// stubRepoManager satisfies lodging.RepositoryManager without a
// database. RunInTx hands the callback a zero tx, which is enough for
// mocked repositories.
type stubRepoManager struct {
	accounts     *MockAccounts
	applications *MockApplications
}

func newStubRepoManager() *stubRepoManager {
	return &stubRepoManager{
		accounts:     &MockAccounts{},
		applications: &MockApplications{},
	}
}

func (s *stubRepoManager) Validate() error { return nil }
func (s *stubRepoManager) MustValidate()   {}

func (s *stubRepoManager) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (s *stubRepoManager) Accounts() lodging.Accounts         { return s.accounts }
func (s *stubRepoManager) Applications() lodging.Applications { return s.applications }

// memorySink collects activity events for assertions.
type memorySink struct {
	mu     sync.Mutex
	events []lodging.ActivityEvent
}

func (s *memorySink) Record(_ context.Context, event lodging.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memorySink) Events() []lodging.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]lodging.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

// stubVerifier returns a canned identity or error.
type stubVerifier struct {
	identity lodging.Identity
	err      error
}

func (v *stubVerifier) Verify(_ context.Context, _ string) (lodging.Identity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}
