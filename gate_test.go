package lodging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	lodging "github.com/goliatone/go-lodging"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func sessionFor(subject string) lodging.Session {
	now := time.Now()
	exp := now.Add(time.Hour)
	return &lodging.SessionObject{
		SubjectID:      subject,
		Email:          subject + "@example.com",
		IssuedAt:       &now,
		ExpirationDate: &exp,
	}
}

func TestGateAllowsPathsOutsidePrefix(t *testing.T) {
	accounts := &MockAccounts{}
	gate := lodging.NewGate(accountLookup(accounts))

	decision := gate.Decide(context.Background(), "/api/me", nil)
	assert.Equal(t, lodging.GateAllow, decision)
	accounts.AssertNotCalled(t, "GetBySubject")
}

func TestGateRedirectsToLoginWithoutSession(t *testing.T) {
	accounts := &MockAccounts{}
	gate := lodging.NewGate(accountLookup(accounts))

	decision := gate.Decide(context.Background(), "/admin/api/accounts", nil)
	assert.Equal(t, lodging.GateRedirectLogin, decision)
}

func TestGateRedirectsNonAdminAway(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("GetBySubject", mock.Anything, "user-1").
		Return(&lodging.Account{SubjectID: "user-1", Role: lodging.RoleUser}, nil).Once()

	gate := lodging.NewGate(accountLookup(accounts))

	decision := gate.Decide(context.Background(), "/admin", sessionFor("user-1"))
	assert.Equal(t, lodging.GateRedirectForbidden, decision)
	accounts.AssertExpectations(t)
}

func TestGateRedirectsUnknownAccountAway(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("GetBySubject", mock.Anything, "ghost").
		Return(nil, repository.NewRecordNotFound()).Once()

	gate := lodging.NewGate(accountLookup(accounts))

	decision := gate.Decide(context.Background(), "/admin", sessionFor("ghost"))
	assert.Equal(t, lodging.GateRedirectForbidden, decision)
	accounts.AssertExpectations(t)
}

func TestGateAdmitsAdmin(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("GetBySubject", mock.Anything, "boss").
		Return(&lodging.Account{SubjectID: "boss", Role: lodging.RoleAdmin}, nil).Once()

	gate := lodging.NewGate(accountLookup(accounts))

	decision := gate.Decide(context.Background(), "/admin/api/applications", sessionFor("boss"))
	assert.Equal(t, lodging.GateAllow, decision)
	accounts.AssertExpectations(t)
}

func TestGateFailsClosedOnLookupError(t *testing.T) {
	accounts := &MockAccounts{}
	accounts.On("GetBySubject", mock.Anything, "boss").
		Return(nil, errors.New("connection refused")).Once()

	gate := lodging.NewGate(accountLookup(accounts))

	decision := gate.Decide(context.Background(), "/admin", sessionFor("boss"))
	assert.Equal(t, lodging.GateRedirectLogin, decision)
	accounts.AssertExpectations(t)
}

func TestGateCustomPrefix(t *testing.T) {
	accounts := &MockAccounts{}
	gate := lodging.NewGate(accountLookup(accounts), lodging.WithGatePrefix("/internal"))

	assert.True(t, gate.Protects("/internal/tools"))
	assert.False(t, gate.Protects("/admin"))
}

func accountLookup(accounts *MockAccounts) lodging.AccountLookup {
	return lodging.AccountLookupFunc(func(ctx context.Context, subject string) (*lodging.Account, error) {
		return accounts.GetBySubject(ctx, subject)
	})
}
