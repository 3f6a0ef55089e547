package lodging_test

import (
	"testing"

	lodging "github.com/goliatone/go-lodging"
	"github.com/stretchr/testify/assert"
)

func TestAccountIsAdmin(t *testing.T) {
	assert.True(t, (&lodging.Account{Role: lodging.RoleAdmin}).IsAdmin())
	assert.False(t, (&lodging.Account{Role: lodging.RoleUser}).IsAdmin())
	assert.False(t, (&lodging.Account{}).IsAdmin())
}

func TestAccountEnsureRoleDefaultsToUser(t *testing.T) {
	account := &lodging.Account{}
	account.EnsureRole()
	assert.Equal(t, lodging.RoleUser, account.Role)

	account.Role = lodging.RoleAdmin
	account.EnsureRole()
	assert.Equal(t, lodging.RoleAdmin, account.Role)
}

func TestApplicationEnsureStatusDefaultsToPending(t *testing.T) {
	app := &lodging.Application{}
	app.EnsureStatus()
	assert.Equal(t, lodging.StatusPending, app.Status)
}

func TestApplicationIsTerminal(t *testing.T) {
	assert.False(t, (&lodging.Application{Status: lodging.StatusPending}).IsTerminal())
	assert.True(t, (&lodging.Application{Status: lodging.StatusAccepted}).IsTerminal())
	assert.True(t, (&lodging.Application{Status: lodging.StatusDenied}).IsTerminal())
}

func TestParseRole(t *testing.T) {
	role, ok := lodging.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, lodging.RoleAdmin, role)

	_, ok = lodging.ParseRole("superuser")
	assert.False(t, ok)
}

func TestIsDecisionStatus(t *testing.T) {
	assert.True(t, lodging.IsDecisionStatus(lodging.StatusAccepted))
	assert.True(t, lodging.IsDecisionStatus(lodging.StatusDenied))
	assert.False(t, lodging.IsDecisionStatus(lodging.StatusPending))
	assert.False(t, lodging.IsDecisionStatus(lodging.ApplicationStatus("archived")))
}
