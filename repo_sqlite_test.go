package lodging_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	lodging "github.com/goliatone/go-lodging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupSQLiteRepoManager(t *testing.T) lodging.RepositoryManager {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	ctx := context.Background()
	models := []any{
		(*lodging.Account)(nil),
		(*lodging.Application)(nil),
		(*lodging.CommunicationEntry)(nil),
	}
	for _, model := range models {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		require.NoError(t, err)
	}

	repo := lodging.NewRepositoryManager(db)
	repo.MustValidate()
	return repo
}

func TestApplicationsConcurrentAppendsBothSurvive(t *testing.T) {
	repo := setupSQLiteRepoManager(t)
	ctx := context.Background()

	account, err := repo.Accounts().Register(ctx, &lodging.Account{
		SubjectID: "firebase-uid-race",
		Email:     "applicant@example.com",
		Name:      "Applicant",
	})
	require.NoError(t, err)

	sm := lodging.NewApplicationStateMachine(repo)
	applicant := lodging.ActorRef{ID: account.SubjectID, Role: lodging.RoleUser}

	_, err = sm.Submit(ctx, applicant, account.ID, lodging.ApplicationDetails{
		AccommodationType: "studio",
		Location:          "Utrecht",
	})
	require.NoError(t, err)

	messages := []string{"is there any news?", "decision is on its way"}
	errs := make([]error, len(messages))

	var wg sync.WaitGroup
	for i, msg := range messages {
		wg.Add(1)
		go func(i int, msg string) {
			defer wg.Done()
			_, errs[i] = sm.AppendMessage(ctx, applicant, account.ID, msg)
		}(i, msg)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	app, err := repo.Applications().GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, app.Log, 2)

	got := []string{app.Log[0].Message, app.Log[1].Message}
	assert.ElementsMatch(t, messages, got)
}

func TestApplicationsRacingSubmitsMapToDuplicate(t *testing.T) {
	repo := setupSQLiteRepoManager(t)
	ctx := context.Background()
	accountID := uuid.New()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Applications().Submit(ctx, &lodging.Application{
				AccountID:         accountID,
				AccommodationType: "room",
				Location:          "Delft",
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.True(t, lodging.HasTextCode(err, "DUPLICATE_APPLICATION"), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, failures)

	app, err := repo.Applications().GetByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, lodging.StatusPending, app.Status)
}

func TestAccountsRegisterDuplicateEmailMapsToConflict(t *testing.T) {
	repo := setupSQLiteRepoManager(t)
	ctx := context.Background()

	_, err := repo.Accounts().Register(ctx, &lodging.Account{
		SubjectID: "firebase-uid-one",
		Email:     "shared@example.com",
	})
	require.NoError(t, err)

	// A distinct subject sails past the existence check; the unique email
	// column is what rejects the insert.
	_, err = repo.Accounts().Register(ctx, &lodging.Account{
		SubjectID: "firebase-uid-two",
		Email:     "shared@example.com",
	})
	require.Error(t, err)
	assert.True(t, lodging.HasTextCode(err, "DUPLICATE_ACCOUNT"))
}
