package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

func testDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "venator-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLeadStorage_SaveAndGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	lead := &models.Lead{
		ID:         "jane-doe",
		ProfileURL: "https://www.linkedin.com/in/jane-doe",
		OwnerID:    "owner-1",
	}
	require.NoError(t, db.LeadStorage().SaveLead(ctx, lead))

	got, err := db.LeadStorage().GetLead(ctx, "jane-doe")
	require.NoError(t, err)
	assert.Equal(t, lead.ProfileURL, got.ProfileURL)
	assert.False(t, got.CreatedAt.IsZero(), "created timestamp is stamped on save")

	_, err = db.LeadStorage().GetLead(ctx, "missing")
	assert.Error(t, err)
}

func TestLeadStorage_PendingQueue(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.LeadStorage().SaveLead(ctx, &models.Lead{
			ID:         fmt.Sprintf("lead-%d", i),
			ProfileURL: fmt.Sprintf("https://www.linkedin.com/in/lead-%d", i),
			OwnerID:    "owner-1",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, db.LeadStorage().SaveLead(ctx, &models.Lead{
		ID:         "other-owner",
		ProfileURL: "https://www.linkedin.com/in/other-owner",
		OwnerID:    "owner-2",
		CreatedAt:  base.Add(-time.Minute),
	}))

	count, err := db.LeadStorage().PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	oldest, err := db.LeadStorage().OldestPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.Equal(t, "other-owner", oldest.ID, "the queue is globally ordered by creation time")

	batch, err := db.LeadStorage().PendingBatch(ctx, "owner-1", 3)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "lead-0", batch[0].ID, "batches come oldest first")
	for _, lead := range batch {
		assert.Equal(t, "owner-1", lead.OwnerID)
	}
}

func TestLeadStorage_MarkFulfilled(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.LeadStorage().SaveLead(ctx, &models.Lead{
		ID:         "jane-doe",
		ProfileURL: "https://www.linkedin.com/in/jane-doe",
		OwnerID:    "owner-1",
	}))

	require.NoError(t, db.LeadStorage().MarkFulfilled(ctx, "jane-doe"))
	got, err := db.LeadStorage().GetLead(ctx, "jane-doe")
	require.NoError(t, err)
	assert.True(t, got.Fulfilled)
	require.NotNil(t, got.FulfilledAt)

	// Idempotent: repeating and unknown IDs are no-ops, not errors.
	require.NoError(t, db.LeadStorage().MarkFulfilled(ctx, "jane-doe"))
	require.NoError(t, db.LeadStorage().MarkFulfilled(ctx, "never-seen"))

	count, err := db.LeadStorage().PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAccountStorage_Lifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	account := &models.Account{
		Email:    "a@example.com",
		Password: "secret",
		OwnerID:  "owner-1",
	}
	require.NoError(t, db.AccountStorage().SaveAccount(ctx, account))
	assert.Equal(t, models.AccountStatusActive, account.Status, "status defaults to active")

	require.NoError(t, db.AccountStorage().IncrementLoginAttempts(ctx, "a@example.com", 2))
	require.NoError(t, db.AccountStorage().UpdateCookies(ctx, "a@example.com", []models.Cookie{{Name: "li_at", Value: "tok"}}))

	got, err := db.AccountStorage().GetAccount(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, got.LoginAttempts)
	require.Len(t, got.Cookies, 1)

	require.NoError(t, db.AccountStorage().MarkErrored(ctx, "a@example.com"))
	got, err = db.AccountStorage().GetAccount(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusErrored, got.Status)
	assert.False(t, got.Eligible())

	assert.Error(t, db.AccountStorage().MarkErrored(ctx, "missing@example.com"))
}

func TestAccountStorage_EligibleAccounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	seed := []models.Account{
		{Email: "old@example.com", OwnerID: "owner-1", Status: models.AccountStatusActive, CreatedAt: base},
		{Email: "new@example.com", OwnerID: "owner-1", Status: models.AccountStatusTemp, CreatedAt: base.Add(time.Minute)},
		{Email: "dead@example.com", OwnerID: "owner-1", Status: models.AccountStatusErrored, CreatedAt: base.Add(2 * time.Minute)},
		{Email: "foreign@example.com", OwnerID: "owner-2", Status: models.AccountStatusActive, CreatedAt: base},
	}
	for i := range seed {
		require.NoError(t, db.AccountStorage().SaveAccount(ctx, &seed[i]))
	}

	eligible, err := db.AccountStorage().EligibleAccounts(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "new@example.com", eligible[0].Email, "newest first")
	assert.Equal(t, "old@example.com", eligible[1].Email)
}

func TestProfileStorage_Upsert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	profile := &models.LeadProfile{
		LeadID:     "jane-doe",
		ProfileURL: "https://www.linkedin.com/in/jane-doe",
		Name:       "Jane Doe",
	}
	require.NoError(t, db.ProfileStorage().SaveProfile(ctx, profile))
	assert.False(t, profile.CapturedAt.IsZero())

	// Re-scraping replaces the previous capture.
	updated := &models.LeadProfile{
		LeadID:     "jane-doe",
		ProfileURL: "https://www.linkedin.com/in/jane-doe",
		Name:       "Jane A. Doe",
	}
	require.NoError(t, db.ProfileStorage().SaveProfile(ctx, updated))

	got, err := db.ProfileStorage().GetProfile(ctx, "jane-doe")
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", got.Name)

	_, err = db.ProfileStorage().GetProfile(ctx, "missing")
	assert.Error(t, err)

	err = db.ProfileStorage().SaveProfile(ctx, &models.LeadProfile{Name: "No ID"})
	assert.Error(t, err)
}

func TestRunGC(t *testing.T) {
	db := testDB(t)
	assert.NoError(t, db.RunGC(), "an empty value log reports nothing to rewrite")
}
