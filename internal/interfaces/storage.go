package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// LeadStorage is the persistent work queue of profile URLs awaiting scraping
type LeadStorage interface {
	SaveLead(ctx context.Context, lead *models.Lead) error
	GetLead(ctx context.Context, id string) (*models.Lead, error)

	// PendingCount returns the number of unfulfilled leads across all owners
	PendingCount(ctx context.Context) (int, error)

	// OldestPending returns the earliest-created unfulfilled lead, or nil
	// when the queue is drained
	OldestPending(ctx context.Context) (*models.Lead, error)

	// PendingBatch returns up to limit unfulfilled leads for one owner,
	// oldest first
	PendingBatch(ctx context.Context, ownerID string, limit int) ([]*models.Lead, error)

	// MarkFulfilled records the terminal outcome for a lead. Idempotent:
	// marking an already-fulfilled or unknown lead is not an error.
	MarkFulfilled(ctx context.Context, id string) error
}

// AccountStorage persists scraping accounts and their health status
type AccountStorage interface {
	SaveAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]*models.Account, error)

	// EligibleAccounts returns accounts with status active or temp for one
	// owner, most recently created first
	EligibleAccounts(ctx context.Context, ownerID string) ([]*models.Account, error)

	AccountRecorder
}

// AccountRecorder is the narrow write surface the account-session lifecycle
// needs. Inside a worker process it is implemented by a message-emitting
// proxy; the scheduler applies the writes to the real store.
type AccountRecorder interface {
	// MarkErrored transitions an account to errored after a total
	// authentication failure
	MarkErrored(ctx context.Context, email string) error

	// UpdateCookies persists refreshed session cookies (best-effort)
	UpdateCookies(ctx context.Context, email string, cookies []models.Cookie) error

	// IncrementLoginAttempts bumps the login counter (best-effort)
	IncrementLoginAttempts(ctx context.Context, email string, delta int) error
}

// ProfileStorage persists extracted profile records
type ProfileStorage interface {
	SaveProfile(ctx context.Context, profile *models.LeadProfile) error
	GetProfile(ctx context.Context, leadID string) (*models.LeadProfile, error)
}

// StorageManager aggregates the storage implementations and owns the
// underlying database connection
type StorageManager interface {
	LeadStorage() LeadStorage
	AccountStorage() AccountStorage
	ProfileStorage() ProfileStorage

	// RunGC runs one value-log garbage collection pass
	RunGC() error

	Close() error
}
