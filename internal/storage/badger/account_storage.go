package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AccountStorage implements the AccountStorage interface for Badger
type AccountStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAccountStorage creates a new AccountStorage instance
func NewAccountStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AccountStorage {
	return &AccountStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AccountStorage) SaveAccount(ctx context.Context, account *models.Account) error {
	if account.Email == "" {
		return fmt.Errorf("account email is required")
	}
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	if account.Status == "" {
		account.Status = models.AccountStatusActive
	}
	if err := s.db.Store().Upsert(account.Email, account); err != nil {
		return fmt.Errorf("failed to store account: %w", err)
	}
	return nil
}

func (s *AccountStorage) GetAccount(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Store().Get(email, &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("account not found: %s", email)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *AccountStorage) ListAccounts(ctx context.Context, ownerID string) ([]*models.Account, error) {
	var accounts []models.Account
	var query *badgerhold.Query
	if ownerID != "" {
		query = badgerhold.Where("OwnerID").Eq(ownerID)
	}
	if err := s.db.Store().Find(&accounts, query); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	result := make([]*models.Account, len(accounts))
	for i := range accounts {
		result[i] = &accounts[i]
	}
	return result, nil
}

// EligibleAccounts returns active/temp accounts for the owner, newest first.
// Newer accounts are assumed less likely to be throttled already.
func (s *AccountStorage) EligibleAccounts(ctx context.Context, ownerID string) ([]*models.Account, error) {
	var accounts []models.Account
	query := badgerhold.Where("OwnerID").Eq(ownerID)
	if err := s.db.Store().Find(&accounts, query); err != nil {
		return nil, fmt.Errorf("failed to fetch eligible accounts: %w", err)
	}

	eligible := make([]*models.Account, 0, len(accounts))
	for i := range accounts {
		if accounts[i].Eligible() {
			eligible = append(eligible, &accounts[i])
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
	})
	return eligible, nil
}

func (s *AccountStorage) MarkErrored(ctx context.Context, email string) error {
	return s.update(email, func(account *models.Account) {
		account.Status = models.AccountStatusErrored
	})
}

func (s *AccountStorage) UpdateCookies(ctx context.Context, email string, cookies []models.Cookie) error {
	return s.update(email, func(account *models.Account) {
		account.Cookies = cookies
	})
}

func (s *AccountStorage) IncrementLoginAttempts(ctx context.Context, email string, delta int) error {
	return s.update(email, func(account *models.Account) {
		account.LoginAttempts += delta
	})
}

func (s *AccountStorage) update(email string, mutate func(*models.Account)) error {
	var account models.Account
	if err := s.db.Store().Get(email, &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("account not found: %s", email)
		}
		return fmt.Errorf("failed to load account: %w", err)
	}
	mutate(&account)
	account.UpdatedAt = time.Now()
	if err := s.db.Store().Update(email, &account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}
