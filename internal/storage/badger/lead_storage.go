package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// LeadStorage implements the LeadStorage interface for Badger
type LeadStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLeadStorage creates a new LeadStorage instance
func NewLeadStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LeadStorage {
	return &LeadStorage{
		db:     db,
		logger: logger,
	}
}

func (s *LeadStorage) SaveLead(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		return fmt.Errorf("lead ID is required")
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	if err := s.db.Store().Upsert(lead.ID, lead); err != nil {
		return fmt.Errorf("failed to store lead: %w", err)
	}
	return nil
}

func (s *LeadStorage) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.Store().Get(id, &lead); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("lead not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &lead, nil
}

func (s *LeadStorage) PendingCount(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Lead{}, badgerhold.Where("Fulfilled").Eq(false))
	if err != nil {
		return 0, fmt.Errorf("failed to count pending leads: %w", err)
	}
	return int(count), nil
}

func (s *LeadStorage) OldestPending(ctx context.Context) (*models.Lead, error) {
	var leads []models.Lead
	query := badgerhold.Where("Fulfilled").Eq(false).SortBy("CreatedAt").Limit(1)
	if err := s.db.Store().Find(&leads, query); err != nil {
		return nil, fmt.Errorf("failed to probe pending leads: %w", err)
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

func (s *LeadStorage) PendingBatch(ctx context.Context, ownerID string, limit int) ([]*models.Lead, error) {
	var leads []models.Lead
	query := badgerhold.Where("Fulfilled").Eq(false).And("OwnerID").Eq(ownerID).SortBy("CreatedAt").Limit(limit)
	if err := s.db.Store().Find(&leads, query); err != nil {
		return nil, fmt.Errorf("failed to fetch pending batch: %w", err)
	}
	result := make([]*models.Lead, len(leads))
	for i := range leads {
		result[i] = &leads[i]
	}
	return result, nil
}

// MarkFulfilled is idempotent: marking an already-fulfilled lead is a no-op
// and a missing lead is logged, not an error, so reprocessing stays safe.
func (s *LeadStorage) MarkFulfilled(ctx context.Context, id string) error {
	var lead models.Lead
	if err := s.db.Store().Get(id, &lead); err != nil {
		if err == badgerhold.ErrNotFound {
			s.logger.Warn().Str("lead_id", id).Msg("Cannot mark unknown lead fulfilled")
			return nil
		}
		return fmt.Errorf("failed to load lead for fulfillment: %w", err)
	}
	if lead.Fulfilled {
		return nil
	}
	now := time.Now()
	lead.Fulfilled = true
	lead.FulfilledAt = &now
	if err := s.db.Store().Update(id, &lead); err != nil {
		return fmt.Errorf("failed to mark lead fulfilled: %w", err)
	}
	return nil
}
