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

// ProfileStorage implements the ProfileStorage interface for Badger
type ProfileStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewProfileStorage creates a new ProfileStorage instance
func NewProfileStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ProfileStorage {
	return &ProfileStorage{
		db:     db,
		logger: logger,
	}
}

// SaveProfile upserts an extracted profile keyed by lead ID, so re-scraping
// a lead replaces the previous capture.
func (s *ProfileStorage) SaveProfile(ctx context.Context, profile *models.LeadProfile) error {
	if profile.LeadID == "" {
		return fmt.Errorf("profile lead ID is required")
	}
	if profile.CapturedAt.IsZero() {
		profile.CapturedAt = time.Now()
	}
	if err := s.db.Store().Upsert(profile.LeadID, profile); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	return nil
}

func (s *ProfileStorage) GetProfile(ctx context.Context, leadID string) (*models.LeadProfile, error) {
	var profile models.LeadProfile
	if err := s.db.Store().Get(leadID, &profile); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("profile not found: %s", leadID)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}
