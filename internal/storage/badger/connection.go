package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerDB manages the Badger database connection and implements
// interfaces.StorageManager
type BadgerDB struct {
	store    *badgerhold.Store
	logger   arbor.ILogger
	config   *common.BadgerConfig
	leads    interfaces.LeadStorage
	accounts interfaces.AccountStorage
	profiles interfaces.ProfileStorage
}

// NewBadgerDB creates a new Badger database connection
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	// If reset_on_startup is enabled, delete the existing database
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Opening Badger database connection")

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")

	db := &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}
	db.leads = NewLeadStorage(db, logger)
	db.accounts = NewAccountStorage(db, logger)
	db.profiles = NewProfileStorage(db, logger)
	return db, nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// LeadStorage returns the lead (work queue) storage
func (b *BadgerDB) LeadStorage() interfaces.LeadStorage {
	return b.leads
}

// AccountStorage returns the account storage
func (b *BadgerDB) AccountStorage() interfaces.AccountStorage {
	return b.accounts
}

// ProfileStorage returns the extracted-profile storage
func (b *BadgerDB) ProfileStorage() interfaces.ProfileStorage {
	return b.profiles
}

// RunGC runs one Badger value-log garbage collection pass. ErrNoRewrite
// means there was nothing to reclaim and is not an error.
func (b *BadgerDB) RunGC() error {
	err := b.store.Badger().RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
		return fmt.Errorf("value log GC failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
