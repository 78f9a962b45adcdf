package accounts

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// ErrPoolExhausted is returned when every account in the run pool has been
// drawn and none remain to lease.
var ErrPoolExhausted = errors.New("account pool exhausted")

// ErrNoSession is returned when the acquire attempt budget runs out before
// any account authenticates.
var ErrNoSession = errors.New("no session could be established")

// Manager implements the account-session lifecycle for one run. It holds the
// eligible pool handed over at start, draws accounts at random, and never
// offers the same account twice within the run.
type Manager struct {
	pool        []*models.Account
	factory     interfaces.SessionFactory
	recorder    interfaces.AccountRecorder
	maxAttempts int
	rng         *rand.Rand
	logger      arbor.ILogger
}

// NewManager builds a lifecycle manager over a snapshot of eligible accounts.
func NewManager(pool []*models.Account, factory interfaces.SessionFactory, recorder interfaces.AccountRecorder, maxAttempts int, rng *rand.Rand, logger arbor.ILogger) *Manager {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Manager{
		pool:        append([]*models.Account(nil), pool...),
		factory:     factory,
		recorder:    recorder,
		maxAttempts: maxAttempts,
		rng:         rng,
		logger:      logger,
	}
}

// Remaining reports how many accounts are still available to draw.
func (m *Manager) Remaining() int {
	return len(m.pool)
}

// Acquire leases the next working session. Accounts are drawn at random and
// removed from the pool regardless of outcome; an account that fails both
// authentication stages is marked errored. Returns ErrPoolExhausted when the
// pool drains, ErrNoSession when the attempt budget runs out first.
func (m *Manager) Acquire(ctx context.Context) (interfaces.Session, error) {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		account := m.draw()
		if account == nil {
			return nil, ErrPoolExhausted
		}

		m.logger.Info().
			Str("account", account.Email).
			Int("attempt", attempt).
			Int("remaining", len(m.pool)).
			Msg("Attempting account lease")

		session, auth, err := m.factory.NewSession(ctx, account)
		if err != nil {
			m.logger.Warn().
				Err(err).
				Str("account", account.Email).
				Msg("Account failed both authentication stages, marking errored")
			if recErr := m.recorder.MarkErrored(ctx, account.Email); recErr != nil {
				m.logger.Warn().Err(recErr).Str("account", account.Email).Msg("Failed to record account error")
			}
			continue
		}

		m.recordLease(ctx, account, auth)
		return session, nil
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrNoSession, m.maxAttempts)
}

// Discard releases a session without any account penalty. Used when the
// portal invalidates a session mid-run; the account stays eligible for
// future runs.
func (m *Manager) Discard(session interfaces.Session) {
	if session == nil {
		return
	}
	m.logger.Info().
		Str("account", session.Account().Email).
		Msg("Discarding session without penalty")
	session.Close()
}

// recordLease persists the bookkeeping of a successful lease: login attempt
// counters and the refreshed cookie jar. Both are best effort; a recording
// failure never invalidates the live session.
func (m *Manager) recordLease(ctx context.Context, account *models.Account, auth *interfaces.AuthResult) {
	if err := m.recorder.IncrementLoginAttempts(ctx, account.Email, auth.Attempts); err != nil {
		m.logger.Warn().Err(err).Str("account", account.Email).Msg("Failed to record login attempts")
	}
	if len(auth.RefreshedCookies) > 0 {
		if err := m.recorder.UpdateCookies(ctx, account.Email, auth.RefreshedCookies); err != nil {
			m.logger.Warn().Err(err).Str("account", account.Email).Msg("Failed to persist refreshed cookies")
		}
	}
}

// draw removes and returns one random account from the pool.
func (m *Manager) draw() *models.Account {
	if len(m.pool) == 0 {
		return nil
	}
	var i int
	if m.rng != nil {
		i = m.rng.Intn(len(m.pool))
	} else {
		i = rand.Intn(len(m.pool))
	}
	account := m.pool[i]
	m.pool[i] = m.pool[len(m.pool)-1]
	m.pool = m.pool[:len(m.pool)-1]
	return account
}
