package accounts

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

type fakeSession struct {
	account *models.Account
	closed  bool
}

func (s *fakeSession) Account() *models.Account { return s.account }
func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	return nil
}
func (s *fakeSession) LoggedOut(ctx context.Context) (bool, error) { return false, nil }
func (s *fakeSession) Extract(ctx context.Context) (*models.LeadProfile, error) {
	return nil, nil
}
func (s *fakeSession) Close() { s.closed = true }

// fakeFactory authenticates accounts by email membership in the good set.
type fakeFactory struct {
	good     map[string]bool
	attempts []string
}

func (f *fakeFactory) NewSession(ctx context.Context, account *models.Account) (interfaces.Session, *interfaces.AuthResult, error) {
	f.attempts = append(f.attempts, account.Email)
	if !f.good[account.Email] {
		return nil, nil, errors.New("authentication failed")
	}
	return &fakeSession{account: account}, &interfaces.AuthResult{
		Method:           interfaces.AuthMethodCookies,
		Attempts:         1,
		RefreshedCookies: []models.Cookie{{Name: "li_at", Value: "fresh"}},
	}, nil
}

type fakeRecorder struct {
	errored    []string
	cookiesFor []string
	increments map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{increments: make(map[string]int)}
}

func (r *fakeRecorder) MarkErrored(ctx context.Context, email string) error {
	r.errored = append(r.errored, email)
	return nil
}

func (r *fakeRecorder) UpdateCookies(ctx context.Context, email string, cookies []models.Cookie) error {
	r.cookiesFor = append(r.cookiesFor, email)
	return nil
}

func (r *fakeRecorder) IncrementLoginAttempts(ctx context.Context, email string, delta int) error {
	r.increments[email] += delta
	return nil
}

func testAccounts(emails ...string) []*models.Account {
	accounts := make([]*models.Account, len(emails))
	for i, email := range emails {
		accounts[i] = &models.Account{Email: email, Status: models.AccountStatusActive}
	}
	return accounts
}

func TestAcquire_Success(t *testing.T) {
	factory := &fakeFactory{good: map[string]bool{"a@example.com": true}}
	recorder := newFakeRecorder()
	mgr := NewManager(testAccounts("a@example.com"), factory, recorder, 5, rand.New(rand.NewSource(1)), arbor.NewLogger())

	session, err := mgr.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "a@example.com", session.Account().Email)
	assert.Equal(t, 0, mgr.Remaining())
	assert.Equal(t, 1, recorder.increments["a@example.com"])
	assert.Equal(t, []string{"a@example.com"}, recorder.cookiesFor)
	assert.Empty(t, recorder.errored)
}

func TestAcquire_FailoverMarksErrored(t *testing.T) {
	factory := &fakeFactory{good: map[string]bool{"good@example.com": true}}
	recorder := newFakeRecorder()
	pool := testAccounts("bad1@example.com", "bad2@example.com", "good@example.com")
	mgr := NewManager(pool, factory, recorder, 5, rand.New(rand.NewSource(7)), arbor.NewLogger())

	session, err := mgr.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "good@example.com", session.Account().Email)

	// Every failed draw is errored, the winner is not.
	assert.NotContains(t, recorder.errored, "good@example.com")
	assert.Len(t, recorder.errored, len(factory.attempts)-1)
}

func TestAcquire_PoolExhausted(t *testing.T) {
	factory := &fakeFactory{good: map[string]bool{}}
	recorder := newFakeRecorder()
	mgr := NewManager(testAccounts("bad1@example.com", "bad2@example.com"), factory, recorder, 5, rand.New(rand.NewSource(1)), arbor.NewLogger())

	_, err := mgr.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.Equal(t, 0, mgr.Remaining())
	assert.Len(t, recorder.errored, 2)
}

func TestAcquire_AttemptBudget(t *testing.T) {
	factory := &fakeFactory{good: map[string]bool{}}
	recorder := newFakeRecorder()
	pool := testAccounts("a@x.com", "b@x.com", "c@x.com", "d@x.com")
	mgr := NewManager(pool, factory, recorder, 2, rand.New(rand.NewSource(1)), arbor.NewLogger())

	_, err := mgr.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Len(t, factory.attempts, 2)
	assert.Equal(t, 2, mgr.Remaining())
}

func TestAcquire_NeverRepeatsAccount(t *testing.T) {
	factory := &fakeFactory{good: map[string]bool{}}
	recorder := newFakeRecorder()
	pool := testAccounts("a@x.com", "b@x.com", "c@x.com")
	mgr := NewManager(pool, factory, recorder, 10, rand.New(rand.NewSource(42)), arbor.NewLogger())

	_, err := mgr.Acquire(context.Background())
	require.Error(t, err)

	seen := make(map[string]bool)
	for _, email := range factory.attempts {
		assert.False(t, seen[email], "account %s drawn twice", email)
		seen[email] = true
	}
}

func TestDiscard_ClosesWithoutPenalty(t *testing.T) {
	recorder := newFakeRecorder()
	mgr := NewManager(nil, &fakeFactory{}, recorder, 5, nil, arbor.NewLogger())

	session := &fakeSession{account: &models.Account{Email: "a@example.com"}}
	mgr.Discard(session)

	assert.True(t, session.closed)
	assert.Empty(t, recorder.errored)
	assert.Empty(t, recorder.increments)
}

func TestAcquire_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mgr := NewManager(testAccounts("a@x.com"), &fakeFactory{good: map[string]bool{"a@x.com": true}}, newFakeRecorder(), 5, nil, arbor.NewLogger())
	_, err := mgr.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
