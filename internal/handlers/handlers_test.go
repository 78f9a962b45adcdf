package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/scheduler"
)

type memLeadStore struct {
	leads map[string]*models.Lead
}

func newMemLeadStore() *memLeadStore {
	return &memLeadStore{leads: make(map[string]*models.Lead)}
}

func (s *memLeadStore) SaveLead(ctx context.Context, lead *models.Lead) error {
	s.leads[lead.ID] = lead
	return nil
}

func (s *memLeadStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	lead, ok := s.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead not found: %s", id)
	}
	return lead, nil
}

func (s *memLeadStore) PendingCount(ctx context.Context) (int, error) {
	count := 0
	for _, lead := range s.leads {
		if !lead.Fulfilled {
			count++
		}
	}
	return count, nil
}

func (s *memLeadStore) OldestPending(ctx context.Context) (*models.Lead, error) { return nil, nil }
func (s *memLeadStore) PendingBatch(ctx context.Context, ownerID string, limit int) ([]*models.Lead, error) {
	return nil, nil
}
func (s *memLeadStore) MarkFulfilled(ctx context.Context, id string) error { return nil }

type memProfileStore struct {
	profiles map[string]*models.LeadProfile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[string]*models.LeadProfile)}
}

func (s *memProfileStore) SaveProfile(ctx context.Context, profile *models.LeadProfile) error {
	s.profiles[profile.LeadID] = profile
	return nil
}

func (s *memProfileStore) GetProfile(ctx context.Context, leadID string) (*models.LeadProfile, error) {
	profile, ok := s.profiles[leadID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %s", leadID)
	}
	return profile, nil
}

type memAccountStore struct {
	accounts map[string]*models.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: make(map[string]*models.Account)}
}

func (s *memAccountStore) SaveAccount(ctx context.Context, account *models.Account) error {
	s.accounts[account.Email] = account
	return nil
}

func (s *memAccountStore) GetAccount(ctx context.Context, email string) (*models.Account, error) {
	account, ok := s.accounts[email]
	if !ok {
		return nil, fmt.Errorf("account not found: %s", email)
	}
	return account, nil
}

func (s *memAccountStore) ListAccounts(ctx context.Context, ownerID string) ([]*models.Account, error) {
	var result []*models.Account
	for _, account := range s.accounts {
		if ownerID == "" || account.OwnerID == ownerID {
			result = append(result, account)
		}
	}
	return result, nil
}

func (s *memAccountStore) EligibleAccounts(ctx context.Context, ownerID string) ([]*models.Account, error) {
	return nil, nil
}
func (s *memAccountStore) MarkErrored(ctx context.Context, email string) error { return nil }
func (s *memAccountStore) UpdateCookies(ctx context.Context, email string, cookies []models.Cookie) error {
	return nil
}
func (s *memAccountStore) IncrementLoginAttempts(ctx context.Context, email string, delta int) error {
	return nil
}

type stubDispatcher struct {
	job *models.Job
	err error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, ownerID string, auto bool) (*models.Job, error) {
	return d.job, d.err
}

func TestLeadsHandler_CreateBatch(t *testing.T) {
	leads := newMemLeadStore()
	handler := NewLeadHandler(leads, newMemProfileStore(), arbor.NewLogger())

	body := `{"owner_id":"owner-1","tag":"q3","urls":["https://www.linkedin.com/in/jane-doe","https://www.linkedin.com/in/John-Smith/","https://www.linkedin.com/"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.LeadsHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Created  int      `json:"created"`
		Rejected []string `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Created)
	assert.Len(t, resp.Rejected, 1, "a URL without a path segment is rejected per-item")

	lead, ok := leads.leads["john-smith"]
	require.True(t, ok, "lead IDs are derived lowercase from the URL")
	assert.Equal(t, "owner-1", lead.OwnerID)
	assert.Equal(t, "q3", lead.Tag)
}

func TestLeadsHandler_ValidationFailure(t *testing.T) {
	handler := NewLeadHandler(newMemLeadStore(), newMemProfileStore(), arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{"owner_id":"owner-1","urls":[]}`))
	rec := httptest.NewRecorder()
	handler.LeadsHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{"urls":["https://x.com/in/a"]}`))
	rec = httptest.NewRecorder()
	handler.LeadsHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "owner_id is required")
}

func TestLeadDetailHandler(t *testing.T) {
	leads := newMemLeadStore()
	profiles := newMemProfileStore()
	handler := NewLeadHandler(leads, profiles, arbor.NewLogger())

	leads.SaveLead(context.Background(), &models.Lead{ID: "jane-doe", ProfileURL: "https://www.linkedin.com/in/jane-doe"})
	profiles.SaveProfile(context.Background(), &models.LeadProfile{LeadID: "jane-doe", Name: "Jane Doe"})

	req := httptest.NewRequest(http.MethodGet, "/api/leads/jane-doe", nil)
	rec := httptest.NewRecorder()
	handler.LeadDetailHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "lead")
	assert.Contains(t, resp, "profile")

	req = httptest.NewRequest(http.MethodGet, "/api/leads/unknown", nil)
	rec = httptest.NewRecorder()
	handler.LeadDetailHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountsHandler_CreateNeverEchoesSecrets(t *testing.T) {
	accounts := newMemAccountStore()
	handler := NewAccountHandler(accounts, arbor.NewLogger())

	body := `{"email":"a@example.com","password":"hunter2","owner_id":"owner-1","cookies":[{"name":"li_at","value":"tok","domain":".linkedin.com"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.AccountsHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	raw := rec.Body.String()
	assert.NotContains(t, raw, "hunter2")
	assert.NotContains(t, raw, "li_at")
	assert.Contains(t, raw, `"has_cookies":true`)

	stored, ok := accounts.accounts["a@example.com"]
	require.True(t, ok)
	assert.Equal(t, "hunter2", stored.Password, "the store keeps the real credentials")
}

func TestAccountsHandler_Validation(t *testing.T) {
	handler := NewAccountHandler(newMemAccountStore(), arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader(`{"email":"not-an-email","password":"x","owner_id":"o"}`))
	rec := httptest.NewRecorder()
	handler.AccountsHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountsHandler_List(t *testing.T) {
	accounts := newMemAccountStore()
	accounts.SaveAccount(context.Background(), &models.Account{Email: "a@example.com", Password: "secret", OwnerID: "owner-1", Status: models.AccountStatusActive})
	handler := NewAccountHandler(accounts, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/accounts?owner_id=owner-1", nil)
	rec := httptest.NewRecorder()
	handler.AccountsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestJobHandlers(t *testing.T) {
	registry := scheduler.NewRegistry()
	job := models.NewJob("owner-1", 10, false)
	registry.Add(job)
	handler := NewJobHandler(registry, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	handler.ListJobsHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), job.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
	rec = httptest.NewRecorder()
	handler.JobDetailHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/job_unknown", nil)
	rec = httptest.NewRecorder()
	handler.JobDetailHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScrapeHandler_Accepted(t *testing.T) {
	job := models.NewJob("owner-1", 5, false)
	handler := NewScrapeHandler(&stubDispatcher{job: job}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"owner_id":"owner-1"}`))
	rec := httptest.NewRecorder()
	handler.TriggerHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), job.ID)
}

func TestScrapeHandler_EmptyBodyAllowed(t *testing.T) {
	handler := NewScrapeHandler(&stubDispatcher{job: models.NewJob("owner-1", 1, false)}, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", nil)
	rec := httptest.NewRecorder()
	handler.TriggerHandler(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestScrapeHandler_Conflicts(t *testing.T) {
	busy := NewScrapeHandler(&stubDispatcher{err: scheduler.ErrWorkerBusy}, arbor.NewLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", nil)
	rec := httptest.NewRecorder()
	busy.TriggerHandler(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	idle := NewScrapeHandler(&stubDispatcher{err: scheduler.ErrNothingToDo}, arbor.NewLogger())
	rec = httptest.NewRecorder()
	idle.TriggerHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scrape", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMethodGuards(t *testing.T) {
	handler := NewScrapeHandler(&stubDispatcher{}, arbor.NewLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/scrape", nil)
	rec := httptest.NewRecorder()
	handler.TriggerHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
