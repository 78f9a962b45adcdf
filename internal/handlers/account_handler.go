package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// AccountHandler manages scraping accounts over HTTP. Responses never echo
// passwords or cookie jars; only health metadata leaves the service.
type AccountHandler struct {
	accounts interfaces.AccountStorage
	logger   arbor.ILogger
}

func NewAccountHandler(accounts interfaces.AccountStorage, logger arbor.ILogger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

type createAccountRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=1"`
	OwnerID  string          `json:"owner_id" validate:"required"`
	Cookies  []models.Cookie `json:"cookies,omitempty"`
}

// accountView is the sanitized representation returned by the API.
type accountView struct {
	Email         string    `json:"email"`
	OwnerID       string    `json:"owner_id"`
	Status        string    `json:"status"`
	LoginAttempts int       `json:"login_attempts"`
	HasCookies    bool      `json:"has_cookies"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func sanitize(account *models.Account) accountView {
	return accountView{
		Email:         account.Email,
		OwnerID:       account.OwnerID,
		Status:        string(account.Status),
		LoginAttempts: account.LoginAttempts,
		HasCookies:    len(account.Cookies) > 0,
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
	}
}

// AccountsHandler dispatches /api/accounts by method: POST registers an
// account, GET lists them.
func (h *AccountHandler) AccountsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createAccount(w, r)
	case http.MethodGet:
		h.listAccounts(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *AccountHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := DecodeAndValidate(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	account := &models.Account{
		Email:    req.Email,
		Password: req.Password,
		OwnerID:  req.OwnerID,
		Cookies:  req.Cookies,
		Status:   models.AccountStatusActive,
	}
	if err := h.accounts.SaveAccount(r.Context(), account); err != nil {
		h.logger.Error().Err(err).Str("account", req.Email).Msg("Failed to save account")
		WriteError(w, http.StatusInternalServerError, "failed to save account")
		return
	}

	h.logger.Info().
		Str("account", req.Email).
		Str("owner_id", req.OwnerID).
		Bool("with_cookies", len(req.Cookies) > 0).
		Msg("Account registered")
	WriteJSON(w, http.StatusCreated, sanitize(account))
}

func (h *AccountHandler) listAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	accounts, err := h.accounts.ListAccounts(r.Context(), ownerID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	views := make([]accountView, len(accounts))
	for i, account := range accounts {
		views[i] = sanitize(account)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": views,
		"count":    len(views),
	})
}
