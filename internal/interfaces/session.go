package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// Authentication methods recorded by the session executor
const (
	AuthMethodCookies = "cookies"
	AuthMethodManual  = "manual"
)

// AuthResult describes a successful authentication: which stage succeeded,
// how many stages were attempted, and the refreshed cookie jar.
type AuthResult struct {
	Method           string
	Attempts         int
	RefreshedCookies []models.Cookie
}

// Session is an ephemeral binding between one account and one authenticated
// browser context. It exists only while leased; Close releases the browser
// context unconditionally.
type Session interface {
	// Account returns the identity this session authenticated as
	Account() *models.Account

	// Navigate loads the target page
	Navigate(ctx context.Context, url string) error

	// LoggedOut inspects the current page for forced-logout indicators:
	// a login/checkpoint URL or a visible credential form
	LoggedOut(ctx context.Context) (bool, error)

	// Extract parses the current page into a profile record. A nil record
	// with nil error means nothing was found (counts as failure upstream).
	Extract(ctx context.Context) (*models.LeadProfile, error)

	Close()
}

// SessionFactory produces authenticated sessions. The browser engine is the
// production implementation; tests substitute fakes.
type SessionFactory interface {
	// NewSession runs the two-stage hybrid authentication (cookies first,
	// credential form fallback, one attempt each) for the given account.
	// On failure the browser context is already released.
	NewSession(ctx context.Context, account *models.Account) (Session, *AuthResult, error)
}
