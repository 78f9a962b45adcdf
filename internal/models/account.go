package models

import (
	"time"
)

// AccountStatus represents the health status of a scraping account
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusTemp    AccountStatus = "temp"
	AccountStatusErrored AccountStatus = "errored"
)

// Cookie is a serializable browser cookie captured from an authenticated
// session and replayed on the next login attempt.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // Unix seconds, 0 = session cookie
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
	SameSite string  `json:"same_site,omitempty"` // "Strict", "Lax", "None"
}

// Expired reports whether the cookie carries an expiry in the past.
func (c Cookie) Expired(now time.Time) bool {
	return c.Expires > 0 && time.Unix(int64(c.Expires), 0).Before(now)
}

// Account is an identity capable of authenticating against the portal.
// Cookies are refreshed after every successful login; Status transitions to
// errored only when a full two-stage authentication attempt fails outright.
type Account struct {
	Email         string        `json:"email"` // Primary identifier
	Password      string        `json:"password"`
	Cookies       []Cookie      `json:"cookies,omitempty"`
	Status        AccountStatus `json:"status"`
	OwnerID       string        `json:"owner_id"` // User the account belongs to
	LoginAttempts int           `json:"login_attempts"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Eligible reports whether the account may be leased for a session.
func (a *Account) Eligible() bool {
	return a.Status == AccountStatusActive || a.Status == AccountStatusTemp
}
