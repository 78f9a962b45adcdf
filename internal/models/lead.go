package models

import (
	"net/url"
	"strings"
	"time"
)

// Lead is one unit of retrievable work: a profile URL waiting to be scraped.
// Created by the queue producer; the core mutates it only to record the
// terminal fulfilled outcome.
type Lead struct {
	ID          string     `json:"lead_id"`
	ProfileURL  string     `json:"profile_url"`
	OwnerID     string     `json:"owner_id"` // User the lead was collected for
	Tag         string     `json:"tag,omitempty"`
	Fulfilled   bool       `json:"fulfilled"`
	CreatedAt   time.Time  `json:"created_at"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
}

// LeadProfile is the structured record extracted from a profile page.
type LeadProfile struct {
	LeadID      string    `json:"lead_id"`
	ProfileURL  string    `json:"profile_url"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Headline    string    `json:"headline,omitempty"`
	Location    string    `json:"location,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Skills      []string  `json:"skills,omitempty"`
	Experience  string    `json:"experience,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
	CompanyURL  string    `json:"company_url,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

// LeadIDFromURL derives a stable lead identifier from a profile URL: the last
// non-empty path segment, lowercased. Returns "" for URLs with no usable path.
func LeadIDFromURL(profileURL string) string {
	u, err := url.Parse(profileURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return strings.ToLower(segments[i])
		}
	}
	return ""
}
