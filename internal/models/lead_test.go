package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadIDFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain profile", "https://www.linkedin.com/in/jane-doe", "jane-doe"},
		{"trailing slash", "https://www.linkedin.com/in/jane-doe/", "jane-doe"},
		{"mixed case", "https://www.linkedin.com/in/Jane-Doe-123", "jane-doe-123"},
		{"query string ignored", "https://www.linkedin.com/in/jane-doe?utm=x", "jane-doe"},
		{"no path", "https://www.linkedin.com", ""},
		{"root only", "https://www.linkedin.com/", ""},
		{"unparseable", "://not-a-url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LeadIDFromURL(tt.url))
		})
	}
}
