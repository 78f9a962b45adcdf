package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/venator/internal/common"
)

// DetectLoggedOut inspects a freshly navigated page for forced-logout
// indicators: a redirect onto a login/checkpoint URL, or a visible credential
// form in the rendered HTML. A positive result means the session was
// invalidated externally - it is never an identity failure.
func DetectLoggedOut(pageURL, html string, portal *common.PortalConfig) bool {
	if LoggedOutURL(pageURL, portal) {
		return true
	}
	return hasCredentialForm(html, portal)
}

// LoggedOutURL reports whether the URL sits under one of the configured
// logout/checkpoint prefixes.
func LoggedOutURL(pageURL string, portal *common.PortalConfig) bool {
	for _, prefix := range portal.LogoutURLPrefixes {
		if strings.HasPrefix(pageURL, prefix) {
			return true
		}
	}
	return false
}

func hasCredentialForm(html string, portal *common.PortalConfig) bool {
	if html == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(portal.UsernameSelector).Length() > 0 ||
		doc.Find(portal.PasswordSelector).Length() > 0
}
