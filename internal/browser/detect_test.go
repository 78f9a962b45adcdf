package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/venator/internal/common"
)

func testPortal() *common.PortalConfig {
	portal := common.DefaultConfig().Portal
	return &portal
}

func TestLoggedOutURL(t *testing.T) {
	portal := testPortal()

	assert.True(t, LoggedOutURL("https://www.linkedin.com/login?session_redirect=x", portal))
	assert.True(t, LoggedOutURL("https://www.linkedin.com/checkpoint/challenge/abc", portal))
	assert.False(t, LoggedOutURL("https://www.linkedin.com/feed/", portal))
	assert.False(t, LoggedOutURL("https://www.linkedin.com/in/jane-doe", portal))
}

func TestDetectLoggedOut_CredentialForm(t *testing.T) {
	portal := testPortal()

	loginPage := `<html><body><form><input id="username" name="session_key"/><input id="password" type="password"/></form></body></html>`
	assert.True(t, DetectLoggedOut("https://www.linkedin.com/in/jane-doe", loginPage, portal),
		"a credential form on a profile URL means the session is gone")

	profilePage := `<html><body><main><h1>Jane Doe</h1></main></body></html>`
	assert.False(t, DetectLoggedOut("https://www.linkedin.com/in/jane-doe", profilePage, portal))
}

func TestDetectLoggedOut_EmptyHTML(t *testing.T) {
	portal := testPortal()
	assert.False(t, DetectLoggedOut("https://www.linkedin.com/in/jane-doe", "", portal))
	assert.True(t, DetectLoggedOut("https://www.linkedin.com/login", "", portal))
}
