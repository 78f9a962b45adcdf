package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// authenticate runs the two-stage hybrid login: stored cookies first, then the
// credential form. Each stage gets exactly one attempt; the first success
// wins. On success the refreshed cookie jar is captured for persistence.
func authenticate(ctx context.Context, browserCtx context.Context, account *models.Account, config *common.Config, logger arbor.ILogger) (*interfaces.AuthResult, error) {
	loginTimeout := common.ParseDurationOr(config.Worker.LoginTimeout, 90*time.Second)
	attempts := 0

	if len(usableCookies(account.Cookies)) > 0 {
		attempts++
		stageCtx, cancel := context.WithTimeout(browserCtx, loginTimeout)
		err := loginWithCookies(stageCtx, account, &config.Portal)
		cancel()
		if err == nil {
			return finishAuth(browserCtx, interfaces.AuthMethodCookies, attempts, &config.Portal, logger)
		}
		logger.Warn().
			Err(err).
			Str("account", account.Email).
			Msg("Cookie authentication failed, falling back to credential form")
	} else {
		logger.Debug().
			Str("account", account.Email).
			Msg("No usable stored cookies, going straight to credential form")
	}

	if account.Email == "" || account.Password == "" {
		return nil, fmt.Errorf("account %s has no credentials for form login", account.Email)
	}

	attempts++
	stageCtx, cancel := context.WithTimeout(browserCtx, loginTimeout)
	err := loginWithCredentials(stageCtx, account, &config.Portal)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("hybrid authentication exhausted for %s: %w", account.Email, err)
	}
	return finishAuth(browserCtx, interfaces.AuthMethodManual, attempts, &config.Portal, logger)
}

// loginWithCookies injects the stored cookie jar, loads the home page and
// verifies the portal kept us logged in.
func loginWithCookies(ctx context.Context, account *models.Account, portal *common.PortalConfig) error {
	cookies := usableCookies(account.Cookies)

	err := chromedp.Run(ctx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				param := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(network.CookieSameSite(c.SameSite))
				if c.Expires > 0 {
					exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
					param = param.WithExpires(&exp)
				}
				if err := param.Do(ctx); err != nil {
					return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}),
	)
	if err != nil {
		return err
	}

	if err := chromedp.Run(ctx,
		chromedp.Navigate(portal.HomeURL),
		chromedp.WaitReady("body"),
	); err != nil {
		return fmt.Errorf("home page navigation failed: %w", err)
	}

	return verifyLoggedIn(ctx, portal)
}

// loginWithCredentials drives the portal login form with humanized typing.
func loginWithCredentials(ctx context.Context, account *models.Account, portal *common.PortalConfig) error {
	if err := chromedp.Run(ctx,
		chromedp.Navigate(portal.LoginURL),
		chromedp.WaitVisible(portal.UsernameSelector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("login form did not load: %w", err)
	}

	if err := typeLikeHuman(ctx, portal.UsernameSelector, account.Email); err != nil {
		return fmt.Errorf("failed to enter username: %w", err)
	}
	if err := typeLikeHuman(ctx, portal.PasswordSelector, account.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}

	if err := chromedp.Run(ctx,
		chromedp.Sleep(humanDelay(400, 900)),
		chromedp.Click(portal.SubmitSelector, chromedp.ByQuery),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return fmt.Errorf("login submit failed: %w", err)
	}

	return verifyLoggedIn(ctx, portal)
}

// verifyLoggedIn checks the post-navigation URL for the logged-in marker and
// rejects checkpoint/login redirects.
func verifyLoggedIn(ctx context.Context, portal *common.PortalConfig) error {
	var currentURL string
	if err := chromedp.Run(ctx, chromedp.Location(&currentURL)); err != nil {
		return fmt.Errorf("failed to read page location: %w", err)
	}
	if LoggedOutURL(currentURL, portal) {
		return fmt.Errorf("portal redirected to login page: %s", currentURL)
	}
	if portal.HomeURLMarker != "" && !strings.Contains(currentURL, portal.HomeURLMarker) {
		return fmt.Errorf("logged-in marker %q not present in %s", portal.HomeURLMarker, currentURL)
	}
	return nil
}

// finishAuth exports the live cookie jar so the caller can persist the
// refreshed session.
func finishAuth(browserCtx context.Context, method string, attempts int, portal *common.PortalConfig, logger arbor.ILogger) (*interfaces.AuthResult, error) {
	refreshed, err := exportCookies(browserCtx, portal)
	if err != nil {
		// The session is live, cookie export is best effort.
		logger.Warn().Err(err).Msg("Failed to export session cookies")
	}
	return &interfaces.AuthResult{
		Method:           method,
		Attempts:         attempts,
		RefreshedCookies: refreshed,
	}, nil
}

func exportCookies(browserCtx context.Context, portal *common.PortalConfig) ([]models.Cookie, error) {
	ctx, cancel := context.WithTimeout(browserCtx, 15*time.Second)
	defer cancel()

	var raw []*network.Cookie
	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := network.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			raw = cookies
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	var result []models.Cookie
	for _, c := range raw {
		if !portalCookie(c.Domain, portal.CookieDomains) {
			continue
		}
		result = append(result, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		})
	}
	return result, nil
}

func portalCookie(domain string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, d := range allowed {
		if strings.HasSuffix(domain, strings.TrimPrefix(d, ".")) || domain == d {
			return true
		}
	}
	return false
}

func usableCookies(cookies []models.Cookie) []models.Cookie {
	var usable []models.Cookie
	now := time.Now()
	for _, c := range cookies {
		if !c.Expired(now) {
			usable = append(usable, c)
		}
	}
	return usable
}

// typeLikeHuman sends the text one character at a time with jittered delays.
// The portal flags sessions that fill credentials instantaneously.
func typeLikeHuman(ctx context.Context, selector, text string) error {
	if err := chromedp.Run(ctx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
	); err != nil {
		return err
	}
	for _, r := range text {
		if err := chromedp.Run(ctx,
			chromedp.SendKeys(selector, string(r), chromedp.ByQuery),
			chromedp.Sleep(humanDelay(40, 140)),
		); err != nil {
			return err
		}
	}
	return nil
}

func humanDelay(minMs, maxMs int) time.Duration {
	return time.Duration(minMs+rand.Intn(maxMs-minMs)) * time.Millisecond
}
