package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

// session binds one authenticated browser context to one account. It is
// created only by Engine.NewSession and lives until Close.
type session struct {
	account *models.Account
	ctx     context.Context
	cancel  context.CancelFunc
	config  *common.Config
	logger  arbor.ILogger
}

func (s *session) Account() *models.Account {
	return s.account
}

func (s *session) Navigate(ctx context.Context, url string) error {
	timeout := common.ParseDurationOr(s.config.Worker.NavigationTimeout, 45*time.Second)
	navCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give lazy-loaded profile sections time to render.
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (s *session) LoggedOut(ctx context.Context) (bool, error) {
	pageURL, html, err := s.snapshot()
	if err != nil {
		return false, err
	}
	return DetectLoggedOut(pageURL, html, &s.config.Portal), nil
}

func (s *session) Extract(ctx context.Context) (*models.LeadProfile, error) {
	pageURL, html, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return ParseProfile(html, pageURL, models.LeadIDFromURL(pageURL), s.account.OwnerID)
}

// snapshot captures the current URL and rendered HTML in one round trip.
func (s *session) snapshot() (string, string, error) {
	snapCtx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	var pageURL, html string
	if err := chromedp.Run(snapCtx,
		chromedp.Location(&pageURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", "", fmt.Errorf("failed to snapshot page: %w", err)
	}
	return pageURL, html, nil
}

func (s *session) Close() {
	s.cancel()
}
