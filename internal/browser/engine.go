package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// Engine owns a single Chrome allocator for the lifetime of a worker process.
// Each session gets its own browser context off the shared allocator, so a
// discarded session never leaks state into the next one.
type Engine struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	config      *common.Config
	logger      arbor.ILogger
}

// NewEngine creates the allocator and verifies Chrome can start.
func NewEngine(config *common.Config, logger arbor.ILogger) (*Engine, error) {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Worker.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", config.Worker.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(config.Portal.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)

	// Startup test so a missing Chrome binary fails fast instead of on the
	// first lease.
	testCtx, testCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		testCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}
	testCancel()

	logger.Info().
		Bool("headless", config.Worker.Headless).
		Str("user_agent", config.Portal.UserAgent).
		Msg("Browser engine initialized")

	return &Engine{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		config:      config,
		logger:      logger,
	}, nil
}

// NewSession opens a fresh browser context and runs the two-stage hybrid
// authentication for the account. On any failure the browser context is
// released before returning.
func (e *Engine) NewSession(ctx context.Context, account *models.Account) (interfaces.Session, *interfaces.AuthResult, error) {
	browserCtx, browserCancel := chromedp.NewContext(e.allocCtx)

	result, err := authenticate(ctx, browserCtx, account, e.config, e.logger)
	if err != nil {
		browserCancel()
		return nil, nil, err
	}

	e.logger.Info().
		Str("account", account.Email).
		Str("method", result.Method).
		Int("attempts", result.Attempts).
		Msg("Session authenticated")

	return &session{
		account: account,
		ctx:     browserCtx,
		cancel:  browserCancel,
		config:  e.config,
		logger:  e.logger,
	}, result, nil
}

// Close shuts down the allocator and every context derived from it.
func (e *Engine) Close() {
	e.allocCancel()
}
