package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/accounts"
	"github.com/ternarybob/venator/internal/browser"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// Run is the entry point of the worker process. It reads one start-session
// message from the input pipe, executes the batch against a fresh browser
// engine and streams progress, results and account events back on the output
// pipe. Exactly one terminal message ends the stream.
func Run(ctx context.Context, config *common.Config, logger arbor.ILogger, in io.Reader, out io.Writer) error {
	reporter := NewReporter(out)

	var start models.StartSession
	if err := json.NewDecoder(in).Decode(&start); err != nil {
		msg := fmt.Sprintf("failed to decode start-session message: %v", err)
		reporter.Error(msg)
		return errors.New(msg)
	}
	if err := start.Validate(); err != nil {
		reporter.Error(err.Error())
		return err
	}

	logger.Info().
		Str("job_id", start.JobID).
		Int("items", len(start.Items)).
		Int("accounts", len(start.Accounts)).
		Msg("Worker session starting")

	config.Worker.Headless = start.Options.Headless

	engine, err := browser.NewEngine(config, logger)
	if err != nil {
		msg := fmt.Sprintf("browser engine failed to start: %v", err)
		reporter.Error(msg)
		return errors.New(msg)
	}
	defer engine.Close()

	return runSession(ctx, &start, engine, reporter, logger)
}

// runSession executes the batch. Separated from Run so tests can substitute a
// fake session factory for the real browser engine.
func runSession(ctx context.Context, start *models.StartSession, factory interfaces.SessionFactory, reporter *Reporter, logger arbor.ILogger) error {
	opts := start.Options
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	pool := make([]*models.Account, len(start.Accounts))
	for i := range start.Accounts {
		pool[i] = &start.Accounts[i]
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	mgr := accounts.NewManager(pool, factory, reporter, opts.MaxAcquireAttempts, rng, logger)
	pacer := NewPacer(opts.MinutePacing,
		time.Duration(opts.PacingMinMs)*time.Millisecond,
		time.Duration(opts.PacingMaxMs)*time.Millisecond,
		rng)

	items := start.Items
	total := len(items)
	// Retry budget is tracked per item identity, so an item keeps its spent
	// attempts across account failovers.
	attempts := make(map[string]int, total)
	var success, failure, resolved int

	var session interfaces.Session
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	for i := 0; i < total; {
		if err := ctx.Err(); err != nil {
			reporter.Error("worker run cancelled")
			return err
		}
		item := &items[i]

		if session == nil {
			var err error
			session, err = mgr.Acquire(ctx)
			if err != nil {
				if errors.Is(err, accounts.ErrPoolExhausted) || errors.Is(err, accounts.ErrNoSession) {
					return finishExhausted(reporter, logger, err, &success, &failure, &resolved, total)
				}
				reporter.Error(fmt.Sprintf("account acquisition failed: %v", err))
				return err
			}
		}

		if err := pacer.Wait(ctx); err != nil {
			reporter.Error("worker run cancelled")
			return err
		}

		attempts[item.ID]++

		navErr := session.Navigate(ctx, item.ProfileURL)
		if navErr == nil {
			loggedOut, loErr := session.LoggedOut(ctx)
			if loErr == nil && loggedOut {
				// The portal killed the session externally. Not the
				// account's fault and not the item's fault: the session is
				// replaced and the attempt is handed back.
				logger.Warn().
					Str("account", session.Account().Email).
					Str("lead_id", item.ID).
					Msg("Forced logout detected, rotating session")
				attempts[item.ID]--
				mgr.Discard(session)
				session = nil
				continue
			}
		}

		var profile *models.LeadProfile
		extractErr := navErr
		if extractErr == nil {
			profile, extractErr = session.Extract(ctx)
			if extractErr == nil && profile == nil {
				extractErr = errors.New("no profile content found on page")
			}
		}

		if extractErr == nil {
			if err := reporter.Result(item.ID, profile); err != nil {
				return err
			}
			success++
			resolved++
			i++
			reporter.Progress(success, failure, resolved, total)
			continue
		}

		// A failed attempt consumes one retry and the session with it. The
		// next attempt runs on a fresh account.
		logger.Warn().
			Err(extractErr).
			Str("lead_id", item.ID).
			Int("attempt", attempts[item.ID]).
			Int("max_retries", maxRetries).
			Msg("Scrape attempt failed")
		session.Close()
		session = nil

		if attempts[item.ID] >= maxRetries {
			failure++
			resolved++
			i++
			reporter.Progress(success, failure, resolved, total)
		}
	}

	logger.Info().
		Int("success", success).
		Int("failure", failure).
		Msg("Worker session complete")
	return reporter.Done(success, failure)
}

// finishExhausted ends the run when no further account can be leased. If the
// run made any progress the unresolvable current item counts as a failure and
// the run ends cleanly; a run that never produced anything ends in error.
func finishExhausted(reporter *Reporter, logger arbor.ILogger, cause error, success, failure, resolved *int, total int) error {
	if *resolved == 0 {
		reporter.Error(fmt.Sprintf("no work completed: %v", cause))
		return cause
	}
	logger.Warn().
		Err(cause).
		Int("resolved", *resolved).
		Int("total", total).
		Msg("Account pool exhausted mid-run, ending early")
	*failure++
	*resolved++
	reporter.Progress(*success, *failure, *resolved, total)
	return reporter.Done(*success, *failure)
}
