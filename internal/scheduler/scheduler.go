package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/events"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// ErrWorkerBusy is returned when a dispatch is requested while the worker
// slot is occupied.
var ErrWorkerBusy = errors.New("a worker is already running")

// ErrNothingToDo is returned when a dispatch is requested with no pending
// leads or no eligible accounts.
var ErrNothingToDo = errors.New("no pending work to dispatch")

// Service owns the dispatch loop: it polls the lead queue, claims the single
// worker slot, snapshots a batch with its eligible account pool and hands the
// whole thing to one spawned worker process. All persistence triggered by
// worker messages happens here, on the scheduler side of the pipe.
type Service struct {
	config   *common.Config
	logger   arbor.ILogger
	storage  interfaces.StorageManager
	registry *Registry
	gate     *Gate
	spawner  Spawner
	hub      *events.Hub
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewService(config *common.Config, logger arbor.ILogger, storage interfaces.StorageManager, registry *Registry, gate *Gate, spawner Spawner, hub *events.Hub) *Service {
	return &Service{
		config:   config,
		logger:   logger,
		storage:  storage,
		registry: registry,
		gate:     gate,
		spawner:  spawner,
		hub:      hub,
		cron:     cron.New(),
	}
}

// Start launches the poll loop and the maintenance cron. Idempotent.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	if schedule := s.config.Scheduler.MaintenanceSchedule; schedule != "" {
		if _, err := s.cron.AddFunc(schedule, s.runMaintenance); err != nil {
			s.running = false
			cancel()
			return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
		}
		s.cron.Start()
	}

	if !s.config.Scheduler.Enabled {
		s.logger.Info().Msg("Automatic dispatch disabled, scheduler accepts manual triggers only")
		close(s.done)
		return nil
	}

	go s.pollLoop(ctx)

	s.logger.Info().
		Str("poll_interval", s.config.Scheduler.PollInterval).
		Int("batch_limit", s.config.Scheduler.BatchLimit).
		Msg("Scheduler started")
	return nil
}

// Stop halts polling and the maintenance cron. Running workers finish their
// batch; the gate drains naturally.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.cancel()
	<-s.done
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Service) pollLoop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.config.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Poll cycle failed")
			}
		}
	}
}

// poll runs one scheduler cycle: probe the queue, and dispatch a batch when
// there is work, an eligible account pool and a free worker slot.
func (s *Service) poll(ctx context.Context) error {
	if s.gate.Held() {
		return nil
	}

	lead, err := s.storage.LeadStorage().OldestPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to probe lead queue: %w", err)
	}
	if lead == nil {
		return nil
	}

	_, err = s.Dispatch(ctx, lead.OwnerID, true)
	if err != nil && !errors.Is(err, ErrWorkerBusy) && !errors.Is(err, ErrNothingToDo) {
		return err
	}
	return nil
}

// Dispatch claims the worker slot and launches one batch for the owner. The
// returned job is already registered; the worker runs in the background.
// Manual triggers and the poll loop share this path and therefore the gate.
func (s *Service) Dispatch(ctx context.Context, ownerID string, auto bool) (*models.Job, error) {
	if !s.gate.TryAcquire() {
		return nil, ErrWorkerBusy
	}
	// The gate is held from here; every early return must give it back.
	job, start, err := s.prepare(ctx, ownerID, auto)
	if err != nil {
		s.gate.Release()
		return nil, err
	}

	s.registry.Add(job)
	s.hub.Publish(events.EventJobCreated, job.Clone())

	s.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", job.OwnerID).
		Bool("auto", auto).
		Int("items", len(start.Items)).
		Int("accounts", len(start.Accounts)).
		Msg("Dispatching batch to worker")

	go s.runWorker(job.ID, start)
	return job.Clone(), nil
}

// prepare snapshots the batch and its account pool.
func (s *Service) prepare(ctx context.Context, ownerID string, auto bool) (*models.Job, *models.StartSession, error) {
	if ownerID == "" {
		lead, err := s.storage.LeadStorage().OldestPending(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to probe lead queue: %w", err)
		}
		if lead == nil {
			return nil, nil, ErrNothingToDo
		}
		ownerID = lead.OwnerID
	}

	batch, err := s.storage.LeadStorage().PendingBatch(ctx, ownerID, s.config.Scheduler.BatchLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch pending batch: %w", err)
	}
	if len(batch) == 0 {
		return nil, nil, ErrNothingToDo
	}

	pool, err := s.storage.AccountStorage().EligibleAccounts(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch eligible accounts: %w", err)
	}
	if len(pool) == 0 {
		s.logger.Warn().Str("owner_id", ownerID).Msg("Pending leads but no eligible accounts")
		return nil, nil, fmt.Errorf("%w: no eligible accounts for owner %s", ErrNothingToDo, ownerID)
	}

	items := make([]models.Lead, len(batch))
	for i, lead := range batch {
		items[i] = *lead
	}
	accounts := make([]models.Account, len(pool))
	for i, account := range pool {
		accounts[i] = *account
	}

	job := models.NewJob(ownerID, len(items), auto)
	start := &models.StartSession{
		Type:     models.MessageTypeStartSession,
		JobID:    job.ID,
		Items:    items,
		Accounts: accounts,
		Options: models.SessionOptions{
			Headless:           s.config.Worker.Headless,
			MinutePacing:       s.config.Worker.MinutePacing,
			MaxRetries:         s.config.Worker.MaxRetries,
			MaxAcquireAttempts: s.config.Worker.MaxAcquireAttempts,
			PacingMinMs:        int(common.ParseDurationOr(s.config.Worker.PacingMin, 60*time.Second).Milliseconds()),
			PacingMaxMs:        int(common.ParseDurationOr(s.config.Worker.PacingMax, 85*time.Second).Milliseconds()),
		},
	}
	return job, start, nil
}

// runWorker drives one worker process to completion and reconciles the job.
// The gate is released when the process is fully accounted for, never before.
func (s *Service) runWorker(jobID string, start *models.StartSession) {
	defer s.gate.Release()

	ctx := context.Background()
	s.registry.Update(jobID, func(j *models.Job) { j.MarkRunning() })

	exitCode, err := s.spawner.Run(ctx, start, func(msg *models.WorkerMessage) {
		s.handleMessage(ctx, jobID, msg)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Worker run failed")
	}

	// If the stream ended without done/error the exit code decides.
	final := s.registry.Update(jobID, func(j *models.Job) { j.ReconcileExit(exitCode) })
	if final != nil {
		s.hub.Publish(events.EventJobDone, final)
		s.logger.Info().
			Str("job_id", jobID).
			Str("status", string(final.Status)).
			Int("success", final.Totals.Success).
			Int("failure", final.Totals.Failure).
			Msg("Job finished")
	}
}

// handleMessage applies one worker message: job bookkeeping in the registry
// and every persistent write the worker delegated upstream.
func (s *Service) handleMessage(ctx context.Context, jobID string, msg *models.WorkerMessage) {
	switch msg.Type {
	case models.MessageTypeProgress:
		job := s.registry.Update(jobID, func(j *models.Job) {
			j.ApplyProgress(msg.Success, msg.Failure)
		})
		if job != nil {
			s.hub.Publish(events.EventJobProgress, job)
		}

	case models.MessageTypeResult:
		if msg.Profile == nil || msg.LeadID == "" {
			s.logger.Warn().Str("job_id", jobID).Msg("Result message without profile payload")
			return
		}
		msg.Profile.LeadID = msg.LeadID
		if err := s.storage.ProfileStorage().SaveProfile(ctx, msg.Profile); err != nil {
			s.logger.Error().Err(err).Str("lead_id", msg.LeadID).Msg("Failed to persist profile")
			return
		}
		if err := s.storage.LeadStorage().MarkFulfilled(ctx, msg.LeadID); err != nil {
			s.logger.Error().Err(err).Str("lead_id", msg.LeadID).Msg("Failed to mark lead fulfilled")
		}

	case models.MessageTypeAccount:
		s.handleAccountEvent(ctx, jobID, msg)

	case models.MessageTypeDone:
		job := s.registry.Update(jobID, func(j *models.Job) {
			j.MarkDone(msg.Success, msg.Failure)
		})
		if job != nil {
			s.hub.Publish(events.EventJobDone, job)
		}

	case models.MessageTypeError:
		job := s.registry.Update(jobID, func(j *models.Job) {
			j.MarkError(msg.Email, msg.Error)
		})
		if job != nil {
			s.hub.Publish(events.EventJobDone, job)
		}

	default:
		s.logger.Warn().Str("type", msg.Type).Msg("Unknown worker message type")
	}
}

func (s *Service) handleAccountEvent(ctx context.Context, jobID string, msg *models.WorkerMessage) {
	accountStore := s.storage.AccountStorage()
	switch msg.Event {
	case models.AccountEventLeased:
		s.registry.Update(jobID, func(j *models.Job) { j.AccountLeased(msg.Email) })
		if msg.LoginAttempts > 0 {
			if err := accountStore.IncrementLoginAttempts(ctx, msg.Email, msg.LoginAttempts); err != nil {
				s.logger.Warn().Err(err).Str("account", msg.Email).Msg("Failed to record login attempts")
			}
		}
	case models.AccountEventErrored:
		if err := accountStore.MarkErrored(ctx, msg.Email); err != nil {
			s.logger.Error().Err(err).Str("account", msg.Email).Msg("Failed to mark account errored")
		}
	case models.AccountEventCookies:
		if err := accountStore.UpdateCookies(ctx, msg.Email, msg.Cookies); err != nil {
			s.logger.Warn().Err(err).Str("account", msg.Email).Msg("Failed to persist refreshed cookies")
		}
	default:
		s.logger.Warn().Str("event", msg.Event).Msg("Unknown account event")
	}
}

// runMaintenance performs the periodic Badger value-log sweep.
func (s *Service) runMaintenance() {
	s.logger.Info().Msg("Running storage maintenance")
	if err := s.storage.RunGC(); err != nil {
		s.logger.Warn().Err(err).Msg("Storage maintenance pass failed")
	}
}
