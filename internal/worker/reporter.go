package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ternarybob/venator/internal/models"
)

// Reporter serializes worker messages onto the upstream pipe as NDJSON. The
// worker process holds no database connection; every state change it wants
// persisted travels through here and is applied by the scheduler.
//
// Reporter also implements the AccountRecorder interface so the account
// lifecycle can record lease bookkeeping without knowing it runs inside a
// child process.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) emit(msg models.WorkerMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode worker message: %w", err)
	}
	if _, err := r.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write worker message: %w", err)
	}
	return nil
}

// Progress reports cumulative counters after an item resolves.
func (r *Reporter) Progress(success, failure, current, total int) error {
	return r.emit(models.ProgressMessage(success, failure, current, total))
}

// Result ships an extracted profile upstream for persistence.
func (r *Reporter) Result(leadID string, profile *models.LeadProfile) error {
	return r.emit(models.ResultMessage(leadID, profile))
}

// Done emits the successful terminal message.
func (r *Reporter) Done(success, failure int) error {
	return r.emit(models.DoneMessage(success, failure))
}

// Error emits the failure terminal message.
func (r *Reporter) Error(message string) error {
	return r.emit(models.ErrorMessage(message))
}

// MarkErrored reports a total authentication failure for an account.
func (r *Reporter) MarkErrored(ctx context.Context, email string) error {
	return r.emit(models.WorkerMessage{
		Type:  models.MessageTypeAccount,
		Event: models.AccountEventErrored,
		Email: email,
	})
}

// UpdateCookies ships a refreshed cookie jar upstream.
func (r *Reporter) UpdateCookies(ctx context.Context, email string, cookies []models.Cookie) error {
	return r.emit(models.WorkerMessage{
		Type:    models.MessageTypeAccount,
		Event:   models.AccountEventCookies,
		Email:   email,
		Cookies: cookies,
	})
}

// IncrementLoginAttempts reports a successful lease together with how many
// authentication stages it consumed.
func (r *Reporter) IncrementLoginAttempts(ctx context.Context, email string, delta int) error {
	return r.emit(models.WorkerMessage{
		Type:          models.MessageTypeAccount,
		Event:         models.AccountEventLeased,
		Email:         email,
		LoginAttempts: delta,
	})
}
