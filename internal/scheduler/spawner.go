package scheduler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/models"
)

// maxMessageSize bounds one NDJSON line from the worker. Result messages
// carry full profiles, so the default scanner buffer is far too small.
const maxMessageSize = 4 * 1024 * 1024

// Spawner runs one worker batch to completion and streams its messages to
// the callback. The int return is the process exit code; it matters only
// when the stream ended without a terminal message.
type Spawner interface {
	Run(ctx context.Context, start *models.StartSession, onMessage func(*models.WorkerMessage)) (int, error)
}

// ProcessSpawner executes the batch in an isolated OS process: the worker
// binary (by default this same executable in worker mode) gets the
// start-session message on stdin and writes NDJSON messages on stdout. A
// crashing browser takes down the child, never the scheduler.
type ProcessSpawner struct {
	binary     string
	configPath string
	logger     arbor.ILogger
}

func NewProcessSpawner(binary, configPath string, logger arbor.ILogger) *ProcessSpawner {
	return &ProcessSpawner{
		binary:     binary,
		configPath: configPath,
		logger:     logger,
	}
}

func (s *ProcessSpawner) Run(ctx context.Context, start *models.StartSession, onMessage func(*models.WorkerMessage)) (int, error) {
	binary := s.binary
	if binary == "" {
		self, err := os.Executable()
		if err != nil {
			return -1, fmt.Errorf("failed to resolve worker binary: %w", err)
		}
		binary = self
	}

	args := []string{"-worker"}
	if s.configPath != "" {
		args = append(args, "-config", s.configPath)
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return -1, fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("failed to open worker stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start worker process: %w", err)
	}

	s.logger.Info().
		Str("job_id", start.JobID).
		Int("pid", cmd.Process.Pid).
		Str("binary", binary).
		Msg("Worker process started")

	// Hand over the batch, then close stdin so the worker sees EOF after the
	// single start-session message.
	encodeErr := json.NewEncoder(stdin).Encode(start)
	stdin.Close()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, decodeErr := models.DecodeWorkerMessage(line)
		if decodeErr != nil {
			s.logger.Warn().
				Err(decodeErr).
				Str("job_id", start.JobID).
				Msg("Discarding malformed worker message")
			continue
		}
		onMessage(msg)
	}
	scanErr := scanner.Err()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return -1, fmt.Errorf("worker process wait failed: %w", err)
		}
	}

	s.logger.Info().
		Str("job_id", start.JobID).
		Int("exit_code", exitCode).
		Msg("Worker process exited")

	if encodeErr != nil {
		return exitCode, fmt.Errorf("failed to send start-session: %w", encodeErr)
	}
	if scanErr != nil {
		return exitCode, fmt.Errorf("worker stream read failed: %w", scanErr)
	}
	return exitCode, nil
}
