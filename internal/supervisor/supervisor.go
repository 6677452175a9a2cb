// Package supervisor keeps a fixed number of worker processes alive.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// WorkerIDEnv is set on every spawned worker.
const WorkerIDEnv = "INVENTORY_WORKER_ID"

type Process interface {
	// Wait blocks until the process exits.
	Wait() error
	// Stop asks the process to shut down gracefully.
	Stop() error
}

type SpawnFunc func(ctx context.Context, id int) (Process, error)

type Supervisor struct {
	Workers      int
	Spawn        SpawnFunc
	RestartDelay time.Duration

	restarts atomic.Int64
}

// Run starts the workers and restarts any that exit while ctx is live. It
// returns once ctx is done and every worker has exited.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.Workers < 1 {
		return fmt.Errorf("supervisor needs at least one worker, got %d", s.Workers)
	}
	if s.Spawn == nil {
		return errors.New("supervisor has no spawn function")
	}

	var wg sync.WaitGroup
	for i := 0; i < s.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.keepAlive(ctx, id)
		}(i)
	}
	wg.Wait()

	log.Info().Int64("restarts", s.restarts.Load()).Msg("All workers stopped")
	return nil
}

// Restarts reports how many times a worker has been respawned.
func (s *Supervisor) Restarts() int64 {
	return s.restarts.Load()
}

func (s *Supervisor) keepAlive(ctx context.Context, id int) {
	for first := true; ; first = false {
		if ctx.Err() != nil {
			return
		}
		if !first {
			s.restarts.Add(1)
		}

		if s.runOnce(ctx, id) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.RestartDelay):
		}
	}
}

// runOnce spawns one worker and waits for it. It reports true when the
// worker ended because ctx was cancelled.
func (s *Supervisor) runOnce(ctx context.Context, id int) bool {
	proc, err := s.Spawn(ctx, id)
	if err != nil {
		log.Error().Err(err).Int("worker", id).Msg("Failed to spawn worker")
		return false
	}
	log.Info().Int("worker", id).Msg("Worker started")

	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()

	select {
	case err := <-done:
		if ctx.Err() != nil {
			return true
		}
		log.Warn().Err(err).Int("worker", id).Msg("Worker died, restarting")
		return false
	case <-ctx.Done():
		if err := proc.Stop(); err != nil {
			log.Warn().Err(err).Int("worker", id).Msg("Failed to stop worker")
		}
		<-done
		log.Info().Int("worker", id).Msg("Worker stopped")
		return true
	}
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p execProcess) Wait() error { return p.cmd.Wait() }

func (p execProcess) Stop() error { return p.cmd.Process.Signal(syscall.SIGTERM) }

// ExecSpawner re-executes the running binary with args, sharing its stdio.
func ExecSpawner(args ...string) SpawnFunc {
	return func(ctx context.Context, id int) (Process, error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}

		cmd := exec.Command(exe, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = append(os.Environ(), WorkerIDEnv+"="+strconv.Itoa(id))
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start worker %d: %w", id, err)
		}
		return execProcess{cmd: cmd}, nil
	}
}
