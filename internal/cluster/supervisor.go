package cluster

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/conductor/internal/metrics"
)

// ForkRetry is the pause after a failed spawn before the next attempt.
var ForkRetry = time.Second

// StopGrace is how long workers get to exit after SIGTERM before SIGKILL.
var StopGrace = 15 * time.Second

// WorkerRecord describes one live worker.
type WorkerRecord struct {
	Pid     int
	Started time.Time
}

type exitEvent struct {
	pid int
	err error
}

// Supervisor keeps n workers alive.  A worker that exits is removed,
// logged, and replaced on the next loop iteration.
type Supervisor struct {
	spawner Spawner
	n       int
	log     *zap.SugaredLogger

	mu      sync.Mutex
	workers map[int]WorkerRecord
	procs   map[int]Process

	exits chan exitEvent
}

// NewSupervisor returns a supervisor for n workers.
func NewSupervisor(sp Spawner, n int, log *zap.SugaredLogger) *Supervisor {
	if log == nil {
		log = zap.S()
	}
	return &Supervisor{
		spawner: sp,
		n:       n,
		log:     log,
		workers: map[int]WorkerRecord{},
		procs:   map[int]Process{},
		exits:   make(chan exitEvent, n),
	}
}

// Workers returns a snapshot of live workers ordered by pid.
func (s *Supervisor) Workers() []WorkerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WorkerRecord, 0, len(s.workers))
	for _, w := range s.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pid < out[j].Pid })
	return out
}

// Run forks the workers and supervises them until ctx ends, then signals
// every worker to stop and waits for them.
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Infow("supervisor starting", "workers", s.n)
	pending := s.n
	var retry <-chan time.Time

	for {
		for pending > 0 && retry == nil {
			if err := s.fork(ctx); err != nil {
				s.log.Errorw("fork failed", "err", err, "retry_in", ForkRetry)
				retry = time.After(ForkRetry)
				break
			}
			pending--
		}

		select {
		case <-ctx.Done():
			s.stop()
			return nil
		case ev := <-s.exits:
			s.reap(ev)
			pending++
		case <-retry:
			retry = nil
		}
	}
}

func (s *Supervisor) fork(ctx context.Context) error {
	p, err := s.spawner.Spawn(ctx)
	if err != nil {
		return err
	}
	pid := p.Pid()

	s.mu.Lock()
	s.workers[pid] = WorkerRecord{Pid: pid, Started: time.Now()}
	s.procs[pid] = p
	live := len(s.workers)
	s.mu.Unlock()
	metrics.WorkersActive.Set(float64(live))
	s.log.Infow("worker started", "worker_pid", pid)

	go func() {
		s.exits <- exitEvent{pid: pid, err: p.Wait()}
	}()
	return nil
}

// reap forgets a dead worker.  The replacement is the caller's job.
func (s *Supervisor) reap(ev exitEvent) {
	s.mu.Lock()
	delete(s.workers, ev.pid)
	delete(s.procs, ev.pid)
	live := len(s.workers)
	s.mu.Unlock()

	metrics.WorkersActive.Set(float64(live))
	metrics.WorkerRestartsTotal.Inc()
	s.log.Warnf("worker %d died", ev.pid)
	if ev.err != nil {
		s.log.Debugw("worker exit status", "worker_pid", ev.pid, "err", ev.err)
	}
}

func (s *Supervisor) stop() {
	s.mu.Lock()
	procs := make([]Process, 0, len(s.procs))
	for _, p := range s.procs {
		procs = append(procs, p)
	}
	s.mu.Unlock()

	s.log.Infow("stopping workers", "count", len(procs))
	for _, p := range procs {
		if err := p.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.log.Warnw("signal worker", "worker_pid", p.Pid(), "err", err)
		}
	}
	kill := time.After(StopGrace)
	for remaining := len(procs); remaining > 0; {
		select {
		case ev := <-s.exits:
			s.mu.Lock()
			delete(s.workers, ev.pid)
			delete(s.procs, ev.pid)
			s.mu.Unlock()
			remaining--
		case <-kill:
			s.log.Warnw("workers ignored SIGTERM, killing", "count", remaining)
			s.mu.Lock()
			for _, p := range s.procs {
				_ = p.Signal(os.Kill)
			}
			s.mu.Unlock()
			kill = nil
		}
	}
	metrics.WorkersActive.Set(0)
}
