// Package poller retrieves a backend job result that becomes available
// asynchronously, without the caller managing timers. It is an explicit
// state machine (Idle, Fetching, then Waiting, Ready or Failed) where
// entering Waiting schedules the next fetch as a side effect.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wallysom2/egua-cli/internal/gateway"
)

// ErrNotAuthenticated is returned per fetch when no credential exists.
// It does not trigger a retry.
var ErrNotAuthenticated = errors.New("Usuário não autenticado")

// MsgProcessing is the user-facing waiting message while the backend
// has not produced the result yet.
const MsgProcessing = "Análise ainda em processamento. Aguarde..."

// DefaultInterval between fetches when auto-refresh is on.
const DefaultInterval = 5 * time.Second

// State of the polling machine.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateWaiting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateWaiting:
		return "waiting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the payload of the asynchronous computation together with
// its readiness flag. Ready is terminal for a given job.
type Result struct {
	Ready   bool
	Payload any
}

// Fetcher retrieves the current result of a job. A 404-style
// gateway.APIError means "not produced yet".
type Fetcher func(ctx context.Context, jobID string) (Result, error)

// Snapshot is an atomic view of the machine for rendering.
type Snapshot struct {
	JobID   string
	State   State
	Result  *Result
	Message string
}

// Option customizes a Poller.
type Option func(*Poller)

// WithClock injects a schedulable clock (tests).
func WithClock(clock Clock) Option {
	return func(p *Poller) { p.clock = clock }
}

// WithInterval overrides the auto-refresh interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Poller) { p.log = log.With().Str("component", "poller").Logger() }
}

// WithOnChange registers a callback invoked after every fetch outcome,
// outside the poller's lock. Useful for rendering progress.
func WithOnChange(fn func(Snapshot)) Option {
	return func(p *Poller) { p.onChange = fn }
}

// Poller drives fetches for at most one job at a time, with at most one
// request in flight. Changing or clearing the job identifier is the
// only cancellation primitive; an in-flight fetch for a previous job is
// allowed to finish but its outcome is discarded.
type Poller struct {
	fetch    Fetcher
	creds    gateway.CredentialProvider
	clock    Clock
	interval time.Duration
	log      zerolog.Logger
	onChange func(Snapshot)

	mu       sync.Mutex
	jobID    string
	auto     bool
	epoch    int
	state    State
	result   *Result
	message  string
	inflight bool
	pending  bool
	timer    Timer
	closed   bool
}

// New creates an idle poller. Auto-refresh starts enabled.
func New(fetch Fetcher, creds gateway.CredentialProvider, opts ...Option) *Poller {
	p := &Poller{
		fetch:    fetch,
		creds:    creds,
		clock:    RealClock(),
		interval: DefaultInterval,
		log:      zerolog.Nop(),
		auto:     true,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the current view of the machine.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{JobID: p.jobID, State: p.state, Result: p.result, Message: p.message}
}

// SetJob switches the poll target. Prior result and error are cleared.
// A non-empty id triggers one immediate fetch; an empty id cancels any
// scheduled fetch and returns the machine to Idle.
func (p *Poller) SetJob(ctx context.Context, jobID string) {
	p.mu.Lock()
	if p.closed || jobID == p.jobID {
		p.mu.Unlock()
		return
	}

	p.epoch++
	p.jobID = jobID
	p.result = nil
	p.message = ""
	p.state = StateIdle
	p.stopTimerLocked()

	// A fetch for the previous job may still be in flight. Its outcome
	// will be discarded; mark the new job's immediate fetch as pending
	// so it runs as soon as the old one returns.
	if p.inflight && jobID != "" {
		p.pending = true
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if jobID != "" {
		p.run(ctx)
	}
}

// SetAutoRefresh toggles the recurring timer. Disabling tears the timer
// down; enabling reschedules when a non-terminal job is set.
func (p *Poller) SetAutoRefresh(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.auto = enabled
	if !enabled {
		p.stopTimerLocked()
		return
	}
	p.scheduleLocked(context.Background())
}

// Refresh issues a manual fetch. It is a no-op while a fetch is already
// in flight or no job is set.
func (p *Poller) Refresh(ctx context.Context) {
	p.run(ctx)
}

// ClearError resets a failure message so retry UIs can start clean.
func (p *Poller) ClearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateFailed {
		p.state = StateIdle
		p.message = ""
	}
}

// Close tears the poller down: no further timer-driven fetches run and
// late responses are discarded.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.epoch++
	p.jobID = ""
	p.stopTimerLocked()
}

// run executes one fetch if none is outstanding. A tick that finds a
// fetch in flight is a no-op, not a queued retry.
func (p *Poller) run(ctx context.Context) {
	p.mu.Lock()
	if p.closed || p.inflight || p.jobID == "" || p.state == StateReady {
		p.mu.Unlock()
		return
	}
	jobID := p.jobID
	epoch := p.epoch
	p.inflight = true
	p.state = StateFetching
	p.mu.Unlock()

	var result Result
	var err error
	if _, ok := p.creds.Token(); !ok {
		err = ErrNotAuthenticated
	} else {
		result, err = p.fetch(ctx, jobID)
	}

	p.mu.Lock()
	p.inflight = false

	// The job changed (or the poller closed) while the request was in
	// flight: discard the stale outcome.
	if epoch != p.epoch {
		rerun := p.pending && p.jobID != "" && !p.closed
		p.pending = false
		p.mu.Unlock()
		if rerun {
			p.run(ctx)
		}
		return
	}

	switch {
	case err == nil && result.Ready:
		p.state = StateReady
		p.result = &result
		p.message = ""
		p.stopTimerLocked()

	case err == nil:
		p.state = StateWaiting
		p.result = &result
		p.message = MsgProcessing
		p.scheduleLocked(ctx)

	case errors.Is(err, ErrNotAuthenticated):
		p.state = StateFailed
		p.message = ErrNotAuthenticated.Error()

	case isNotFound(err):
		// The backend has not produced the result yet. Waiting state,
		// not an error.
		p.state = StateWaiting
		p.message = MsgProcessing
		p.scheduleLocked(ctx)

	default:
		p.state = StateFailed
		p.message = err.Error()
		p.log.Warn().Err(err).Str("job_id", jobID).Msg("falha transitória ao buscar resultado")
		p.scheduleLocked(ctx)
	}

	snap := Snapshot{JobID: p.jobID, State: p.state, Result: p.result, Message: p.message}
	p.mu.Unlock()

	if p.onChange != nil {
		p.onChange(snap)
	}
}

// scheduleLocked arms the recurring timer. Caller holds p.mu. The timer
// only exists while auto-refresh is on, a job is set and the result is
// not terminal.
func (p *Poller) scheduleLocked(ctx context.Context) {
	if p.closed || !p.auto || p.jobID == "" || p.state == StateReady || p.timer != nil {
		return
	}

	epoch := p.epoch
	p.timer = p.clock.AfterFunc(p.interval, func() {
		p.mu.Lock()
		p.timer = nil
		stale := epoch != p.epoch
		p.mu.Unlock()
		if stale {
			return
		}
		p.run(ctx)
	})
}

// stopTimerLocked cancels any scheduled tick. Caller holds p.mu.
func (p *Poller) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func isNotFound(err error) bool {
	var apiErr *gateway.APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
