// Package bridge runs the poll loop: log in to the local torrent client once,
// then repeatedly list torrents, push a report to the remote store and act on
// the command it returns.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"torrentstream/bridge/internal/domain"
	"torrentstream/bridge/internal/metrics"
	"torrentstream/bridge/internal/power"
	"torrentstream/bridge/internal/report"
)

const (
	DefaultInterval      = 5 * time.Minute
	DefaultShutdownDelay = 60 * time.Second

	recordTimeout = 5 * time.Second
)

var errNotPolling = errors.New("bridge is not polling")

// LocalService is the torrent client's control API.
type LocalService interface {
	Login(ctx context.Context) error
	ListTorrents(ctx context.Context) ([]domain.Torrent, error)
}

// RemoteStore accepts a report and answers with a command.
type RemoteStore interface {
	Push(ctx context.Context, report string) (domain.Command, error)
}

// Recorder observes finished cycles. Failures are logged and ignored.
type Recorder interface {
	Name() string
	Record(ctx context.Context, cycle domain.Cycle) error
}

type Config struct {
	Local         LocalService
	Remote        RemoteStore
	Power         power.Shutdowner
	Recorders     []Recorder
	Logger        *slog.Logger
	Interval      time.Duration
	ShutdownDelay time.Duration
	NameLimit     int
	Now           func() time.Time
}

// Snapshot is a point-in-time view of the loop for the status endpoint.
type Snapshot struct {
	State         domain.State  `json:"state"`
	StartedAt     time.Time     `json:"startedAt"`
	Cycles        int64         `json:"cycles"`
	Failures      int64         `json:"failures"`
	LastSuccessAt time.Time     `json:"lastSuccessAt"`
	LastCycle     *domain.Cycle `json:"lastCycle,omitempty"`
}

type Bridge struct {
	local         LocalService
	remote        RemoteStore
	power         power.Shutdowner
	recorders     []Recorder
	logger        *slog.Logger
	interval      time.Duration
	shutdownDelay time.Duration
	nameLimit     int
	now           func() time.Time
	tracer        trace.Tracer

	mu   sync.RWMutex
	snap Snapshot
}

func New(cfg Config) *Bridge {
	b := &Bridge{
		local:         cfg.Local,
		remote:        cfg.Remote,
		power:         cfg.Power,
		recorders:     cfg.Recorders,
		logger:        cfg.Logger,
		interval:      cfg.Interval,
		shutdownDelay: cfg.ShutdownDelay,
		nameLimit:     cfg.NameLimit,
		now:           cfg.Now,
		tracer:        otel.Tracer("torrentstream/bridge"),
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.interval <= 0 {
		b.interval = DefaultInterval
	}
	if b.shutdownDelay <= 0 {
		b.shutdownDelay = DefaultShutdownDelay
	}
	if b.nameLimit <= 0 {
		b.nameLimit = report.NameLimit
	}
	if b.now == nil {
		b.now = time.Now
	}
	b.snap.State = domain.StateUnauthenticated
	return b
}

func (b *Bridge) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.snap
	if s.LastCycle != nil {
		c := *s.LastCycle
		s.LastCycle = &c
	}
	return s
}

func (b *Bridge) State() domain.State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap.State
}

func (b *Bridge) setState(s domain.State) {
	b.mu.Lock()
	b.snap.State = s
	b.mu.Unlock()
}

// Start logs in to the local service. Any error is fatal and leaves the
// bridge terminated.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.local.Login(ctx); err != nil {
		b.setState(domain.StateTerminated)
		return err
	}
	b.mu.Lock()
	b.snap.State = domain.StatePolling
	b.snap.StartedAt = b.now()
	b.mu.Unlock()
	return nil
}

// Run starts the bridge and polls until the remote store orders a shutdown
// or ctx is cancelled. Cycle failures never stop the loop.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	b.logger.Info("bridge started", slog.Duration("interval", b.interval))

	for {
		cycle, err := b.Cycle(ctx)
		switch {
		case err != nil && !errors.Is(err, domain.ErrRecoverable):
			b.setState(domain.StateTerminated)
			return err
		case err != nil:
			b.logger.Warn("cycle failed",
				slog.Int64("cycle", cycle.Seq),
				slog.String("error", err.Error()))
		case cycle.ShutdownRequested():
			return b.shutdown(ctx)
		default:
			b.logger.Info("status pushed",
				slog.Int64("cycle", cycle.Seq),
				slog.Int("torrents", cycle.Torrents))
		}

		if !b.wait(ctx) {
			b.setState(domain.StateTerminated)
			b.logger.Info("bridge stopped")
			return nil
		}
	}
}

// Cycle performs one list/report/push round. Failures are wrapped in
// domain.ErrRecoverable; the returned Cycle is filled in either way.
func (b *Bridge) Cycle(ctx context.Context) (domain.Cycle, error) {
	if b.State() != domain.StatePolling {
		return domain.Cycle{}, errNotPolling
	}

	b.mu.Lock()
	b.snap.Cycles++
	seq := b.snap.Cycles
	b.mu.Unlock()

	ctx, span := b.tracer.Start(ctx, "bridge.cycle",
		trace.WithAttributes(attribute.Int64("bridge.cycle", seq)))
	defer span.End()

	cycle := domain.Cycle{Seq: seq, StartedAt: b.now()}
	err := b.poll(ctx, &cycle)
	cycle.Duration = b.now().Sub(cycle.StartedAt)
	metrics.CycleDuration.Observe(cycle.Duration.Seconds())

	if err != nil {
		cycle.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		err = fmt.Errorf("%w: %v", domain.ErrRecoverable, err)
	} else {
		span.SetAttributes(attribute.Int("bridge.torrents", cycle.Torrents))
		metrics.Torrents.Set(float64(cycle.Torrents))
		metrics.LastSuccessTimestamp.SetToCurrentTime()
		if cycle.ShutdownRequested() {
			metrics.CyclesTotal.WithLabelValues("shutdown").Inc()
		} else {
			metrics.CyclesTotal.WithLabelValues("ok").Inc()
		}
	}

	b.mu.Lock()
	if err != nil {
		b.snap.Failures++
	} else {
		b.snap.LastSuccessAt = cycle.StartedAt
	}
	last := cycle
	b.snap.LastCycle = &last
	b.mu.Unlock()

	b.record(ctx, cycle)
	return cycle, err
}

func (b *Bridge) poll(ctx context.Context, cycle *domain.Cycle) error {
	torrents, err := b.local.ListTorrents(ctx)
	if err != nil {
		metrics.StepErrorsTotal.WithLabelValues("list").Inc()
		return fmt.Errorf("list torrents: %w", err)
	}
	cycle.Torrents = len(torrents)
	cycle.Report = report.BuildWithLimit(torrents, b.nameLimit)

	cmd, err := b.remote.Push(ctx, cycle.Report)
	if err != nil {
		metrics.StepErrorsTotal.WithLabelValues("push").Inc()
		return fmt.Errorf("push report: %w", err)
	}
	cycle.Command = cmd.Cmd
	return nil
}

func (b *Bridge) shutdown(ctx context.Context) error {
	b.setState(domain.StateShuttingDown)
	b.logger.Warn("shutdown command received", slog.Duration("delay", b.shutdownDelay))
	err := b.power.Shutdown(ctx, b.shutdownDelay)
	b.setState(domain.StateTerminated)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (b *Bridge) record(ctx context.Context, cycle domain.Cycle) {
	if len(b.recorders) == 0 {
		return
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	for _, r := range b.recorders {
		if err := r.Record(recCtx, cycle); err != nil {
			metrics.RecorderErrorsTotal.WithLabelValues(r.Name()).Inc()
			b.logger.Warn("record cycle failed",
				slog.String("recorder", r.Name()),
				slog.String("error", err.Error()))
		}
	}
}

// wait sleeps for the poll interval; false means ctx was cancelled.
func (b *Bridge) wait(ctx context.Context) bool {
	timer := time.NewTimer(b.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
