// Package daemon provides the long-running ledger monitor service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/notice"
	"github.com/theirongolddev/rentroll/internal/pipeline"
)

// Loader runs one refresh cycle.
type Loader interface {
	Load(ctx context.Context) *pipeline.LoadResult
}

// Config controls the daemon runtime behavior.
type Config struct {
	Loader       Loader
	App          config.Config
	SourceName   string
	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Snapshot is a compact ledger state for status/event payloads.
type Snapshot struct {
	At               time.Time       `json:"at"`
	Units            int             `json:"units"`
	Paid             int             `json:"paid"`
	Unpaid           int             `json:"unpaid"`
	ProjectedRevenue decimal.Decimal `json:"projected_revenue"`
	DerivedRevenue   decimal.Decimal `json:"derived_revenue"`
	PendingRepairs   int             `json:"pending_repairs"`
	RepairCost       decimal.Decimal `json:"repair_cost"`
	Anomalies        int             `json:"anomalies"`
	Issues           int             `json:"issues"`
	FromCache        bool            `json:"from_cache"`
}

// Delta captures snapshot changes between polls.
type Delta struct {
	Units            int             `json:"units"`
	Paid             int             `json:"paid"`
	Unpaid           int             `json:"unpaid"`
	ProjectedRevenue decimal.Decimal `json:"projected_revenue"`
	PendingRepairs   int             `json:"pending_repairs"`
	RepairCost       decimal.Decimal `json:"repair_cost"`
	Anomalies        int             `json:"anomalies"`
}

func (d Delta) isZero() bool {
	return d.Units == 0 &&
		d.Paid == 0 &&
		d.Unpaid == 0 &&
		d.ProjectedRevenue.IsZero() &&
		d.PendingRepairs == 0 &&
		d.RepairCost.IsZero() &&
		d.Anomalies == 0
}

// Event types.
const (
	EventSnapshot          = "snapshot"
	EventLedgerDelta       = "ledger_delta"
	EventSourceUnavailable = "source_unavailable"
)

// Event is recorded whenever the ledger state changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
	Error     string    `json:"error,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	Source          string    `json:"source"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg        Config
	tariff     config.Tariff
	aggregator *pipeline.Aggregator
	composer   *notice.Composer
	metrics    *metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	summary     model.PortfolioSummary
	latest      []model.UnitPeriodRecord
	nextEventID int64
	events      []Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) (*Service, error) {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}

	composer, err := notice.NewComposer(cfg.App)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		tariff:     cfg.App.Tariff(),
		aggregator: pipeline.NewAggregatorFromConfig(cfg.App),
		composer:   composer,
		metrics:    newMetrics(),
		startedAt:  time.Now(),
	}, nil
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("daemon listening", "addr", s.cfg.Addr, "interval", s.cfg.Interval)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// Seed initial snapshot so status is useful immediately.
		s.pollOnce(ctx)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.pollOnce(ctx)
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Service) pollOnce(ctx context.Context) {
	start := time.Now()
	res := s.cfg.Loader.Load(ctx)
	now := time.Now()
	s.metrics.observePoll(res.Err, time.Since(start))

	if res.Err != nil {
		s.mu.Lock()
		wasOK := s.lastError == ""
		s.lastError = res.Err.Error()
		s.lastPollAt = now
		s.pollCount++
		// Never keep serving a snapshot we could not refresh.
		s.latest = nil
		s.summary = s.aggregator.Aggregate(nil)
		s.snapshot = Snapshot{At: now}
		var ev Event
		if wasOK {
			s.nextEventID++
			ev = Event{ID: s.nextEventID, Type: EventSourceUnavailable, Timestamp: now, Error: s.lastError}
		}
		s.mu.Unlock()

		s.metrics.setSummary(model.PortfolioSummary{}, 0)
		slog.WarnContext(ctx, "ledger poll failed", "error", res.Err)
		if wasOK {
			s.publishEvent(ev)
		}
		return
	}

	summary := s.aggregator.Aggregate(res.Latest)
	snap := snapshotFromSummary(summary, len(res.Issues), res.FromCache, now)
	s.metrics.setSummary(summary, len(res.Issues))

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot
	recovered := s.lastError != ""

	s.hasSnapshot = true
	s.snapshot = snap
	s.summary = summary
	s.latest = res.Latest
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists || recovered {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      EventSnapshot,
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      EventLedgerDelta,
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
	slog.DebugContext(ctx, "ledger polled", "units", summary.UnitCount, "cached", res.FromCache, "took", time.Since(start))
}

func snapshotFromSummary(sum model.PortfolioSummary, issues int, fromCache bool, at time.Time) Snapshot {
	return Snapshot{
		At:               at,
		Units:            sum.UnitCount,
		Paid:             sum.PaidCount,
		Unpaid:           sum.UnpaidCount,
		ProjectedRevenue: sum.TotalProjectedRevenue,
		DerivedRevenue:   sum.DerivedRevenue,
		PendingRepairs:   sum.PendingRepairCount,
		RepairCost:       sum.TotalRepairCost,
		Anomalies:        sum.AnomalyCount,
		Issues:           issues,
		FromCache:        fromCache,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Units:            curr.Units - prev.Units,
		Paid:             curr.Paid - prev.Paid,
		Unpaid:           curr.Unpaid - prev.Unpaid,
		ProjectedRevenue: curr.ProjectedRevenue.Sub(prev.ProjectedRevenue),
		PendingRepairs:   curr.PendingRepairs - prev.PendingRepairs,
		RepairCost:       curr.RepairCost.Sub(prev.RepairCost),
		Anomalies:        curr.Anomalies - prev.Anomalies,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Source:          s.cfg.SourceName,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
	}
}
