// Package daemon provides the long-running background collection service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/theirongolddev/tburn/internal/model"
	"github.com/theirongolddev/tburn/internal/pipeline"
)

// Collector is the part of pipeline.Collector the daemon drives.
type Collector interface {
	Collect(ctx context.Context) (pipeline.Result, error)
	Summarize(ctx context.Context) (model.Summary, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Logger       *slog.Logger
}

// Snapshot is a compact usage state for status/event payloads.
type Snapshot struct {
	At        time.Time          `json:"at"`
	Sessions  int                `json:"sessions"`
	Amount    float64            `json:"amount"`
	Cost      float64            `json:"cost"`
	Tokens    int64              `json:"tokens"`
	Models    int                `json:"models"`
	TopModel  string             `json:"top_model,omitempty"`
	Quotas    []model.QuotaStats `json:"quotas,omitempty"`
	Collected int                `json:"last_collected"`
	Updated   int                `json:"last_updated"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Sessions int     `json:"sessions"`
	Amount   float64 `json:"amount"`
	Cost     float64 `json:"cost"`
	Tokens   int64   `json:"tokens"`
}

func (d Delta) isZero() bool {
	return d.Sessions == 0 &&
		d.Amount == 0 &&
		d.Cost == 0 &&
		d.Tokens == 0
}

// Event is emitted whenever the usage snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	LastSuccessAt   time.Time `json:"last_success_at,omitempty"`
	LastCycleID     string    `json:"last_cycle_id,omitempty"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg       Config
	collector Collector
	metrics   *Metrics
	log       *slog.Logger

	mu            sync.RWMutex
	startedAt     time.Time
	lastPollAt    time.Time
	lastSuccessAt time.Time
	lastCycleID   string
	pollCount     int64
	lastError     string
	hasSnapshot   bool
	snapshot      Snapshot
	nextEventID   int64
	events        []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config, collector Collector) *Service {
	if cfg.Interval < 30*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		cfg:       cfg,
		collector: collector,
		metrics:   newMetrics(),
		log:       cfg.Logger,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Interval returns the effective collection interval.
func (s *Service) Interval() time.Duration {
	return s.cfg.Interval
}

// Handler returns the daemon's HTTP routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("daemon listening", "addr", s.cfg.Addr, "interval", s.cfg.Interval)

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// pollOnce runs one collection and publishes the resulting snapshot.
// Failures are kept in lastError and never stop the daemon.
func (s *Service) pollOnce(ctx context.Context) {
	start := time.Now()
	res, err := s.collector.Collect(ctx)
	s.metrics.CollectionDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, pipeline.ErrAlreadyCollecting):
		s.log.Debug("collection already running, skipping poll")
		return
	case err != nil:
		s.metrics.Collections.WithLabelValues("error").Inc()
		s.recordFailure(err.Error())
		s.log.Warn("daemon poll failed", "error", err)
		return
	case res.Skipped:
		s.metrics.Collections.WithLabelValues("skipped").Inc()
		s.recordFailure("no session configured")
		return
	}

	s.metrics.Collections.WithLabelValues("ok").Inc()
	s.metrics.RecordsCollected.Add(float64(res.Collected))
	s.metrics.RecordsUpdated.Add(float64(res.Updated))

	sum, err := s.collector.Summarize(ctx)
	if err != nil {
		s.recordFailure(err.Error())
		s.log.Warn("daemon summarize failed", "error", err)
		return
	}

	now := time.Now()
	snap := snapshotFromSummary(sum, now)
	snap.Collected = res.Collected
	snap.Updated = res.Updated
	if res.Entitlements != nil && len(res.Entitlements.Packs) > 0 {
		snap.Quotas = res.Entitlements.Packs[0].Quotas
		s.metrics.observeQuotas(snap.Quotas)
	}
	s.metrics.observeSnapshot(snap)
	s.metrics.LastSuccess.Set(float64(now.Unix()))

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.lastSuccessAt = now
	s.lastCycleID = res.CycleID
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
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
				Type:      "usage_delta",
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
}

func (s *Service) recordFailure(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
	s.lastPollAt = time.Now()
	s.pollCount++
}

func snapshotFromSummary(sum model.Summary, at time.Time) Snapshot {
	snap := Snapshot{
		At:       at,
		Sessions: sum.TotalSessions,
		Amount:   sum.TotalAmount,
		Cost:     sum.TotalCost,
		Tokens:   sum.Tokens.Total(),
		Models:   len(sum.PerModel),
	}
	if models := pipeline.SortedModels(sum); len(models) > 0 {
		snap.TopModel = models[0].Model
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Sessions: curr.Sessions - prev.Sessions,
		Amount:   curr.Amount - prev.Amount,
		Cost:     curr.Cost - prev.Cost,
		Tokens:   curr.Tokens - prev.Tokens,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		LastSuccessAt:   s.lastSuccessAt,
		LastCycleID:     s.lastCycleID,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
