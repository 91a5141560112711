// Package daemon serves live cost schedules over HTTP and server-sent events.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pipeline"
	"github.com/theirongolddev/tiercost/internal/pricing"
)

// Config controls the service runtime behavior.
type Config struct {
	Addr         string
	Months       int
	Usage        model.UsageConfiguration
	Rates        pricing.RateTable
	Debounce     time.Duration // negative applies usage updates immediately
	EventsBuffer int
	Logger       *zap.Logger
}

// Snapshot is the schedule state carried by status and event payloads.
type Snapshot struct {
	At       time.Time                `json:"at"`
	Revision int64                    `json:"revision"`
	Usage    model.UsageConfiguration `json:"usage"`
	Summary  model.ScheduleSummary    `json:"summary"`
}

// Delta captures the change in headline costs between two snapshots.
type Delta struct {
	FirstMonthCost float64 `json:"first_month_cost"`
	FirstYearCost  float64 `json:"first_year_cost"`
	TotalCost      float64 `json:"total_cost"`
}

func (d Delta) isZero() bool {
	return d.FirstMonthCost == 0 &&
		d.FirstYearCost == 0 &&
		d.TotalCost == 0
}

// Event is emitted whenever the schedule is recalculated.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	PID             int       `json:"pid"`
	Addr            string    `json:"addr"`
	StartedAt       time.Time `json:"started_at"`
	LastRecalcAt    time.Time `json:"last_recalc_at"`
	RecalcCount     int64     `json:"recalc_count"`
	Pending         bool      `json:"pending"`
	DebounceMS      int64     `json:"debounce_ms"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// ScheduleResponse is served at /v1/schedule and /v1/estimate.
type ScheduleResponse struct {
	Usage   model.UsageConfiguration `json:"usage"`
	Summary model.ScheduleSummary    `json:"summary"`
	Rows    []model.MonthRow         `json:"rows"`
}

// EstimateRequest is the body of POST /v1/estimate. Usage fields left out
// keep the service's current values.
type EstimateRequest struct {
	Usage     json.RawMessage `json:"usage,omitempty"`
	Months    int             `json:"months,omitempty"`
	AllMonths bool            `json:"all_months,omitempty"`
}

// Service holds the live schedule and its HTTP API.
type Service struct {
	cfg      Config
	log      *zap.Logger
	debounce *debouncer

	mu           sync.RWMutex
	startedAt    time.Time
	lastRecalcAt time.Time
	recalcCount  int64
	lastError    string
	usage        model.UsageConfiguration
	rows         []model.MonthRow
	snapshot     Snapshot
	pendingRev   int64
	appliedRev   int64
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a service seeded with cfg.Usage.
func New(cfg Config) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Months == 0 {
		cfg.Months = pipeline.DefaultMonths
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Service{
		cfg:       cfg,
		log:       cfg.Logger.Named("daemon"),
		debounce:  newDebouncer(cfg.Debounce),
		startedAt: time.Now(),
		usage:     cfg.Usage.Clone(),
		subs:      make(map[int]chan Event),
	}
	s.recalc(0)
	return s
}

// Handler returns the service's HTTP routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/rates", s.handleRates)
	mux.HandleFunc("GET /v1/schedule", s.handleSchedule)
	mux.HandleFunc("POST /v1/estimate", s.handleEstimate)
	mux.HandleFunc("GET /v1/usage", s.handleGetUsage)
	mux.HandleFunc("PUT /v1/usage", s.handlePutUsage)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	return mux
}

// Run serves HTTP until ctx is canceled.
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
	s.log.Info("listening", zap.String("addr", s.cfg.Addr), zap.Duration("debounce", s.cfg.Debounce))

	select {
	case <-ctx.Done():
		s.debounce.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.debounce.Stop()
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// UpdateUsage stages u and schedules a debounced recalculation. It returns
// the revision the update will be published under.
func (s *Service) UpdateUsage(u model.UsageConfiguration) int64 {
	s.mu.Lock()
	s.usage = u.Clone()
	s.pendingRev++
	rev := s.pendingRev
	s.mu.Unlock()

	s.debounce.Trigger(func() { s.recalc(rev) })
	return rev
}

// recalc rebuilds the schedule for revision rev. Stale revisions are
// dropped so only the last staged update is applied.
func (s *Service) recalc(rev int64) {
	s.mu.RLock()
	if rev < s.pendingRev {
		s.mu.RUnlock()
		return
	}
	usage := s.usage
	s.mu.RUnlock()

	start := time.Now()
	rows, err := pipeline.ComputeMonthlySchedule(usage, s.cfg.Rates, s.cfg.Months)
	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastRecalcAt = now
		s.recalcCount++
		s.mu.Unlock()
		s.log.Error("recalculation failed", zap.Int64("revision", rev), zap.Error(err))
		return
	}

	snap := Snapshot{
		At:       now,
		Revision: rev,
		Usage:    usage,
		Summary:  model.Summarize(rows),
	}

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	if rev < s.pendingRev || (rev > 0 && rev <= s.appliedRev) {
		s.mu.Unlock()
		return
	}
	prev := s.snapshot
	first := s.recalcCount == 0

	s.rows = rows
	s.snapshot = snap
	s.appliedRev = rev
	s.lastRecalcAt = now
	s.recalcCount++
	s.lastError = ""

	if first {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: now, Snapshot: snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "schedule_delta", Timestamp: now, Snapshot: snap, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	s.log.Debug("recalculated",
		zap.Int64("revision", rev),
		zap.Int("months", len(rows)),
		zap.Float64("total_cost", snap.Summary.TotalCost),
		zap.Duration("took", now.Sub(start)),
	)

	if publish {
		s.publishEvent(ev)
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		FirstMonthCost: pipeline.Round2(curr.Summary.FirstMonthCost - prev.Summary.FirstMonthCost),
		FirstYearCost:  pipeline.Round2(curr.Summary.FirstYearCost - prev.Summary.FirstYearCost),
		TotalCost:      pipeline.Round2(curr.Summary.TotalCost - prev.Summary.TotalCost),
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
		PID:             os.Getpid(),
		Addr:            s.cfg.Addr,
		StartedAt:       s.startedAt,
		LastRecalcAt:    s.lastRecalcAt,
		RecalcCount:     s.recalcCount,
		Pending:         s.pendingRev > s.appliedRev,
		DebounceMS:      s.cfg.Debounce.Milliseconds(),
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// currentUsage returns a private copy of the staged usage, safe to decode into.
func (s *Service) currentUsage() model.UsageConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage.Clone()
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleRates(w http.ResponseWriter, r *http.Request) {
	cats := s.cfg.Rates.VisibleCategories(s.currentUsage())
	if queryBool(r, "all") {
		cats = s.cfg.Rates.Categories()
	}
	writeJSON(w, http.StatusOK, s.cfg.Rates.Breakdowns(cats))
}

func (s *Service) handleSchedule(w http.ResponseWriter, r *http.Request) {
	months, err := queryMonths(r, s.cfg.Months)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.RLock()
	usage := s.snapshot.Usage
	rows := s.rows
	s.mu.RUnlock()

	if months != s.cfg.Months {
		rows, err = pipeline.ComputeMonthlySchedule(usage, s.cfg.Rates, months)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, scheduleResponse(usage, rows, queryBool(r, "all_months")))
}

func (s *Service) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	usage := s.currentUsage()
	if len(req.Usage) > 0 {
		if err := json.Unmarshal(req.Usage, &usage); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decoding usage: %w", err))
			return
		}
	}
	if err := usage.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("usage: %w", err))
		return
	}
	months := req.Months
	if months == 0 {
		months = s.cfg.Months
	}
	if err := pipeline.CheckMonths(months); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rows, err := pipeline.ComputeMonthlySchedule(usage, s.cfg.Rates, months)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse(usage, rows, req.AllMonths))
}

func (s *Service) handleGetUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentUsage())
}

func (s *Service) handlePutUsage(w http.ResponseWriter, r *http.Request) {
	usage := s.currentUsage()
	if err := json.NewDecoder(r.Body).Decode(&usage); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding usage: %w", err))
		return
	}
	if err := usage.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("usage: %w", err))
		return
	}
	rev := s.UpdateUsage(usage)
	writeJSON(w, http.StatusAccepted, map[string]int64{"revision": rev})
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
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

func scheduleResponse(usage model.UsageConfiguration, rows []model.MonthRow, allMonths bool) ScheduleResponse {
	return ScheduleResponse{
		Usage:   usage,
		Summary: model.Summarize(rows),
		Rows:    pipeline.VisibleRows(rows, allMonths),
	}
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

func queryMonths(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("months")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("months: %w", err)
	}
	if err := pipeline.CheckMonths(n); err != nil {
		return 0, err
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
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
