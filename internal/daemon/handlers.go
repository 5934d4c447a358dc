package daemon

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/pipeline"
)

// UnitView is one row of /v1/units.
type UnitView struct {
	Record  model.UnitPeriodRecord `json:"record"`
	Billing model.BillingResult    `json:"billing"`
}

// Handler returns the daemon HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/summary", s.handleSummary)
	mux.HandleFunc("GET /v1/units", s.handleUnits)
	mux.HandleFunc("GET /v1/units/{id}/billing", s.handleBilling)
	mux.HandleFunc("GET /v1/units/{id}/notice", s.handleNotice)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleSummary(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	sum := s.summary
	lastErr := s.lastError
	s.mu.RUnlock()

	if lastErr != "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": lastErr, "summary": sum})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Service) currentRecords() []model.UnitPeriodRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Service) handleUnits(w http.ResponseWriter, r *http.Request) {
	records := s.currentRecords()
	if r.URL.Query().Get("unpaid") != "" {
		records = pipeline.FilterUnpaid(records)
	}

	out := make([]UnitView, 0, len(records))
	for _, rec := range records {
		out = append(out, UnitView{Record: rec, Billing: pipeline.BillRecord(rec, s.tariff)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleBilling(w http.ResponseWriter, r *http.Request) {
	bill, rec, err := pipeline.BillUnit(s.currentRecords(), r.PathValue("id"), s.tariff)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, UnitView{Record: rec, Billing: bill})
}

func (s *Service) handleNotice(w http.ResponseWriter, r *http.Request) {
	bill, rec, err := pipeline.BillUnit(s.currentRecords(), r.PathValue("id"), s.tariff)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.composer.Compose(rec, bill)))
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func statusFor(err error) int {
	if errors.Is(err, pipeline.ErrUnitNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
