package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/pipeline"
)

type fakeLoader struct {
	res *pipeline.LoadResult
}

func (f *fakeLoader) Load(context.Context) *pipeline.LoadResult { return f.res }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testRecords() []model.UnitPeriodRecord {
	return []model.UnitPeriodRecord{
		{UnitID: "A1", Period: "2025-05", TenantName: "王小明", BaseRent: d("10000"),
			MeterPrevious: d("100"), MeterCurrent: d("150"), PaymentStatus: model.StatusPaid},
		{UnitID: "A2", Period: "2025-05", BaseRent: d("9000"),
			MeterPrevious: d("10"), MeterCurrent: d("10"), RepairFee: d("800"), RepairStatus: "待修"},
	}
}

func newTestService(t *testing.T, loader *fakeLoader) *Service {
	t.Helper()
	s, err := New(Config{
		Loader:       loader,
		App:          config.DefaultConfig(),
		Interval:     10 * time.Second,
		EventsBuffer: 10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		Units:            10,
		Paid:             4,
		Unpaid:           6,
		ProjectedRevenue: d("100000"),
		RepairCost:       d("800"),
	}
	curr := Snapshot{
		Units:            10,
		Paid:             7,
		Unpaid:           3,
		ProjectedRevenue: d("100250"),
		RepairCost:       d("800"),
		Anomalies:        1,
	}

	delta := diffSnapshots(prev, curr)
	if delta.Paid != 3 || delta.Unpaid != -3 || delta.Units != 0 {
		t.Fatalf("count delta = %+v", delta)
	}
	if !delta.ProjectedRevenue.Equal(d("250")) {
		t.Fatalf("revenue delta = %s, want 250", delta.ProjectedRevenue)
	}
	if !delta.RepairCost.IsZero() || delta.Anomalies != 1 {
		t.Fatalf("repair/anomaly delta = %s / %d", delta.RepairCost, delta.Anomalies)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a non-zero delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := newTestService(t, &fakeLoader{})
	s.cfg.EventsBuffer = 2

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPollEvents(t *testing.T) {
	loader := &fakeLoader{res: &pipeline.LoadResult{Latest: testRecords()}}
	s := newTestService(t, loader)
	ctx := context.Background()

	s.pollOnce(ctx)
	s.pollOnce(ctx) // unchanged, no event

	changed := testRecords()
	changed[1].PaymentStatus = model.StatusPaid
	loader.res = &pipeline.LoadResult{Latest: changed}
	s.pollOnce(ctx)

	loader.res = &pipeline.LoadResult{Err: pipeline.ErrSourceUnavailable}
	s.pollOnce(ctx)
	s.pollOnce(ctx) // still failing, no new event

	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, len(s.events))
	for i, ev := range s.events {
		types[i] = ev.Type
	}
	want := []string{EventSnapshot, EventLedgerDelta, EventSourceUnavailable}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	if s.events[1].Delta.Paid != 1 {
		t.Errorf("delta paid = %d, want 1", s.events[1].Delta.Paid)
	}
	if len(s.latest) != 0 || s.summary.UnitCount != 0 {
		t.Errorf("records kept after source failure: %d", len(s.latest))
	}
	if s.pollCount != 5 {
		t.Errorf("pollCount = %d, want 5", s.pollCount)
	}
}

func get(t *testing.T, h http.Handler, path string) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	res := rec.Result()
	body, _ := io.ReadAll(res.Body)
	return res, string(body)
}

func TestHandlers(t *testing.T) {
	s := newTestService(t, &fakeLoader{res: &pipeline.LoadResult{Latest: testRecords()}})
	s.pollOnce(context.Background())
	h := s.Handler()

	res, body := get(t, h, "/healthz")
	if res.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("/healthz = %d %q", res.StatusCode, body)
	}

	res, body = get(t, h, "/v1/summary")
	var sum model.PortfolioSummary
	if err := json.Unmarshal([]byte(body), &sum); err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("/v1/summary = %d %s (%v)", res.StatusCode, body, err)
	}
	if sum.UnitCount != 2 || sum.PaidCount != 1 || sum.PendingRepairCount != 1 {
		t.Errorf("summary = %+v", sum)
	}

	_, body = get(t, h, "/v1/units?unpaid=1")
	var units []UnitView
	if err := json.Unmarshal([]byte(body), &units); err != nil {
		t.Fatal(err)
	}
	if len(units) != 1 || units[0].Record.UnitID != "A2" {
		t.Errorf("unpaid units = %+v", units)
	}

	res, body = get(t, h, "/v1/units/A1/billing")
	var view UnitView
	if err := json.Unmarshal([]byte(body), &view); err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("/billing = %d %s", res.StatusCode, body)
	}
	if !view.Billing.RentDue.Equal(d("10250")) {
		t.Errorf("rent due = %s, want 10250", view.Billing.RentDue)
	}

	res, _ = get(t, h, "/v1/units/Z9/billing")
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("unknown unit status = %d, want 404", res.StatusCode)
	}

	res, body = get(t, h, "/v1/units/A2/notice")
	if res.StatusCode != http.StatusOK || !strings.HasPrefix(res.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("/notice = %d %s", res.StatusCode, res.Header.Get("Content-Type"))
	}
	if !strings.Contains(body, "A2") || !strings.Contains(body, "維修費：$800") {
		t.Errorf("notice body = %q", body)
	}

	_, body = get(t, h, "/v1/events")
	if !strings.Contains(body, `"type":"snapshot"`) {
		t.Errorf("/v1/events = %s", body)
	}

	res, body = get(t, h, "/metrics")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, `rentroll_units{status="paid"} 1`) {
		t.Errorf("/metrics missing units gauge:\n%s", body)
	}
}

func TestSummaryUnavailable(t *testing.T) {
	s := newTestService(t, &fakeLoader{res: &pipeline.LoadResult{Err: errors.New("boom")}})
	s.pollOnce(context.Background())

	res, body := get(t, s.Handler(), "/v1/summary")
	if res.StatusCode != http.StatusServiceUnavailable || !strings.Contains(body, "boom") {
		t.Errorf("/v1/summary on failure = %d %s", res.StatusCode, body)
	}
}
