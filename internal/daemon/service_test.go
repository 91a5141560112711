package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pricing"
)

func testUsage() model.UsageConfiguration {
	return model.UsageConfiguration{
		NodeCount:                    10,
		SourcesPerNode:               5,
		DatumPerSourcePerHour:        1,
		PropertiesPerDatum:           4,
		QueriedDatumPerSourcePerHour: 2,
		OCPPChargers:                 model.AddOn{Count: 10},
	}
}

func newTestService(t *testing.T, debounce time.Duration) (*Service, *httptest.Server) {
	t.Helper()
	s := New(Config{
		Months:       12,
		Usage:        testUsage(),
		Rates:        pricing.DefaultRateTable(),
		Debounce:     debounce,
		EventsBuffer: 10,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(s.debounce.Stop)
	return s, srv
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test helper
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: HTTP %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body)) //nolint:noctx // test helper
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Summary: model.ScheduleSummary{FirstMonthCost: 0.74, FirstYearCost: 8.9, TotalCost: 44.5}}
	curr := Snapshot{Summary: model.ScheduleSummary{FirstMonthCost: 1.5, FirstYearCost: 18.1, TotalCost: 90.25}}

	delta := diffSnapshots(prev, curr)
	if delta.FirstMonthCost != 0.76 {
		t.Fatalf("FirstMonthCost delta = %v, want 0.76", delta.FirstMonthCost)
	}
	if delta.FirstYearCost != 9.2 {
		t.Fatalf("FirstYearCost delta = %v, want 9.2", delta.FirstYearCost)
	}
	if math.Abs(delta.TotalCost-45.75) > 1e-9 {
		t.Fatalf("TotalCost delta = %v, want 45.75", delta.TotalCost)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{Rates: pricing.DefaultRateTable(), EventsBuffer: 2})

	s.publishEvent(Event{ID: 11})
	s.publishEvent(Event{ID: 12})
	s.publishEvent(Event{ID: 13})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 12 || s.events[1].ID != 13 {
		t.Fatalf("events ring contains IDs [%d, %d], want [12, 13]", s.events[0].ID, s.events[1].ID)
	}
}

func TestNew_SeedsSnapshotEvent(t *testing.T) {
	_, srv := newTestService(t, -1)

	var st Status
	getJSON(t, srv.URL+"/v1/status", &st)
	if st.RecalcCount != 1 || st.Pending {
		t.Fatalf("status = %+v, want one settled recalculation", st)
	}
	if st.PID != os.Getpid() {
		t.Fatalf("status pid = %d, want %d", st.PID, os.Getpid())
	}
	if st.Summary.Summary.FirstMonthCost != 0.74 {
		t.Fatalf("FirstMonthCost = %v, want 0.74", st.Summary.Summary.FirstMonthCost)
	}

	var events []Event
	getJSON(t, srv.URL+"/v1/events", &events)
	if len(events) != 1 || events[0].Type != "snapshot" {
		t.Fatalf("events = %+v, want one snapshot", events)
	}
}

func TestSchedule_YearsOnlyByDefault(t *testing.T) {
	_, srv := newTestService(t, -1)

	var resp ScheduleResponse
	getJSON(t, srv.URL+"/v1/schedule", &resp)
	if len(resp.Rows) != 2 || resp.Rows[0].MonthIndex != 1 || resp.Rows[1].MonthIndex != 12 {
		t.Fatalf("rows = %d, want months 1 and 12", len(resp.Rows))
	}
	if resp.Summary.Months != 12 {
		t.Fatalf("Summary.Months = %d, want 12", resp.Summary.Months)
	}

	var all ScheduleResponse
	getJSON(t, srv.URL+"/v1/schedule?all_months=true&months=24", &all)
	if len(all.Rows) != 24 {
		t.Fatalf("all rows = %d, want 24", len(all.Rows))
	}

	resp2 := doRequest(t, http.MethodGet, srv.URL+"/v1/schedule?months=abc", "")
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad months status = %d, want 400", resp2.StatusCode)
	}
}

func TestRates_HidesDisabledAddOns(t *testing.T) {
	_, srv := newTestService(t, -1)

	var visible []pricing.CategoryRates
	getJSON(t, srv.URL+"/v1/rates", &visible)
	if len(visible) != 3 {
		t.Fatalf("visible categories = %d, want 3 metered", len(visible))
	}

	var all []pricing.CategoryRates
	getJSON(t, srv.URL+"/v1/rates?all=1", &all)
	if len(all) != len(model.Categories) {
		t.Fatalf("all categories = %d, want %d", len(all), len(model.Categories))
	}
}

func TestEstimate_IsStateless(t *testing.T) {
	s, srv := newTestService(t, -1)

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/estimate",
		`{"usage":{"ocpp_chargers":{"count":10,"enabled":true}},"months":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out ScheduleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	// 0.7391 metered + 10 chargers at $2 = 20.7391
	if got := out.Rows[0].MonthTotalCost; got != 20.74 {
		t.Fatalf("MonthTotalCost = %v, want 20.74", got)
	}
	if out.Usage.NodeCount != 10 {
		t.Fatalf("NodeCount = %v, want current value 10", out.Usage.NodeCount)
	}

	if s.currentUsage().OCPPChargers.Enabled {
		t.Fatal("estimate changed the live usage")
	}

	bad := doRequest(t, http.MethodPost, srv.URL+"/v1/estimate", "{")
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad body status = %d, want 400", bad.StatusCode)
	}
}

func TestSchedule_RejectsOutOfRangeMonths(t *testing.T) {
	_, srv := newTestService(t, -1)

	for _, q := range []string{"9000000000000000000", "1201", "-1", "abc"} {
		resp := doRequest(t, http.MethodGet, srv.URL+"/v1/schedule?months="+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("months=%s status = %d, want 400", q, resp.StatusCode)
		}
	}

	var out ScheduleResponse
	getJSON(t, srv.URL+"/v1/schedule?months=1200&all_months=1", &out)
	if len(out.Rows) != 1200 {
		t.Fatalf("months=1200 rows = %d, want 1200", len(out.Rows))
	}
}

func TestEstimate_RejectsInvalidInput(t *testing.T) {
	_, srv := newTestService(t, -1)

	bodies := []string{
		`{"usage":{"node_count":-10},"months":1}`,
		`{"usage":{"ocpp_chargers":{"count":-1,"enabled":true}}}`,
		`{"usage":{"datum_per_hour":-3}}`,
		`{"months":9000000000000000000}`,
		`{"months":-2}`,
	}
	for _, body := range bodies {
		resp := doRequest(t, http.MethodPost, srv.URL+"/v1/estimate", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestPutUsage_RejectsNegativeValues(t *testing.T) {
	s, srv := newTestService(t, -1)

	resp := doRequest(t, http.MethodPut, srv.URL+"/v1/usage", `{"node_count":-5}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	st := s.snapshotStatus()
	if st.Summary.Revision != 0 || st.Summary.Usage.NodeCount != 10 {
		t.Fatalf("rejected update applied: revision %d, nodes %v", st.Summary.Revision, st.Summary.Usage.NodeCount)
	}
	if st.Summary.Summary.FirstMonthCost < 0 {
		t.Fatalf("FirstMonthCost = %v, want non-negative", st.Summary.Summary.FirstMonthCost)
	}
}

func TestPutUsage_DebouncedLastCallWins(t *testing.T) {
	s, srv := newTestService(t, 200*time.Millisecond)

	for _, n := range []string{"20", "30", "40"} {
		resp := doRequest(t, http.MethodPut, srv.URL+"/v1/usage", `{"node_count":`+n+`}`)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("PUT status = %d, want 202", resp.StatusCode)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := s.snapshotStatus()
		if !st.Pending {
			if st.Summary.Usage.NodeCount != 40 {
				t.Fatalf("applied NodeCount = %v, want 40", st.Summary.Usage.NodeCount)
			}
			if st.RecalcCount != 2 {
				t.Fatalf("RecalcCount = %d, want 2 (seed + one debounced)", st.RecalcCount)
			}
			if st.Summary.Revision != 3 {
				t.Fatalf("Revision = %d, want 3", st.Summary.Revision)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced recalculation never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var events []Event
	getJSON(t, srv.URL+"/v1/events", &events)
	if len(events) != 2 || events[1].Type != "schedule_delta" {
		t.Fatalf("events = %+v, want snapshot then one schedule_delta", events)
	}
	if events[1].Delta.FirstMonthCost <= 0 {
		t.Fatalf("delta = %+v, want a cost increase", events[1].Delta)
	}
}

func TestPutUsage_PinnedValuesDoNotAlias(t *testing.T) {
	s, srv := newTestService(t, -1)

	doRequest(t, http.MethodPut, srv.URL+"/v1/usage", `{"datum_per_hour":100}`)
	before := s.snapshotStatus().Summary.Usage.DatumPerHour

	doRequest(t, http.MethodPut, srv.URL+"/v1/usage", `{"datum_per_hour":900}`)
	if *before != 100 {
		t.Fatalf("earlier snapshot mutated to %v", *before)
	}
	if got := *s.currentUsage().DatumPerHour; got != 900 {
		t.Fatalf("DatumPerHour = %v, want 900", got)
	}
}

func TestStream_SendsCurrentSnapshot(t *testing.T) {
	_, srv := newTestService(t, -1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if line != "event: snapshot\n" {
		t.Fatalf("first line = %q", line)
	}
}

func TestRecalc_LogsConfigurationErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rates, err := pricing.NewRateTable([]pricing.RateRow{{Category: model.PropertiesPosted, Rate: 1}})
	if err != nil {
		t.Fatal(err)
	}

	s := New(Config{Rates: rates, Usage: testUsage(), Logger: zap.New(core)})
	st := s.snapshotStatus()
	if st.LastError == "" {
		t.Fatal("missing schedules should surface as LastError")
	}
	if logs.FilterMessage("recalculation failed").Len() != 1 {
		t.Fatalf("logged %d errors, want 1", logs.Len())
	}
}
