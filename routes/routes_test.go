package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-alerts/config"
	"stock-alerts/models"
	"stock-alerts/services/monitor"
)

type stubPrices struct{}

func (stubPrices) Fetch(_ context.Context, _ string) (models.PriceSample, error) {
	return models.PriceSample{Open: 100, Last: 104}, nil
}

type stubNotifier struct {
	sent int
}

func (n *stubNotifier) Send(_ context.Context, _ models.Notification) error {
	n.sent++
	return nil
}

type stubStore struct {
	state models.AlertState
}

func (s *stubStore) Load() models.AlertState { return s.state }
func (s *stubStore) Save(state models.AlertState) {
	s.state = state
}

func newTestRouter(t *testing.T) (*gin.Engine, *monitor.Tracker, *stubNotifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Tickers:      []string{"AAPL"},
		ThresholdPct: 3.0,
		Monitor:      config.MonitorConfig{IntervalMinutes: 5},
		MarketHours:  config.MarketHoursConfig{Enabled: false},
	}

	notifier := &stubNotifier{}
	m := monitor.New(cfg, stubPrices{}, nil, notifier, &stubStore{state: models.AlertState{}}, zap.NewNop().Sugar())
	tracker := monitor.NewTracker(m)

	router := gin.New()
	SetupRoutes(router, tracker, cfg)
	return router, tracker, notifier
}

func doRequest(t *testing.T, router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStatus_BeforeAndAfterCycle(t *testing.T) {
	router, tracker, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var before map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &before); err != nil {
		t.Fatal(err)
	}
	if _, ok := before["last_cycle"]; ok {
		t.Error("last_cycle must be absent before the first run")
	}
	if before["threshold_pct"] != 3.0 {
		t.Errorf("threshold_pct = %v", before["threshold_pct"])
	}

	if _, ok := tracker.Run(context.Background()); !ok {
		t.Fatal("cycle run refused")
	}

	rec = doRequest(t, router, http.MethodGet, "/status")
	var after map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatal(err)
	}
	last, ok := after["last_cycle"].(map[string]any)
	if !ok {
		t.Fatal("last_cycle missing after a run")
	}
	alerted, _ := last["alerted"].([]any)
	if len(alerted) != 1 || alerted[0] != "AAPL" {
		t.Errorf("alerted = %v", last["alerted"])
	}
}

func TestRun_TriggersCycle(t *testing.T) {
	router, _, notifier := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/run")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var result monitor.CycleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Alerted) != 1 || result.Alerted[0] != "AAPL" {
		t.Errorf("alerted = %v", result.Alerted)
	}
	if notifier.sent != 1 {
		t.Errorf("sent = %d, want 1", notifier.sent)
	}
}
