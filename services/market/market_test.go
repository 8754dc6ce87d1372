package market

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc := NewService(zap.NewNop().Sugar())
	svc.baseURL = ts.URL + "/"
	svc.retryWait = time.Millisecond
	return svc, ts
}

func chartJSON(t *testing.T, opens, closes []float64) []byte {
	t.Helper()
	var resp ChartResponse
	result := ChartResult{}
	result.Indicators.Quote = []ChartQuote{{Open: opens, Close: closes}}
	resp.Chart.Result = []ChartResult{result}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

const emptyChart = `{"chart":{"result":[],"error":null}}`

func TestFetch_IntradayFirstTry(t *testing.T) {
	var requests int
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Leading null open and trailing null close, as Yahoo pads
		// partially filled sessions.
		w.Write(chartJSON(t, []float64{0, 100.0, 101.0}, []float64{100.5, 101.5, 0}))
	})

	sample, err := svc.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.Open != 100.0 || sample.Last != 101.5 {
		t.Errorf("expected open=100 last=101.5, got %+v", sample)
	}
	if requests != 1 {
		t.Errorf("expected a single request, got %d", requests)
	}
}

func TestFetch_DailyFallback(t *testing.T) {
	var intraday, daily int
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") == "1d" {
			daily++
			w.Write(chartJSON(t, []float64{50.0}, []float64{52.0}))
			return
		}
		intraday++
		w.Write([]byte(emptyChart))
	})

	sample, err := svc.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("daily fallback must succeed, got %v", err)
	}
	if sample.Open != 50.0 || sample.Last != 52.0 {
		t.Errorf("expected daily candle prices, got %+v", sample)
	}
	// 3 intervals x 2 tries before the first daily attempt.
	if intraday != 6 {
		t.Errorf("expected 6 intraday attempts, got %d", intraday)
	}
	if daily != 1 {
		t.Errorf("expected 1 daily attempt, got %d", daily)
	}
}

func TestFetch_TransportErrorsRetriedWithinTier(t *testing.T) {
	var requests int
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(chartJSON(t, []float64{100.0}, []float64{103.0}))
	})

	sample, err := svc.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("retry must recover from a transport error, got %v", err)
	}
	if sample.Open != 100.0 || sample.Last != 103.0 {
		t.Errorf("unexpected sample %+v", sample)
	}
	if requests != 2 {
		t.Errorf("expected 2 requests, got %d", requests)
	}
}

func TestFetch_FiveDayWiden(t *testing.T) {
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("range") == "5d" {
			// Most recent day last; an earlier day should be ignored.
			w.Write(chartJSON(t, []float64{40.0, 44.0}, []float64{41.0, 45.0}))
			return
		}
		w.Write([]byte(emptyChart))
	})

	sample, err := svc.Fetch(context.Background(), "SAP.DE")
	if err != nil {
		t.Fatalf("5d widen must succeed, got %v", err)
	}
	if sample.Open != 44.0 || sample.Last != 45.0 {
		t.Errorf("expected most recent day's candle, got %+v", sample)
	}
}

func TestFetch_AllTiersExhausted(t *testing.T) {
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyChart))
	})

	_, err := svc.Fetch(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("expected NoDataError")
	}
	var noData *NoDataError
	if !errors.As(err, &noData) {
		t.Fatalf("expected *NoDataError, got %T: %v", err, err)
	}
	if noData.Ticker != "NOPE" {
		t.Errorf("error must carry the ticker, got %q", noData.Ticker)
	}
}

func TestFetch_NotFoundIsNoDataNotTransport(t *testing.T) {
	svc, _ := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := svc.Fetch(context.Background(), "DELISTED")
	var noData *NoDataError
	if !errors.As(err, &noData) {
		t.Fatalf("404 must exhaust as no-data, got %T: %v", err, err)
	}
}
