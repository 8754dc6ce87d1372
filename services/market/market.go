package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"stock-alerts/models"
)

// Yahoo Finance v8 chart API endpoint.
const chartAPIURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// Yahoo rejects requests without a browser-looking user agent.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

// intraday intervals tried in order, finest first. Near market open or
// close the finer intervals frequently come back empty, so each miss
// falls through to the next coarser one.
var intradayIntervals = []string{"1m", "5m", "15m"}

const (
	triesPerInterval = 2
	defaultRetryWait = 400 * time.Millisecond
)

// NoDataError reports that every fallback tier was exhausted for a
// ticker. The caller skips that ticker for the current cycle.
type NoDataError struct {
	Ticker string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no price data available for %s", e.Ticker)
}

// ChartResponse mirrors the Yahoo v8 chart payload.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []ChartQuote `json:"quote"`
	} `json:"indicators"`
}

// ChartQuote holds the OHLC arrays. Yahoo pads gaps with JSON nulls,
// which unmarshal as zeros here; a candle is usable only when both its
// open and close are positive.
type ChartQuote struct {
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []int64   `json:"volume"`
}

// Service resolves opening and latest prices for tickers from the
// Yahoo chart API with tiered fallback.
type Service struct {
	baseURL    string
	httpClient *http.Client
	retryWait  time.Duration
	log        *zap.SugaredLogger
}

// NewService creates a price source using the public Yahoo endpoint.
func NewService(log *zap.SugaredLogger) *Service {
	return &Service{
		baseURL: chartAPIURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryWait: defaultRetryWait,
		log:       log,
	}
}

// Fetch resolves the session open and latest price for ticker.
//
// Tier order: intraday candles at 1m, 5m and 15m (two tries each, a
// short pause between tries), then a single daily candle, then the
// last five daily candles taking the most recent usable day. Transport
// and parse errors within a tier are logged and retried; an empty but
// well-formed frame advances to the next tier. Only when every tier
// comes up empty does Fetch fail, with a *NoDataError.
func (s *Service) Fetch(ctx context.Context, ticker string) (models.PriceSample, error) {
	for _, interval := range intradayIntervals {
		for attempt := 1; attempt <= triesPerInterval; attempt++ {
			series, err := s.fetchChart(ctx, ticker, "1d", interval)
			if err != nil {
				s.log.Debugw("intraday fetch failed",
					"ticker", ticker, "interval", interval, "attempt", attempt, "err", err)
			} else if sample, ok := series.firstOpenLastClose(); ok {
				s.log.Debugw("intraday prices",
					"ticker", ticker, "interval", interval, "open", sample.Open, "last", sample.Last)
				return sample, nil
			} else {
				s.log.Debugw("empty intraday frame",
					"ticker", ticker, "interval", interval, "attempt", attempt)
			}
			if attempt < triesPerInterval {
				if err := sleepCtx(ctx, s.retryWait); err != nil {
					return models.PriceSample{}, err
				}
			}
		}
	}

	// Daily fallback: market may be closed or the symbol too illiquid
	// for intraday frames.
	series, err := s.fetchChart(ctx, ticker, "1d", "1d")
	if err == nil {
		if sample, ok := series.lastUsableCandle(); ok {
			s.log.Debugw("daily fallback prices", "ticker", ticker, "open", sample.Open, "last", sample.Last)
			return sample, nil
		}
	} else {
		s.log.Debugw("daily fetch failed", "ticker", ticker, "err", err)
	}

	// Widen to the last five calendar days; weekends and exchange
	// closures can leave the 1d window empty.
	series, err = s.fetchChart(ctx, ticker, "5d", "1d")
	if err == nil {
		if sample, ok := series.lastUsableCandle(); ok {
			s.log.Debugw("5d fallback prices", "ticker", ticker, "open", sample.Open, "last", sample.Last)
			return sample, nil
		}
	} else {
		s.log.Debugw("5d fetch failed", "ticker", ticker, "err", err)
	}

	return models.PriceSample{}, &NoDataError{Ticker: ticker}
}

// candleSeries is a flattened view of one chart result.
type candleSeries struct {
	opens  []float64
	closes []float64
}

// firstOpenLastClose returns open of the first usable candle and close
// of the most recent one. Used for intraday frames, where the first
// candle of the session carries the day's opening price.
func (c *candleSeries) firstOpenLastClose() (models.PriceSample, bool) {
	if c == nil {
		return models.PriceSample{}, false
	}
	var sample models.PriceSample
	for _, open := range c.opens {
		if open > 0 {
			sample.Open = open
			break
		}
	}
	for i := len(c.closes) - 1; i >= 0; i-- {
		if c.closes[i] > 0 {
			sample.Last = c.closes[i]
			break
		}
	}
	if sample.Open <= 0 || sample.Last <= 0 {
		return models.PriceSample{}, false
	}
	return sample, true
}

// lastUsableCandle returns open and close of the most recent candle
// that has both. Used for daily frames.
func (c *candleSeries) lastUsableCandle() (models.PriceSample, bool) {
	if c == nil {
		return models.PriceSample{}, false
	}
	for i := len(c.opens) - 1; i >= 0; i-- {
		if i < len(c.closes) && c.opens[i] > 0 && c.closes[i] > 0 {
			return models.PriceSample{Open: c.opens[i], Last: c.closes[i]}, true
		}
	}
	return models.PriceSample{}, false
}

// fetchChart performs one chart API call. A transport or parse failure
// returns an error; a well-formed response with no candles returns an
// empty series so the ladder can tell "no data" apart from "broken".
func (s *Service) fetchChart(ctx context.Context, ticker, dataRange, interval string) (*candleSeries, error) {
	endpoint := fmt.Sprintf("%s%s?range=%s&interval=%s",
		s.baseURL, url.PathEscape(ticker), dataRange, interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chart response: %w", err)
	}

	// Yahoo answers 404 with a structured error for unknown or
	// delisted symbols; that is "no data", not a transport failure.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("chart api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed ChartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse chart response: %w", err)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return &candleSeries{}, nil
	}

	quote := parsed.Chart.Result[0].Indicators.Quote[0]
	return &candleSeries{opens: quote.Open, closes: quote.Close}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
