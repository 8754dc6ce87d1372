package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stock-alerts/config"
	"stock-alerts/models"
	"stock-alerts/services/market"
)

// PriceSource resolves the session open and latest price for a ticker.
type PriceSource interface {
	Fetch(ctx context.Context, ticker string) (models.PriceSample, error)
}

// Enricher returns recent headlines for a ticker. Best-effort: a
// failure here never blocks an alert.
type Enricher interface {
	Headlines(ctx context.Context, ticker string) ([]models.Headline, error)
}

// Notifier delivers one assembled notification.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// StateStore persists the per-ticker alert state between cycles.
type StateStore interface {
	Load() models.AlertState
	Save(models.AlertState)
}

// CycleResult summarizes one monitoring pass, for logs and the status
// endpoint.
type CycleResult struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Gated      bool      `json:"gated"`
	Alerted    []string  `json:"alerted,omitempty"`
	Suppressed int       `json:"suppressed"`
	NoMove     int       `json:"no_move"`
	Failed     int       `json:"failed"`
}

type tickerOutcome int

const (
	outcomeFailed tickerOutcome = iota
	outcomeNoMove
	outcomeSuppressed
	outcomeAlerted
)

// Monitor runs the monitoring cycle: market-hours gate, price fetch,
// delta/threshold decision, debounce, optional news enrichment,
// delivery and state persistence. Tickers are processed strictly
// sequentially; one ticker's failure is invisible to the others.
type Monitor struct {
	cfg      config.Config
	prices   PriceSource
	enricher Enricher
	notifier Notifier
	states   StateStore
	now      func() time.Time
	log      *zap.SugaredLogger
}

// New wires a monitor. enricher may be nil; it is only consulted when
// news enrichment is enabled.
func New(cfg config.Config, prices PriceSource, enricher Enricher, notifier Notifier, states StateStore, log *zap.SugaredLogger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		prices:   prices,
		enricher: enricher,
		notifier: notifier,
		states:   states,
		now:      time.Now,
		log:      log,
	}
}

// RunOnce executes one complete cycle over all configured tickers.
func (m *Monitor) RunOnce(ctx context.Context) CycleResult {
	result := CycleResult{StartedAt: m.now()}
	m.log.Infow("monitoring cycle started", "tickers", len(m.cfg.Tickers))

	if m.hourGateActive() && !IsMarketHours(m.cfg.MarketHours, m.now(), m.log) {
		m.log.Infow("outside market hours, skipping cycle")
		result.Gated = true
		result.FinishedAt = m.now()
		return result
	}

	state := m.states.Load()
	if state == nil {
		state = models.AlertState{}
	}

	for _, ticker := range m.cfg.Tickers {
		switch m.processTicker(ctx, ticker, state) {
		case outcomeAlerted:
			result.Alerted = append(result.Alerted, ticker)
		case outcomeSuppressed:
			result.Suppressed++
		case outcomeNoMove:
			result.NoMove++
		case outcomeFailed:
			result.Failed++
		}
	}

	// Persist once per cycle; a crash mid-cycle loses only this
	// cycle's updates.
	m.states.Save(state)

	result.FinishedAt = m.now()
	m.log.Infow("monitoring cycle finished",
		"alerted", len(result.Alerted),
		"suppressed", result.Suppressed,
		"no_move", result.NoMove,
		"failed", result.Failed,
	)
	return result
}

// hourGateActive reports whether the market-hours gate applies for
// this run. Test mode can bypass it for out-of-hours verification.
func (m *Monitor) hourGateActive() bool {
	if m.cfg.Test.Enabled && m.cfg.Test.BypassMarketHours {
		return false
	}
	return true
}

func (m *Monitor) processTicker(ctx context.Context, ticker string, state models.AlertState) tickerOutcome {
	sample, err := m.prices.Fetch(ctx, ticker)
	if err != nil {
		var noData *market.NoDataError
		if errors.As(err, &noData) {
			m.log.Warnw("no price data, skipping ticker", "ticker", ticker)
		} else {
			m.log.Warnw("could not fetch prices", "ticker", ticker, "err", err)
		}
		return outcomeFailed
	}

	deltaPct := sample.DeltaPct()
	if m.cfg.Test.Enabled && m.cfg.Test.ForceDeltaPct != nil {
		deltaPct = *m.cfg.Test.ForceDeltaPct
	}

	direction := Decide(deltaPct, m.cfg.ThresholdPct)
	m.log.Infow("ticker evaluated",
		"ticker", ticker, "delta_pct", deltaPct, "direction", direction)

	if direction == models.DirectionNone {
		return outcomeNoMove
	}
	if state[ticker] == direction {
		m.log.Debugw("duplicate alert suppressed", "ticker", ticker, "direction", direction)
		return outcomeSuppressed
	}

	var headlines []models.Headline
	if m.cfg.News.Enabled && m.enricher != nil {
		if items, err := m.enricher.Headlines(ctx, ticker); err != nil {
			m.log.Debugw("news enrichment failed", "ticker", ticker, "err", err)
		} else {
			headlines = items
		}
	}

	notification := FormatAlert(ticker, deltaPct, sample, headlines)
	if err := m.notifier.Send(ctx, notification); err != nil {
		// State stays untouched so the same condition re-alerts next
		// cycle instead of being swallowed.
		m.log.Warnw("notification failed", "ticker", ticker, "err", err)
		return outcomeFailed
	}

	state[ticker] = direction
	return outcomeAlerted
}

// Decide classifies a percentage move against the threshold. The
// comparison is boundary-inclusive: a delta of exactly ±threshold
// triggers.
func Decide(deltaPct, thresholdPct float64) models.Direction {
	delta := decimal.NewFromFloat(deltaPct)
	threshold := decimal.NewFromFloat(thresholdPct)
	switch {
	case delta.GreaterThanOrEqual(threshold):
		return models.DirectionUp
	case delta.LessThanOrEqual(threshold.Neg()):
		return models.DirectionDown
	default:
		return models.DirectionNone
	}
}
