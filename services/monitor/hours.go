package monitor

import (
	"time"

	"go.uber.org/zap"

	"stock-alerts/config"
)

// IsMarketHours reports whether now falls inside the configured
// trading window. Hour granularity, no holiday calendar. An unknown
// timezone degrades to UTC with a warning instead of failing the
// cycle.
func IsMarketHours(cfg config.MarketHoursConfig, now time.Time, log *zap.SugaredLogger) bool {
	if !cfg.Enabled {
		return true
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warnw("invalid timezone, falling back to UTC", "tz", cfg.Timezone, "err", err)
		loc = time.UTC
	}
	local := now.In(loc)

	if cfg.WeekdaysOnly {
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			log.Debugw("market closed (weekend)", "weekday", wd.String())
			return false
		}
	}

	// Half-open interval: start_hour <= hour < end_hour.
	if hour := local.Hour(); hour < cfg.StartHour || hour >= cfg.EndHour {
		log.Debugw("market closed (outside hours)",
			"hour", hour, "start", cfg.StartHour, "end", cfg.EndHour)
		return false
	}
	return true
}
