package monitor

import (
	"strings"
	"testing"
	"time"

	"stock-alerts/models"
)

func TestFormatAlert(t *testing.T) {
	sample := models.PriceSample{Open: 100.0, Last: 104.5}

	t.Run("up_move", func(t *testing.T) {
		n := FormatAlert("AAPL", 4.5, sample, nil)
		if n.Title != "Stock Alert: AAPL" {
			t.Errorf("unexpected title %q", n.Title)
		}
		if n.ClickURL != "https://finance.yahoo.com/quote/AAPL" {
			t.Errorf("unexpected click url %q", n.ClickURL)
		}
		if !strings.Contains(n.Body, "🟢 ▲ AAPL Δ=4.50% vs. Open") {
			t.Errorf("body missing up header: %q", n.Body)
		}
		if !strings.Contains(n.Body, "Open: 100.0000") || !strings.Contains(n.Body, "Last: 104.5000") {
			t.Errorf("body missing prices: %q", n.Body)
		}
	})

	t.Run("down_move", func(t *testing.T) {
		n := FormatAlert("SAP.DE", -3.2, models.PriceSample{Open: 200, Last: 193.6}, nil)
		if !strings.Contains(n.Body, "🔴 ▼ SAP.DE Δ=-3.20% vs. Open") {
			t.Errorf("body missing down header: %q", n.Body)
		}
	})

	t.Run("headline_block", func(t *testing.T) {
		published := time.Date(2026, 1, 7, 14, 30, 0, 0, time.UTC)
		headlines := []models.Headline{
			{Title: "Apple beats estimates", Link: "https://example.com/a", Published: published},
			{Title: "", Link: "https://example.com/b"},
		}
		n := FormatAlert("AAPL", 4.5, sample, headlines)
		if !strings.Contains(n.Body, "📰 News:") {
			t.Fatalf("body missing news header: %q", n.Body)
		}
		if !strings.Contains(n.Body, "• 🕒 14:30 Apple beats estimates") {
			t.Errorf("body missing timestamped headline: %q", n.Body)
		}
		if !strings.Contains(n.Body, "(untitled)") {
			t.Errorf("empty title must render as (untitled): %q", n.Body)
		}
		if !strings.Contains(n.Body, "🔗 https://example.com/a") {
			t.Errorf("body missing link line: %q", n.Body)
		}
	})

	t.Run("long_link_shortened_to_domain", func(t *testing.T) {
		long := "https://www.example.com/articles/2026/01/07/" + strings.Repeat("x", 60)
		n := FormatAlert("AAPL", 4.5, sample, []models.Headline{{Title: "t", Link: long}})
		if strings.Contains(n.Body, long) {
			t.Error("long link must not appear verbatim")
		}
		if !strings.Contains(n.Body, "🔗 https://example.com") {
			t.Errorf("expected domain short link: %q", n.Body)
		}
	})
}
