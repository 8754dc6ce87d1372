package monitor

import (
	"fmt"
	"net/url"
	"strings"

	"stock-alerts/models"
)

// Above this length the raw article URL stops being readable on
// phones; show the domain instead.
const maxInlineLinkLen = 60

// FormatAlert assembles the complete push notification for one
// threshold-crossing move. The transport delivers the body verbatim.
func FormatAlert(ticker string, deltaPct float64, sample models.PriceSample, headlines []models.Headline) models.Notification {
	arrow := "🟢 ▲"
	if deltaPct < 0 {
		arrow = "🔴 ▼"
	}

	lines := []string{
		fmt.Sprintf("%s %s Δ=%.2f%% vs. Open", arrow, ticker, deltaPct),
		fmt.Sprintf("Open: %.4f", sample.Open),
		fmt.Sprintf("Last: %.4f", sample.Last),
	}
	if block := formatHeadlines(headlines); block != "" {
		lines = append(lines, "", "📰 News:")
		lines = append(lines, strings.Split(block, "\n")...)
	}

	return models.Notification{
		Title:    "Stock Alert: " + ticker,
		Body:     strings.Join(lines, "\n"),
		ClickURL: "https://finance.yahoo.com/quote/" + url.PathEscape(ticker),
	}
}

// formatHeadlines builds the compact headline block: one bullet line
// per item plus a short clickable URL line. ntfy mobile apps render
// the body as plain text, so the URL is kept on its own line rather
// than hidden behind Markdown.
func formatHeadlines(items []models.Headline) string {
	if len(items) == 0 {
		return ""
	}

	var lines []string
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "(untitled)"
		}

		clock := ""
		if !item.Published.IsZero() {
			clock = "🕒 " + item.Published.Format("15:04") + " "
		}

		lines = append(lines,
			fmt.Sprintf("• %s%s", clock, title),
			fmt.Sprintf(" 🔗 %s", shortLink(item.Link)),
		)
	}
	return strings.Join(lines, "\n")
}

// shortLink returns the link itself when it is short enough to stay
// readable, otherwise just its domain.
func shortLink(link string) string {
	if len(link) <= maxInlineLinkLen {
		return link
	}
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return link
	}
	return "https://" + strings.TrimPrefix(parsed.Host, "www.")
}
