package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"stock-alerts/config"
	"stock-alerts/models"
)

// Google News RSS search endpoint.
const feedAPIURL = "https://news.google.com/rss/search"

// rssFeed mirrors the subset of the Google News RSS payload we read.
type rssFeed struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string    `xml:"title"`
	Link    string    `xml:"link"`
	PubDate string    `xml:"pubDate"`
	Source  rssSource `xml:"source"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Name string `xml:",chardata"`
}

// Service fetches recent headlines from Google News RSS.
type Service struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewService(log *zap.SugaredLogger) *Service {
	return &Service{
		baseURL: feedAPIURL,
		httpClient: &http.Client{
			Timeout: 8 * time.Second,
		},
		log: log,
	}
}

// BuildQuery combines company name, ticker and a small set of finance
// keywords (EN/DE) into a Google News search query. Quoting the name
// prefers exact matches.
func BuildQuery(name, ticker string) string {
	const financeTerms = "(stock OR shares OR finance OR earnings OR results OR Aktie OR Börse OR Gewinn OR Verlust)"
	return fmt.Sprintf("%q OR %s %s", name, ticker, financeTerms)
}

// FilterTitles keeps only items whose title contains at least one of
// the required keywords, case-insensitive. An empty keyword set keeps
// everything.
func FilterTitles(items []models.Headline, keywords []string) []models.Headline {
	var required []string
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			required = append(required, strings.ToLower(k))
		}
	}
	if len(required) == 0 {
		return items
	}

	var out []models.Headline
	for _, item := range items {
		title := strings.ToLower(item.Title)
		for _, k := range required {
			if strings.Contains(title, k) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// FetchHeadlines returns up to limit headlines for the query published
// within the last lookbackHours. Items without a parseable timestamp
// are kept; the feed already biases toward fresh results via the
// "when:" query hint.
func (s *Service) FetchHeadlines(ctx context.Context, query string, limit, lookbackHours int, lang, country string) ([]models.Headline, error) {
	// The time hint improves freshness on Google's side; the cutoff
	// below enforces it on ours.
	timedQuery := fmt.Sprintf("%s when:%dh", query, lookbackHours)

	params := url.Values{}
	params.Set("q", timedQuery)
	params.Set("hl", fmt.Sprintf("%s-%s", lang, country))
	params.Set("gl", country)
	params.Set("ceid", fmt.Sprintf("%s:%s", country, lang))
	endpoint := s.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news feed status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read news feed: %w", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse news feed: %w", err)
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)
	var results []models.Headline
	for _, item := range feed.Channel.Items {
		published := parsePubDate(item.PubDate)
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}
		results = append(results, models.Headline{
			Title:     strings.TrimSpace(item.Title),
			Source:    strings.TrimSpace(item.Source.Name),
			Link:      strings.TrimSpace(item.Link),
			Published: published,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// RSS feeds are loose about the pubDate format.
var pubDateLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC3339,
}

func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// CompanyDirectory resolves a ticker to a display name plus the
// keywords its headlines must match.
type CompanyDirectory interface {
	AutoKeywords(ctx context.Context, symbol string) (string, []string)
}

// Enricher is the collaborator the monitor calls for one ticker's
// headlines: company lookup, feed fetch, title filter, link cleaning.
type Enricher struct {
	service   *Service
	companies CompanyDirectory
	resolver  *LinkResolver
	cfg       config.NewsConfig
	log       *zap.SugaredLogger
}

func NewEnricher(service *Service, companies CompanyDirectory, resolver *LinkResolver, cfg config.NewsConfig, log *zap.SugaredLogger) *Enricher {
	return &Enricher{
		service:   service,
		companies: companies,
		resolver:  resolver,
		cfg:       cfg,
		log:       log,
	}
}

// Headlines returns cleaned, filtered headlines for a ticker.
func (e *Enricher) Headlines(ctx context.Context, ticker string) ([]models.Headline, error) {
	name, keywords := e.companies.AutoKeywords(ctx, ticker)
	query := BuildQuery(name, ticker)

	items, err := e.service.FetchHeadlines(ctx, query, e.cfg.Limit, e.cfg.LookbackHours, e.cfg.Lang, e.cfg.Country)
	if err != nil {
		return nil, err
	}
	items = FilterTitles(items, keywords)

	// Best-effort: swap redirect links for the real article URL so the
	// notification shows something readable and clickable.
	for i := range items {
		items[i].Link = e.resolver.Clean(ctx, items[i].Link)
		if items[i].Source == "" {
			items[i].Source = Domain(items[i].Link)
		}
	}
	return items, nil
}
