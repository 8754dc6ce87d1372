package company

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"stock-alerts/models"
)

// Yahoo Finance symbol search endpoint, used to resolve a ticker to a
// company name.
const searchAPIURL = "https://query1.finance.yahoo.com/v1/finance/search"

const (
	lookupRetries = 2
	lookupWait    = 400 * time.Millisecond
)

// Common legal suffixes stripped from company names so news queries
// match headlines ("Apple Inc." -> "Apple", "SAP SE" -> "SAP").
var legalSuffixes = map[string]struct{}{
	"inc": {}, "inc.": {}, "incorporated": {},
	"corp": {}, "corp.": {}, "corporation": {},
	"co": {}, "co.": {},
	"ltd": {}, "ltd.": {}, "limited": {},
	"plc": {}, "ag": {}, "se": {},
	"sa": {}, "s.a.": {}, "nv": {},
	"oyj": {}, "ab": {},
	"spa": {}, "s.p.a.": {},
	"kgaa": {}, "sas": {}, "gmbh": {}, "kg": {},
	"pte": {}, "pte.": {}, "bv": {}, "as": {}, "oy": {},
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// Service looks up company metadata for tickers, backed by a local
// sqlite cache so repeated cycles don't hammer the upstream API.
type Service struct {
	db         *sql.DB
	baseURL    string
	httpClient *http.Client
	retryWait  time.Duration
	log        *zap.SugaredLogger
}

// NewService opens (or creates) the sqlite cache at cachePath.
func NewService(cachePath string, log *zap.SugaredLogger) (*Service, error) {
	db, err := sql.Open("sqlite3", cachePath)
	if err != nil {
		return nil, fmt.Errorf("open company cache: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS company_meta (
		ticker      TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		raw_name    TEXT NOT NULL,
		source      TEXT NOT NULL,
		base_ticker TEXT NOT NULL,
		updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create company cache table: %w", err)
	}

	return &Service{
		db:      db,
		baseURL: searchAPIURL,
		httpClient: &http.Client{
			Timeout: 8 * time.Second,
		},
		retryWait: lookupWait,
		log:       log,
	}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

// Get returns metadata for a ticker. It never fails: on a cache miss
// plus a failed remote lookup it degrades to the base ticker.
func (s *Service) Get(ctx context.Context, symbol string) models.CompanyMeta {
	if meta, ok := s.cached(symbol); ok {
		return meta
	}

	rawName, source := s.lookupName(ctx, symbol)
	base := BaseTicker(symbol)
	name := StripLegalSuffixes(rawName)
	if name == "" {
		name = base
		source = "fallback"
	}

	meta := models.CompanyMeta{
		Ticker:     symbol,
		Name:       name,
		RawName:    rawName,
		Source:     source,
		BaseTicker: base,
	}
	s.store(meta)
	return meta
}

// AutoKeywords returns the display name for a ticker plus the deduped
// keyword set its headlines should match.
func (s *Service) AutoKeywords(ctx context.Context, symbol string) (string, []string) {
	meta := s.Get(ctx, symbol)

	name := meta.Name
	if name == "" {
		name = meta.BaseTicker
	}
	if name == "" {
		name = symbol
	}

	var keywords []string
	seen := map[string]struct{}{}
	for _, k := range []string{name, meta.BaseTicker, symbol} {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}
	return name, keywords
}

func (s *Service) cached(symbol string) (models.CompanyMeta, bool) {
	var meta models.CompanyMeta
	err := s.db.QueryRow(
		`SELECT ticker, name, raw_name, source, base_ticker FROM company_meta WHERE ticker = ?`,
		symbol,
	).Scan(&meta.Ticker, &meta.Name, &meta.RawName, &meta.Source, &meta.BaseTicker)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Warnw("company cache read failed", "ticker", symbol, "err", err)
		}
		return models.CompanyMeta{}, false
	}
	return meta, true
}

func (s *Service) store(meta models.CompanyMeta) {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO company_meta (ticker, name, raw_name, source, base_ticker, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		meta.Ticker, meta.Name, meta.RawName, meta.Source, meta.BaseTicker,
	)
	if err != nil {
		s.log.Warnw("company cache write failed", "ticker", meta.Ticker, "err", err)
	}
}

// lookupName queries the search endpoint for the company name behind a
// symbol, preferring the long name. Returns an empty name when the
// lookup fails; callers fall back to the base ticker.
func (s *Service) lookupName(ctx context.Context, symbol string) (string, string) {
	endpoint := s.baseURL + "?" + url.Values{"q": {symbol}}.Encode()

	for attempt := 0; attempt <= lookupRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ""
			case <-time.After(s.retryWait):
			}
		}

		name, source, err := s.fetchName(ctx, endpoint, symbol)
		if err != nil {
			s.log.Debugw("company lookup failed", "ticker", symbol, "attempt", attempt, "err", err)
			continue
		}
		return name, source
	}
	return "", ""
}

func (s *Service) fetchName(ctx context.Context, endpoint, symbol string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("search api status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", fmt.Errorf("parse search response: %w", err)
	}

	for _, q := range parsed.Quotes {
		if !strings.EqualFold(q.Symbol, symbol) {
			continue
		}
		if q.LongName != "" {
			return q.LongName, "search.longname", nil
		}
		if q.ShortName != "" {
			return q.ShortName, "search.shortname", nil
		}
	}
	return "", "", fmt.Errorf("no quote for %s in search response", symbol)
}

// StripLegalSuffixes removes trailing legal-form suffixes from a
// company name.
func StripLegalSuffixes(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Fields(name)
	for i := range parts {
		parts[i] = strings.Trim(parts[i], ",. ")
	}
	for len(parts) > 0 {
		last := strings.ToLower(parts[len(parts)-1])
		if _, ok := legalSuffixes[last]; !ok {
			break
		}
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return strings.TrimSpace(name)
	}
	return strings.Join(parts, " ")
}

// BaseTicker extracts the exchange-free part of a symbol: "SAP.DE" ->
// "SAP", "BRK-B" -> "BRK". Index symbols like "^GDAXI" stay unchanged.
func BaseTicker(symbol string) string {
	if symbol == "" {
		return ""
	}
	if strings.HasPrefix(symbol, "^") {
		return symbol
	}
	if i := strings.IndexByte(symbol, '.'); i >= 0 {
		return symbol[:i]
	}
	if i := strings.IndexByte(symbol, '-'); i >= 0 {
		return symbol[:i]
	}
	return symbol
}
