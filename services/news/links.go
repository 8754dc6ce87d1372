package news

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// LinkResolver turns Google News redirect links into the original
// article URL where feasible. Every step is best-effort: on any
// failure the best candidate so far is returned, never an error.
type LinkResolver struct {
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewLinkResolver(log *zap.SugaredLogger) *LinkResolver {
	return &LinkResolver{
		httpClient: &http.Client{
			Timeout: 3 * time.Second,
		},
		log: log,
	}
}

// Clean normalizes link and tries to resolve it to the final article
// URL: unwrap the ?url= parameter of news.google.com links, follow
// redirects (HEAD first, light GET as fallback), and as a last resort
// scrape the interstitial page for the article target.
func (r *LinkResolver) Clean(ctx context.Context, link string) string {
	if link == "" {
		return ""
	}
	candidate := EnsureHTTPS(link)

	if parsed, err := url.Parse(candidate); err == nil && isGoogleNewsHost(parsed.Host) {
		if target := parsed.Query().Get("url"); target != "" {
			candidate = EnsureHTTPS(target)
		}
	}

	final := r.follow(ctx, candidate)
	if parsed, err := url.Parse(final); err == nil && isGoogleNewsHost(parsed.Host) {
		if scraped := r.scrapeArticleURL(ctx, final); scraped != "" {
			return scraped
		}
	}
	return final
}

// follow chases redirects and returns the final URL. Some servers
// reject HEAD, so a GET is tried before giving up.
func (r *LinkResolver) follow(ctx context.Context, candidate string) string {
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, candidate, nil)
		if err != nil {
			return candidate
		}
		resp, err := r.httpClient.Do(req)
		if err != nil {
			continue
		}
		final := candidate
		if resp.Request != nil && resp.Request.URL != nil {
			final = resp.Request.URL.String()
		}
		resp.Body.Close()
		return EnsureHTTPS(final)
	}
	r.log.Debugw("redirect resolution failed", "link", candidate)
	return candidate
}

// scrapeArticleURL parses a Google News interstitial page looking for
// the article target: og:url first, then the first external anchor.
func (r *LinkResolver) scrapeArticleURL(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	if og, ok := doc.Find(`meta[property="og:url"]`).Attr("content"); ok && !isGoogleNewsURL(og) {
		return EnsureHTTPS(og)
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if strings.HasPrefix(href, "http") && !isGoogleNewsURL(href) {
			found = href
			return false
		}
		return true
	})
	return found
}

// EnsureHTTPS prefixes schemeless URLs with https://. Feeds sometimes
// carry bare domains or protocol-relative links.
func EnsureHTTPS(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return "https://" + u
}

// Domain extracts a display domain from a URL, without a leading www.
func Domain(u string) string {
	if u == "" {
		return ""
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return u
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

func isGoogleNewsHost(host string) bool {
	return strings.Contains(strings.ToLower(host), "news.google.com")
}

func isGoogleNewsURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return isGoogleNewsHost(parsed.Host)
}
