// Package scanner implements the legacy registry scan: every URL in the
// source registry is fetched directly and searched for transfer-bonus
// announcements, either as an RSS feed or as a plain HTML page.
package scanner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/promo"
)

// SourceName identifies promos produced by the legacy scan.
const SourceName = "legacy-scan"

// Fetch limits.
const (
	defaultFetchTimeout = 25 * time.Second
	maxBodyBytes        = 4 << 20
	userAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// bonusPattern requires a percentage, the word bonus and a transfer stem
// in proximity, which filters most unrelated percentage mentions.
var bonusPattern = regexp.MustCompile(
	`(?i)(\d{2,3})\s*%[^%]*?(bônus|bonus)[^%]*?transf`)

// Scanner fetches registry sources and extracts promotion candidates.
type Scanner struct {
	client *http.Client
	logger logger.Interface
}

// New creates a scanner with a bounded-timeout HTTP client.
func New(log logger.Interface, timeout time.Duration) *Scanner {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Scanner{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		logger: log,
	}
}

// Scan fetches every URL and returns all promotion candidates found.
// Per-URL failures are logged and skipped; Scan itself never fails.
func (s *Scanner) Scan(ctx context.Context, urls []string) []promo.Promo {
	var promos []promo.Promo
	for _, sourceURL := range urls {
		found, err := s.scanOne(ctx, sourceURL)
		if err != nil {
			s.logger.Warn("Source scan failed",
				"url", sourceURL,
				"error", err)
			continue
		}
		promos = append(promos, found...)
	}
	return promos
}

// scanOne fetches and parses a single source.
func (s *Scanner) scanOne(ctx context.Context, sourceURL string) ([]promo.Promo, error) {
	body, err := s.fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	if looksLikeFeed(sourceURL) {
		return s.parseFeed(body, sourceURL)
	}
	return s.parsePage(body, sourceURL)
}

// fetch retrieves the page body with a browser user agent.
func (s *Scanner) fetch(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(raw), nil
}

// parseFeed extracts candidates from RSS items, matching the bonus pattern
// against each item's title and description.
func (s *Scanner) parseFeed(body, sourceURL string) ([]promo.Promo, error) {
	feed, err := parseRSS(body)
	if err != nil {
		return nil, err
	}

	program := programName(feed.Channel.Title, sourceURL)
	var promos []promo.Promo
	for _, item := range feed.Channel.Items {
		text := item.Title + " " + truncate(stripTags(item.Description), 300)
		pct, ok := matchBonus(text)
		if !ok {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = sourceURL
		}
		promos = append(promos, promo.Promo{
			Program:     program,
			BonusPct:    pct,
			URL:         link,
			Title:       strings.TrimSpace(item.Title),
			Description: truncate(stripTags(item.Description), 300),
			SourceName:  SourceName,
		})
	}
	return promos, nil
}

// parsePage extracts candidates from the visible text of an HTML page.
func (s *Scanner) parsePage(body, sourceURL string) ([]promo.Promo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	text := normalizeSpace(doc.Text())

	pct, ok := matchBonus(text)
	if !ok {
		return nil, nil
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	return []promo.Promo{{
		Program:    programName(title, sourceURL),
		BonusPct:   pct,
		URL:        sourceURL,
		Title:      title,
		SourceName: SourceName,
	}}, nil
}

// matchBonus returns the first bonus percentage found in the text.
func matchBonus(text string) (int, bool) {
	m := bonusPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil || pct <= 0 {
		return 0, false
	}
	return pct, true
}

// looksLikeFeed mirrors the original heuristic: RSS endpoints end in
// /feed or .rss, or carry "feed" in the URL.
func looksLikeFeed(sourceURL string) bool {
	lower := strings.ToLower(sourceURL)
	return strings.HasSuffix(lower, "/feed") ||
		strings.HasSuffix(lower, ".rss") ||
		strings.Contains(lower, "feed")
}

// programName derives a program label from the page or feed title,
// falling back to the source host.
func programName(title, sourceURL string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if u, err := url.Parse(sourceURL); err == nil && u.Host != "" {
		return u.Host
	}
	return sourceURL
}

// normalizeSpace collapses whitespace runs to single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate limits s to n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
