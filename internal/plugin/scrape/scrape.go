// Package scrape provides the shared page-scanning machinery used by the
// built-in scraper plugins: a colly collector tuned for promo pages and a
// regex-driven bonus extractor.
package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/milesbot/milesbot/internal/promo"
)

// Collector defaults, kept close to ordinary browser behavior so promo
// pages serve their full markup.
const (
	defaultTimeout = 15 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	// contextWindow is how much surrounding text becomes the promo title.
	contextWindow = 150
	// maxBonusPct guards against matching order numbers and the like.
	maxBonusPct = 500
)

// PageScanner scans a fixed set of pages for bonus announcements matching
// program-specific patterns.
type PageScanner struct {
	// Program is the loyalty program label stamped on found promos.
	Program string
	// Source is the plugin name stamped on found promos.
	Source string
	// Patterns are regexes whose first capture group is the bonus
	// percentage. They are matched against lower-cased page text.
	Patterns []*regexp.Regexp
	// MinBonus drops weak matches at the scrape stage; the pipeline
	// applies the configured alert threshold separately.
	MinBonus int
	// Timeout bounds a single page fetch.
	Timeout time.Duration
}

// Scan fetches every URL and extracts bonus promotions. Per-page failures
// are collected into the returned error but never stop the remaining
// pages; partial results are always returned.
func (ps *PageScanner) Scan(ctx context.Context, urls []string) ([]promo.Promo, error) {
	var (
		promos []promo.Promo
		errs   []string
	)

	for _, pageURL := range urls {
		text, err := ps.fetchText(ctx, pageURL)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", pageURL, err))
			continue
		}
		promos = append(promos, ps.extract(text, pageURL)...)
	}

	if len(errs) > 0 {
		return promos, fmt.Errorf("scrape errors: %s", strings.Join(errs, "; "))
	}
	return promos, nil
}

// fetchText downloads a page and returns its visible text, lower-cased.
func (ps *PageScanner) fetchText(ctx context.Context, pageURL string) (string, error) {
	timeout := ps.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	collector.SetRequestTimeout(timeout)

	var (
		text     string
		fetchErr error
	)
	collector.OnHTML("html", func(e *colly.HTMLElement) {
		e.DOM.Find("script, style, noscript").Remove()
		text = strings.ToLower(strings.Join(strings.Fields(e.DOM.Text()), " "))
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(pageURL); err != nil {
		return "", err
	}
	collector.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	return text, nil
}

// extract runs every pattern over the text, deduplicating by percentage
// the way the original scanners do: one promo per distinct bonus level
// per page.
func (ps *PageScanner) extract(text, pageURL string) []promo.Promo {
	var promos []promo.Promo
	found := make(map[int]struct{})

	for _, pattern := range ps.Patterns {
		for _, match := range pattern.FindAllStringSubmatchIndex(text, -1) {
			if len(match) < 4 {
				continue
			}
			pct, err := strconv.Atoi(text[match[2]:match[3]])
			if err != nil || pct < ps.MinBonus || pct > maxBonusPct {
				continue
			}
			if _, dup := found[pct]; dup {
				continue
			}
			found[pct] = struct{}{}

			promos = append(promos, promo.Promo{
				Program:    ps.Program,
				BonusPct:   pct,
				URL:        pageURL,
				Title:      titleAround(text, match[0], match[1], pct, ps.Program),
				SourceName: ps.Source,
			})
		}
	}
	return promos
}

// titleAround builds a readable title from the text surrounding a match.
func titleAround(text string, start, end, pct int, program string) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	context := strings.TrimSpace(text[lo:hi])

	// Prefer the sentence that mentions both the percentage and program.
	for _, sentence := range strings.Split(context, ".") {
		if strings.Contains(sentence, strconv.Itoa(pct)) &&
			strings.Contains(sentence, strings.ToLower(program)) {
			if s := strings.TrimSpace(sentence); len(s) > 10 {
				return capTitle(s)
			}
		}
	}
	return fmt.Sprintf("%s transfer bonus: %d%%", program, pct)
}

// capTitle bounds a derived title to something chat-friendly.
func capTitle(s string) string {
	const maxTitle = 120
	runes := []rune(s)
	if len(runes) <= maxTitle {
		return s
	}
	return string(runes[:maxTitle]) + "…"
}
