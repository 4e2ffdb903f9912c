// Package livelo implements the built-in Livelo transfer-bonus scraper.
// Importing the package registers the plugin.
package livelo

import (
	"context"
	"regexp"
	"time"

	"github.com/milesbot/milesbot/internal/plugin"
	"github.com/milesbot/milesbot/internal/plugin/scrape"
	"github.com/milesbot/milesbot/internal/promo"
)

// minScrapeBonus is lower than the alert threshold on purpose: Livelo
// runs frequent small bonuses and the pipeline decides what is worth an
// alert.
const minScrapeBonus = 30

// pages are Livelo's own promo page plus the blogs that reliably cover
// its transfer bonuses.
var pages = []string{
	"https://www.livelo.com.br/promocoes",
	"https://melhoresdestinos.com.br/tag/livelo/",
	"https://passageirodeprimeira.com/tag/livelo/",
	"https://mestredasmilhas.com/tag/livelo/",
}

// patterns capture the bonus percentage in Livelo-specific phrasings.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`livelo[^%]*?(\d{2,3})\s*%[^%]*?b[oô]nus`),
	regexp.MustCompile(`transf[^%]*?livelo[^%]*?(\d{2,3})\s*%`),
	regexp.MustCompile(`(\d{2,3})\s*%[^%]*?b[oô]nus[^%]*?livelo`),
	regexp.MustCompile(`livelo[^%]*?smiles[^%]*?(\d{2,3})\s*%`),
}

// Plugin scans Livelo-related pages for transfer bonuses.
type Plugin struct {
	scanner *scrape.PageScanner
}

func init() {
	plugin.Register(New())
}

// New creates the Livelo plugin.
func New() *Plugin {
	return &Plugin{
		scanner: &scrape.PageScanner{
			Program:  "livelo",
			Source:   "livelo-scanner",
			Patterns: patterns,
			MinBonus: minScrapeBonus,
		},
	}
}

// Name returns the unique plugin identifier.
func (p *Plugin) Name() string { return "livelo-scanner" }

// Schedule runs the scan every six hours.
func (p *Plugin) Schedule() string { return "0 */6 * * *" }

// Categories labels the plugin's output.
func (p *Plugin) Categories() []string { return []string{"bonus", "livelo"} }

// Scrape scans all Livelo pages. The since parameter is unused because
// the pages carry no reliable publication timestamps; idempotency comes
// from the pipeline's deduplication.
func (p *Plugin) Scrape(ctx context.Context, _ time.Time) ([]promo.Promo, error) {
	return p.scanner.Scan(ctx, pages)
}
