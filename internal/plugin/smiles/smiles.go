// Package smiles implements the built-in Smiles transfer-bonus scraper.
// Importing the package registers the plugin.
package smiles

import (
	"context"
	"regexp"
	"time"

	"github.com/milesbot/milesbot/internal/plugin"
	"github.com/milesbot/milesbot/internal/plugin/scrape"
	"github.com/milesbot/milesbot/internal/promo"
)

// Smiles rarely announces below 50%, so weaker matches are noise.
const minScrapeBonus = 50

var pages = []string{
	"https://promocao.smiles.com.br",
	"https://www.smiles.com.br/promocoes",
	"https://melhoresdestinos.com.br/tag/smiles/",
	"https://passageirodeprimeira.com/tag/smiles/",
}

var patterns = []*regexp.Regexp{
	regexp.MustCompile(`smiles[^%]*?(\d{2,3})\s*%[^%]*?b[oô]nus`),
	regexp.MustCompile(`transf[^%]*?smiles[^%]*?(\d{2,3})\s*%`),
	regexp.MustCompile(`(\d{2,3})\s*%[^%]*?b[oô]nus[^%]*?smiles`),
	regexp.MustCompile(`livelo[^%]*?smiles[^%]*?(\d{2,3})\s*%`),
}

// Plugin scans Smiles-related pages for transfer bonuses.
type Plugin struct {
	scanner *scrape.PageScanner
}

func init() {
	plugin.Register(New())
}

// New creates the Smiles plugin.
func New() *Plugin {
	return &Plugin{
		scanner: &scrape.PageScanner{
			Program:  "smiles",
			Source:   "smiles-monitor",
			Patterns: patterns,
			MinBonus: minScrapeBonus,
		},
	}
}

// Name returns the unique plugin identifier.
func (p *Plugin) Name() string { return "smiles-monitor" }

// Schedule runs the scan every four hours.
func (p *Plugin) Schedule() string { return "0 */4 * * *" }

// Categories labels the plugin's output.
func (p *Plugin) Categories() []string { return []string{"bonus", "smiles"} }

// Scrape scans all Smiles pages.
func (p *Plugin) Scrape(ctx context.Context, _ time.Time) ([]promo.Promo, error) {
	return p.scanner.Scan(ctx, pages)
}
