// Package promo defines the canonical promotion model shared by the
// scraper plugins, the legacy scanner and the alert pipeline.
package promo

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Validation errors returned by Normalize.
var (
	ErrMissingProgram = errors.New("promo is missing a program")
	ErrMissingURL     = errors.New("promo is missing a source URL")
	ErrInvalidBonus   = errors.New("promo bonus percentage must be positive")
)

// Promo represents one detected transfer-bonus promotion.
type Promo struct {
	// Program is the loyalty program identifier, e.g. "livelo".
	Program string `json:"program"`
	// BonusPct is the advertised transfer bonus percentage.
	BonusPct int `json:"bonus_pct"`
	// URL is the page the promotion was extracted from.
	URL string `json:"url"`
	// Title is an optional human-readable headline.
	Title string `json:"title,omitempty"`
	// Description is optional free text around the match.
	Description string `json:"description,omitempty"`
	// SourceName identifies the producing plugin or scanner.
	SourceName string `json:"source_name"`
	// DiscoveredAt is set at ingestion time.
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Normalize returns a canonical copy of the promo: program trimmed and
// lower-cased, URL trimmed, discovery timestamp filled in. It reports an
// error for candidates that cannot enter the pipeline.
func (p Promo) Normalize(now time.Time) (Promo, error) {
	p.Program = strings.ToLower(strings.TrimSpace(p.Program))
	p.URL = strings.TrimSpace(p.URL)
	p.Title = strings.TrimSpace(p.Title)

	if p.Program == "" {
		return Promo{}, ErrMissingProgram
	}
	if p.URL == "" {
		return Promo{}, ErrMissingURL
	}
	if p.BonusPct <= 0 {
		return Promo{}, ErrInvalidBonus
	}
	if p.DiscoveredAt.IsZero() {
		p.DiscoveredAt = now
	}
	return p, nil
}

// Fingerprint computes the deduplication key for a normalized promo: the
// sha256 hex digest of program, bonus percentage and the URL stripped of
// query string and fragment. Two promos describing the same offer always
// map to the same fingerprint, regardless of process restarts.
func (p Promo) Fingerprint() string {
	program := strings.ToLower(strings.TrimSpace(p.Program))
	key := program + "|" + strconv.Itoa(p.BonusPct) + "|" + canonicalURL(p.URL)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// canonicalURL strips query string, fragment and trailing slash so that
// tracking parameters do not defeat deduplication.
func canonicalURL(raw string) string {
	u := strings.TrimSpace(raw)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSuffix(u, "/")
}
