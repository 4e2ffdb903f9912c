package scrape_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milesbot/milesbot/internal/plugin/scrape"
)

const promoPage = `<!DOCTYPE html>
<html>
<head><title>Promoções</title></head>
<body>
  <script>var junk = "livelo 999% bônus";</script>
  <article>
    <h2>Livelo com 100% de bônus para a Smiles</h2>
    <p>Transferência Livelo rende 100% de bônus até domingo.</p>
  </article>
  <article>
    <p>Clube Livelo: assinantes ganham 30% de bônus extra.</p>
  </article>
</body>
</html>`

func newScanner() *scrape.PageScanner {
	return &scrape.PageScanner{
		Program: "livelo",
		Source:  "livelo-scanner",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`livelo[^%]*?(\d{2,3})\s*%[^%]*?b[oô]nus`),
		},
		MinBonus: 30,
	}
}

func TestScanExtractsBonusesFromPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(promoPage))
	}))
	defer server.Close()

	promos, err := newScanner().Scan(context.Background(), []string{server.URL})
	require.NoError(t, err)
	require.Len(t, promos, 2)

	pcts := []int{promos[0].BonusPct, promos[1].BonusPct}
	assert.ElementsMatch(t, []int{100, 30}, pcts)
	for _, p := range promos {
		assert.Equal(t, "livelo", p.Program)
		assert.Equal(t, "livelo-scanner", p.SourceName)
		assert.Equal(t, server.URL, p.URL)
		assert.NotEmpty(t, p.Title)
	}
}

func TestScanDeduplicatesByPercentage(t *testing.T) {
	t.Parallel()

	page := `<html><body>
	  <p>Livelo oferece 100% de bônus.</p>
	  <p>Confirmado: Livelo mantém 100% de bônus na promoção.</p>
	</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	promos, err := newScanner().Scan(context.Background(), []string{server.URL})
	require.NoError(t, err)
	require.Len(t, promos, 1)
	assert.Equal(t, 100, promos[0].BonusPct)
}

func TestScanDropsWeakMatches(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Livelo dá 20% de bônus no clube.</p></body></html>`))
	}))
	defer server.Close()

	promos, err := newScanner().Scan(context.Background(), []string{server.URL})
	require.NoError(t, err)
	assert.Empty(t, promos)
}

func TestScanReturnsPartialResultsOnFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(promoPage))
	}))
	defer server.Close()

	promos, err := newScanner().Scan(context.Background(), []string{
		"http://127.0.0.1:1/unreachable",
		server.URL,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	require.Len(t, promos, 2)
}
