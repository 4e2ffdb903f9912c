package scanner_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milesbot/milesbot/internal/logger"
	"github.com/milesbot/milesbot/internal/scanner"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Promoções Smiles</title>
    <item>
      <title>Smiles: 100% de bônus na transferência de pontos</title>
      <link>https://blog.example.com/smiles-100</link>
      <description>&lt;p&gt;Transfira pontos com 100% de bônus até sexta.&lt;/p&gt;</description>
    </item>
    <item>
      <title>Passagens para Miami em promoção</title>
      <link>https://blog.example.com/miami</link>
      <description>Sem bônus aqui, só tarifas.</description>
    </item>
  </channel>
</rss>`

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Livelo Promoções</title></head>
<body>
  <script>var tracking = "90% off";</script>
  <h1>Livelo</h1>
  <p>Aproveite 120% de bônus ao transferir pontos para a Smiles.</p>
</body>
</html>`

func TestScanParsesFeedItems(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	s := scanner.New(logger.NewNoOp(), 5*time.Second)
	promos := s.Scan(context.Background(), []string{server.URL + "/tag/smiles/feed"})

	require.Len(t, promos, 1)
	got := promos[0]
	assert.Equal(t, 100, got.BonusPct)
	assert.Equal(t, "https://blog.example.com/smiles-100", got.URL)
	assert.Equal(t, "Promoções Smiles", got.Program)
	assert.Equal(t, scanner.SourceName, got.SourceName)
	assert.NotContains(t, got.Description, "<p>")
}

func TestScanParsesHTMLPages(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	s := scanner.New(logger.NewNoOp(), 5*time.Second)
	promos := s.Scan(context.Background(), []string{server.URL + "/promos"})

	require.Len(t, promos, 1)
	got := promos[0]
	assert.Equal(t, 120, got.BonusPct)
	assert.Equal(t, "Livelo Promoções", got.Program)
	assert.Equal(t, server.URL+"/promos", got.URL)
}

func TestScanSkipsFailingSources(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer failing.Close()

	s := scanner.New(logger.NewNoOp(), 5*time.Second)
	promos := s.Scan(context.Background(), []string{
		failing.URL + "/promos",
		"http://127.0.0.1:1/unreachable",
		server.URL + "/promos",
	})

	require.Len(t, promos, 1)
	assert.Equal(t, 120, promos[0].BonusPct)
}

func TestScanIgnoresPagesWithoutBonusLanguage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>50% de desconto em hotéis</p></body></html>`))
	}))
	defer server.Close()

	s := scanner.New(logger.NewNoOp(), 5*time.Second)
	promos := s.Scan(context.Background(), []string{server.URL})
	assert.Empty(t, promos)
}
