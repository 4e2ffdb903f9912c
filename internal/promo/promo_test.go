package promo_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milesbot/milesbot/internal/promo"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   promo.Promo
		want    promo.Promo
		wantErr error
	}{
		{
			name: "canonicalizes program and url",
			input: promo.Promo{
				Program:  "  LIVELO ",
				BonusPct: 100,
				URL:      " https://x/a ",
			},
			want: promo.Promo{
				Program:      "livelo",
				BonusPct:     100,
				URL:          "https://x/a",
				DiscoveredAt: now,
			},
		},
		{
			name:    "missing program",
			input:   promo.Promo{BonusPct: 100, URL: "https://x/a"},
			wantErr: promo.ErrMissingProgram,
		},
		{
			name:    "missing url",
			input:   promo.Promo{Program: "smiles", BonusPct: 100},
			wantErr: promo.ErrMissingURL,
		},
		{
			name:    "zero bonus",
			input:   promo.Promo{Program: "smiles", BonusPct: 0, URL: "https://x/a"},
			wantErr: promo.ErrInvalidBonus,
		},
		{
			name:    "negative bonus",
			input:   promo.Promo{Program: "smiles", BonusPct: -20, URL: "https://x/a"},
			wantErr: promo.ErrInvalidBonus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.input.Normalize(now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeKeepsExistingTimestamp(t *testing.T) {
	t.Parallel()

	discovered := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := promo.Promo{
		Program:      "livelo",
		BonusPct:     80,
		URL:          "https://x/a",
		DiscoveredAt: discovered,
	}

	got, err := p.Normalize(time.Now())
	require.NoError(t, err)
	assert.Equal(t, discovered, got.DiscoveredAt)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	t.Parallel()

	a := promo.Promo{Program: "LIVELO", BonusPct: 100, URL: "https://x/a"}
	b := promo.Promo{Program: "livelo", BonusPct: 100, URL: "https://x/a/"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}

func TestFingerprintIgnoresTrackingParameters(t *testing.T) {
	t.Parallel()

	a := promo.Promo{Program: "smiles", BonusPct: 90, URL: "https://x/a?utm_source=feed"}
	b := promo.Promo{Program: "smiles", BonusPct: 90, URL: "https://x/a#section"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintDistinguishesOffers(t *testing.T) {
	t.Parallel()

	base := promo.Promo{Program: "livelo", BonusPct: 100, URL: "https://x/a"}

	differentBonus := base
	differentBonus.BonusPct = 110
	assert.NotEqual(t, base.Fingerprint(), differentBonus.Fingerprint())

	differentProgram := base
	differentProgram.Program = "smiles"
	assert.NotEqual(t, base.Fingerprint(), differentProgram.Fingerprint())

	differentURL := base
	differentURL.URL = "https://x/b"
	assert.NotEqual(t, base.Fingerprint(), differentURL.Fingerprint())
}
