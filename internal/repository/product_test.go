package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"29", 2900, false},
		{"29.00", 2900, false},
		{"29.9", 2990, false},
		{"$1,250.00", 125000, false},
		{" 0.99 ", 99, false},
		{"19.999", 2000, false},
		{"", 0, true},
		{"free", 0, true},
		{"-3", 0, true},
		{"1e30", 0, true},
		{"92233720368547758.08", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePriceCents(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseProductCSV(t *testing.T) {
	src := strings.NewReader(`title,description,price
Creator Guide,Step by step playbook,29.00
Preset Pack,,$12
,missing title,5
Broken,bad price,abc
Huge,overflowing price,1e30
Short row
`)
	products, err := ParseProductCSV(src)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Creator Guide", products[0].Title)
	assert.Equal(t, int64(2900), products[0].PriceCents)
	assert.Equal(t, "Preset Pack", products[1].Title)
	assert.Equal(t, int64(1200), products[1].PriceCents)
	assert.Empty(t, products[1].Description)
}

func TestParseProductCSVEmpty(t *testing.T) {
	_, err := ParseProductCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseProductCSVRejectsUnknownHeader(t *testing.T) {
	_, err := ParseProductCSV(strings.NewReader("name,cost\nGuide,29\n"))
	assert.ErrorContains(t, err, "header")
}
