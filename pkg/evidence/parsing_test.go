package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"150.000", 150000},
		{"150,000", 150000},
		{"150.000,00", 150000}, // trailing cents stripped
		{"1.250.000", 1250000},
		{"Rp 50.000", 50000},
		{"50000", 50000},
		{"25.000.00", 25000},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	_, err := ParseAmount("")
	assert.Error(t, err)
	_, err = ParseAmount("Rp ")
	assert.Error(t, err)
}

func TestParseRibu(t *testing.T) {
	amt, raw := parseRibu("transfer 400 ribu ke kas")
	assert.Equal(t, int64(400000), amt)
	assert.NotEmpty(t, raw)

	amt, _ = parseRibu("400ribu")
	assert.Equal(t, int64(400000), amt)

	// Beyond the cap it is more likely an id than an amount.
	amt, _ = parseRibu("12345 ribu")
	assert.Zero(t, amt)

	amt, _ = parseRibu("tidak ada nominal di sini")
	assert.Zero(t, amt)
}

func TestPlausibleAmount(t *testing.T) {
	plausible := []string{
		"Rp 50.000",
		"IDR 1.000.000",
		"150.000",
		"25000",  // ends in 000
		"12500",  // ends in 500
		"75",     // short bare number
	}
	for _, s := range plausible {
		assert.True(t, plausibleAmount(s), s)
	}

	implausible := []string{
		"",
		"081234567890",  // phone number, leading zero
		"20230001",      // NIM-like id, no round suffix
		"123456789012",  // too long
		"7",             // single digit
	}
	for _, s := range implausible {
		assert.False(t, plausibleAmount(s), s)
	}
}

func TestPickBestPrefersCurrencyMarkers(t *testing.T) {
	amt, raw, found := pickBest([]string{"20230001", "Rp 50.000", "999"})
	require.True(t, found)
	assert.Equal(t, int64(50000), amt)
	assert.Contains(t, raw, "Rp")

	// Labeled totals beat bare grouped digits.
	amt, _, found = pickBest([]string{"1.250.000", "total 75.000"})
	require.True(t, found)
	assert.Equal(t, int64(75000), amt)

	_, _, found = pickBest(nil)
	assert.False(t, found)
}

func TestCollectCandidates(t *testing.T) {
	text := normalizeText("BRI mobile\nTransfer Berhasil\nJumlah: Rp150.000,00\nRef 202401120001")
	got := collectCandidates(text)
	require.NotEmpty(t, got)

	amt, _, found := pickBest(got)
	require.True(t, found)
	assert.Equal(t, int64(150000), amt)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a b c", normalizeText("a\n\tb   c\n"))
	assert.Equal(t, "12345", onlyDigits("Rp 1-2.3,45"))
}
