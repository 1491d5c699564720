package quote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSizeKey(t *testing.T) {
	cases := map[string]SizeKey{
		"standard":  SizeStandard,
		"Default":   SizeStandard,
		"Price":     SizeStandard,
		"giá":       SizeStandard,
		"Phê":       SizePhe,
		"phe":       SizePhe,
		"Size Phê":  SizePhe,
		"PricePhe":  SizePhe,
		"La":        SizeLa,
		"size la":   SizeLa,
		"PriceLa":   SizeLa,
		"LARGE":     SizeLa,
	}
	for input, want := range cases {
		got, ok := ParseSizeKey(input)
		require.Truef(t, ok, "expected %q to parse", input)
		require.Equal(t, want, got)
	}
}

func TestParseSizeKeyRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "  ", "XL", "mega", "size"} {
		_, ok := ParseSizeKey(input)
		require.Falsef(t, ok, "expected %q to be rejected", input)
	}
}

func TestSizeKeyValid(t *testing.T) {
	require.True(t, SizePhe.Valid())
	require.True(t, SizeLa.Valid())
	require.True(t, SizeStandard.Valid())
	require.False(t, SizeKey("GRANDE").Valid())
	require.False(t, SizeKey("").Valid())
}
