package quote

import "github.com/quangngluu/backend-pos/internal/catalog"

// SizeKey identifies a purchasable size variant. The set is closed: the
// engine never accepts free-text size keys, and every legacy price-key
// alias must be mapped through ParseSizeKey before it reaches a lookup.
type SizeKey string

const (
	SizeStandard SizeKey = "STANDARD"
	SizePhe      SizeKey = "PHE"
	SizeLa       SizeKey = "LA"
)

// String returns the canonical key.
func (s SizeKey) String() string { return string(s) }

// Valid reports membership in the closed enum.
func (s SizeKey) Valid() bool {
	switch s {
	case SizeStandard, SizePhe, SizeLa:
		return true
	}
	return false
}

// sizeAliases collects the textual variants observed in legacy price rows
// and client payloads. Keys are folded with the same routine used for
// category labels so diacritic spellings ("Phê") collapse onto one entry.
var sizeAliases = map[string]SizeKey{
	"STANDARD":   SizeStandard,
	"DEFAULT":    SizeStandard,
	"PRICE":      SizeStandard,
	"GIA":        SizeStandard,
	"PHE":        SizePhe,
	"SIZE PHE":   SizePhe,
	"PRICE PHE":  SizePhe,
	"PRICEPHE":   SizePhe,
	"SMALL":      SizePhe,
	"LA":         SizeLa,
	"SIZE LA":    SizeLa,
	"PRICE LA":   SizeLa,
	"PRICELA":    SizeLa,
	"LARGE":      SizeLa,
}

// ParseSizeKey maps an arbitrary size or price-key label to the closed
// enum. It is total: unrecognised input reports ok=false rather than
// guessing a size.
func ParseSizeKey(raw string) (SizeKey, bool) {
	folded := catalog.FoldLabel(raw)
	if folded == "" {
		return "", false
	}
	if key, ok := sizeAliases[folded]; ok {
		return key, true
	}
	return "", false
}
