package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category is the closed set of canonical product categories. Every
// eligibility decision in the quote engine operates on this set; free-text
// or legacy labels must pass through NormalizeCategory first.
type Category string

const (
	CategoryDrink       Category = "DRINK"
	CategoryCake        Category = "CAKE"
	CategoryTopping     Category = "TOPPING"
	CategoryMerchandise Category = "MERCHANDISE"
	CategoryPctc        Category = "PCTC"
	CategoryUnknown     Category = "UNKNOWN"
)

// String returns the canonical label.
func (c Category) String() string { return string(c) }

// Known reports whether the category is a member of the closed set other
// than UNKNOWN.
func (c Category) Known() bool {
	switch c {
	case CategoryDrink, CategoryCake, CategoryTopping, CategoryMerchandise, CategoryPctc:
		return true
	}
	return false
}

// categoryAliases maps folded labels to canonical categories. Exact matches
// are tried before prefix matches, so "BANH" catches "BANH KEM" and friends
// without shadowing an exact "BANH MI" style entry added later.
var categoryAliases = []struct {
	category Category
	exact    []string
	prefixes []string
}{
	{CategoryDrink, []string{"DRINK", "DO UONG", "NUOC UONG", "BEVERAGE", "CAFE", "CA PHE", "COFFEE", "TRA", "TRA SUA"}, []string{"DRINK", "DO UONG", "NUOC", "CA PHE", "CAFE", "TRA"}},
	{CategoryCake, []string{"CAKE", "BANH", "BANH NGOT", "BANH KEM", "PASTRY"}, []string{"CAKE", "BANH"}},
	{CategoryTopping, []string{"TOPPING", "THEM"}, []string{"TOPPING"}},
	{CategoryMerchandise, []string{"MERCHANDISE", "MERCH", "QUA TANG", "GOODS"}, []string{"MERCH", "QUA TANG"}},
	{CategoryPctc, []string{"PCTC"}, []string{"PCTC"}},
}

var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeCategory maps an arbitrary category label onto the closed set.
// It is total and idempotent: any input yields a member of the set, and
// normalizing a canonical label yields that label again. Unmatched or empty
// input maps to UNKNOWN, never to a guess.
func NormalizeCategory(raw string) Category {
	folded := FoldLabel(raw)
	if folded == "" {
		return CategoryUnknown
	}
	for _, entry := range categoryAliases {
		for _, alias := range entry.exact {
			if folded == alias {
				return entry.category
			}
		}
	}
	for _, entry := range categoryAliases {
		for _, prefix := range entry.prefixes {
			if strings.HasPrefix(folded, prefix) {
				return entry.category
			}
		}
	}
	return CategoryUnknown
}

// FoldLabel strips diacritics, uppercases, and collapses interior
// whitespace. Vietnamese đ/Đ carry no combining mark, so they are mapped
// by hand after the unicode fold.
func FoldLabel(raw string) string {
	folded, _, err := transform.String(diacriticFold, raw)
	if err != nil {
		folded = raw
	}
	folded = strings.ReplaceAll(folded, "đ", "d")
	folded = strings.ReplaceAll(folded, "Đ", "D")
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}
