package address

import (
	"strings"
	"unicode"

	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldName lower-cases and strips accents so "São João" matches "sao joao".
func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// MatchDistrict finds the catalog district for name.
func MatchDistrict(districts []types.District, name string) (types.District, bool) {
	key := foldName(name)
	if key == "" {
		return types.District{}, false
	}
	for _, d := range districts {
		if foldName(d.Name) == key {
			return d, true
		}
	}
	return types.District{}, false
}

// FeeForDistrict returns the configured delivery fee, or zero when unmatched.
func FeeForDistrict(districts []types.District, name string) decimal.Decimal {
	if d, ok := MatchDistrict(districts, name); ok {
		return d.DeliveryFee
	}
	return decimal.Zero
}
