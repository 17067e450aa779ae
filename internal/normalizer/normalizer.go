// Package normalizer maps parsed reactions to their canonical simplified form.
//
// The simplified form drops everything but target, projectile, products, an
// isomeric residual and one canonical quantity, so that the same observable
// measured in different entries yields the same types.ReactionKey:
//
//	sr := normalizer.Normalize(types.Reaction{
//	    Projectile: "N", Target: "13-AL-27", Products: []string{"A"},
//	    Residual: "11-NA-24", Quantity: []string{"SIG"},
//	})
//	// sr.Key == types.ReactionKey{Equation: "AL-27(N,A)", Quantity: "SIG"}
//
// The residual is appended to the equation whenever its code contains "-M".
// That is a plain substring test, so "25-MN-56" qualifies as well as
// "27-CO-60-M"; keys stay comparable with indexes built by earlier tools.
package normalizer

import (
	"slices"
	"strings"

	"github.com/dshills/exfor-index/pkg/types"
)

// FallbackQuantity is picked when no priority code is present
const FallbackQuantity = "POT"

// isomerMarker marks a metastable residual
const isomerMarker = "-M"

// quantityPriority is scanned in order; the first code present in a quantity
// list is the canonical one. Most quantities are the first ones in the list,
// but many are not. The duplicated "DA/DE" is kept as coded upstream.
var quantityPriority = []string{
	"AA", "AKE/DA", "AKE", "AMP", "AP",
	"AP/DA", "COR", "COR/DE", "CRL", "DA/RAT", "DA",
	"DA/DE", "DA/DP", "DA/CRL", "DA/DA", "DA/DA/DE",
	"DA/DE", "DA/KE", "DA/TMP", "DE", "FM/DA", "FY",
	"FY/DE", "FY/RAT", "FY/SUM", "FY/CRL", "INT",
	"INT/DA", "ISP", "KE", "KE/CRL", "MCO", "MLT",
	"NU", "NU/DE", "POL", "POL/DA/DE", "POL/DA",
	"POL/DA/DA/DE", "RI", "SPC", "SPC/DMT/DR",
	"SPC/DPT/DR", "SPC/DR", "PY", "SIG", "SIG/RAT",
	"SIG/SUM", "TTY", "TTY/DA/DE", "TTY/DA", "WID",
	"WID/RED", "WID/STR", "ZP",
}

// CanonicalQuantity picks the quantity that represents a measurement.
// An empty list yields "".
func CanonicalQuantity(quantities []string) string {
	for _, q := range quantityPriority {
		if slices.Contains(quantities, q) {
			return q
		}
	}
	if slices.Contains(quantities, FallbackQuantity) {
		return FallbackQuantity
	}
	if len(quantities) == 0 {
		return ""
	}
	return quantities[0]
}

// TargetText strips the charge number from a nuclide code: "26-FE-56" -> "FE-56"
func TargetText(nuclide string) string {
	_, rest, found := strings.Cut(nuclide, "-")
	if !found {
		return ""
	}
	return rest
}

// Normalize builds the simplified form of r
func Normalize(r types.Reaction) types.SimpleReaction {
	product := strings.Join(r.Products, "+")
	text := strings.ToUpper(r.Projectile + "," + product)
	quantity := CanonicalQuantity(r.Quantity)
	target := TargetText(r.Target)

	equation := target + "(" + text + ")"
	if strings.Contains(r.Residual, isomerMarker) {
		equation += r.Residual
	}

	return types.SimpleReaction{
		Projectile: r.Projectile,
		Target:     target,
		Product:    product,
		Text:       text,
		Quantity:   quantity,
		Key:        types.ReactionKey{Equation: equation, Quantity: quantity},
	}
}

// NormalizeAll normalizes every reaction in order
func NormalizeAll(reactions []types.Reaction) []types.SimpleReaction {
	out := make([]types.SimpleReaction, len(reactions))
	for i, r := range reactions {
		out[i] = Normalize(r)
	}
	return out
}
