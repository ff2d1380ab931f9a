// Package sku parses storefront SKUs into family prefix and quantity
// multiplier, and groups variant records into families by prefix.
package sku

import (
	"regexp"
	"strconv"
)

var qtySuffixRe = regexp.MustCompile(`^(.*)-([0-9]+)$`)

// Parse splits a SKU into its family prefix and quantity multiplier.
// The multiplier is the digit run after the final hyphen, the prefix is
// everything before it: "FR320-20" → ("FR320", 20), "A-B-5" → ("A-B", 5).
// A SKU without the suffix sells a single unit: "FR320" → ("FR320", 1).
// A zero suffix ("X-0") or a digit run too long for int is not a quantity
// multiplier; the whole SKU is the prefix and the quantity is 1.
func Parse(s string) (prefix string, qty int) {
	m := qtySuffixRe.FindStringSubmatch(s)
	if m == nil {
		return s, 1
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 1 {
		return s, 1
	}
	return m[1], n
}
