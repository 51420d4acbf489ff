package services

import (
	"strings"
)

const identitySeparator = "|"

// IdentityKey derives the stable address-based key that links the same
// physical unit across snapshots, since the site issues new ad IDs on
// re-listing. Each component is trimmed, comma-stripped, whitespace-collapsed
// and lower-cased; empty components are omitted. An all-empty address yields
// "" meaning the record cannot be linked.
func IdentityKey(address, postalCode, city string) string {
	parts := make([]string, 0, 3)
	for _, component := range []string{address, postalCode, city} {
		component = strings.ReplaceAll(component, ",", "")
		component = strings.ToLower(collapseWhitespace(component))
		if component != "" {
			parts = append(parts, component)
		}
	}
	return strings.Join(parts, identitySeparator)
}
