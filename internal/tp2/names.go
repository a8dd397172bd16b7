package tp2

import (
	"strconv"
	"strings"
)

// undefinedMarker prefixes names the listing tool could not resolve, as in
// "UNDEFINED STRING: @12".
const undefinedMarker = "UNDEFINED"

// IsUnresolved reports whether a component name is missing or a placeholder.
func IsUnresolved(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" ||
		strings.HasPrefix(name, ":") ||
		strings.HasPrefix(strings.ToUpper(name), undefinedMarker)
}

// CountUnresolved counts placeholder names.
func CountUnresolved(names []string) int {
	n := 0
	for _, name := range names {
		if IsUnresolved(name) {
			n++
		}
	}
	return n
}

// DisplayName replaces an unresolved name with the block label, then with a
// generated "Component <id>".
func DisplayName(name, label string, id int) string {
	if !IsUnresolved(name) {
		return strings.TrimSpace(name)
	}
	if label = strings.TrimSpace(label); label != "" {
		return label
	}
	return "Component " + strconv.Itoa(id)
}
