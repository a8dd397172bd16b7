package scan

import (
	"path"
	"strings"

	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// BridgeGroup is the key and label shared by the EET descriptors.
const BridgeGroup = "EET"

// bridgeDescriptors are the cross-game bridge mod and its two add-ons.
var bridgeDescriptors = []string{"eet/eet.tp2", "eet_end/eet_end.tp2", "eet_gui/eet_gui.tp2"}

// GroupOf returns the key and display label of the mod group a descriptor
// belongs to. The bridge mod and its add-ons share one group; every other
// descriptor is its own group labelled "stem (folder)".
func GroupOf(rel string) (key, label string) {
	norm := tp2.NormalizePath(rel)
	for _, b := range bridgeDescriptors {
		if norm == b || strings.HasSuffix(norm, "/"+b) {
			return BridgeGroup, BridgeGroup
		}
	}

	slashed := strings.ReplaceAll(rel, "\\", "/")
	base := path.Base(slashed)
	stem := strings.TrimSuffix(base, path.Ext(base))
	parent := path.Base(path.Dir(slashed))
	if parent == "." || parent == "/" || parent == "" {
		return norm, stem
	}
	return norm, stem + " (" + parent + ")"
}
