package scan

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// MaxDiscoverDepth is how many folders below the mods root are searched.
const MaxDiscoverDepth = 3

const descriptorExt = ".tp2"

// Discover returns every descriptor under root up to maxDepth folders deep,
// sorted case-insensitively by path. Unreadable folders are skipped.
func Discover(root string, maxDepth int) ([]string, error) {
	root = filepath.Clean(root)
	var out []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if depth(root, p) > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), descriptorExt) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out, nil
}

func depth(root, p string) int {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}

// NormalizeRel makes the path of a descriptor relative to the mod's own
// folder, dropping any wrapper folders between the mods root and it, so
// "Downloads/Mods/Stratagems/setup-stratagems.tp2" becomes
// "Stratagems/setup-stratagems.tp2". Separators are always forward slashes.
func NormalizeRel(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = filepath.Base(p)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return path.Join(parts...)
}
