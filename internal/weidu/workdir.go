package weidu

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AntoineGS/tp2scan/internal/platform"
	"github.com/AntoineGS/tp2scan/internal/tp2"
)

// PickWorkDir chooses the directory the listing tool runs in: whichever of
// the descriptor's folder and its two ancestors resolves the most of
// traPaths, counting a "lang" folder as one more hit. Ties and no hits keep
// the nearest folder.
func PickWorkDir(tp2Path string, traPaths []string) string {
	bases := tp2.SearchBases(tp2Path)
	best, bestHits := bases[0], 0
	for _, base := range bases {
		hits := 0
		for _, rel := range traPaths {
			if _, ok := platform.ResolveFold(base, tp2.ExpandModFolder(rel, tp2Path)); ok {
				hits++
			}
		}
		if p, ok := platform.ResolveFold(base, "lang"); ok && isDir(p) {
			hits++
		}
		if hits > bestHits {
			best, bestHits = base, hits
		}
	}

	return best
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// preferredUseLang is the game language folder chosen when present.
const preferredUseLang = "en_us"

// DetectUseLang returns the game's language folder to pass with --use-lang:
// en_us when present, else the alphabetically first folder under lang/.
// It returns "" when the game has no lang folder.
func DetectUseLang(gameDir string) string {
	langDir, ok := platform.ResolveFold(gameDir, "lang")
	if !ok {
		return ""
	}
	entries, err := os.ReadDir(langDir)
	if err != nil {
		return ""
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if strings.EqualFold(e.Name(), preferredUseLang) {
			return e.Name()
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return ""
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	return names[0]
}

// abs returns an absolute form of p, or p itself when that fails.
func abs(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}
