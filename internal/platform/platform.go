// Package platform provides OS detection and program and file lookup that
// tolerates the case-insensitive paths mods are written with.
package platform

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Supported operating system identifiers.
const (
	// OSLinux represents Linux and other Unix-like systems
	OSLinux = "linux"
	// OSWindows represents Windows operating systems
	OSWindows = "windows"
)

// Platform holds detected platform information.
type Platform struct {
	OS    string
	IsWSL bool
}

// Detect detects the current platform.
func Detect() *Platform {
	return &Platform{
		OS:    detectOS(),
		IsWSL: detectWSL(),
	}
}

func detectOS() string {
	if runtime.GOOS == "windows" {
		return OSWindows
	}

	// Also check OS environment variable (for cross-platform scripts)
	if strings.Contains(strings.ToLower(os.Getenv("OS")), "windows") {
		return OSWindows
	}

	return OSLinux
}

// detectWSL checks if running inside Windows Subsystem for Linux.
func detectWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}

	lower := strings.ToLower(string(data))
	return strings.Contains(lower, "microsoft") || strings.Contains(lower, "wsl")
}

// WithOS returns a copy of the Platform with the OS field overridden.
func (p *Platform) WithOS(osType string) *Platform {
	newP := *p
	newP.OS = osType

	return &newP
}

// ToolNames returns the names the listing tool ships under on p, the usual
// one first. WSL can run both builds.
func (p *Platform) ToolNames() []string {
	switch {
	case p.OS == OSWindows:
		return []string{"weidu.exe", "WeiDU.exe"}
	case p.IsWSL:
		return []string{"weidu", "weidu.exe", "WeiDU.exe"}
	default:
		return []string{"weidu"}
	}
}

// ProgramNames returns the file names name may be installed under on p.
// Windows and WSL also accept name.exe when name has no extension.
func (p *Platform) ProgramNames(name string) []string {
	if filepath.Ext(name) != "" || (p.OS != OSWindows && !p.IsWSL) {
		return []string{name}
	}
	return []string{name, name + ".exe"}
}

// LookupProgram finds name on PATH, then in each of dirs.
func (p *Platform) LookupProgram(name string, dirs ...string) (string, bool) {
	candidates := p.ProgramNames(name)

	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, true
		}
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, c := range candidates {
			if path, ok := ResolveFold(dir, c); ok {
				return path, true
			}
		}
	}

	slog.Debug("program not found",
		slog.String("name", name),
		slog.String("os", p.OS),
		slog.Int("extra_dirs", len(dirs)))

	return "", false
}

var (
	currentOnce sync.Once
	current     *Platform
)

// Current returns the detected platform, detecting it on first use.
func Current() *Platform {
	currentOnce.Do(func() {
		current = Detect()
	})
	return current
}

// LookupProgram finds name on PATH, then in each of dirs, for the current
// platform.
func LookupProgram(name string, dirs ...string) (string, bool) {
	return Current().LookupProgram(name, dirs...)
}

// ResolveFold resolves rel (forward or back slashes) under root, matching each
// path element case-insensitively when the exact name does not exist.
func ResolveFold(root, rel string) (string, bool) {
	rel = strings.ReplaceAll(rel, `\`, "/")
	exact := filepath.Join(root, filepath.FromSlash(rel))
	if _, err := os.Stat(exact); err == nil {
		return exact, true
	}

	cur := root
	for _, part := range strings.Split(rel, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
			continue
		}

		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", false
		}

		found := ""
		for _, e := range entries {
			if strings.EqualFold(e.Name(), part) {
				found = e.Name()
				break
			}
		}
		if found == "" {
			return "", false
		}
		cur = filepath.Join(cur, found)
	}

	return cur, true
}

var (
	listingToolOnce   sync.Once
	listingToolCached string
)

// DetectListingTool returns the first listing tool found on PATH, or "".
// The result is cached since PATH rarely changes during execution.
func DetectListingTool() string {
	return detectListingTool(Current())
}

func detectListingTool(p *Platform) string {
	listingToolOnce.Do(func() {
		for _, name := range p.ToolNames() {
			if path, err := exec.LookPath(name); err == nil {
				listingToolCached = path
				return
			}
		}
	})

	return listingToolCached
}

// ResetListingToolCache clears the cached detection result.
func ResetListingToolCache() {
	listingToolOnce = sync.Once{}
	listingToolCached = ""
}
