package weidu

import (
	"regexp"
	"strconv"
	"strings"
)

// Component is one component reported by the listing tool.
type Component struct {
	ID      int
	Name    string
	Version string
}

var (
	numberRE  = regexp.MustCompile(`#\s*(\d+)`)
	versionRE = regexp.MustCompile(`\s*:\s*([0-9][0-9A-Za-z._-]*)\s*$`)
)

// SplitVersion splits "name: 1.2" into name and version. The version must
// start with a digit; otherwise the whole text is the name.
func SplitVersion(text string) (name, version string) {
	text = strings.TrimSpace(text)
	loc := versionRE.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, ""
	}
	return strings.TrimSpace(text[:loc[0]]), text[loc[2]:loc[3]]
}

// ParseListOutput extracts component records from listing output. A record
// line has a "//" comment and at least two #numbers before it; the last
// number is the component id. Other lines are ignored, and the first record
// for an id wins.
func ParseListOutput(text string) []Component {
	var out []Component
	seen := make(map[int]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		prefix, comment, ok := strings.Cut(line, "//")
		if !ok || !strings.Contains(prefix, "#") {
			continue
		}
		nums := numberRE.FindAllStringSubmatch(prefix, -1)
		if len(nums) < 2 {
			continue
		}
		id, err := strconv.Atoi(nums[len(nums)-1][1])
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true

		name, version := SplitVersion(comment)
		out = append(out, Component{ID: id, Name: name, Version: version})
	}

	return out
}
