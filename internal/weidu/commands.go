package weidu

import (
	"context"
	"os/exec"
	"strconv"
)

// Request describes one listing of a descriptor's components.
type Request struct {
	TP2      string // descriptor path
	GameDir  string
	UseLang  string // game language folder, "" to omit --use-lang
	Language int    // LANGUAGE index to list names in
	WorkDir  string
}

// listArgs is the argument template of a listing call. Placeholders in braces
// are replaced by expandArgs; "--use-lang {lang}" is dropped without a folder.
var listArgs = []string{"--game", "{game}", "--use-lang", "{lang}", "--list-components", "{tp2}", "{index}"}

func expandArgs(req Request) []string {
	result := make([]string, 0, len(listArgs))
	for i := 0; i < len(listArgs); i++ {
		switch listArgs[i] {
		case "--use-lang":
			if req.UseLang == "" {
				i++
				continue
			}
			result = append(result, listArgs[i])
		case "{game}":
			result = append(result, req.GameDir)
		case "{lang}":
			result = append(result, req.UseLang)
		case "{tp2}":
			result = append(result, req.TP2)
		case "{index}":
			result = append(result, strconv.Itoa(req.Language))
		default:
			result = append(result, listArgs[i])
		}
	}

	return result
}

// BuildCommand creates an *exec.Cmd listing the components of req.TP2.
// It is a pure command builder; the caller controls execution and output.
func BuildCommand(ctx context.Context, binary string, req Request) *exec.Cmd {
	cmd := exec.CommandContext(ctx, binary, expandArgs(req)...) //nolint:gosec // binary is the configured listing tool
	cmd.Dir = req.WorkDir

	return cmd
}
