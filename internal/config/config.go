package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Merge overrides fields with the non-empty fields of o, as given on the
// command line.
func (a *AppConfig) Merge(o *AppConfig) {
	if o == nil {
		return
	}
	theirs := o.refs()
	for i, r := range a.refs() {
		if v := *theirs[i].ptr; v != "" {
			*r.ptr = v
		}
	}
}

// ExpandPath resolves a configured path: a leading ~ becomes the home
// directory and $VAR or ${VAR} are replaced from the environment. Paths are
// stored unexpanded so one config works on several machines.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}

	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return os.ExpandEnv(path)
}

func marshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
