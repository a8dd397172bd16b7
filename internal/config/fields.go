package config

import (
	"fmt"
)

// Field is one configuration key and its current value.
type Field struct {
	Key   string
	Value string
	// Path is set for folder and file fields.
	Path bool
	Help string
}

// fieldRef binds a key to the struct field that stores it.
type fieldRef struct {
	key  string
	ptr  *string
	path bool
	help string
}

func (a *AppConfig) refs() []fieldRef {
	return []fieldRef{
		{"weidu_binary", &a.WeiduBinary, true, "listing tool executable"},
		{"mods_dir", &a.ModsDir, true, "folder holding the mods to scan"},
		{"bgee_dir", &a.BGEEDir, true, "BGEE install folder"},
		{"bg2ee_dir", &a.BG2EEDir, true, "BG2EE install folder"},
		{"mode", &a.Mode, false, "bgee, bg2ee or eet"},
		{"bgee_log_dir", &a.BGEELogDir, true, "folder the BGEE weidu.log is written to"},
		{"bg2ee_log_dir", &a.BG2EELogDir, true, "folder the BG2EE weidu.log is written to"},
		{"state_db", &a.StateDB, true, "SQLite file for the last scan and selection"},
		{"timeout", &a.Timeout, false, "listing call timeout, such as 3m"},
	}
}

// Fields lists every key in file order.
func (a *AppConfig) Fields() []Field {
	refs := a.refs()
	out := make([]Field, len(refs))
	for i, r := range refs {
		out[i] = Field{Key: r.key, Value: *r.ptr, Path: r.path, Help: r.help}
	}
	return out
}

// Get returns the value of key.
func (a *AppConfig) Get(key string) (string, error) {
	for _, r := range a.refs() {
		if r.key == key {
			return *r.ptr, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Set changes key to value. The result is not validated.
func (a *AppConfig) Set(key, value string) error {
	for _, r := range a.refs() {
		if r.key == key {
			*r.ptr = value
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownKey, key)
}
