// Package game defines the game targets a mod list can be built for and the
// normalization of game tokens found in mod descriptors.
package game

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Target is one game install a mod list is built against.
type Target int

const (
	// BGEE is Baldur's Gate: Enhanced Edition.
	BGEE Target = iota
	// BG2EE is Baldur's Gate II: Enhanced Edition.
	BG2EE
)

// Targets lists every target in tab order.
var Targets = []Target{BGEE, BG2EE}

// String returns the lowercase game token for the target.
func (t Target) String() string {
	switch t {
	case BGEE:
		return TokenBGEE
	case BG2EE:
		return TokenBG2EE
	default:
		return "unknown"
	}
}

// Label returns the display name of the target.
func (t Target) Label() string {
	switch t {
	case BGEE:
		return "BGEE"
	case BG2EE:
		return "BG2EE"
	default:
		return "?"
	}
}

// ParseTarget parses a target token such as "bgee" or "BG2EE".
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case TokenBGEE:
		return BGEE, nil
	case TokenBG2EE:
		return BG2EE, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

// Mode selects which targets are scanned and validated.
type Mode int

const (
	// ModeBGEE builds a list for BGEE only.
	ModeBGEE Mode = iota
	// ModeBG2EE builds a list for BG2EE only.
	ModeBG2EE
	// ModeEET builds both lists from one shared mods folder.
	ModeEET
)

func (m Mode) String() string {
	switch m {
	case ModeBGEE:
		return TokenBGEE
	case ModeBG2EE:
		return TokenBG2EE
	case ModeEET:
		return TokenEET
	default:
		return "unknown"
	}
}

// ParseMode parses "bgee", "bg2ee" or "eet".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case TokenBGEE:
		return ModeBGEE, nil
	case TokenBG2EE:
		return ModeBG2EE, nil
	case TokenEET:
		return ModeEET, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Targets returns the targets enabled by the mode, in scan order.
func (m Mode) Targets() []Target {
	switch m {
	case ModeBGEE:
		return []Target{BGEE}
	case ModeBG2EE:
		return []Target{BG2EE}
	case ModeEET:
		return []Target{BGEE, BG2EE}
	default:
		return nil
	}
}

// Enables reports whether t is scanned in mode m.
func (m Mode) Enables(t Target) bool {
	for _, mt := range m.Targets() {
		if mt == t {
			return true
		}
	}
	return false
}

// DefaultTarget is the tab shown first for the mode.
func (m Mode) DefaultTarget() Target {
	if m == ModeBG2EE {
		return BG2EE
	}
	return BGEE
}

// Game tokens as stored in allowed-game sets.
const (
	TokenBGEE  = "bgee"
	TokenBG2EE = "bg2ee"
	TokenEET   = "eet"
	TokenIWDEE = "iwdee"
)

var tokenSplit = regexp.MustCompile(`[\s,;/]+`)

// canonical maps raw descriptor spellings onto stored tokens.
var canonical = map[string]string{
	"bgee":   TokenBGEE,
	"bg1ee":  TokenBGEE,
	"bg1":    TokenBGEE,
	"bg2ee":  TokenBG2EE,
	"bg2":    TokenBG2EE,
	"eet":    TokenEET,
	"iwdee":  TokenIWDEE,
	"iwd-ee": TokenIWDEE,
	"iwd_ee": TokenIWDEE,
}

func cleanToken(raw string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(raw), "~\"'"))
}

// Canonical maps one raw game token onto its stored form. The second result is
// false for tokens outside the table.
func Canonical(raw string) (string, bool) {
	tok, ok := canonical[cleanToken(raw)]
	return tok, ok
}

// Tokens splits a raw game argument such as "bg2ee eet" into canonical tokens,
// dropping anything unknown. The result is sorted and deduplicated.
func Tokens(raw string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range tokenSplit.Split(cleanToken(raw), -1) {
		tok, ok := canonical[part]
		if !ok || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Matches reports whether a raw token from a game-qualified directive applies
// to target t. "eet" matches both targets; the iwdee family never matches.
func Matches(raw string, t Target) bool {
	for _, tok := range Tokens(raw) {
		if tokenAllows(tok, t) {
			return true
		}
	}
	return false
}

func tokenAllows(tok string, t Target) bool {
	switch tok {
	case TokenEET:
		return true
	case TokenBGEE:
		return t == BGEE
	case TokenBG2EE:
		return t == BG2EE
	default:
		return false
	}
}

// Allowed reports whether a component tagged with allowed may be selected on
// target t. An empty set allows every target.
func Allowed(allowed []string, t Target) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, tok := range allowed {
		if tokenAllows(tok, t) {
			return true
		}
	}
	return false
}
