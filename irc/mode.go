package irc

import "strings"

// ModeCategory classifies how a channel mode letter consumes arguments,
// per the CHANMODES ISUPPORT token.
type ModeCategory int

const (
	// ModeA always takes an argument, in both directions, and conceptually
	// adds/removes a list entry (e.g. ban masks).
	ModeA ModeCategory = iota
	// ModeB always takes an argument, in both directions.
	ModeB
	// ModeC takes an argument only when being set.
	ModeC
	// ModeD never takes an argument.
	ModeD
)

// Mode is a single mode letter with its category. Equality between two
// Modes should compare only the Letter, per spec.
type Mode struct {
	Category ModeCategory
	Letter   byte
	Param    string
}

// ModeChange is one parsed +/- toggle from a MODE line.
type ModeChange struct {
	Mode   Mode
	Enable bool
}

// ParseModeString parses a mode letters string (e.g. "+sk-l") and its
// trailing arguments into a sequence of ModeChanges, consulting categories
// to know how many arguments each letter consumes. categories may be nil,
// in which case every letter is treated as category D (used for user mode
// strings, which never carry arguments in this model).
//
// Consumes exactly one argument per A/B mode (either direction) and per C
// mode (set direction only), left to right. If the argument queue runs dry
// before a letter that needs one, the entire line is malformed and an empty
// slice is returned (spec.md invariant 6).
func ParseModeString(modes string, args []string, categories map[byte]ModeCategory) []ModeChange {
	var changes []ModeChange
	enable := true
	argi := 0

	for i := 0; i < len(modes); i++ {
		c := modes[i]
		switch c {
		case '+':
			enable = true
			continue
		case '-':
			enable = false
			continue
		}

		cat := ModeD
		if categories != nil {
			if got, ok := categories[c]; ok {
				cat = got
			}
		}

		takesArg := cat == ModeA || cat == ModeB || (cat == ModeC && enable)

		var param string
		if takesArg {
			if argi >= len(args) {
				return nil
			}
			param = args[argi]
			argi++
		}

		changes = append(changes, ModeChange{
			Mode: Mode{
				Category: cat,
				Letter:   c,
				Param:    param,
			},
			Enable: enable,
		})
	}

	return changes
}

// FormatModeString renders a sequence of ModeChanges back to wire form:
// grouped "+"/"-" runs of letters followed by the space-separated arguments
// of modes that carry one, in the same left-to-right order they were
// parsed in. Round-trips ParseModeString for canonical (already
// sign-grouped) inputs.
func FormatModeString(changes []ModeChange) (modes string, args []string) {
	var b strings.Builder
	var lastSign int // 0 = none yet, 1 = '+', -1 = '-'
	for _, ch := range changes {
		sign := -1
		if ch.Enable {
			sign = 1
		}
		if sign != lastSign {
			if sign > 0 {
				b.WriteByte('+')
			} else {
				b.WriteByte('-')
			}
			lastSign = sign
		}
		b.WriteByte(ch.Mode.Letter)
		if ch.Mode.Param != "" || ch.Mode.Category == ModeA || ch.Mode.Category == ModeB {
			args = append(args, ch.Mode.Param)
		}
	}
	return b.String(), args
}

// ParseChanModes parses the ISUPPORT CHANMODES=a,b,c,d token into a
// letter -> category map.
func ParseChanModes(value string) map[byte]ModeCategory {
	groups := strings.SplitN(value, ",", 4)
	out := map[byte]ModeCategory{}
	for i, g := range groups {
		if i > 3 {
			break
		}
		cat := ModeCategory(i)
		for j := 0; j < len(g); j++ {
			out[g[j]] = cat
		}
	}
	return out
}
