package irc

import (
	"strings"
)

// PrefixMode is one entry of the ISUPPORT PREFIX token: a membership mode
// letter and the sigil it is displayed as, in rank order (highest first).
type PrefixMode struct {
	Mode   byte
	Prefix byte
}

// ISupport accumulates and interprets RPL_ISUPPORT (005) tokens, mirroring
// the teacher's updateFeatures but exposed as a standalone, reusable store
// rather than inline Session fields.
type ISupport struct {
	raw map[string]string

	Casemap      func(string) string
	ChanModes    map[byte]ModeCategory
	ChanTypes    string
	StatusMsg    string
	Prefixes     []PrefixMode
	NickLen      int
	ChannelLen   int
	TopicLen     int
	KickLen      int
	AwayLen      int
	Whox         bool
	Namesx       bool
	Uhnames      bool
	MonitorLimit int
}

// NewISupport returns a store with the RFC 1459/2812 defaults in effect
// before any 005 line has been seen.
func NewISupport() *ISupport {
	return &ISupport{
		raw:       map[string]string{},
		Casemap:   CasemapRFC1459,
		ChanModes: map[byte]ModeCategory{},
		ChanTypes: "#&",
		Prefixes: []PrefixMode{
			{Mode: 'o', Prefix: '@'},
			{Mode: 'v', Prefix: '+'},
		},
	}
}

// Get returns a raw token value as sent by the server, for tokens this
// store doesn't interpret itself (WHOX flags, vendor extensions, etc).
func (is *ISupport) Get(token string) (string, bool) {
	v, ok := is.raw[strings.ToUpper(token)]
	return v, ok
}

// PrefixSymbols returns the sigils in rank order, e.g. "@+".
func (is *ISupport) PrefixSymbols() string {
	b := make([]byte, len(is.Prefixes))
	for i, p := range is.Prefixes {
		b[i] = p.Prefix
	}
	return string(b)
}

// PrefixModes returns the mode letters in rank order, e.g. "ov".
func (is *ISupport) PrefixModes() string {
	b := make([]byte, len(is.Prefixes))
	for i, p := range is.Prefixes {
		b[i] = p.Mode
	}
	return string(b)
}

// StatusMsgSet reports whether prefix is usable as a STATUSMSG message
// target sigil.
func (is *ISupport) StatusMsgSet(prefix byte) bool {
	return strings.IndexByte(is.StatusMsg, prefix) >= 0
}

// IsChannel reports whether name begins with a declared channel sigil.
func (is *ISupport) IsChannel(name string) bool {
	return len(name) > 0 && strings.IndexByte(is.ChanTypes, name[0]) >= 0
}

// EffectiveChanModes returns the CHANMODES category table merged with the
// PREFIX membership letters (o, v, and any others a server declares), which
// always take a parameter in both directions but are never themselves
// listed in CHANMODES. Servers expect clients to know this rather than
// spell it out on the wire.
func (is *ISupport) EffectiveChanModes() map[byte]ModeCategory {
	merged := make(map[byte]ModeCategory, len(is.ChanModes)+len(is.Prefixes))
	for letter, cat := range is.ChanModes {
		merged[letter] = cat
	}
	for _, p := range is.Prefixes {
		merged[p.Mode] = ModeB
	}
	return merged
}

// Apply feeds the tokens of one RPL_ISUPPORT line (msg.Params[1:len-1],
// i.e. excluding the target nick and the trailing ":are supported by this
// server" parameter) into the store. It returns the subset of token names
// that were newly observed for the first time, which the caller (C4's
// consumer, the dispatcher) uses to decide whether to send legacy
// PROTOCTL NAMESX/UHNAMES fallbacks.
func (is *ISupport) Apply(tokens []string) (firstSeen []string) {
	for _, tok := range tokens {
		if tok == "" || tok == "-" {
			continue
		}
		negate := strings.HasPrefix(tok, "-")
		if negate {
			tok = tok[1:]
		}
		key, value, hasValue := strings.Cut(tok, "=")
		key = strings.ToUpper(key)

		if negate {
			delete(is.raw, key)
			continue
		}

		_, seenBefore := is.raw[key]
		is.raw[key] = value
		if !seenBefore {
			firstSeen = append(firstSeen, key)
		}

		// WHOX/NAMESX/UHNAMES are boolean tokens, sent bare with no "="
		// on real servers, so their flags must be set regardless of
		// hasValue; everything past this point parses a value and is
		// meaningless for a valueless token.
		switch key {
		case "WHOX":
			is.Whox = true
		case "NAMESX":
			is.Namesx = true
		case "UHNAMES":
			is.Uhnames = true
		}

		if !hasValue {
			continue
		}

		switch key {
		case "CASEMAPPING":
			if value == "ascii" {
				is.Casemap = CasemapASCII
			} else {
				is.Casemap = CasemapRFC1459
			}
		case "CHANMODES":
			is.ChanModes = ParseChanModes(value)
		case "CHANTYPES":
			is.ChanTypes = value
		case "STATUSMSG":
			is.StatusMsg = value
		case "PREFIX":
			is.Prefixes = parsePrefixToken(value)
		case "NICKLEN":
			is.NickLen = atoiOr(value, is.NickLen)
		case "CHANNELLEN":
			is.ChannelLen = atoiOr(value, is.ChannelLen)
		case "TOPICLEN":
			is.TopicLen = atoiOr(value, is.TopicLen)
		case "KICKLEN":
			is.KickLen = atoiOr(value, is.KickLen)
		case "AWAYLEN":
			is.AwayLen = atoiOr(value, is.AwayLen)
		case "MONITOR":
			is.MonitorLimit = atoiOr(value, is.MonitorLimit)
		}
	}
	return firstSeen
}

// parsePrefixToken parses "(ov)@+" into rank-ordered PrefixModes.
func parsePrefixToken(value string) []PrefixMode {
	if len(value) == 0 || value[0] != '(' {
		return nil
	}
	end := strings.IndexByte(value, ')')
	if end < 0 {
		return nil
	}
	modes := value[1:end]
	symbols := value[end+1:]
	if len(modes) != len(symbols) {
		return nil
	}
	out := make([]PrefixMode, len(modes))
	for i := range modes {
		out[i] = PrefixMode{Mode: modes[i], Prefix: symbols[i]}
	}
	return out
}
