package irc

import "strings"

// WhoisResponse is the composite result of a WHOIS query, accumulated
// across the scattered RPL_WHOIS* numerics a server sends in reply to one
// WHOIS command, per spec.md §4.9. The teacher instead surfaced each
// numeric as its own free-text InfoEvent; this aggregator is new
// structure built from the teacher's per-numeric field extraction so
// that a single WhoisResponse is handed to the dispatcher's consumer once
// RPL_ENDOFWHOIS closes the sequence.
type WhoisResponse struct {
	Nick       string
	User       string
	Host       string
	Realname   string
	Server     string
	ServerInfo string
	Operator   bool
	Registered bool // 307, the nick has identified to services
	IdleSecs   int64
	SignonTime int64
	Channels   map[string]string // channel name -> prefix sigils held there, e.g. {"#test": "+"} (311/319 style)
	Account    string            // 330
	Away       string            // 301, if away
	Secure     bool              // 671
	Actually   string            // 338 "actually using host"
}

// whoisAccumulator tracks in-flight WHOIS queries keyed by casemapped
// nick, since a client may legitimately fire off more than one WHOIS
// before the first completes (bursted bulk WHOIS, e.g. on reconnect).
type whoisAccumulator struct {
	casemap   func(string) string
	chanTypes string
	pending   map[string]*WhoisResponse
}

func newWhoisAccumulator(casemap func(string) string, chanTypes string) *whoisAccumulator {
	if casemap == nil {
		casemap = CasemapRFC1459
	}
	if chanTypes == "" {
		chanTypes = "#&"
	}
	return &whoisAccumulator{casemap: casemap, chanTypes: chanTypes, pending: map[string]*WhoisResponse{}}
}

func (a *whoisAccumulator) entry(nick string) *WhoisResponse {
	key := a.casemap(nick)
	r, ok := a.pending[key]
	if !ok {
		r = &WhoisResponse{Nick: nick, Channels: map[string]string{}}
		a.pending[key] = r
	}
	return r
}

// splitChannelPrefix separates the leading prefix sigils (e.g. "@+") from
// a RPL_WHOISCHANNELS token, returning the bare channel name and the
// sigils held there. A token with no recognized channel-type character is
// returned whole as the channel name with an empty prefix.
func (a *whoisAccumulator) splitChannelPrefix(token string) (channel, prefix string) {
	for i := 0; i < len(token); i++ {
		if strings.IndexByte(a.chanTypes, token[i]) >= 0 {
			return token[i:], token[:i]
		}
	}
	return token, ""
}

// feed folds one WHOIS-related numeric into the accumulator for its
// target nick. Returns (nil, false) while the sequence is still open.
// On RPL_ENDOFWHOIS (318) it returns the completed response and removes
// it from the pending set; if no accumulator entry exists for that nick
// at 318 (the server sent ENDOFWHOIS with nothing preceding it, or the
// sequence was never started by this client), done is false and the caller
// should surface an "unexpected" error per spec.md §7.
func (a *whoisAccumulator) feed(numeric string, params []string) (resp *WhoisResponse, done bool) {
	if len(params) < 2 {
		return nil, false
	}
	nick := params[1]

	switch numeric {
	case rplWhoisuser:
		if len(params) < 6 {
			return nil, false
		}
		r := a.entry(nick)
		r.User = params[2]
		r.Host = params[3]
		r.Realname = params[5]
	case rplWhoisserver:
		if len(params) < 4 {
			return nil, false
		}
		r := a.entry(nick)
		r.Server = params[2]
		r.ServerInfo = params[3]
	case rplWhoisoperator:
		a.entry(nick).Operator = true
	case rplWhoisregnick:
		a.entry(nick).Registered = true
	case rplWhoisidle:
		if len(params) < 3 {
			return nil, false
		}
		r := a.entry(nick)
		r.IdleSecs = atoi64(params[2])
		if len(params) >= 4 {
			r.SignonTime = atoi64(params[3])
		}
	case rplWhoischannels:
		if len(params) < 3 {
			return nil, false
		}
		r := a.entry(nick)
		for _, tok := range strings.Fields(params[2]) {
			channel, prefix := a.splitChannelPrefix(tok)
			r.Channels[channel] = prefix
		}
	case rplWhoisaccount:
		if len(params) < 3 {
			return nil, false
		}
		a.entry(nick).Account = params[2]
	case rplWhoisactually:
		if len(params) < 3 {
			return nil, false
		}
		a.entry(nick).Actually = params[2]
	case rplWhoissecure:
		a.entry(nick).Secure = true
	case rplAway:
		if len(params) < 3 {
			return nil, false
		}
		a.entry(nick).Away = params[2]
	case rplEndofwhois:
		key := a.casemap(nick)
		r, ok := a.pending[key]
		if !ok {
			return nil, false
		}
		delete(a.pending, key)
		return r, true
	}
	return nil, false
}

func atoi64(s string) int64 {
	var n int64
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return n
		}
		n = n*10 + int64(s[i]-'0')
	}
	return n
}
