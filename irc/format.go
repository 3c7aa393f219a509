package irc

import (
	"strings"
	"time"

	"github.com/rivo/uniseg"
	"golang.org/x/time/rate"
)

// Outbox is C11: builds the wire-format Messages for every command the
// embedder can issue, honoring negotiated capabilities (tag gating on
// message-tags) and server-declared limits (LINELEN-derived PRIVMSG
// chunking, KICKLEN truncation). Grounded on the teacher's Session.Send*
// methods in session.go, generalized from one hardcoded connection's
// worth of state into an explicit struct so the formatter has no direct
// dependency on the rest of the engine.
type Outbox struct {
	Caps    *CapNegotiator
	Support *ISupport

	Nick string
	User string
	Host string

	// floodLimiter paces outgoing lines to avoid tripping server-side
	// flood protection, repurposed from the teacher's per-target typing
	// notification rate.Limiter (session.go's Typing/TypingStop) into a
	// single session-wide budget gate. Reserve never blocks; callers
	// decide whether to wait on the returned Delay or drop the line.
	floodLimiter *rate.Limiter
}

// NewOutbox returns a formatter bound to the given negotiator and
// ISUPPORT store, with a flood budget of burst immediate lines refilling
// at ratePerSec lines/second thereafter.
func NewOutbox(caps *CapNegotiator, support *ISupport, ratePerSec float64, burst int) *Outbox {
	return &Outbox{
		Caps:         caps,
		Support:      support,
		floodLimiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// Reserve consults the flood budget for one outgoing line, returning the
// delay the caller should wait before sending (zero if sendable now).
// Formatting itself never blocks; callers that want backpressure-free
// sends may ignore the delay and fire immediately, trading off against
// the server's own throttling.
func (o *Outbox) Reserve() (delay float64, ok bool) {
	r := o.floodLimiter.ReserveN(time.Now(), 1)
	if !r.OK() {
		return 0, false
	}
	return r.Delay().Seconds(), true
}

func (o *Outbox) hasCap(name string) bool {
	return o.Caps != nil && o.Caps.Enabled(name)
}

// Raw formats an arbitrary command line verbatim.
func (o *Outbox) Raw(command string, params ...string) Message {
	return NewMessage(command, params...)
}

// CapLS requests the full capability list with values (302).
func (o *Outbox) CapLS() Message { return NewMessage("CAP", "LS", "302") }

// CapReq requests the given capability names, space-joined in one line.
func (o *Outbox) CapReq(names []string) Message {
	return NewMessage("CAP", "REQ", strings.Join(names, " "))
}

// CapEnd ends capability negotiation.
func (o *Outbox) CapEnd() Message { return NewMessage("CAP", "END") }

// CapList requests the currently enabled capability list.
func (o *Outbox) CapList() Message { return NewMessage("CAP", "LIST") }

// Pass, Nick, User begin registration.
func (o *Outbox) Pass(password string) Message { return NewMessage("PASS", password) }
func (o *Outbox) NickCmd(nick string) Message  { return NewMessage("NICK", nick) }
func (o *Outbox) UserCmd(user, realname string) Message {
	return NewMessage("USER", user, "0", "*", realname)
}

// Authenticate sends one AUTHENTICATE line (mechanism name, or a chunk of
// an already base64-encoded response, or "+").
func (o *Outbox) Authenticate(payload string) Message {
	return NewMessage("AUTHENTICATE", payload)
}

// Join joins a channel, with an optional key.
func (o *Outbox) Join(channel, key string) Message {
	if key == "" {
		return NewMessage("JOIN", channel)
	}
	return NewMessage("JOIN", channel, key)
}

// JoinMany joins several channels (and parallel keys, shorter slices
// padded implicitly by the server treating missing keys as empty) in a
// single JOIN line, per spec.md's registered-command surface.
func (o *Outbox) JoinMany(channels, keys []string) Message {
	if len(keys) == 0 {
		return NewMessage("JOIN", strings.Join(channels, ","))
	}
	return NewMessage("JOIN", strings.Join(channels, ","), strings.Join(keys, ","))
}

// Part leaves channel, with an optional reason.
func (o *Outbox) Part(channel, reason string) Message {
	if reason == "" {
		return NewMessage("PART", channel)
	}
	return NewMessage("PART", channel, reason)
}

// Quit disconnects with an optional reason.
func (o *Outbox) Quit(reason string) Message {
	if reason == "" {
		return NewMessage("QUIT")
	}
	return NewMessage("QUIT", reason)
}

// ChangeNick requests a nickname change.
func (o *Outbox) ChangeNick(nick string) Message { return NewMessage("NICK", nick) }

// Topic queries (empty topic) or sets a channel's topic.
func (o *Outbox) Topic(channel, topic string) Message {
	if topic == "" {
		return NewMessage("TOPIC", channel)
	}
	return NewMessage("TOPIC", channel, topic)
}

// Mode queries (no flags) or changes channel/user modes.
func (o *Outbox) Mode(target, flags string, args []string) Message {
	params := []string{target}
	if flags != "" {
		params = append(params, flags)
		params = append(params, args...)
	}
	return NewMessage("MODE", params...)
}

// Who issues a WHO query, using WHOX's compact field selector when the
// server advertises it (grounded on the teacher's whox-conditional Who).
func (o *Outbox) Who(target string) Message {
	if o.Support != nil && o.Support.Whox {
		return NewMessage("WHO", target, "%uhnf")
	}
	return NewMessage("WHO", target)
}

// Whois issues a WHOIS query for one nick.
func (o *Outbox) Whois(nick string) Message { return NewMessage("WHOIS", nick) }

// Invite invites nick to channel.
func (o *Outbox) Invite(nick, channel string) Message {
	return NewMessage("INVITE", nick, channel)
}

// maxKickLen returns the server-declared KICKLEN, falling back to a
// conservative default when unknown.
func (o *Outbox) maxKickLen() int {
	if o.Support != nil && o.Support.KickLen > 0 {
		return o.Support.KickLen
	}
	return 300
}

// Kick removes nick from channel with an optional reason, truncated to
// KICKLEN graphemes (300 when the server declared none). Per spec.md's OPER/SQUIT
// no-internal-spaces invariant, reason is passed through as the final
// colon-parameter and may itself contain spaces; only the command's other
// positional parameters must not.
func (o *Outbox) Kick(channel, nick, reason string) Message {
	if reason == "" {
		return NewMessage("KICK", channel, nick)
	}
	reason = truncateGraphemes(reason, o.maxKickLen())
	return NewMessage("KICK", channel, nick, reason)
}

// Oper authenticates as an IRC operator. name and password are sent as
// given; neither is checked for spaces. A password containing a space
// goes out as the trailing parameter, and a name containing one splits
// into extra parameters on the wire.
func (o *Outbox) Oper(name, password string) Message {
	return NewMessage("OPER", name, password)
}

// Squit disconnects a server link. server and comment are each single
// logical parameters; only comment may contain spaces since it's last.
func (o *Outbox) Squit(server, comment string) Message {
	if comment == "" {
		return NewMessage("SQUIT", server)
	}
	return NewMessage("SQUIT", server, comment)
}

// Rehash/Restart/Version/Admin/Lusers are parameterless (or
// server-targeted) operator/info commands.
func (o *Outbox) Rehash() Message              { return NewMessage("REHASH") }
func (o *Outbox) Restart() Message             { return NewMessage("RESTART") }
func (o *Outbox) Version(server string) Message {
	if server == "" {
		return NewMessage("VERSION")
	}
	return NewMessage("VERSION", server)
}
func (o *Outbox) Admin(server string) Message {
	if server == "" {
		return NewMessage("ADMIN")
	}
	return NewMessage("ADMIN", server)
}
func (o *Outbox) Lusers() Message { return NewMessage("LUSERS") }

// Away sets (non-empty message) or clears the self away status.
func (o *Outbox) Away(message string) Message {
	if message == "" {
		return NewMessage("AWAY")
	}
	return NewMessage("AWAY", message)
}

// Ison checks online status for the given nicks.
func (o *Outbox) Ison(nicks []string) Message {
	return NewMessage("ISON", strings.Join(nicks, " "))
}

// List requests the channel list, optionally filtered by an
// elist-conditions pattern (left to the caller to format per the
// server's extension).
func (o *Outbox) List(pattern string) Message {
	if pattern == "" {
		return NewMessage("LIST")
	}
	return NewMessage("LIST", pattern)
}

// Names requests the membership list of one or more channels.
func (o *Outbox) Names(channels []string) Message {
	return NewMessage("NAMES", strings.Join(channels, ","))
}

// Ping/Pong for keepalive exchanges the embedder drives explicitly.
func (o *Outbox) Ping(token string) Message { return NewMessage("PING", token) }
func (o *Outbox) Pong(token string) Message { return NewMessage("PONG", token) }

// Monitor issues one MONITOR subcommand: + add, - remove, C clear, L
// list, S status.
func (o *Outbox) Monitor(sub string, targets []string) Message {
	if len(targets) == 0 {
		return NewMessage("MONITOR", sub)
	}
	return NewMessage("MONITOR", sub, strings.Join(targets, ","))
}

// Metadata issues a METADATA command for the given target and
// subcommand (GET, LIST, SET, SUB, UNSUB, SUBS, SYNC, CLEAR), with
// trailing arguments passed through (e.g. keys for SUB, or key+value for
// SET).
func (o *Outbox) Metadata(target, sub string, args ...string) Message {
	params := append([]string{target, sub}, args...)
	return NewMessage("METADATA", params...)
}

// Wallops sends an operator WALLOPS broadcast.
func (o *Outbox) Wallops(text string) Message { return NewMessage("WALLOPS", text) }

// maxPrivmsgLen computes the content budget left for one PRIVMSG/NOTICE
// line after accounting for the server's echo-back framing (prefix,
// command, target) against the negotiated LINELEN, mirroring the
// teacher's PrivMsg length math in session.go.
func (o *Outbox) maxPrivmsgLen(command, target string) int {
	lineLen := 512
	if o.Support != nil {
		if v, ok := o.Support.Get("LINELEN"); ok {
			if n := atoiOr(v, 0); n > 0 {
				lineLen = n
			}
		}
	}
	hostLen := len(o.Host)
	if hostLen == 0 {
		hostLen = len("255.255.255.255")
	}
	overhead := len(":!@ ") + len(command) + len(" ") + len(target) + len(" :\r\n")
	budget := lineLen - overhead - len(o.Nick) - len(o.User) - hostLen
	if budget < 1 {
		budget = 1
	}
	return budget
}

// chunkContent splits content on grapheme-cluster boundaries so no
// multi-byte character is torn across two PRIVMSG lines, grounded on the
// teacher's splitChunks (session.go), which does the same via
// vaxis.Characters (itself a uniseg wrapper); this engine depends on
// uniseg directly since it has no terminal rendering layer to share it
// with.
func chunkContent(s string, limit int) []string {
	if limit <= 0 || len(s) <= limit {
		return []string{s}
	}
	var chunks []string
	gr := uniseg.NewGraphemes(s)
	start := 0
	pos := 0
	for gr.Next() {
		clusterStart, clusterEnd := gr.Positions()
		_ = clusterStart
		if clusterEnd-start > limit {
			chunks = append(chunks, s[start:pos])
			start = pos
		}
		pos = clusterEnd
	}
	if start < len(s) {
		chunks = append(chunks, s[start:])
	}
	return chunks
}

// truncateGraphemes trims s to at most limit graphemes, never splitting
// a multi-byte character.
func truncateGraphemes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	gr := uniseg.NewGraphemes(s)
	end := 0
	for gr.Next() {
		if count >= limit {
			break
		}
		_, clusterEnd := gr.Positions()
		end = clusterEnd
		count++
	}
	return s[:end]
}

// PrivMsg builds one or more PRIVMSG lines for target, splitting content
// across multiple lines if it would exceed the negotiated LINELEN
// budget.
func (o *Outbox) PrivMsg(target, content string) []Message {
	limit := o.maxPrivmsgLen("PRIVMSG", target)
	var out []Message
	for _, chunk := range chunkContent(content, limit) {
		out = append(out, NewMessage("PRIVMSG", target, chunk))
	}
	return out
}

// Notice builds one or more NOTICE lines for target.
func (o *Outbox) Notice(target, content string) []Message {
	limit := o.maxPrivmsgLen("NOTICE", target)
	var out []Message
	for _, chunk := range chunkContent(content, limit) {
		out = append(out, NewMessage("NOTICE", target, chunk))
	}
	return out
}

// TagMsg sends a tag-only message, dropping the command entirely if
// message-tags wasn't negotiated (a TAGMSG with no client tags attached
// is meaningless and some servers reject it outright).
func (o *Outbox) TagMsg(target string, tags map[string]string) (Message, bool) {
	if !o.hasCap("message-tags") {
		return Message{}, false
	}
	m := NewMessage("TAGMSG", target)
	for k, v := range tags {
		m = m.WithTag(k, v)
	}
	return m, true
}
