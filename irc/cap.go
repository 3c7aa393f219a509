package irc

import "strings"

// SupportedCapabilities is the exact set of IRCv3 capabilities this engine
// can make use of. Anything the server lists in CAP LS outside this set is
// left un-requested, per spec.md §4.5.
var SupportedCapabilities = map[string]bool{
	"account-notify":          true,
	"account-tag":             true,
	"away-notify":             true,
	"batch":                   true,
	"cap-notify":              true,
	"chghost":                 true,
	"echo-message":            true,
	"extended-join":           true,
	"invite-notify":           true,
	"draft/metadata-2":        true,
	"message-tags":            true,
	"draft/metadata-notify-2": true,
	"draft/multiline":         true,
	"multi-prefix":            true,
	"sasl":                    true,
	"server-time":             true,
	"userhost-in-names":       true,
}

// capState is the negotiator's lifecycle, mirroring the teacher's "CAP"
// case flow in session.go: LS arrives (possibly in multiple lines, the
// last marked without "*"), the client REQs the intersection with
// SupportedCapabilities, then waits for ACK/NAK for every requested
// capability before sending CAP END (unless SASL is also in flight, in
// which case CAP END waits for authentication to finish first).
type capState int

const (
	capIdle capState = iota
	capNegotiating
	capAwaitingAck
	capDone
)

// CapNegotiator drives capability negotiation and tracks which
// capabilities are currently enabled, including capabilities added or
// removed later via CAP NEW / CAP DEL (cap-notify).
type CapNegotiator struct {
	state     capState
	available map[string]string // name -> value, accumulated across LS lines
	enabled   map[string]bool
	pending   int // REQ'd capabilities still awaiting ACK/NAK
	wantSASL  bool
	saslDone  bool
}

// NewCapNegotiator returns a negotiator in its pre-LS idle state.
func NewCapNegotiator() *CapNegotiator {
	return &CapNegotiator{
		available: map[string]string{},
		enabled:   map[string]bool{},
	}
}

// Enabled reports whether a capability is currently active.
func (c *CapNegotiator) Enabled(name string) bool {
	return c.enabled[name]
}

// SASLMechanisms returns the server's advertised SASL mechanism list, the
// comma-delimited value of the "sasl" token in CAP LS (sasl 3.2). A legacy
// sasl 3.1 server advertises the bare "sasl" capability with no value, in
// which case this returns an empty slice and spec.md §4.6 step 1 falls
// back to the client's own mechanism preference order.
func (c *CapNegotiator) SASLMechanisms() []string {
	value := c.available["sasl"]
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

// Begin starts negotiation by requesting CAP LS 302 be sent; callers send
// the literal line themselves (C11 owns wire formatting), this only
// flips internal bookkeeping.
func (c *CapNegotiator) Begin() {
	c.state = capNegotiating
}

// capLine is what the dispatcher (C8) extracts from a CAP message before
// calling into the negotiator, since param layout differs by subcommand
// (LS/NEW/DEL carry a plain list; ACK/NAK carry the previously REQ'd
// subset; LS may be multi-line with "*" as a continuation marker).
type capLine struct {
	Subcommand string
	More       bool // "*" continuation parameter present (LS/LIST only)
	Caps       []Capability
}

// parseCapLine extracts a capLine from a CAP message's parameters, which
// look like: CAP <nick> <SUB> [*] :<cap list>
func parseCapLine(params []string) capLine {
	var cl capLine
	if len(params) < 2 {
		return cl
	}
	cl.Subcommand = strings.ToUpper(params[1])
	rest := params[2:]
	if len(rest) > 0 && rest[0] == "*" {
		cl.More = true
		rest = rest[1:]
	}
	if len(rest) > 0 {
		cl.Caps = ParseCaps(rest[0])
	}
	return cl
}

// HandleLS folds one CAP LS line's capabilities into the accumulated
// available set. When more is false (the final LS line), it returns the
// list of capability names the negotiator wants to REQ: the intersection
// of what the server offers and SupportedCapabilities.
func (c *CapNegotiator) HandleLS(caps []Capability, more bool) (toRequest []string, ready bool) {
	for _, cp := range caps {
		c.available[cp.Name] = cp.Value
	}
	if more {
		return nil, false
	}
	for name := range c.available {
		if SupportedCapabilities[name] {
			toRequest = append(toRequest, name)
		}
	}
	if _, ok := c.available["sasl"]; ok {
		c.wantSASL = true
	}
	c.state = capAwaitingAck
	c.pending = len(toRequest)
	return toRequest, true
}

// HandleAck marks the given capabilities enabled after a server ACK, and
// reports whether CAP END should now be sent (all REQs answered, and SASL
// either wasn't requested or has already finished).
func (c *CapNegotiator) HandleAck(caps []Capability) (shouldEnd bool) {
	for _, cp := range caps {
		c.enabled[cp.Name] = true
	}
	return c.afterAnswer(len(caps))
}

// HandleNak marks the given capabilities as definitively rejected (no-op
// beyond bookkeeping, since they were never enabled) and reports whether
// CAP END should now be sent.
func (c *CapNegotiator) HandleNak(caps []Capability) (shouldEnd bool) {
	return c.afterAnswer(len(caps))
}

func (c *CapNegotiator) afterAnswer(n int) bool {
	if c.pending > 0 {
		c.pending -= n
		if c.pending < 0 {
			c.pending = 0
		}
	}
	return c.readyToEnd()
}

func (c *CapNegotiator) readyToEnd() bool {
	if c.pending > 0 {
		return false
	}
	if c.wantSASL && !c.saslDone {
		return false
	}
	return true
}

// MarkSASLDone is called once SASL authentication concludes (success or
// failure) and reports whether CAP END should now be sent.
func (c *CapNegotiator) MarkSASLDone() (shouldEnd bool) {
	c.saslDone = true
	return c.readyToEnd()
}

// End marks negotiation complete.
func (c *CapNegotiator) End() {
	c.state = capDone
}

// HandleNew processes a CAP NEW line (cap-notify): newly offered
// capabilities that intersect SupportedCapabilities should be REQ'd.
func (c *CapNegotiator) HandleNew(caps []Capability) (toRequest []string) {
	for _, cp := range caps {
		c.available[cp.Name] = cp.Value
		if SupportedCapabilities[cp.Name] {
			toRequest = append(toRequest, cp.Name)
		}
	}
	return toRequest
}

// HandleDel processes a CAP DEL line (cap-notify): capabilities the
// server withdraws are immediately disabled regardless of prior state.
func (c *CapNegotiator) HandleDel(caps []Capability) {
	for _, cp := range caps {
		delete(c.available, cp.Name)
		delete(c.enabled, cp.Name)
	}
}
