package irc

// SessionParams configures a new Session, mirroring the teacher's
// SessionParams (session.go) but trimmed of the bouncer/NetID fields that
// belonged to senpai's multi-network bouncer integration, out of scope
// here (spec.md §1).
type SessionParams struct {
	Nickname string
	Username string
	RealName string
	Password string

	// SASL, if set, is used once CAP negotiation offers the "sasl"
	// capability and the client has no other mechanism candidates. Left
	// nil to skip authentication entirely unless SASLCandidates is set.
	SASL SASLClient

	// SASLCandidates, if non-empty, is tried in order against the
	// server's advertised SASL mechanism list (spec.md §4.6 step 1) via
	// SelectSASLMechanism; SASL above is equivalent to a single-element
	// SASLCandidates list and is kept for the common single-mechanism
	// case.
	SASLCandidates []SASLClient

	// FloodRate/FloodBurst tune the outgoing flood-budget gate (see
	// Outbox.Reserve); zero values fall back to a conservative default
	// of one line per two seconds with a burst of four.
	FloodRate  float64
	FloodBurst int
}

// Session is the top-level engine type (§3): it owns every per-connection
// component store, accepts inbound lines one at a time via Push, and
// exposes one method per outgoing command (JOIN, PART, PRIVMSG, ...)
// that writes formatted Messages to the output channel supplied at
// construction. It is single-threaded and holds no internal timers, per
// spec.md §8 — the embedder drives PING/PONG keepalive and reconnection
// policy itself.
type Session struct {
	out chan<- Message

	params SessionParams
	cb     *Callbacks

	support  *ISupport
	book     *AddressBook
	metadata *MetadataStore
	caps     *CapNegotiator
	batches  *BatchFramer
	outbox   *Outbox
	dispatch *Dispatcher
	sasl     *SASLNegotiator

	nick string

	registered bool
	invalid    bool
}

// NewSession constructs a Session and immediately begins registration:
// CAP LS, PASS (if set), NICK, USER — mirroring the teacher's NewSession
// (session.go), generalized to defer CAP REQ until the full LS listing
// arrives (per spec.md §4.5) rather than REQing capabilities as each LS
// line is read.
func NewSession(out chan<- Message, params SessionParams) *Session {
	support := NewISupport()
	caps := NewCapNegotiator()
	meta := NewMetadataStore(support.Casemap)
	book := NewAddressBook(support.Casemap)

	floodRate := params.FloodRate
	if floodRate <= 0 {
		floodRate = 0.5
	}
	floodBurst := params.FloodBurst
	if floodBurst <= 0 {
		floodBurst = 4
	}
	outbox := NewOutbox(caps, support, floodRate, floodBurst)
	outbox.Nick = params.Nickname
	outbox.User = params.Username

	cb := &Callbacks{}

	s := &Session{
		out:      out,
		params:   params,
		cb:       cb,
		support:  support,
		book:     book,
		metadata: meta,
		caps:     caps,
		batches:  NewBatchFramer(),
		outbox:   outbox,
		dispatch: NewDispatcher(cb, support, book, meta, caps),
		nick:     params.Nickname,
	}
	s.dispatch.SelfNick = params.Nickname
	s.dispatch.Send = s.send
	s.dispatch.NotifySelfQuit = s.markInvalid

	s.caps.Begin()
	s.send(outbox.CapLS())
	if params.Password != "" {
		s.send(outbox.Pass(params.Password))
	}
	s.send(outbox.NickCmd(params.Nickname))
	s.send(outbox.UserCmd(params.Username, params.RealName))

	return s
}

// Callbacks returns the engine's callback-registration surface; the
// embedder sets whichever fields it cares about before the first Push.
func (s *Session) Callbacks() *Callbacks { return s.cb }

// Support exposes the negotiated ISUPPORT store, read-only from the
// embedder's perspective.
func (s *Session) Support() *ISupport { return s.support }

// Book exposes the address book and channel membership tracker.
func (s *Session) Book() *AddressBook { return s.book }

// Metadata exposes the METADATA subsystem store.
func (s *Session) Metadata() *MetadataStore { return s.metadata }

func (s *Session) send(m Message) {
	if s.invalid {
		return
	}
	s.cb.fireSend(m.String())
	s.out <- m
}

// Push feeds one raw server line into the engine. Calling Push after
// Quit is a programmer error, matching spec.md §6's resource-ownership
// note that subsequent push calls once the invalidation flag is set are
// not supported.
func (s *Session) Push(line string) error {
	if s.invalid {
		panic("irc: Push called after Quit")
	}

	msg, err := ParseMessage(line)
	if err != nil {
		s.cb.fireError(ErrMalformed, err.Error())
		return err
	}

	if err := s.batches.Push(msg); err != nil {
		return err
	}
	for {
		plain, batch, ok := s.batches.Next()
		if !ok {
			break
		}
		if plain != nil {
			s.handle(*plain, nil)
		}
		if batch != nil {
			s.handleBatch(batch)
		}
	}
	return nil
}

func (s *Session) handleBatch(b *Batch) {
	for _, m := range b.Lines {
		s.handle(m, b)
	}
	for _, nb := range b.Nested {
		s.handleBatch(nb)
	}
}

func (s *Session) handle(msg Message, batch *Batch) {
	meta := MessageMetadata{
		Raw:   msg.Raw,
		Batch: batch,
		Tags:  msg.Tags,
		Time:  msg.TimeOrNow(),
	}

	switch msg.Command {
	case "PING":
		var token string
		_ = msg.ParseParams(&token)
		s.send(s.outbox.Pong(token))
		return
	case "ERROR":
		s.registered = false
		return
	}

	if msg.Command == "CAP" {
		s.handleCap(msg)
		return
	}

	if msg.Command == "AUTHENTICATE" {
		s.handleAuthenticate(msg)
		return
	}

	switch msg.Command {
	case rplLoggedin, rplSaslsuccess, errNicklocked, errSaslfail, errSasltoolong, errSaslaborted, errSaslalready:
		s.handleSASLOutcome(msg)
	}

	if !s.registered {
		switch msg.Command {
		case rplWelcome:
			s.registered = true
			s.cb.fireConnect()
		case errNicknameinuse, errErroneusnickname:
			// Registration-time nick collision: the embedder is
			// expected to retry with a different nickname via
			// ChangeNick; nothing to track internally.
		}
	}

	s.dispatch.Dispatch(msg, meta)
}

func (s *Session) handleCap(msg Message) {
	cl := parseCapLine(msg.Params)
	switch cl.Subcommand {
	case "LS":
		toReq, ready := s.caps.HandleLS(cl.Caps, cl.More)
		if s.cb.OnReceiveCapLS != nil {
			s.cb.OnReceiveCapLS(CapLSEvent{Caps: cl.Caps})
		}
		if ready {
			if len(toReq) > 0 {
				s.send(s.outbox.CapReq(toReq))
			}
			if s.caps.readyToEnd() {
				s.send(s.outbox.CapEnd())
				s.caps.End()
			}
		}
		return
	case "ACK":
		ackedSASL := false
		for _, c := range cl.Caps {
			if c.Name == "draft/metadata-2" && c.Value != "" {
				s.metadata.ApplyCapValue(c.Value)
			}
			if c.Name == "sasl" {
				ackedSASL = true
			}
		}
		shouldEnd := s.caps.HandleAck(cl.Caps)
		if s.cb.OnReceiveCapAck != nil {
			s.cb.OnReceiveCapAck(CapAckEvent{Caps: cl.Caps})
		}
		// SASL begins once "sasl" specifically is ACKed (spec.md §4.6
		// step 1), not merely once every outstanding REQ has settled:
		// other caps in the same REQ batch may still be pending.
		// beginSASL runs even with no configured candidate: its own
		// client == nil path marks SASL done so CAP END isn't withheld
		// forever waiting for an AUTHENTICATE exchange that will never
		// start (the common no-SASL-configured case, spec scenario S1).
		if ackedSASL && s.sasl == nil {
			s.beginSASL()
			return
		}
		s.maybeBeginSASLOrEnd(shouldEnd)
		return
	case "NAK":
		nakedSASL := false
		for _, c := range cl.Caps {
			if c.Name == "sasl" {
				nakedSASL = true
			}
		}
		shouldEnd := s.caps.HandleNak(cl.Caps)
		if s.cb.OnReceiveCapNak != nil {
			s.cb.OnReceiveCapNak(CapNakEvent{Caps: cl.Caps})
		}
		// A NAK of "sasl" itself means the server refused the
		// capability outright; authentication will never happen, so
		// mark it done rather than wait on readyToEnd forever.
		if nakedSASL {
			shouldEnd = s.caps.MarkSASLDone()
		}
		s.maybeBeginSASLOrEnd(shouldEnd)
		return
	case "NEW":
		toReq := s.caps.HandleNew(cl.Caps)
		if s.cb.OnReceiveCapNew != nil {
			s.cb.OnReceiveCapNew(CapNewEvent{Caps: cl.Caps})
		}
		if len(toReq) > 0 {
			s.send(s.outbox.CapReq(toReq))
		}
		return
	case "DEL":
		s.caps.HandleDel(cl.Caps)
		if s.cb.OnReceiveCapDel != nil {
			s.cb.OnReceiveCapDel(CapDelEvent{Caps: cl.Caps})
		}
		return
	case "LIST":
		if s.cb.OnReceiveCapList != nil {
			s.cb.OnReceiveCapList(CapListEvent{Caps: cl.Caps})
		}
		return
	}
}

// saslCandidates returns the configured SASL client candidates in
// preference order, treating the single SASL field as a one-element list
// when SASLCandidates wasn't set.
func (s *Session) saslCandidates() []SASLClient {
	if len(s.params.SASLCandidates) > 0 {
		return s.params.SASLCandidates
	}
	if s.params.SASL != nil {
		return []SASLClient{s.params.SASL}
	}
	return nil
}

// maybeBeginSASLOrEnd sends CAP END once every outstanding REQ has
// settled and (if SASL was offered) authentication has concluded. Starting
// SASL itself happens earlier, in handleCap's "ACK" case, specifically
// when "sasl" is the capability being acknowledged.
func (s *Session) maybeBeginSASLOrEnd(shouldEnd bool) {
	if !shouldEnd {
		return
	}
	s.send(s.outbox.CapEnd())
	s.caps.End()
}

func (s *Session) beginSASL() {
	client := SelectSASLMechanism(s.saslCandidates(), s.caps.SASLMechanisms())
	if client == nil {
		// None of the configured mechanisms overlap with what the
		// server offers: skip SASL rather than wedge registration.
		if s.caps.MarkSASLDone() {
			s.send(s.outbox.CapEnd())
			s.caps.End()
		}
		return
	}
	s.sasl = NewSASLNegotiator(client)
	s.send(s.outbox.Authenticate(s.sasl.MechanismLine()))
}

func (s *Session) handleAuthenticate(msg Message) {
	if s.sasl == nil {
		return
	}
	var chunk string
	_ = msg.ParseParams(&chunk)
	complete, err := s.sasl.HandleServerChunk(chunk)
	if err != nil {
		s.cb.fireError(ErrMalformed, err.Error())
		return
	}
	if !complete {
		return
	}
	for _, line := range s.sasl.ResponseLines() {
		s.send(s.outbox.Authenticate(line))
	}
}

// handleSASLOutcome is called by Session.handle, before dispatch, for
// 900 and 902-907: Session watches for those numerics directly since they
// gate CAP END, a registration-sequencing concern that belongs to the
// session rather than the general dispatcher.
func (s *Session) handleSASLOutcome(msg Message) {
	switch msg.Command {
	case rplLoggedin, rplSaslsuccess:
		if s.sasl != nil {
			s.sasl.markSucceeded()
		}
	case errNicklocked, errSaslfail, errSasltoolong, errSaslaborted, errSaslalready:
		if s.sasl != nil {
			s.sasl.markFailed()
		}
	default:
		return
	}
	if s.caps.MarkSASLDone() {
		s.send(s.outbox.CapEnd())
		s.caps.End()
	}
}

// Quit sends QUIT and flips the invalidation flag; subsequent Push calls
// are a programmer error, per spec.md §6.
func (s *Session) Quit(reason string) {
	if s.invalid {
		return
	}
	s.send(s.outbox.Quit(reason))
	s.invalid = true
}

// markInvalid flips the invalidation flag in response to a server-echoed or
// forced self QUIT observed by the dispatcher, so a disconnect the client
// didn't itself initiate via Quit still makes any further Push a programmer
// error (spec.md §4.8/§7).
func (s *Session) markInvalid() {
	s.invalid = true
}

// Join, Part, ChangeNick, PrivMsg, Notice, Topic, Mode, Who, Whois, Kick,
// Invite, Away, List, Names, Monitor, Metadata, Oper, Squit, Rehash,
// Restart, Version, Admin, Lusers, Ison, Wallops mirror the teacher's
// per-command Session methods (session.go), delegating formatting to the
// Outbox (C11) and writing the resulting Message(s) to the output
// channel.

func (s *Session) Join(channel, key string) { s.send(s.outbox.Join(channel, key)) }
func (s *Session) Part(channel, reason string) { s.send(s.outbox.Part(channel, reason)) }
func (s *Session) ChangeNick(nick string) {
	s.send(s.outbox.ChangeNick(nick))
}
func (s *Session) PrivMsg(target, content string) {
	for _, m := range s.outbox.PrivMsg(target, content) {
		s.send(m)
	}
}
func (s *Session) Notice(target, content string) {
	for _, m := range s.outbox.Notice(target, content) {
		s.send(m)
	}
}
func (s *Session) Topic(channel, topic string) { s.send(s.outbox.Topic(channel, topic)) }
func (s *Session) Mode(target, flags string, args []string) {
	s.send(s.outbox.Mode(target, flags, args))
}
func (s *Session) Who(target string)   { s.send(s.outbox.Who(target)) }
func (s *Session) Whois(nick string)   { s.send(s.outbox.Whois(nick)) }
func (s *Session) Kick(channel, nick, reason string) {
	s.send(s.outbox.Kick(channel, nick, reason))
}
func (s *Session) Invite(nick, channel string) { s.send(s.outbox.Invite(nick, channel)) }
func (s *Session) Away(message string)         { s.send(s.outbox.Away(message)) }
func (s *Session) List(pattern string)         { s.send(s.outbox.List(pattern)) }
func (s *Session) Names(channels []string)     { s.send(s.outbox.Names(channels)) }
func (s *Session) Ison(nicks []string)         { s.send(s.outbox.Ison(nicks)) }
func (s *Session) Wallops(text string)         { s.send(s.outbox.Wallops(text)) }
func (s *Session) Oper(name, password string)  { s.send(s.outbox.Oper(name, password)) }
func (s *Session) Squit(server, comment string) { s.send(s.outbox.Squit(server, comment)) }
func (s *Session) Rehash()                     { s.send(s.outbox.Rehash()) }
func (s *Session) Restart()                    { s.send(s.outbox.Restart()) }
func (s *Session) Version(server string)       { s.send(s.outbox.Version(server)) }
func (s *Session) Admin(server string)         { s.send(s.outbox.Admin(server)) }
func (s *Session) Lusers()                     { s.send(s.outbox.Lusers()) }

func (s *Session) Monitor(sub string, targets []string) {
	s.send(s.outbox.Monitor(sub, targets))
}

func (s *Session) MetadataCmd(target, sub string, args ...string) {
	s.send(s.outbox.Metadata(target, sub, args...))
}

func (s *Session) TagMsg(target string, tags map[string]string) {
	if m, ok := s.outbox.TagMsg(target, tags); ok {
		s.send(m)
	}
}
