package irc

import "testing"

func drainOutbox(ch chan Message, n int) []Message {
	out := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, <-ch)
	}
	return out
}

// TestSessionBasicRegistration mirrors spec.md scenario S1: CAP LS, NICK,
// USER are sent on construction; once CAP negotiation completes (no SASL
// offered) CAP END follows, and RPL_WELCOME fires OnConnect.
func TestSessionBasicRegistration(t *testing.T) {
	out := make(chan Message, 16)
	s := NewSession(out, SessionParams{Nickname: "nick", Username: "user", RealName: "Real Name"})

	sent := drainOutbox(out, 3)
	if sent[0].Command != "CAP" || sent[0].Params[0] != "LS" {
		t.Fatalf("first line should be CAP LS, got %v", sent[0])
	}
	if sent[1].Command != "NICK" || sent[1].Params[0] != "nick" {
		t.Fatalf("expected NICK nick, got %v", sent[1])
	}
	if sent[2].Command != "USER" {
		t.Fatalf("expected USER, got %v", sent[2])
	}

	connected := false
	s.cb.OnConnect = func() { connected = true }

	if err := s.Push(":irc.example.org CAP nick LS :batch server-time"); err != nil {
		t.Fatalf("push CAP LS: %v", err)
	}
	lsAnswer := drainOutbox(out, 1)[0]
	if lsAnswer.Command != "CAP" || lsAnswer.Params[0] != "REQ" {
		t.Fatalf("expected CAP REQ, got %v", lsAnswer)
	}

	if err := s.Push(":irc.example.org CAP nick ACK :batch server-time"); err != nil {
		t.Fatalf("push CAP ACK: %v", err)
	}
	endLine := drainOutbox(out, 1)[0]
	if endLine.Command != "CAP" || endLine.Params[0] != "END" {
		t.Fatalf("expected CAP END, got %v", endLine)
	}

	if err := s.Push(":irc.example.org 001 nick :Welcome to the network"); err != nil {
		t.Fatalf("push 001: %v", err)
	}
	if !connected {
		t.Errorf("OnConnect should have fired on RPL_WELCOME")
	}
	if !s.registered {
		t.Errorf("session should be marked registered")
	}
}

// TestSessionModeDispatch mirrors spec.md scenario S3: a channel MODE
// line granting PREFIX membership modes (+ov, each taking a nick) updates
// membership and fires OnMode with a fully parsed ModeChange slice.
func TestSessionModeDispatch(t *testing.T) {
	out := make(chan Message, 16)
	s := NewSession(out, SessionParams{Nickname: "nick", Username: "user", RealName: "Real Name"})
	drainOutbox(out, 3)

	if err := s.Push(":irc.example.org 005 nick CHANMODES=b,k,l,imnpst PREFIX=(ov)@+ :are supported"); err != nil {
		t.Fatalf("push 005: %v", err)
	}
	s.Book().AddMember("#chan", "bob")

	var got ModeEvent
	s.cb.OnMode = func(e ModeEvent) { got = e }

	if err := s.Push(":op!o@h MODE #chan +ov bob bob"); err != nil {
		t.Fatalf("push MODE: %v", err)
	}
	if got.Target != "#chan" || len(got.Changes) != 2 {
		t.Fatalf("mode event wrong: %+v", got)
	}
	if got.Changes[0].Mode.Letter != 'o' || got.Changes[1].Mode.Letter != 'v' {
		t.Errorf("changes in wrong order: %+v", got.Changes)
	}

	m := s.Book().Channel("#chan").Members[CasemapRFC1459("bob")]
	if !m.Modes['o'] || !m.Modes['v'] {
		t.Errorf("bob should now hold +ov: %+v", m)
	}
}

// TestSessionSASLPlainHandshake mirrors spec.md scenario S6: with a SASL
// PLAIN client configured and "sasl" offered in CAP LS, the session
// authenticates before sending CAP END.
func TestSessionSASLPlainHandshake(t *testing.T) {
	out := make(chan Message, 16)
	sasl := &SASLPlainClient{Authcid: "nick", Passwd: "hunter2"}
	s := NewSession(out, SessionParams{Nickname: "nick", Username: "user", RealName: "Real Name", SASL: sasl})
	drainOutbox(out, 3)

	if err := s.Push(":irc.example.org CAP nick LS :sasl=PLAIN"); err != nil {
		t.Fatalf("push CAP LS: %v", err)
	}
	reqLine := drainOutbox(out, 1)[0]
	if reqLine.Command != "CAP" || reqLine.Params[0] != "REQ" || reqLine.Params[1] != "sasl" {
		t.Fatalf("expected CAP REQ sasl, got %v", reqLine)
	}

	if err := s.Push(":irc.example.org CAP nick ACK :sasl"); err != nil {
		t.Fatalf("push CAP ACK: %v", err)
	}
	authLine := drainOutbox(out, 1)[0]
	if authLine.Command != "AUTHENTICATE" || authLine.Params[0] != "PLAIN" {
		t.Fatalf("expected AUTHENTICATE PLAIN, got %v", authLine)
	}

	if err := s.Push("AUTHENTICATE +"); err != nil {
		t.Fatalf("push AUTHENTICATE +: %v", err)
	}
	respLine := drainOutbox(out, 1)[0]
	if respLine.Command != "AUTHENTICATE" || respLine.Params[0] == "" {
		t.Fatalf("expected encoded AUTHENTICATE response, got %v", respLine)
	}

	if err := s.Push(":irc.example.org 903 nick :SASL authentication successful"); err != nil {
		t.Fatalf("push 903: %v", err)
	}
	endLine := drainOutbox(out, 1)[0]
	if endLine.Command != "CAP" || endLine.Params[0] != "END" {
		t.Fatalf("expected CAP END once SASL succeeds, got %v", endLine)
	}
}

// TestSessionSASLMechanismSelection mirrors spec.md scenario S6's CAP LS
// line exactly ("sasl=EXTERNAL,PLAIN") with only a PLAIN client
// configured: PLAIN is the one client mechanism the server also lists, so
// it is selected even though the server names EXTERNAL first, and its
// encoded payload answers the server's "AUTHENTICATE +" prompt.
func TestSessionSASLMechanismSelection(t *testing.T) {
	out := make(chan Message, 16)
	plain := &SASLPlainClient{Authzid: "jilles", Authcid: "jilles", Passwd: "sesame"}
	s := NewSession(out, SessionParams{
		Nickname:       "jilles",
		Username:       "jilles",
		RealName:       "jilles",
		SASLCandidates: []SASLClient{plain},
	})
	drainOutbox(out, 3)

	if err := s.Push(":localhost CAP jilles LS :sasl=EXTERNAL,PLAIN"); err != nil {
		t.Fatalf("push CAP LS: %v", err)
	}
	drainOutbox(out, 1) // CAP REQ :sasl

	if err := s.Push(":localhost CAP jilles ACK :sasl"); err != nil {
		t.Fatalf("push CAP ACK: %v", err)
	}
	authLine := drainOutbox(out, 1)[0]
	if authLine.Command != "AUTHENTICATE" || authLine.Params[0] != "PLAIN" {
		t.Fatalf("expected AUTHENTICATE PLAIN (the only client/server overlap), got %v", authLine)
	}

	if err := s.Push("AUTHENTICATE +"); err != nil {
		t.Fatalf("push AUTHENTICATE +: %v", err)
	}
	respLine := drainOutbox(out, 1)[0]
	want := "amlsbGVzAGppbGxlcwBzZXNhbWU="
	if respLine.Params[0] != want {
		t.Fatalf("expected the PLAIN payload %q, got %q", want, respLine.Params[0])
	}
}

// TestSessionSASLNoOverlapStillCompletesNegotiation covers the case where none of
// the client's candidate mechanisms appear in the server's advertised
// list: negotiation must still complete (CAP END) rather than hang
// waiting for an AUTHENTICATE exchange that will never start.
func TestSessionSASLNoOverlapStillCompletesNegotiation(t *testing.T) {
	out := make(chan Message, 16)
	ext := &SASLExternalClient{}
	s := NewSession(out, SessionParams{
		Nickname:       "nick",
		Username:       "user",
		RealName:       "Real Name",
		SASLCandidates: []SASLClient{ext},
	})
	drainOutbox(out, 3)

	if err := s.Push(":localhost CAP nick LS :sasl=PLAIN"); err != nil {
		t.Fatalf("push CAP LS: %v", err)
	}
	drainOutbox(out, 1) // CAP REQ :sasl

	if err := s.Push(":localhost CAP nick ACK :sasl"); err != nil {
		t.Fatalf("push CAP ACK: %v", err)
	}
	endLine := drainOutbox(out, 1)[0]
	if endLine.Command != "CAP" || endLine.Params[0] != "END" {
		t.Fatalf("expected CAP END since no mechanism overlaps, got %v", endLine)
	}
}

// TestSessionSASLUnconfiguredStillCompletesNegotiation covers the common
// case of a server offering "sasl" with no SASL client configured at all
// (neither SASL nor SASLCandidates set): registration must still
// complete rather than wait forever for an ACK-triggered beginSASL that
// never gets a usable candidate.
func TestSessionSASLUnconfiguredStillCompletesNegotiation(t *testing.T) {
	out := make(chan Message, 16)
	s := NewSession(out, SessionParams{Nickname: "nick", Username: "user", RealName: "Real Name"})
	drainOutbox(out, 3)

	if err := s.Push(":localhost CAP nick LS :sasl=PLAIN,EXTERNAL"); err != nil {
		t.Fatalf("push CAP LS: %v", err)
	}
	drainOutbox(out, 1) // CAP REQ :sasl

	if err := s.Push(":localhost CAP nick ACK :sasl"); err != nil {
		t.Fatalf("push CAP ACK: %v", err)
	}
	endLine := drainOutbox(out, 1)[0]
	if endLine.Command != "CAP" || endLine.Params[0] != "END" {
		t.Fatalf("expected CAP END with no SASL client configured, got %v", endLine)
	}
}

// TestSessionSASLNakCompletesNegotiation covers a server rejecting "sasl"
// outright: CAP END must still follow even though SASL was requested.
func TestSessionSASLNakCompletesNegotiation(t *testing.T) {
	out := make(chan Message, 16)
	sasl := &SASLPlainClient{Authcid: "nick", Passwd: "hunter2"}
	s := NewSession(out, SessionParams{Nickname: "nick", Username: "user", RealName: "Real Name", SASL: sasl})
	drainOutbox(out, 3)

	if err := s.Push(":localhost CAP nick LS :sasl=PLAIN"); err != nil {
		t.Fatalf("push CAP LS: %v", err)
	}
	drainOutbox(out, 1) // CAP REQ :sasl

	if err := s.Push(":localhost CAP nick NAK :sasl"); err != nil {
		t.Fatalf("push CAP NAK: %v", err)
	}
	endLine := drainOutbox(out, 1)[0]
	if endLine.Command != "CAP" || endLine.Params[0] != "END" {
		t.Fatalf("expected CAP END once sasl is NAK'd, got %v", endLine)
	}
}

func TestSelectSASLMechanismPrefersClientOrderWithinServerList(t *testing.T) {
	external := &SASLExternalClient{}
	plain := &SASLPlainClient{}
	got := SelectSASLMechanism([]SASLClient{external, plain}, []string{"PLAIN"})
	if got != SASLClient(plain) {
		t.Fatalf("expected PLAIN to be selected since EXTERNAL isn't offered")
	}
}

func TestSelectSASLMechanismLegacyEmptyServerListPicksClientFirst(t *testing.T) {
	external := &SASLExternalClient{}
	plain := &SASLPlainClient{}
	got := SelectSASLMechanism([]SASLClient{external, plain}, nil)
	if got != SASLClient(external) {
		t.Fatalf("expected the client's first configured mechanism with no server list")
	}
}

// TestSessionWhoisAggregation mirrors spec.md scenario S4: scattered
// WHOIS numerics collapse into one OnWhois callback invocation carrying
// the aggregate response.
func TestSessionWhoisAggregation(t *testing.T) {
	out := make(chan Message, 16)
	s := NewSession(out, SessionParams{Nickname: "nick", Username: "user", RealName: "Real Name"})
	drainOutbox(out, 3)

	calls := 0
	var resp *WhoisResponse
	s.cb.OnWhois = func(e WhoisEvent) {
		calls++
		resp = e.Response
	}

	lines := []string{
		":irc.example.org 311 nick bob bobuser host.example * :Bob Real Name",
		":irc.example.org 312 nick bob irc.example.org :Example IRC",
		":irc.example.org 318 nick bob :End of WHOIS list",
	}
	for _, l := range lines {
		if err := s.Push(l); err != nil {
			t.Fatalf("push %q: %v", l, err)
		}
	}
	if calls != 1 {
		t.Fatalf("OnWhois should fire exactly once, fired %d times", calls)
	}
	if resp.Realname != "Bob Real Name" || resp.Server != "irc.example.org" {
		t.Errorf("aggregate wrong: %+v", resp)
	}
}
