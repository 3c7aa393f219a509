package irc

import "encoding/base64"

// SASLMechanism identifies a supported AUTHENTICATE mechanism name, sent
// verbatim on the wire (e.g. "PLAIN", "EXTERNAL").
type SASLMechanism string

const (
	SASLPlain    SASLMechanism = "PLAIN"
	SASLExternal SASLMechanism = "EXTERNAL"
)

// SASLClient produces the single response payload for one SASL exchange.
// Unlike SCRAM-family mechanisms this engine doesn't implement, PLAIN and
// EXTERNAL are both one-shot: the server's initial AUTHENTICATE + prompts
// a single response and the exchange concludes with success/failure.
type SASLClient interface {
	Mechanism() SASLMechanism
	// Respond returns the raw (pre-base64) response bytes to send.
	Respond() []byte
}

// SASLPlainClient implements SASL PLAIN: authzid, authcid, password joined
// by NUL bytes, per RFC 4616.
type SASLPlainClient struct {
	Authzid string
	Authcid string
	Passwd  string
}

func (c *SASLPlainClient) Mechanism() SASLMechanism { return SASLPlain }

func (c *SASLPlainClient) Respond() []byte {
	buf := make([]byte, 0, len(c.Authzid)+len(c.Authcid)+len(c.Passwd)+2)
	buf = append(buf, c.Authzid...)
	buf = append(buf, 0)
	buf = append(buf, c.Authcid...)
	buf = append(buf, 0)
	buf = append(buf, c.Passwd...)
	return buf
}

// SASLExternalClient implements SASL EXTERNAL: authentication is carried
// by the TLS client certificate already presented on the connection, so
// the response payload is empty (or the authzid, if overriding it).
type SASLExternalClient struct {
	Authzid string
}

func (c *SASLExternalClient) Mechanism() SASLMechanism { return SASLExternal }

func (c *SASLExternalClient) Respond() []byte {
	return []byte(c.Authzid)
}

// SelectSASLMechanism picks which of the embedder's candidate clients to
// authenticate with, per spec.md §4.6 step 1: the first client mechanism
// whose name appears in the server-advertised list; if the server list is
// empty (legacy sasl 3.1, no value on the "sasl" CAP LS token), the
// client's first configured mechanism is used instead. Returns nil if no
// candidate mechanism is usable.
func SelectSASLMechanism(candidates []SASLClient, serverMechs []string) SASLClient {
	if len(candidates) == 0 {
		return nil
	}
	if len(serverMechs) == 0 {
		return candidates[0]
	}
	for _, cand := range candidates {
		for _, name := range serverMechs {
			if string(cand.Mechanism()) == name {
				return cand
			}
		}
	}
	return nil
}

// saslChunkSize is the maximum line length, in base64-encoded bytes, that
// one AUTHENTICATE line may carry before the response must be split
// across multiple lines (400 per the IRCv3 sasl-3.2 spec).
const saslChunkSize = 400

// EncodeSASLResponse base64-encodes payload and splits it into
// successive AUTHENTICATE chunks of at most saslChunkSize characters. A
// payload that encodes to exactly a multiple of saslChunkSize must be
// followed by a final empty chunk ("AUTHENTICATE +") so the server knows
// the response is complete; EncodeSASLResponse appends that trailing
// empty chunk itself when needed so callers can always just emit one
// AUTHENTICATE line per returned string.
func EncodeSASLResponse(payload []byte) []string {
	if len(payload) == 0 {
		return []string{"+"}
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	var chunks []string
	for len(encoded) > 0 {
		n := saslChunkSize
		if n > len(encoded) {
			n = len(encoded)
		}
		chunks = append(chunks, encoded[:n])
		encoded = encoded[n:]
	}
	if len(chunks) > 0 && len(chunks[len(chunks)-1]) == saslChunkSize {
		chunks = append(chunks, "+")
	}
	return chunks
}

// DecodeSASLChunk decodes a single AUTHENTICATE parameter. A bare "+"
// decodes to an empty payload (the server's request for a response with
// no preceding data, or the client's empty EXTERNAL/continuation reply).
func DecodeSASLChunk(chunk string) ([]byte, error) {
	if chunk == "+" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(chunk)
}

// saslOutcome is what a completed SASL exchange resolved to, reported
// through the event surface (C12) as part of registration state.
type saslOutcome int

const (
	saslPending saslOutcome = iota
	saslSucceeded
	saslFailed
	saslAborted
)

// SASLNegotiator drives one SASL exchange against a chosen SASLClient,
// accumulating multi-line AUTHENTICATE continuations (each chunk except
// the last is exactly saslChunkSize characters; a server response that
// isn't a terminal chunk means more is coming).
type SASLNegotiator struct {
	Client  SASLClient
	buf     []byte
	outcome saslOutcome
}

// NewSASLNegotiator begins an exchange with the given mechanism client.
func NewSASLNegotiator(client SASLClient) *SASLNegotiator {
	return &SASLNegotiator{Client: client}
}

// InitialLines returns the AUTHENTICATE <mechanism> line followed by the
// client's full response, pre-chunked and base64-encoded, ready to send
// in order. Some servers want the mechanism name alone first and the
// payload only after an "AUTHENTICATE +" prompt; callers that need that
// two-step variant should call MechanismLine and ResponseLines
// separately instead.
func (n *SASLNegotiator) InitialLines() []string {
	lines := []string{string(n.Client.Mechanism())}
	lines = append(lines, EncodeSASLResponse(n.Client.Respond())...)
	return lines
}

// MechanismLine returns just the "AUTHENTICATE <mechanism>" payload.
func (n *SASLNegotiator) MechanismLine() string {
	return string(n.Client.Mechanism())
}

// ResponseLines returns the client's chunked, encoded response.
func (n *SASLNegotiator) ResponseLines() []string {
	return EncodeSASLResponse(n.Client.Respond())
}

// HandleServerChunk accumulates one incoming AUTHENTICATE parameter from
// the server. Returns true once a full (non-saslChunkSize-length) chunk
// has been received, at which point Accumulated returns the complete
// decoded server payload.
func (n *SASLNegotiator) HandleServerChunk(chunk string) (complete bool, err error) {
	if chunk == "+" {
		return true, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return false, err
	}
	n.buf = append(n.buf, decoded...)
	return len(chunk) != saslChunkSize, nil
}

// Accumulated returns the server payload assembled across HandleServerChunk
// calls so far.
func (n *SASLNegotiator) Accumulated() []byte {
	return n.buf
}

func (n *SASLNegotiator) markSucceeded() { n.outcome = saslSucceeded }
func (n *SASLNegotiator) markFailed()    { n.outcome = saslFailed }
func (n *SASLNegotiator) markAborted()   { n.outcome = saslAborted }
