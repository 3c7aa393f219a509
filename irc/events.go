package irc

import "time"

// MessageMetadata is computed once per inbound line, before dispatch, per
// spec.md §4.8: the raw text, the batch it arrived in (if any), its tags,
// and its timestamp (from the server-time tag if present, else the local
// clock in UTC).
type MessageMetadata struct {
	Raw   string
	Batch *Batch
	Tags  Tags
	Time  time.Time
}

// ErrorKind enumerates the error-event categories of spec.md §7. Errors
// are data, never Go errors raised out of the dispatcher; a single
// ErrorEvent carries (kind, message).
type ErrorKind int

const (
	ErrNoPrivs ErrorKind = iota
	ErrMonListFull
	ErrNoMOTD
	ErrNoSuchServer
	ErrNoPrivileges
	ErrMalformed
	ErrUnexpected
	ErrUnrecognized
	ErrBadUserInput
	ErrKeyNotSet
	ErrWaitAndRetry
	ErrTooManySubs
	ErrStandardFail
)

// ErrorEvent is the uniform error payload described in spec.md §7.
type ErrorEvent struct {
	Kind    ErrorKind
	Message string
}

// JoinEvent reports a JOIN, including IRCv3 extended-join's account and
// realname fields (account == "*" means none).
type JoinEvent struct {
	Meta     MessageMetadata
	Channel  string
	User     *User
	Account  string
	Realname string
}

type PartEvent struct {
	Meta    MessageMetadata
	Channel string
	User    *User
	Reason  string
}

type KickEvent struct {
	Meta    MessageMetadata
	Channel string
	Actor   *User
	Target  string
	Reason  string
}

type QuitEvent struct {
	Meta   MessageMetadata
	User   *User
	Reason string
}

type NickEvent struct {
	Meta   MessageMetadata
	OldNick string
	NewNick string
}

type ModeEvent struct {
	Meta    MessageMetadata
	Target  string
	Changes []ModeChange
	Actor   *User
}

type TopicChangeEvent struct {
	Meta    MessageMetadata
	Channel string
	Topic   string
	Actor   *User
}

type TopicReplyEvent struct {
	Channel string
	Topic   string
}

type TopicWhoTimeEvent struct {
	Channel string
	Who     string
	SetAt   time.Time
}

type InviteEvent struct {
	Meta    MessageMetadata
	Channel string
	Inviter *User
}

type MessageEvent struct {
	Meta    MessageMetadata
	Command string // PRIVMSG, NOTICE, TAGMSG
	From    *User
	Target  string
	Text    string
}

type WhoisEvent struct {
	Response *WhoisResponse
}

type ListEntry struct {
	Channel string
	Members int
	Topic   string
}

type ListEvent struct {
	Entries []ListEntry
}

type NamesReplyEvent struct {
	Channel string
	Names   []string // as sent, including prefix sigils
}

type VersionReplyEvent struct {
	Version string
	Server  string
	Comment string
}

type ServerRehashingEvent struct {
	ConfigFile string
}

type YoureOperEvent struct{}

type CapLSEvent struct{ Caps []Capability }
type CapListEvent struct{ Caps []Capability }
type CapAckEvent struct{ Caps []Capability }
type CapNakEvent struct{ Caps []Capability }
type CapNewEvent struct{ Caps []Capability }
type CapDelEvent struct{ Caps []Capability }

type UserOnlineEvent struct{ User *User }
type UserOfflineEvent struct{ Nick string }

type MonitorListEvent struct{ Targets []string }

type ChannelListUpdateEvent struct {
	Channel string
	Action  string // "join", "part", "kick"; a QUIT fires no ChannelListUpdateEvent
	Nick    string
}

type ChgHostEvent struct {
	OldUser *User
	NewUser string
	NewHost string
}

type WHOXReplyEvent struct {
	Channel  string
	User     *User
	Flags    string
}

type AwayReplyEvent struct{ Nick, Message string }
type UnAwayReplyEvent struct{}
type OtherUserAwayEvent struct{ Nick, Message string }
type BackEvent struct{ Nick string }

type IsOnEvent struct{ Nicks []string }

type MetadataSubListEvent struct{ Keys []string }

type LoginEvent struct {
	Nick, Account string
}
type LogoutEvent struct{ Nick string }

type WallopsEvent struct {
	From *User
	Text string
}

type LUserEvent struct {
	Numeric string
	Text    string
}

type SendEvent struct{ Line string } // debug: raw outgoing line

// Callbacks holds every register-once event slot the engine exposes. A
// nil field is a no-op, per spec.md §4.12 ("a missing callback is a
// no-op"); the dispatcher (C8) calls through a *Callbacks pointer so the
// embedder can set only the handlers it cares about.
type Callbacks struct {
	OnConnect    func()
	OnRaw        func(MessageMetadata)
	OnMessage    func(MessageEvent)
	OnJoin       func(JoinEvent)
	OnPart       func(PartEvent)
	OnKick       func(KickEvent)
	OnQuit       func(QuitEvent)
	OnNick       func(NickEvent)
	OnMode       func(ModeEvent)
	OnTopicChange func(TopicChangeEvent)
	OnInvite     func(InviteEvent)
	OnWhois      func(WhoisEvent)
	OnList       func(ListEvent)
	OnNamesReply func(NamesReplyEvent)
	OnTopicWhoTimeReply func(TopicWhoTimeEvent)
	OnTopicReply func(TopicReplyEvent)
	OnVersionReply func(VersionReplyEvent)
	OnServerRehashing func(ServerRehashingEvent)
	OnYoureOper  func(YoureOperEvent)
	OnError      func(ErrorEvent)

	OnReceiveCapLS   func(CapLSEvent)
	OnReceiveCapList func(CapListEvent)
	OnReceiveCapAck  func(CapAckEvent)
	OnReceiveCapNak  func(CapNakEvent)
	OnReceiveCapNew  func(CapNewEvent)
	OnReceiveCapDel  func(CapDelEvent)

	OnUserOnline  func(UserOnlineEvent)
	OnUserOffline func(UserOfflineEvent)
	OnMonitorList func(MonitorListEvent)

	OnChannelListUpdate func(ChannelListUpdateEvent)
	OnChgHost           func(ChgHostEvent)
	OnWHOXReply         func(WHOXReplyEvent)

	OnAwayReply      func(AwayReplyEvent)
	OnUnAwayReply    func(UnAwayReplyEvent)
	OnOtherUserAway  func(OtherUserAwayEvent)
	OnBack           func(BackEvent)
	OnIsOn           func(IsOnEvent)

	OnMetadataSubList func(MetadataSubListEvent)

	OnLogin  func(LoginEvent)
	OnLogout func(LogoutEvent)

	OnWallops func(WallopsEvent)
	OnLUser   func(LUserEvent)

	OnSend func(SendEvent)
}

func (cb *Callbacks) fireConnect() {
	if cb != nil && cb.OnConnect != nil {
		cb.OnConnect()
	}
}

func (cb *Callbacks) fireError(kind ErrorKind, message string) {
	if cb != nil && cb.OnError != nil {
		cb.OnError(ErrorEvent{Kind: kind, Message: message})
	}
}

func (cb *Callbacks) fireRaw(m MessageMetadata) {
	if cb != nil && cb.OnRaw != nil {
		cb.OnRaw(m)
	}
}

func (cb *Callbacks) fireSend(line string) {
	if cb != nil && cb.OnSend != nil {
		cb.OnSend(SendEvent{Line: line})
	}
}
