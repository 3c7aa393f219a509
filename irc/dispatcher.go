package irc

import (
	"strings"
	"time"
)

// Dispatcher is C8: the central verb/numeric switch, grounded on the
// teacher's handleMessageRegistered in session.go. It owns no socket; it
// consumes already-framed (batch-resolved) Messages and mutates the
// engine's component stores (address book, ISUPPORT, metadata, WHOIS
// aggregator), invoking Callbacks for whatever the embedder registered.
type Dispatcher struct {
	cb *Callbacks

	Support  *ISupport
	Book     *AddressBook
	Metadata *MetadataStore
	Caps     *CapNegotiator
	Whois    *whoisAccumulator

	SelfNick string

	// Send, if set, lets a handler push a follow-up command back out
	// (the WHOX-on-join WHO request, legacy PROTOCTL fallbacks) without
	// the dispatcher owning a socket of its own; wired by Session to its
	// own send() in NewSession.
	Send func(Message)

	// NotifySelfQuit, if set, is called when a QUIT arrives for the
	// client's own nick, so Session can flip its invalidation flag
	// (spec.md §4.8/§7: a self QUIT, server-echoed or force-disconnected,
	// makes any further Push a programmer error). Wired by Session to its
	// own markInvalid in NewSession.
	NotifySelfQuit func()

	monitored        map[string]bool
	pendingList      []ListEntry
	receivedUserMode bool
}

// NewDispatcher wires a dispatcher against an already-constructed set of
// component stores.
func NewDispatcher(cb *Callbacks, support *ISupport, book *AddressBook, meta *MetadataStore, caps *CapNegotiator) *Dispatcher {
	return &Dispatcher{
		cb:        cb,
		Support:   support,
		Book:      book,
		Metadata:  meta,
		Caps:      caps,
		Whois:     newWhoisAccumulator(support.Casemap, support.ChanTypes),
		monitored: map[string]bool{},
	}
}

// Dispatch processes one message (already de-batched by BatchFramer, with
// meta.Batch set if it arrived inside one) and invokes any matching
// callback. Unrecognized commands fire OnError(unrecognized). Numerics
// without a handler below fire no error event; they reach the embedder
// only through OnRaw.
func (d *Dispatcher) Dispatch(msg Message, meta MessageMetadata) {
	d.cb.fireRaw(meta)

	if msg.IsReply() {
		d.dispatchNumeric(msg, meta)
		return
	}

	switch msg.Command {
	case "JOIN":
		d.dispatchJoin(msg, meta)
	case "PART":
		d.dispatchPart(msg, meta)
	case "KICK":
		d.dispatchKick(msg, meta)
	case "QUIT":
		d.dispatchQuit(msg, meta)
	case "NICK":
		d.dispatchNick(msg, meta)
	case "MODE":
		d.dispatchMode(msg, meta)
	case "TOPIC":
		d.dispatchTopic(msg, meta)
	case "INVITE":
		d.dispatchInvite(msg, meta)
	case "PRIVMSG", "NOTICE", "TAGMSG":
		d.dispatchMessage(msg, meta)
	case "ACCOUNT":
		d.dispatchAccount(msg)
	case "CHGHOST":
		d.dispatchChgHost(msg)
	case "AWAY":
		d.dispatchAway(msg)
	case "METADATA":
		d.dispatchMetadataVerb(msg)
	case "FAIL", "WARN", "NOTE":
		d.dispatchStandardReply(msg)
	case "WALLOPS":
		d.dispatchWallops(msg)
	case "PING", "PONG", "ERROR", "CAP", "AUTHENTICATE":
		// PING, ERROR, CAP and AUTHENTICATE are handled by Session before dispatch; PONG needs no handling
	default:
		if d.cb != nil && d.cb.OnError != nil {
			d.cb.OnError(ErrorEvent{Kind: ErrUnrecognized, Message: msg.Command})
		}
	}
}

func sourceUser(msg Message) *User {
	if msg.Prefix == nil || msg.Prefix.IsServer() {
		return nil
	}
	return &User{Nick: msg.Prefix.Name, User: msg.Prefix.User, Host: msg.Prefix.Host}
}

// CAP negotiation (LS/REQ/ACK/NAK/NEW/DEL) is driven by Session directly
// (session.go's handleCap), since it alone owns the Outbox needed to send
// CAP REQ/END in response; the Dispatcher never sees "CAP" messages.

func (d *Dispatcher) dispatchJoin(msg Message, meta MessageMetadata) {
	var channel, account, realname string
	if err := msg.ParseParams(&channel); err != nil {
		d.cb.fireError(ErrMalformed, err.Error())
		return
	}
	if len(msg.Params) >= 3 {
		account = msg.Params[1]
		realname = msg.Params[2]
	}
	u := sourceUser(msg)
	if u == nil {
		return
	}
	upserted := d.Book.Update(u)
	d.Book.AddMember(channel, u.Nick)
	if d.cb != nil && d.cb.OnJoin != nil {
		d.cb.OnJoin(JoinEvent{Meta: meta, Channel: channel, User: upserted, Account: account, Realname: realname})
	}
	if d.cb != nil && d.cb.OnChannelListUpdate != nil {
		d.cb.OnChannelListUpdate(ChannelListUpdateEvent{Channel: channel, Action: "join", Nick: u.Nick})
	}
	if d.Send != nil && d.Support != nil && d.Support.Whox && d.isSelf(u.Nick) {
		d.Send(NewMessage("WHO", channel, "%uhnf"))
	}
}

// sendLegacyProtoctl answers a first-seen NAMESX/UHNAMES ISUPPORT token
// with the pre-IRCv3 PROTOCTL fallback (§4.4), but only when the
// IRCv3-native replacement capability wasn't already negotiated:
// multi-prefix supersedes NAMESX, userhost-in-names supersedes UHNAMES.
func (d *Dispatcher) sendLegacyProtoctl(firstSeen []string) {
	if d.Send == nil || d.Caps == nil {
		return
	}
	for _, tok := range firstSeen {
		switch tok {
		case "NAMESX":
			if !d.Caps.Enabled("multi-prefix") {
				d.Send(NewMessage("PROTOCTL", "NAMESX"))
			}
		case "UHNAMES":
			if !d.Caps.Enabled("userhost-in-names") {
				d.Send(NewMessage("PROTOCTL", "UHNAMES"))
			}
		}
	}
}

// addNameToken folds one RPL_NAMREPLY (353) token into the address book:
// leading PREFIX sigils (possibly more than one, under multi-prefix) name
// the membership modes the nick holds, and — if userhost-in-names is in
// effect — a trailing "!user@host" fills in the user/host fields the same
// way a JOIN would.
func (d *Dispatcher) addNameToken(channel, tok string) {
	symbols, letters := "@+", "ov"
	if d.Support != nil {
		symbols, letters = d.Support.PrefixSymbols(), d.Support.PrefixModes()
	}
	i := 0
	var modes []byte
	for i < len(tok) {
		idx := strings.IndexByte(symbols, tok[i])
		if idx < 0 {
			break
		}
		modes = append(modes, letters[idx])
		i++
	}
	rest := tok[i:]

	nick := rest
	var user, host string
	if bang := strings.IndexByte(rest, '!'); bang >= 0 {
		nick = rest[:bang]
		if at := strings.IndexByte(rest[bang+1:], '@'); at >= 0 {
			user = rest[bang+1 : bang+1+at]
			host = rest[bang+1+at+1:]
		}
	}
	if nick == "" {
		return
	}

	d.Book.Update(&User{Nick: nick, User: user, Host: host})
	m := d.Book.AddMember(channel, nick)
	for _, letter := range modes {
		m.Modes[letter] = true
	}
}

func (d *Dispatcher) isSelf(nick string) bool {
	casemap := CasemapRFC1459
	if d.Support != nil {
		casemap = d.Support.Casemap
	}
	return casemap(nick) == casemap(d.SelfNick)
}

func (d *Dispatcher) dispatchPart(msg Message, meta MessageMetadata) {
	var channel, reason string
	if err := msg.ParseParams(&channel, &reason); err != nil {
		if err := msg.ParseParams(&channel); err != nil {
			d.cb.fireError(ErrMalformed, err.Error())
			return
		}
	}
	u := sourceUser(msg)
	if u == nil {
		return
	}
	existing := d.Book.User(u.Nick)
	if d.isSelf(u.Nick) {
		d.Book.PartChannel(channel)
	} else {
		d.Book.RemoveMember(channel, u.Nick)
	}
	if d.cb != nil && d.cb.OnPart != nil {
		d.cb.OnPart(PartEvent{Meta: meta, Channel: channel, User: existing, Reason: reason})
	}
	if d.cb != nil && d.cb.OnChannelListUpdate != nil {
		d.cb.OnChannelListUpdate(ChannelListUpdateEvent{Channel: channel, Action: "part", Nick: u.Nick})
	}
}

func (d *Dispatcher) dispatchKick(msg Message, meta MessageMetadata) {
	var channel, target, reason string
	if err := msg.ParseParams(&channel, &target, &reason); err != nil {
		d.cb.fireError(ErrMalformed, err.Error())
		return
	}
	actor := sourceUser(msg)
	var actorUser *User
	if actor != nil {
		actorUser = d.Book.User(actor.Nick)
	}
	if d.isSelf(target) {
		d.Book.PartChannel(channel)
	} else {
		d.Book.RemoveMember(channel, target)
	}
	if d.cb != nil && d.cb.OnKick != nil {
		d.cb.OnKick(KickEvent{Meta: meta, Channel: channel, Actor: actorUser, Target: target, Reason: reason})
	}
	if d.cb != nil && d.cb.OnChannelListUpdate != nil {
		d.cb.OnChannelListUpdate(ChannelListUpdateEvent{Channel: channel, Action: "kick", Nick: target})
	}
}

func (d *Dispatcher) dispatchQuit(msg Message, meta MessageMetadata) {
	var reason string
	_ = msg.ParseParams(&reason)
	u := sourceUser(msg)
	if u == nil {
		return
	}
	existing := d.Book.User(u.Nick)
	d.Book.QuitEverywhere(u.Nick)
	if d.cb != nil && d.cb.OnQuit != nil {
		d.cb.OnQuit(QuitEvent{Meta: meta, User: existing, Reason: reason})
	}
	if d.cb != nil && d.cb.OnUserOffline != nil && d.monitored[d.Support.Casemap(u.Nick)] {
		d.cb.OnUserOffline(UserOfflineEvent{Nick: u.Nick})
	}
	if d.isSelf(u.Nick) {
		d.Book.PartAllChannels()
		if d.NotifySelfQuit != nil {
			d.NotifySelfQuit()
		}
	}
}

func (d *Dispatcher) dispatchNick(msg Message, meta MessageMetadata) {
	var newNick string
	if err := msg.ParseParams(&newNick); err != nil {
		d.cb.fireError(ErrMalformed, err.Error())
		return
	}
	u := sourceUser(msg)
	if u == nil {
		return
	}
	old := u.Nick
	d.Book.Rename(old, newNick)
	if d.Support.Casemap(old) == d.Support.Casemap(d.SelfNick) {
		d.SelfNick = newNick
	}
	if d.cb != nil && d.cb.OnNick != nil {
		d.cb.OnNick(NickEvent{Meta: meta, OldNick: old, NewNick: newNick})
	}
}

func (d *Dispatcher) dispatchMode(msg Message, meta MessageMetadata) {
	if len(msg.Params) < 2 {
		d.cb.fireError(ErrMalformed, "MODE requires a target and a mode string")
		return
	}
	target := msg.Params[0]
	modeStr := msg.Params[1]
	args := msg.Params[2:]

	var categories map[byte]ModeCategory
	if d.Support.IsChannel(target) {
		categories = d.Support.EffectiveChanModes()
	}
	changes := ParseModeString(modeStr, args, categories)
	if changes == nil && modeStr != "" {
		d.cb.fireError(ErrMalformed, "malformed MODE line: "+msg.Raw)
		return
	}

	if d.Support.IsChannel(target) {
		d.Book.ApplyModeChanges(target, changes, d.Support.PrefixModes())
	}

	var actor *User
	if u := sourceUser(msg); u != nil {
		actor = d.Book.User(u.Nick)
	}
	if d.cb != nil && d.cb.OnMode != nil {
		d.cb.OnMode(ModeEvent{Meta: meta, Target: target, Changes: changes, Actor: actor})
	}
}

func (d *Dispatcher) dispatchTopic(msg Message, meta MessageMetadata) {
	var channel, topic string
	if err := msg.ParseParams(&channel, &topic); err != nil {
		d.cb.fireError(ErrMalformed, err.Error())
		return
	}
	var actor *User
	if u := sourceUser(msg); u != nil {
		actor = d.Book.User(u.Nick)
	}
	if ch := d.Book.Channel(channel); ch != nil {
		ch.Topic = topic
	}
	if d.cb != nil && d.cb.OnTopicChange != nil {
		d.cb.OnTopicChange(TopicChangeEvent{Meta: meta, Channel: channel, Topic: topic, Actor: actor})
	}
}

func (d *Dispatcher) dispatchInvite(msg Message, meta MessageMetadata) {
	var target, channel string
	if err := msg.ParseParams(&target, &channel); err != nil {
		d.cb.fireError(ErrMalformed, err.Error())
		return
	}
	var inviter *User
	if u := sourceUser(msg); u != nil {
		inviter = d.Book.User(u.Nick)
	}
	if d.cb != nil && d.cb.OnInvite != nil {
		d.cb.OnInvite(InviteEvent{Meta: meta, Channel: channel, Inviter: inviter})
	}
}

func (d *Dispatcher) dispatchMessage(msg Message, meta MessageMetadata) {
	var target, text string
	_ = msg.ParseParams(&target, &text)
	var from *User
	if u := sourceUser(msg); u != nil {
		from = d.Book.User(u.Nick)
		if from == nil {
			from = u
		}
	}
	if d.cb != nil && d.cb.OnMessage != nil {
		d.cb.OnMessage(MessageEvent{Meta: meta, Command: msg.Command, From: from, Target: target, Text: text})
	}
}

func (d *Dispatcher) dispatchAccount(msg Message) {
	var account string
	if err := msg.ParseParams(&account); err != nil {
		return
	}
	u := sourceUser(msg)
	if u == nil {
		return
	}
	if account == "*" {
		d.Book.Update(&User{Nick: u.Nick, Account: "*"})
		if d.cb != nil && d.cb.OnLogout != nil {
			d.cb.OnLogout(LogoutEvent{Nick: u.Nick})
		}
		return
	}
	d.Book.Update(&User{Nick: u.Nick, Account: account})
	if d.cb != nil && d.cb.OnLogin != nil {
		d.cb.OnLogin(LoginEvent{Nick: u.Nick, Account: account})
	}
}

func (d *Dispatcher) dispatchChgHost(msg Message) {
	var newUser, newHost string
	if err := msg.ParseParams(&newUser, &newHost); err != nil {
		return
	}
	u := sourceUser(msg)
	if u == nil {
		return
	}
	old := d.Book.User(u.Nick)
	d.Book.Update(&User{Nick: u.Nick, User: newUser, Host: newHost})
	if d.cb != nil && d.cb.OnChgHost != nil {
		d.cb.OnChgHost(ChgHostEvent{OldUser: old, NewUser: newUser, NewHost: newHost})
	}
}

func (d *Dispatcher) dispatchAway(msg Message) {
	var message string
	_ = msg.ParseParams(&message)
	u := sourceUser(msg)
	if u == nil {
		return
	}
	away := message != ""
	d.Book.Update(&User{Nick: u.Nick})
	if existing := d.Book.User(u.Nick); existing != nil {
		existing.Away = away
	}
	if away {
		if d.cb != nil && d.cb.OnOtherUserAway != nil {
			d.cb.OnOtherUserAway(OtherUserAwayEvent{Nick: u.Nick, Message: message})
		}
		return
	}
	if d.cb != nil && d.cb.OnBack != nil {
		d.cb.OnBack(BackEvent{Nick: u.Nick})
	}
}

func (d *Dispatcher) dispatchMetadataVerb(msg Message) {
	var target, key, visibility, value string
	hasValue := len(msg.Params) >= 4
	if err := msg.ParseParams(&target, &key, &visibility); err != nil {
		d.cb.fireError(ErrMalformed, err.Error())
		return
	}
	if hasValue {
		value = msg.Params[3]
	}
	d.Metadata.Set(target, key, MetadataVisibility(visibility), value, hasValue)
}

func (d *Dispatcher) dispatchStandardReply(msg Message) {
	var code string
	if err := msg.ParseParams(nil, &code); err != nil {
		d.cb.fireError(ErrMalformed, err.Error())
		return
	}
	text := ""
	if len(msg.Params) > 2 {
		text = strings.Join(msg.Params[2:], " ")
	}
	d.cb.fireError(ErrStandardFail, code+": "+text)
}

func (d *Dispatcher) dispatchWallops(msg Message) {
	var text string
	_ = msg.ParseParams(&text)
	var from *User
	if u := sourceUser(msg); u != nil {
		from = d.Book.User(u.Nick)
	}
	if d.cb != nil && d.cb.OnWallops != nil {
		d.cb.OnWallops(WallopsEvent{From: from, Text: text})
	}
}

func (d *Dispatcher) dispatchNumeric(msg Message, meta MessageMetadata) {
	switch msg.Command {
	case rplIsupport:
		if len(msg.Params) > 2 {
			firstSeen := d.Support.Apply(msg.Params[1 : len(msg.Params)-1])
			d.Book.SetCasemap(d.Support.Casemap)
			d.sendLegacyProtoctl(firstSeen)
		}
	case rplWhoisuser, rplWhoisserver, rplWhoisoperator, rplWhoisregnick, rplWhoisidle,
		rplWhoischannels, rplWhoisaccount, rplWhoisactually, rplWhoissecure:
		if resp, done := d.Whois.feed(msg.Command, msg.Params); done {
			if d.cb != nil && d.cb.OnWhois != nil {
				d.cb.OnWhois(WhoisEvent{Response: resp})
			}
		}
	case rplEndofwhois:
		if resp, done := d.Whois.feed(msg.Command, msg.Params); done {
			if d.cb != nil && d.cb.OnWhois != nil {
				d.cb.OnWhois(WhoisEvent{Response: resp})
			}
		} else {
			d.cb.fireError(ErrUnexpected, "RPL_ENDOFWHOIS with no matching query: "+msg.Raw)
		}
	case rplAway:
		if len(msg.Params) >= 3 {
			if d.Whois.pending[d.Whois.casemap(msg.Params[1])] != nil {
				d.Whois.feed(msg.Command, msg.Params)
			}
			if d.cb != nil && d.cb.OnAwayReply != nil {
				d.cb.OnAwayReply(AwayReplyEvent{Nick: msg.Params[1], Message: msg.Params[2]})
			}
		}
	case rplUnaway:
		if d.cb != nil && d.cb.OnUnAwayReply != nil {
			d.cb.OnUnAwayReply(UnAwayReplyEvent{})
		}
	case rplNowaway:
		// nothing additional: the session already knows it set AWAY itself
	case rplWhoreply:
		if len(msg.Params) >= 7 {
			channel, user, host, nick, flags := msg.Params[1], msg.Params[2], msg.Params[3], msg.Params[5], msg.Params[6]
			u := d.Book.Update(&User{Nick: nick, User: user, Host: host})
			if d.cb != nil && d.cb.OnWHOXReply != nil {
				d.cb.OnWHOXReply(WHOXReplyEvent{Channel: channel, User: u, Flags: flags})
			}
		}
	case rplWhospecialreply:
		// WHOX reply for the "%uhnf" field selector this engine requests
		// (Outbox.Who): <me> <user> <host> <nick> <flags>.
		if len(msg.Params) >= 5 {
			user, host, nick, flags := msg.Params[1], msg.Params[2], msg.Params[3], msg.Params[4]
			u := d.Book.Update(&User{Nick: nick, User: user, Host: host})
			if d.cb != nil && d.cb.OnWHOXReply != nil {
				d.cb.OnWHOXReply(WHOXReplyEvent{User: u, Flags: flags})
			}
		}
	case rplEndofwho:
		// WHO completion has no dedicated event; OnWHOXReply simply stops arriving.
	case rplIson:
		if len(msg.Params) >= 2 {
			nicks := strings.Fields(msg.Params[1])
			if d.cb != nil && d.cb.OnIsOn != nil {
				d.cb.OnIsOn(IsOnEvent{Nicks: nicks})
			}
		}
	case rplTopic:
		if len(msg.Params) >= 3 {
			if d.cb != nil && d.cb.OnTopicReply != nil {
				d.cb.OnTopicReply(TopicReplyEvent{Channel: msg.Params[1], Topic: msg.Params[2]})
			}
		}
	case rplNotopic:
		if len(msg.Params) >= 2 {
			if d.cb != nil && d.cb.OnTopicReply != nil {
				d.cb.OnTopicReply(TopicReplyEvent{Channel: msg.Params[1], Topic: ""})
			}
		}
	case rplTopicwhotime:
		if len(msg.Params) >= 4 {
			at := time.Unix(atoi64(msg.Params[3]), 0).UTC()
			if d.cb != nil && d.cb.OnTopicWhoTimeReply != nil {
				d.cb.OnTopicWhoTimeReply(TopicWhoTimeEvent{Channel: msg.Params[1], Who: msg.Params[2], SetAt: at})
			}
		}
	case rplNamreply:
		if len(msg.Params) >= 4 {
			channel := msg.Params[2]
			names := strings.Fields(msg.Params[3])
			for _, tok := range names {
				d.addNameToken(channel, tok)
			}
			if d.cb != nil && d.cb.OnNamesReply != nil {
				d.cb.OnNamesReply(NamesReplyEvent{Channel: channel, Names: names})
			}
		}
	case rplEndofnames:
		// delimiter only, no event per spec.md's representative set
	case rplList:
		if len(msg.Params) >= 4 {
			d.pendingList = append(d.pendingList, ListEntry{
				Channel: msg.Params[1],
				Members: int(atoi64(msg.Params[2])),
				Topic:   msg.Params[3],
			})
		}
	case rplListend:
		if d.cb != nil && d.cb.OnList != nil {
			d.cb.OnList(ListEvent{Entries: d.pendingList})
		}
		d.pendingList = nil
	case rplVersion:
		if len(msg.Params) >= 4 {
			if d.cb != nil && d.cb.OnVersionReply != nil {
				d.cb.OnVersionReply(VersionReplyEvent{Version: msg.Params[1], Server: msg.Params[2], Comment: msg.Params[3]})
			}
		}
	case rplRehashing:
		if len(msg.Params) >= 2 {
			if d.cb != nil && d.cb.OnServerRehashing != nil {
				d.cb.OnServerRehashing(ServerRehashingEvent{ConfigFile: msg.Params[1]})
			}
		}
	case rplYoureoper:
		if d.cb != nil && d.cb.OnYoureOper != nil {
			d.cb.OnYoureOper(YoureOperEvent{})
		}
	case rplMononline:
		if len(msg.Params) >= 2 {
			for _, target := range strings.Split(msg.Params[1], ",") {
				nick, _, _ := strings.Cut(target, "!")
				d.monitored[d.Support.Casemap(nick)] = true
				if d.cb != nil && d.cb.OnUserOnline != nil {
					d.cb.OnUserOnline(UserOnlineEvent{User: &User{Nick: nick}})
				}
			}
		}
	case rplMonoffline:
		if len(msg.Params) >= 2 {
			for _, nick := range strings.Split(msg.Params[1], ",") {
				if d.cb != nil && d.cb.OnUserOffline != nil {
					d.cb.OnUserOffline(UserOfflineEvent{Nick: nick})
				}
			}
		}
	case rplMonlist:
		if len(msg.Params) >= 2 {
			if d.cb != nil && d.cb.OnMonitorList != nil {
				d.cb.OnMonitorList(MonitorListEvent{Targets: strings.Split(msg.Params[1], ",")})
			}
		}
	case errMonlistisfull:
		d.cb.fireError(ErrMonListFull, msg.Raw)
	case rplEndofmotd:
		if d.cb != nil && d.cb.OnLUser != nil {
			d.cb.OnLUser(LUserEvent{Numeric: msg.Command, Text: strings.Join(msg.Params[1:], " ")})
		}
	case errNomotd:
		d.cb.fireError(ErrNoMOTD, msg.Raw)
	case errNosuchserver:
		d.cb.fireError(ErrNoSuchServer, msg.Raw)
	case errNopriviledges:
		d.cb.fireError(ErrNoPrivileges, msg.Raw)
	case errNoprivs:
		d.cb.fireError(ErrNoPrivs, msg.Raw)
	case rplWhoiskeyvalue, rplKeyvalue:
		d.dispatchMetadataNumeric(msg)
	case rplKeynotset:
		d.cb.fireError(ErrKeyNotSet, msg.Raw)
	case errMetadatasynclater:
		d.cb.fireError(ErrWaitAndRetry, msg.Raw)
	case errMetadatalimit:
		d.cb.fireError(ErrTooManySubs, msg.Raw)
	case rplMetadatasubok:
		if len(msg.Params) >= 2 {
			d.Metadata.ApplySubOk(strings.Fields(msg.Params[len(msg.Params)-1]))
		}
	case rplMetadataunsubok:
		if len(msg.Params) >= 2 {
			d.Metadata.ApplyUnsubOk(strings.Fields(msg.Params[len(msg.Params)-1]))
		}
	case rplMetadatasubs:
		if len(msg.Params) >= 2 {
			keys := strings.Fields(msg.Params[len(msg.Params)-1])
			d.Metadata.ApplySubs(keys)
			if d.cb != nil && d.cb.OnMetadataSubList != nil {
				d.cb.OnMetadataSubList(MetadataSubListEvent{Keys: keys})
			}
		}
	case rplLogon:
		if d.cb != nil && d.cb.OnUserOnline != nil && len(msg.Params) >= 2 {
			d.cb.OnUserOnline(UserOnlineEvent{User: &User{Nick: msg.Params[1]}})
		}
	case rplLoggedin:
		if len(msg.Params) >= 4 {
			if d.cb != nil && d.cb.OnLogin != nil {
				d.cb.OnLogin(LoginEvent{Nick: d.SelfNick, Account: msg.Params[2]})
			}
		}
	case rplLoggedout:
		if d.cb != nil && d.cb.OnLogout != nil {
			d.cb.OnLogout(LogoutEvent{Nick: d.SelfNick})
		}
	case rplUmodeis:
		// Servers commonly send an unsolicited RPL_UMODEIS right after
		// registration; the first one is swallowed rather than surfaced
		// as a user-requested mode query reply.
		if !d.receivedUserMode {
			d.receivedUserMode = true
			return
		}
		if d.cb != nil && d.cb.OnLUser != nil {
			d.cb.OnLUser(LUserEvent{Numeric: msg.Command, Text: strings.Join(msg.Params[1:], " ")})
		}
	case rplStatscommands, rplStatsuptime, rplLuserclient, rplLuserop, rplLuserunknown,
		rplLuserchannels, rplLuserme, rplLocalusers, rplGlobalusers,
		rplAdminme, rplAdminloc1, rplAdminloc2, rplAdminemail, rplTime:
		if d.cb != nil && d.cb.OnLUser != nil {
			d.cb.OnLUser(LUserEvent{Numeric: msg.Command, Text: strings.Join(msg.Params[1:], " ")})
		}
	default:
		// Numeric informational leaves not named in the representative
		// callback set (spec.md C13, explicitly out of scope) are folded
		// into onRaw only, already fired above.
	}
}

func (d *Dispatcher) dispatchMetadataNumeric(msg Message) {
	// 760/761: <nick-or-target> <key> <visibility> [:value]
	if len(msg.Params) < 4 {
		return
	}
	target := msg.Params[1]
	key := msg.Params[2]
	visibility := msg.Params[3]
	hasValue := len(msg.Params) >= 5
	value := ""
	if hasValue {
		value = msg.Params[4]
	}
	d.Metadata.Set(target, key, MetadataVisibility(visibility), value, hasValue)
}
