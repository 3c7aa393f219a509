package irc

// User is one tracked entity in the address book. Any field besides Nick
// may be empty if the server hasn't told the client yet.
type User struct {
	Nick    string
	User    string
	Host    string
	Account string // "*" means logged out, "" means unknown
	Away    bool
	Realname string
}

// Copy returns an independent copy, so callers can safely hand out a User
// without the address book mutating it out from under them later.
func (u *User) Copy() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Membership is one user's standing in one channel: the set of prefix
// mode letters they currently hold (empty if none), as learned from
// NAMES and MODE.
type Membership struct {
	Nick   string
	Modes  map[byte]bool // channel mode letters currently held, e.g. 'o', 'v'
}

// Channel tracks the membership list and metadata (topic, modes) of one
// joined channel.
type Channel struct {
	Name    string
	Topic   string
	TopicBy string
	Modes   []ModeChange
	Members map[string]*Membership // casemapped nick -> membership
}

// AddressBook is C7: the merge-upsert user store plus per-channel
// membership tracking, generalized from the teacher's users/channels maps
// in session.go and its cleanUser/NICK-rename logic.
type AddressBook struct {
	casemap  func(string) string
	users    map[string]*User    // casemapped nick -> user
	channels map[string]*Channel // casemapped channel name -> channel
}

// NewAddressBook returns an empty book using casemap for nick/channel
// name folding (normally ISupport.Casemap).
func NewAddressBook(casemap func(string) string) *AddressBook {
	if casemap == nil {
		casemap = CasemapRFC1459
	}
	return &AddressBook{
		casemap:  casemap,
		users:    map[string]*User{},
		channels: map[string]*Channel{},
	}
}

// SetCasemap updates the folding function once CASEMAPPING is known from
// ISUPPORT; existing keys are not retroactively refolded, matching the
// teacher's behavior of only applying a new casemap going forward.
func (b *AddressBook) SetCasemap(fn func(string) string) {
	if fn != nil {
		b.casemap = fn
	}
}

// User returns the tracked record for nick, or nil if unknown.
func (b *AddressBook) User(nick string) *User {
	return b.users[b.casemap(nick)]
}

// Update merges fields of u into the address book's entry for u.Nick,
// creating it if absent. Only non-zero fields of u overwrite existing
// values — this is the "merge-upsert" described in spec.md §4.7: a WHO
// reply that only carries host/account shouldn't blank out realname the
// client already learned from a prior WHOIS.
func (b *AddressBook) Update(u *User) *User {
	key := b.casemap(u.Nick)
	existing, ok := b.users[key]
	if !ok {
		existing = &User{Nick: u.Nick}
		b.users[key] = existing
	}
	if u.User != "" {
		existing.User = u.User
	}
	if u.Host != "" {
		existing.Host = u.Host
	}
	if u.Account != "" {
		existing.Account = u.Account
	}
	if u.Realname != "" {
		existing.Realname = u.Realname
	}
	if u.Away {
		existing.Away = true
	}
	return existing
}

// Rename moves the address book entry for oldNick to newNick, updating
// every channel membership that referenced it, mirroring the teacher's
// NICK handler. Returns the moved User, or nil if oldNick was untracked.
func (b *AddressBook) Rename(oldNick, newNick string) *User {
	oldKey := b.casemap(oldNick)
	u, ok := b.users[oldKey]
	if !ok {
		return nil
	}
	delete(b.users, oldKey)
	u.Nick = newNick
	newKey := b.casemap(newNick)
	b.users[newKey] = u

	for _, ch := range b.channels {
		if m, ok := ch.Members[oldKey]; ok {
			delete(ch.Members, oldKey)
			m.Nick = newNick
			ch.Members[newKey] = m
		}
	}
	return u
}

// Invalidate drops all knowledge of nick: its address book entry and its
// membership record in every channel. The dispatcher does not call it;
// QUIT goes through QuitEverywhere, which has the same effect.
func (b *AddressBook) Invalidate(nick string) {
	key := b.casemap(nick)
	delete(b.users, key)
	for _, ch := range b.channels {
		delete(ch.Members, key)
	}
}

// Channel returns the tracked channel record, or nil if not joined.
func (b *AddressBook) Channel(name string) *Channel {
	return b.channels[b.casemap(name)]
}

// JoinChannel creates (or returns the existing) channel record for name.
func (b *AddressBook) JoinChannel(name string) *Channel {
	key := b.casemap(name)
	ch, ok := b.channels[key]
	if !ok {
		ch = &Channel{Name: name, Members: map[string]*Membership{}}
		b.channels[key] = ch
	}
	return ch
}

// PartChannel drops the tracked channel record entirely (on self-PART or
// self-KICK; a self QUIT uses PartAllChannels instead).
func (b *AddressBook) PartChannel(name string) {
	delete(b.channels, b.casemap(name))
}

// AddMember marks nick as present in channel, creating both records if
// necessary, and returns its membership so mode prefixes can be applied.
func (b *AddressBook) AddMember(channel, nick string) *Membership {
	ch := b.JoinChannel(channel)
	key := b.casemap(nick)
	m, ok := ch.Members[key]
	if !ok {
		m = &Membership{Nick: nick, Modes: map[byte]bool{}}
		ch.Members[key] = m
	}
	return m
}

// RemoveMember drops nick from channel's membership (PART/KICK/QUIT-from
// a specific channel). If nick no longer appears in any channel the
// engine tracks, its address book entry is pruned too, matching the
// teacher's cleanUser behavior of not retaining users nobody shares a
// channel with.
func (b *AddressBook) RemoveMember(channel, nick string) {
	ch := b.channels[b.casemap(channel)]
	if ch == nil {
		return
	}
	delete(ch.Members, b.casemap(nick))
	b.cleanUser(nick)
}

// cleanUser drops the address book entry for nick if it no longer shares
// any tracked channel with the client, so memory doesn't grow unbounded
// across a long session — grounded on the teacher's identically named
// cleanUser in session.go.
func (b *AddressBook) cleanUser(nick string) {
	key := b.casemap(nick)
	for _, ch := range b.channels {
		if _, ok := ch.Members[key]; ok {
			return
		}
	}
	delete(b.users, key)
}

// ApplyModeChanges updates the stored prefix-mode set for each affected
// member of channel, skipping changes whose letter isn't a recognized
// prefix mode (i.e. list modes like +b, which don't name one member's
// standing).
func (b *AddressBook) ApplyModeChanges(channel string, changes []ModeChange, prefixModes string) {
	ch := b.channels[b.casemap(channel)]
	if ch == nil {
		return
	}
	isPrefix := func(letter byte) bool {
		for i := 0; i < len(prefixModes); i++ {
			if prefixModes[i] == letter {
				return true
			}
		}
		return false
	}
	for _, c := range changes {
		if !isPrefix(c.Mode.Letter) {
			continue
		}
		m := ch.Members[b.casemap(c.Mode.Param)]
		if m == nil {
			continue
		}
		if c.Enable {
			m.Modes[c.Mode.Letter] = true
		} else {
			delete(m.Modes, c.Mode.Letter)
		}
	}
}

// QuitEverywhere removes nick from every channel's membership and its
// address book entry in one pass, for QUIT.
func (b *AddressBook) QuitEverywhere(nick string) {
	key := b.casemap(nick)
	for _, ch := range b.channels {
		delete(ch.Members, key)
	}
	delete(b.users, key)
}

// PartAllChannels drops every tracked channel record outright. Used on a
// self QUIT (spec.md invariant 1: "on the self PART/KICK/QUIT, channel X is
// removed"), where the client leaves every channel at once rather than one
// at a time as with a self PART/KICK.
func (b *AddressBook) PartAllChannels() {
	b.channels = map[string]*Channel{}
}
