package irc

import "testing"

func TestISupportApplyBasicTokens(t *testing.T) {
	is := NewISupport()
	firstSeen := is.Apply([]string{
		"CASEMAPPING=ascii",
		"CHANTYPES=#",
		"PREFIX=(ov)@+",
		"CHANMODES=b,k,l,imnpst",
		"NICKLEN=30",
		"WHOX",
	})
	if len(firstSeen) != 6 {
		t.Errorf("firstSeen = %#v, want 6 entries", firstSeen)
	}
	if is.Casemap("NICK[X]") != "nick[x]" {
		t.Errorf("ascii casemap not applied: %q", is.Casemap("NICK[X]"))
	}
	if is.PrefixSymbols() != "@+" || is.PrefixModes() != "ov" {
		t.Errorf("prefix parse wrong: %q %q", is.PrefixSymbols(), is.PrefixModes())
	}
	if !is.IsChannel("#foo") || is.IsChannel("&foo") {
		t.Errorf("chantypes override not applied")
	}
	if is.NickLen != 30 {
		t.Errorf("NICKLEN = %d, want 30", is.NickLen)
	}
	if !is.Whox {
		t.Errorf("WHOX not recorded")
	}
	if is.ChanModes['b'] != ModeA || is.ChanModes['k'] != ModeB || is.ChanModes['l'] != ModeC || is.ChanModes['i'] != ModeD {
		t.Errorf("chanmodes categories wrong: %+v", is.ChanModes)
	}
}

func TestISupportNegatedToken(t *testing.T) {
	is := NewISupport()
	is.Apply([]string{"MONITOR=100"})
	if is.MonitorLimit != 100 {
		t.Fatalf("MONITOR not applied")
	}
	is.Apply([]string{"-MONITOR"})
	if _, ok := is.Get("MONITOR"); ok {
		t.Errorf("MONITOR should have been removed after negation")
	}
}

func TestISupportDefaultsBeforeAnyToken(t *testing.T) {
	is := NewISupport()
	if is.PrefixSymbols() != "@+" {
		t.Errorf("default prefixes wrong: %q", is.PrefixSymbols())
	}
	if is.Casemap("ABC") != "abc" {
		t.Errorf("default casemap should be rfc1459")
	}
	if !is.IsChannel("#foo") || !is.IsChannel("&foo") {
		t.Errorf("default chantypes should include # and &")
	}
}
