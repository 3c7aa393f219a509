package irc

import "testing"

func TestCapNegotiatorRequestsOnlySupportedIntersection(t *testing.T) {
	c := NewCapNegotiator()
	toReq, ready := c.HandleLS(ParseCaps("sasl=PLAIN batch server-time soju.im/bouncer-networks"), false)
	if !ready {
		t.Fatalf("expected ready=true on final LS line")
	}
	want := map[string]bool{"sasl": true, "batch": true, "server-time": true}
	if len(toReq) != len(want) {
		t.Fatalf("toReq = %#v, want 3 entries matching %v", toReq, want)
	}
	for _, n := range toReq {
		if !want[n] {
			t.Errorf("unsupported capability requested: %q", n)
		}
	}
}

func TestCapNegotiatorMultilineLS(t *testing.T) {
	c := NewCapNegotiator()
	_, ready := c.HandleLS(ParseCaps("batch"), true)
	if ready {
		t.Fatalf("should not be ready while more=true")
	}
	toReq, ready := c.HandleLS(ParseCaps("server-time"), false)
	if !ready {
		t.Fatalf("should be ready once the final LS line arrives")
	}
	if len(toReq) != 2 {
		t.Errorf("toReq = %#v, want batch and server-time", toReq)
	}
}

func TestCapNegotiatorAckEnablesAndSignalsEnd(t *testing.T) {
	c := NewCapNegotiator()
	toReq, _ := c.HandleLS(ParseCaps("batch server-time"), false)
	if len(toReq) != 2 {
		t.Fatalf("setup: toReq = %#v", toReq)
	}
	if shouldEnd := c.HandleAck(ParseCaps("batch")); shouldEnd {
		t.Fatalf("should not end while one REQ is still outstanding")
	}
	if !c.Enabled("batch") {
		t.Errorf("batch should be enabled after ACK")
	}
	if shouldEnd := c.HandleAck(ParseCaps("server-time")); !shouldEnd {
		t.Fatalf("should signal CAP END once every REQ is answered")
	}
}

func TestCapNegotiatorWaitsForSASLBeforeEnd(t *testing.T) {
	c := NewCapNegotiator()
	toReq, _ := c.HandleLS(ParseCaps("sasl=PLAIN"), false)
	if shouldEnd := c.HandleAck(ParseCaps(toReq[0])); shouldEnd {
		t.Fatalf("must not end before SASL finishes, since sasl was offered")
	}
	if shouldEnd := c.MarkSASLDone(); !shouldEnd {
		t.Fatalf("should end once SASL concludes and REQs are answered")
	}
}

func TestCapNegotiatorNewAndDel(t *testing.T) {
	c := NewCapNegotiator()
	c.HandleLS(nil, false)
	toReq := c.HandleNew(ParseCaps("account-notify away-notify"))
	if len(toReq) != 2 {
		t.Errorf("HandleNew toReq = %#v", toReq)
	}
	c.HandleAck(ParseCaps("account-notify away-notify"))
	if !c.Enabled("account-notify") {
		t.Fatalf("setup: account-notify should be enabled")
	}
	c.HandleDel(ParseCaps("account-notify"))
	if c.Enabled("account-notify") {
		t.Errorf("account-notify should be disabled after CAP DEL")
	}
}
