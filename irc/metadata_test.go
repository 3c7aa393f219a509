package irc

import "testing"

func TestMetadataStoreSetGetDelete(t *testing.T) {
	m := NewMetadataStore(CasemapRFC1459)
	m.Set("Bob", "avatar", "public", "https://example.com/a.png", true)
	v, ok := m.Get("bob", "avatar")
	if !ok || v.Value != "https://example.com/a.png" || v.Visibility != "public" {
		t.Fatalf("got %+v, ok=%v", v, ok)
	}
	m.Set("Bob", "avatar", "", "", false)
	if _, ok := m.Get("bob", "avatar"); ok {
		t.Errorf("expected avatar key to be deleted")
	}
}

func TestMetadataStoreSelfTarget(t *testing.T) {
	m := NewMetadataStore(CasemapRFC1459)
	m.Set("*", "color", "private", "blue", true)
	v, ok := m.Get("", "color")
	if !ok || v.Value != "blue" {
		t.Fatalf("self target lookup failed: %+v ok=%v", v, ok)
	}
}

func TestMetadataStoreApplyCapValue(t *testing.T) {
	m := NewMetadataStore(CasemapRFC1459)
	m.ApplyCapValue("maxsub=50,maxkey=25")
	if m.MaxSub != 50 || m.MaxKey != 25 {
		t.Errorf("limits wrong: maxsub=%d maxkey=%d", m.MaxSub, m.MaxKey)
	}
}

// TestMetadataSubscriptionLimit mirrors spec.md scenario S5: after
// subscribing to five keys (770 RPL_METADATASUBOK), the subscribed set
// equals exactly those five; after unsubscribing two (771), only the
// remaining three are left.
func TestMetadataSubscriptionLimit(t *testing.T) {
	m := NewMetadataStore(CasemapRFC1459)
	m.ApplyCapValue("maxsub=50,maxkey=25")

	m.ApplySubOk([]string{"avatar", "website", "foo", "bar", "baz"})
	got := map[string]bool{}
	for _, k := range m.Subscribed() {
		got[k] = true
	}
	want := []string{"avatar", "website", "foo", "bar", "baz"}
	if len(got) != len(want) {
		t.Fatalf("subscribed = %v, want %v", got, want)
	}
	for _, k := range want {
		if !got[k] {
			t.Errorf("missing subscribed key %q", k)
		}
	}

	m.ApplyUnsubOk([]string{"bar", "foo"})
	if m.IsSubscribed("foo") || m.IsSubscribed("bar") {
		t.Errorf("foo/bar should no longer be subscribed")
	}
	if !m.IsSubscribed("avatar") || !m.IsSubscribed("website") || !m.IsSubscribed("baz") {
		t.Errorf("remaining subscriptions lost: %v", m.Subscribed())
	}
}
