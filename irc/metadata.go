package irc

import "strings"

// MetadataVisibility is the access scope declared alongside a metadata
// key-value pair (draft/metadata-2's "visibility" field, e.g. "*",
// "public", "private").
type MetadataVisibility string

// MetadataValue is one stored key's value and the visibility it was set
// with, keyed by (target, key) in MetadataStore.
type MetadataValue struct {
	Visibility MetadataVisibility
	Value      string
}

// metadataTarget is "*" for the self user, a casemapped nick, or a
// casemapped channel name.
type metadataTarget = string

// MetadataStore is C10: the general METADATA draft/metadata-2 KV store,
// generalized from the teacher's handling of exactly two hardcoded keys
// (soju.im/pinned, soju.im/muted) into an arbitrary-key store with
// subscription tracking and server-declared sync limits, per spec.md
// §4.10.
type MetadataStore struct {
	casemap func(string) string

	values map[metadataTarget]map[string]MetadataValue
	subs   map[string]bool // subscribed key names

	MaxSub int // 0 = unbounded
	MaxKey int // 0 = unbounded
}

// NewMetadataStore returns an empty store with unbounded limits, updated
// once the draft/metadata-2 capability value is parsed (see
// ApplyCapValue).
func NewMetadataStore(casemap func(string) string) *MetadataStore {
	if casemap == nil {
		casemap = CasemapRFC1459
	}
	return &MetadataStore{
		casemap: casemap,
		values:  map[metadataTarget]map[string]MetadataValue{},
		subs:    map[string]bool{},
	}
}

// ApplyCapValue parses the draft/metadata-2 capability's value, a
// comma-separated key=value list such as "maxsub=50,maxkey=25", into the
// store's declared limits.
func (m *MetadataStore) ApplyCapValue(value string) {
	for _, pair := range strings.Split(value, ",") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		switch key {
		case "maxsub":
			m.MaxSub = atoiOr(val, m.MaxSub)
		case "maxkey":
			m.MaxKey = atoiOr(val, m.MaxKey)
		}
	}
}

func (m *MetadataStore) normalizeTarget(target string) metadataTarget {
	if target == "*" || target == "" {
		return "*"
	}
	return m.casemap(target)
}

// Set records key's value and visibility for target. hasValue false
// means delete, mirroring a METADATA line with no trailing parameter; an
// empty value with hasValue true is stored as an empty string.
func (m *MetadataStore) Set(target, key string, visibility MetadataVisibility, value string, hasValue bool) {
	t := m.normalizeTarget(target)
	if !hasValue {
		m.Delete(target, key)
		return
	}
	bucket, ok := m.values[t]
	if !ok {
		bucket = map[string]MetadataValue{}
		m.values[t] = bucket
	}
	bucket[key] = MetadataValue{Visibility: visibility, Value: value}
}

// Delete removes key from target's metadata.
func (m *MetadataStore) Delete(target, key string) {
	t := m.normalizeTarget(target)
	if bucket, ok := m.values[t]; ok {
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(m.values, t)
		}
	}
}

// Get returns the stored value for (target, key).
func (m *MetadataStore) Get(target, key string) (MetadataValue, bool) {
	t := m.normalizeTarget(target)
	bucket, ok := m.values[t]
	if !ok {
		return MetadataValue{}, false
	}
	v, ok := bucket[key]
	return v, ok
}

// All returns every key/value pair known for target.
func (m *MetadataStore) All(target string) map[string]MetadataValue {
	t := m.normalizeTarget(target)
	out := map[string]MetadataValue{}
	for k, v := range m.values[t] {
		out[k] = v
	}
	return out
}

// ApplySubOk folds a 770 RPL_METADATASUBOK key list into the subscription
// set (subscribe confirmation).
func (m *MetadataStore) ApplySubOk(keys []string) {
	for _, k := range keys {
		m.subs[k] = true
	}
}

// ApplyUnsubOk folds a 771 RPL_METADATAUNSUBOK key list, removing keys
// from the subscription set (unsubscribe confirmation).
func (m *MetadataStore) ApplyUnsubOk(keys []string) {
	for _, k := range keys {
		delete(m.subs, k)
	}
}

// ApplySubs replaces the subscription set wholesale from a 772
// RPL_METADATASUBS listing (the current-subscriptions snapshot the
// server sends in answer to METADATA * SUBS).
func (m *MetadataStore) ApplySubs(keys []string) {
	m.subs = map[string]bool{}
	for _, k := range keys {
		m.subs[k] = true
	}
}

// Subscribed reports the current subscription set, for onMetadataSubList
// (spec.md S5).
func (m *MetadataStore) Subscribed() []string {
	out := make([]string, 0, len(m.subs))
	for k := range m.subs {
		out = append(out, k)
	}
	return out
}

// IsSubscribed reports whether key is currently subscribed.
func (m *MetadataStore) IsSubscribed(key string) bool {
	return m.subs[key]
}
