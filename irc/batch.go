package irc

// Batch is an IRCv3 BATCH grouping. Lines tagged with this batch's
// reference tag are buffered in Lines; nested batches opened while this
// one is open are buffered in Nested, in the order they were opened, each
// carrying its own reference tag in Tag.
// A Batch is not surfaced to the dispatcher until its outermost ancestor
// closes (spec.md invariant 4).
type Batch struct {
	Tag    string
	Type   string
	Params []string
	Lines  []Message
	Nested []*Batch

	closed bool
}

// unit is one completed item the framer hands to the dispatcher: either a
// plain (un-batched) message, or a closed root Batch.
type unit struct {
	message *Message
	batch   *Batch
}

// BatchFramer implements C2: it consumes ParsedMessages one at a time and
// accumulates a queue of completed units (un-batched lines, in arrival
// order, interleaved with root batches in the order they closed).
//
// Per spec.md §9's guidance, framer state is a single ordered queue of
// completed units rather than the parallel "which kind is next"
// boolean sequence used by some IRCv3 reference implementations.
type BatchFramer struct {
	open  map[string]*Batch // top-level reference tag -> open batch
	queue []unit
}

// NewBatchFramer returns an empty framer.
func NewBatchFramer() *BatchFramer {
	return &BatchFramer{open: map[string]*Batch{}}
}

// Push feeds one parsed message into the framer. Any units that become
// ready to surface as a result (immediately, for un-batched lines; on
// outermost closure, for batches) can then be drained with Next.
func (f *BatchFramer) Push(m Message) error {
	ref, tagged := m.Tags["batch"]

	if !tagged {
		if m.Command == "BATCH" {
			return f.handleBatchCommand(m)
		}
		mc := m
		f.queue = append(f.queue, unit{message: &mc})
		return nil
	}

	b := f.find(ref)
	if b == nil {
		// Reference to an unknown batch: treat defensively as an
		// un-batched line rather than dropping it silently.
		mc := m
		f.queue = append(f.queue, unit{message: &mc})
		return nil
	}

	if m.Command == "BATCH" {
		return f.handleNestedBatchCommand(m, b)
	}

	b.Lines = append(b.Lines, m)
	return nil
}

func (f *BatchFramer) handleBatchCommand(m Message) error {
	if len(m.Params) == 0 || len(m.Params[0]) == 0 {
		return nil
	}
	idParam := m.Params[0]
	id := idParam[1:]

	switch idParam[0] {
	case '+':
		b := &Batch{Tag: id}
		if len(m.Params) > 1 {
			b.Type = m.Params[1]
		}
		if len(m.Params) > 2 {
			b.Params = append([]string{}, m.Params[2:]...)
		}
		f.open[id] = b
	case '-':
		if b, ok := f.open[id]; ok {
			delete(f.open, id)
			b.closed = true
			f.queue = append(f.queue, unit{batch: b})
		}
	}
	return nil
}

func (f *BatchFramer) handleNestedBatchCommand(m Message, parent *Batch) error {
	if len(m.Params) == 0 || len(m.Params[0]) == 0 {
		return nil
	}
	idParam := m.Params[0]
	id := idParam[1:]

	switch idParam[0] {
	case '+':
		nb := &Batch{Tag: id}
		if len(m.Params) > 1 {
			nb.Type = m.Params[1]
		}
		if len(m.Params) > 2 {
			nb.Params = append([]string{}, m.Params[2:]...)
		}
		parent.Nested = append(parent.Nested, nb)
	case '-':
		for _, nb := range parent.Nested {
			if nb.Tag == id {
				nb.closed = true
			}
		}
	}
	return nil
}

// find recursively locates the (possibly nested) batch named by ref among
// the currently open root batches and their still-open nested children.
// Batch depth is small in practice, so a linear recursive search is fine
// per spec.md §9.
func (f *BatchFramer) find(ref string) *Batch {
	for _, b := range f.open {
		if b.Tag == ref {
			return b
		}
		if found := findNested(b, ref); found != nil {
			return found
		}
	}
	return nil
}

func findNested(b *Batch, ref string) *Batch {
	for _, nb := range b.Nested {
		if nb.closed {
			continue
		}
		if nb.Tag == ref {
			return nb
		}
		if found := findNested(nb, ref); found != nil {
			return found
		}
	}
	return nil
}

// Next pops the oldest completed unit, if any. Callers should drain Next
// in a loop after every Push.
func (f *BatchFramer) Next() (msg *Message, batch *Batch, ok bool) {
	if len(f.queue) == 0 {
		return nil, nil, false
	}
	u := f.queue[0]
	f.queue = f.queue[1:]
	return u.message, u.batch, true
}

// FlattenLines returns every message contained transitively in a batch
// (its own Lines plus every nested batch's Lines), in the order the
// batches appear and lines were appended — used by handlers that don't
// care about batch structure, only about replaying the contained lines
// (e.g. PRIVMSG lines inside a "chathistory"-like batch).
func (b *Batch) FlattenLines() []Message {
	var out []Message
	out = append(out, b.Lines...)
	for _, nb := range b.Nested {
		out = append(out, nb.FlattenLines()...)
	}
	return out
}
