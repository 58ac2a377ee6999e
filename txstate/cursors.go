package txstate

import "github.com/bellorr/txstate/values"

// IDCursor is the minimal committed-store cursor contract the buffer
// augments: a forward-only stream of ids. The real storage engine's cursor
// types (node scan, relationship scan, node-relationship traversal) all
// satisfy this shape for the purposes of augmentation.
type IDCursor interface {
	Next() bool
	ID() uint64
	Close()
}

// SliceIDCursor adapts a plain slice to IDCursor, used by tests and by
// callers that already have their committed ids materialized.
type SliceIDCursor struct {
	ids []uint64
	pos int
}

func NewSliceIDCursor(ids []uint64) *SliceIDCursor { return &SliceIDCursor{ids: ids, pos: -1} }

func (c *SliceIDCursor) Next() bool {
	c.pos++
	return c.pos < len(c.ids)
}

func (c *SliceIDCursor) ID() uint64 { return c.ids[c.pos] }

func (c *SliceIDCursor) Close() {}

// augmentingIDCursor is the slow-path wrapper described in spec.md §4.8: it
// skips committed ids present in the removed set, then yields the added ids
// once the committed cursor is exhausted.
type augmentingIDCursor struct {
	committed IDCursor
	isRemoved func(uint64) bool
	added     []uint64
	addedIdx  int
	inAdded   bool
	current   uint64
	pool      *idCursorPool
}

func (c *augmentingIDCursor) Next() bool {
	if !c.inAdded {
		for c.committed != nil && c.committed.Next() {
			id := c.committed.ID()
			if c.isRemoved != nil && c.isRemoved(id) {
				continue
			}
			c.current = id
			return true
		}
		c.inAdded = true
	}
	if c.addedIdx < len(c.added) {
		c.current = c.added[c.addedIdx]
		c.addedIdx++
		return true
	}
	return false
}

func (c *augmentingIDCursor) ID() uint64 { return c.current }

// Close releases the wrapped committed cursor and returns this wrapper to
// its pool, dropping references so the pooled instance doesn't pin the
// previous committed cursor in memory (spec.md §5's "pooled augmenting
// cursors are cleared ... on return").
func (c *augmentingIDCursor) Close() {
	if c.committed != nil {
		c.committed.Close()
	}
	c.committed = nil
	c.isRemoved = nil
	c.added = nil
	c.addedIdx = 0
	c.inAdded = false
	if c.pool != nil {
		c.pool.release(c)
	}
}

// idCursorPool is the per-type free-list described in spec.md §4.8 and §9
// ("Instance caches / pooled cursors: a per-type free-list owned by the
// façade; acquire on augment, release on cursor close"), replacing the
// teacher's analog-free pattern with a small slice-backed pool since the
// buffer is single-threaded by contract and needs no synchronization.
type idCursorPool struct {
	free []*augmentingIDCursor
}

func (p *idCursorPool) acquire() *augmentingIDCursor {
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		return c
	}
	return &augmentingIDCursor{}
}

func (p *idCursorPool) release(c *augmentingIDCursor) {
	p.free = append(p.free, c)
}

// augment is the shared fast/slow-path implementation used by every
// ID-shaped augment method: if there is nothing to hide or inject, the
// committed cursor is returned unchanged (fast path).
func (p *idCursorPool) augment(committed IDCursor, isRemoved func(uint64) bool, added []uint64) IDCursor {
	if isRemoved == nil && len(added) == 0 {
		return committed
	}
	c := p.acquire()
	c.committed = committed
	c.isRemoved = isRemoved
	c.added = added
	c.addedIdx = 0
	c.inAdded = false
	c.pool = p
	return c
}

// PropertyEntry is one (key, value) pair yielded by a PropertyCursor.
type PropertyEntry struct {
	Key   PropertyKeyID
	Value values.Value
}

// PropertyCursor is the minimal committed-store property cursor contract.
type PropertyCursor interface {
	Next() bool
	Property() PropertyEntry
	Close()
}

// SlicePropertyCursor adapts a plain slice to PropertyCursor.
type SlicePropertyCursor struct {
	entries []PropertyEntry
	pos     int
}

func NewSlicePropertyCursor(entries []PropertyEntry) *SlicePropertyCursor {
	return &SlicePropertyCursor{entries: entries, pos: -1}
}

func (c *SlicePropertyCursor) Next() bool {
	c.pos++
	return c.pos < len(c.entries)
}

func (c *SlicePropertyCursor) Property() PropertyEntry { return c.entries[c.pos] }

func (c *SlicePropertyCursor) Close() {}

// augmentingPropertyCursor wraps a committed PropertyCursor with a
// PropertyContainerState: committed keys in removed are skipped, committed
// keys in changed are overridden with the new value, and added entries are
// appended once the committed cursor is exhausted.
type augmentingPropertyCursor struct {
	committed PropertyCursor
	container *PropertyContainerState
	added     []PropertyEntry
	addedIdx  int
	inAdded   bool
	current   PropertyEntry
	pool      *propertyCursorPool
}

func (c *augmentingPropertyCursor) Next() bool {
	if !c.inAdded {
		for c.committed != nil && c.committed.Next() {
			entry := c.committed.Property()
			if _, removed := c.container.Removed()[entry.Key]; removed {
				continue
			}
			if newVal, changed := c.container.Changed()[entry.Key]; changed {
				entry.Value = newVal
			}
			c.current = entry
			return true
		}
		c.inAdded = true
	}
	if c.addedIdx < len(c.added) {
		c.current = c.added[c.addedIdx]
		c.addedIdx++
		return true
	}
	return false
}

func (c *augmentingPropertyCursor) Property() PropertyEntry { return c.current }

func (c *augmentingPropertyCursor) Close() {
	if c.committed != nil {
		c.committed.Close()
	}
	c.committed = nil
	c.container = nil
	c.added = nil
	c.addedIdx = 0
	c.inAdded = false
	if c.pool != nil {
		c.pool.release(c)
	}
}

type propertyCursorPool struct {
	free []*augmentingPropertyCursor
}

func (p *propertyCursorPool) acquire() *augmentingPropertyCursor {
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		return c
	}
	return &augmentingPropertyCursor{}
}

func (p *propertyCursorPool) release(c *augmentingPropertyCursor) {
	p.free = append(p.free, c)
}

func (p *propertyCursorPool) augment(committed PropertyCursor, container *PropertyContainerState) PropertyCursor {
	if !container.HasChanges() {
		return committed
	}
	c := p.acquire()
	c.committed = committed
	c.container = container
	c.added = sortedAddedEntries(container)
	c.addedIdx = 0
	c.inAdded = false
	c.pool = p
	return c
}

func sortedAddedEntries(container *PropertyContainerState) []PropertyEntry {
	added := container.Added()
	out := make([]PropertyEntry, 0, len(added))
	for k, v := range added {
		out = append(out, PropertyEntry{Key: k, Value: v})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Key > out[j].Key; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
