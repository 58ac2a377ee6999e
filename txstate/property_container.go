package txstate

import "github.com/bellorr/txstate/values"

// PropertyContainerState is the per-entity (node, relationship, or graph)
// property-change log: added keys absent from the committed store, changed
// keys present with a new value, and removed keys present and now deleted.
// The invariant "a key appears in at most one of the three" is maintained by
// every mutation method below.
type PropertyContainerState struct {
	added   map[PropertyKeyID]values.Value
	changed map[PropertyKeyID]values.Value
	removed map[PropertyKeyID]struct{}
}

// HasChanges reports whether any property mutation has touched this
// container this transaction.
func (p *PropertyContainerState) HasChanges() bool {
	if p == nil {
		return false
	}
	return len(p.added) > 0 || len(p.changed) > 0 || len(p.removed) > 0
}

// AddProperty records a property absent from the committed store. Precondition
// (caller's responsibility per spec.md §4.2): k is not already in added,
// changed, or removed for this entity this transaction.
func (p *PropertyContainerState) AddProperty(k PropertyKeyID, v values.Value) {
	if p.added == nil {
		p.added = make(map[PropertyKeyID]values.Value)
	}
	p.added[k] = v
}

// ChangeProperty records a new value for a key present in the committed
// store. If k is already staged in added (this transaction introduced it),
// the new value simply replaces the added entry rather than moving to
// changed, since externally the key is still "new this tx".
func (p *PropertyContainerState) ChangeProperty(k PropertyKeyID, vNew values.Value) {
	if _, isAdded := p.added[k]; isAdded {
		p.added[k] = vNew
		return
	}
	if p.changed == nil {
		p.changed = make(map[PropertyKeyID]values.Value)
	}
	p.changed[k] = vNew
}

// RemoveProperty deletes a property. If k was added this transaction, the
// addition is undone (net no-op externally). If k was changed this
// transaction, the change is undone and replaced with a removal against the
// committed value. Otherwise it is a fresh removal.
func (p *PropertyContainerState) RemoveProperty(k PropertyKeyID, vOld values.Value) {
	if _, isAdded := p.added[k]; isAdded {
		delete(p.added, k)
		return
	}
	if _, isChanged := p.changed[k]; isChanged {
		delete(p.changed, k)
		p.markRemoved(k)
		return
	}
	p.markRemoved(k)
}

func (p *PropertyContainerState) markRemoved(k PropertyKeyID) {
	if p.removed == nil {
		p.removed = make(map[PropertyKeyID]struct{})
	}
	p.removed[k] = struct{}{}
}

// Added, Changed, and Removed expose the three logs read-only.
func (p *PropertyContainerState) Added() map[PropertyKeyID]values.Value {
	if p == nil {
		return nil
	}
	return p.added
}

func (p *PropertyContainerState) Changed() map[PropertyKeyID]values.Value {
	if p == nil {
		return nil
	}
	return p.changed
}

func (p *PropertyContainerState) Removed() map[PropertyKeyID]struct{} {
	if p == nil {
		return nil
	}
	return p.removed
}

// PropertyChangeSink receives the three property logs in one call, matching
// spec.md §4.2's "Accept emits (added-iterator, changed-iterator,
// removed-iterator) to a sink in a single call."
type PropertyChangeSink interface {
	VisitPropertyChanges(added map[PropertyKeyID]values.Value, changed map[PropertyKeyID]values.Value, removed map[PropertyKeyID]struct{})
}

// AcceptPropertyChanges invokes sink exactly once, even if nothing changed
// (callers filter on HasChanges before calling Accept if they want to skip
// no-op containers; this method itself is unconditional to stay a thin
// leaf primitive).
func (p *PropertyContainerState) AcceptPropertyChanges(sink PropertyChangeSink) {
	sink.VisitPropertyChanges(p.Added(), p.Changed(), p.Removed())
}
