package txstate

import "github.com/bellorr/txstate/diffset"

// NodeState is the per-node leaf: property changes (via the embedded
// PropertyContainerState), label changes, and the relationship-add/remove
// slots keyed by direction and relationship type. Back-links to the
// index-update arena entries that currently hold this node's id are tracked
// via indexDiffHandles so a later delete can excise them (spec.md §4.5,
// §9's arena-of-handles redesign).
type NodeState struct {
	PropertyContainerState

	ID NodeID

	labelDiffs *diffset.DiffSet[LabelID]

	// relSlots[dir][typeId] holds the DiffSet of relationship ids added or
	// removed by this transaction in that direction/type slot. BOTH is used
	// iff the relationship is a self-loop (start == end).
	relSlots map[Direction]map[RelTypeID]*diffset.DiffSet[RelationshipID]

	indexDiffHandles map[IndexDiffHandle]struct{}
}

func newNodeState(id NodeID) *NodeState {
	return &NodeState{ID: id}
}

// LabelDiffs returns the node's label DiffSet, allocating it lazily.
func (n *NodeState) labelDiffSet() *diffset.DiffSet[LabelID] {
	if n.labelDiffs == nil {
		n.labelDiffs = diffset.New[LabelID]()
	}
	return n.labelDiffs
}

// LabelDiffs exposes the node's label DiffSet read-only (nil-safe empty view
// if no label mutation has occurred).
func (n *NodeState) LabelDiffs() *diffset.DiffSet[LabelID] {
	if n == nil || n.labelDiffs == nil {
		return diffset.Empty[LabelID]()
	}
	return n.labelDiffs
}

func (n *NodeState) AddLabel(label LabelID) { n.labelDiffSet().Add(label) }

func (n *NodeState) RemoveLabel(label LabelID) { n.labelDiffSet().Remove(label) }

func (n *NodeState) slot(dir Direction, typeID RelTypeID) *diffset.DiffSet[RelationshipID] {
	if n.relSlots == nil {
		n.relSlots = make(map[Direction]map[RelTypeID]*diffset.DiffSet[RelationshipID])
	}
	byType := n.relSlots[dir]
	if byType == nil {
		byType = make(map[RelTypeID]*diffset.DiffSet[RelationshipID])
		n.relSlots[dir] = byType
	}
	d := byType[typeID]
	if d == nil {
		d = diffset.New[RelationshipID]()
		byType[typeID] = d
	}
	return d
}

// AddRelationship inserts relId into the (dir, typeId) slot.
func (n *NodeState) AddRelationship(relID RelationshipID, typeID RelTypeID, dir Direction) {
	n.slot(dir, typeID).Add(relID)
}

// RemoveRelationship removes relId from the (dir, typeId) slot; if relId was
// added to that slot this transaction, it silently disappears (DiffSet's
// Remove-of-added is a net no-op).
func (n *NodeState) RemoveRelationship(relID RelationshipID, typeID RelTypeID, dir Direction) {
	n.slot(dir, typeID).Remove(relID)
}

// addedCount sums the added side of the relevant slots for a degree or
// iteration query. BOTH contributes to both OUTGOING and INCOMING counts
// for self-loops, per spec.md §4.3.
func (n *NodeState) addedCount(dir Direction, typeID *RelTypeID) int {
	total := 0
	for _, d := range n.matchingDiffSets(dir, typeID, false) {
		total += d.AddedLen()
	}
	return total
}

func (n *NodeState) removedCount(dir Direction, typeID *RelTypeID) int {
	total := 0
	for _, d := range n.matchingDiffSets(dir, typeID, false) {
		total += d.RemovedLen()
	}
	return total
}

// matchingDiffSets gathers the DiffSets relevant to dir: the slot for dir
// itself plus, since BOTH represents self-loops, the BOTH slot whenever dir
// is OUTGOING or INCOMING. The trailing bool parameter is unused; every
// call site passes false.
func (n *NodeState) matchingDiffSets(dir Direction, typeID *RelTypeID, _ bool) []*diffset.DiffSet[RelationshipID] {
	var out []*diffset.DiffSet[RelationshipID]
	collect := func(d Direction) {
		byType := n.relSlots[d]
		if byType == nil {
			return
		}
		if typeID != nil {
			if ds, ok := byType[*typeID]; ok {
				out = append(out, ds)
			}
			return
		}
		for _, ds := range byType {
			out = append(out, ds)
		}
	}
	collect(dir)
	if dir == Outgoing || dir == Incoming {
		collect(Both)
	}
	return out
}

// AugmentDegree returns committedDegree adjusted by this transaction's
// pending relationship changes in the given direction (optionally filtered
// to a single type).
func (n *NodeState) AugmentDegree(dir Direction, committedDegree int, typeID *RelTypeID) int {
	if n == nil {
		return committedDegree
	}
	return committedDegree + n.addedCount(dir, typeID) - n.removedCount(dir, typeID)
}

// GetAddedRelationships returns, in no particular order, the relationship
// ids added this transaction matching dir and optionally typeID.
func (n *NodeState) GetAddedRelationships(dir Direction, typeID *RelTypeID) []RelationshipID {
	if n == nil {
		return nil
	}
	var out []RelationshipID
	for _, d := range n.matchingDiffSets(dir, typeID, false) {
		for relID := range d.AddedSet() {
			out = append(out, relID)
		}
	}
	return out
}

// RelationshipTypes returns the distinct relationship-type ids touched by
// this node's pending relationship add/remove slots, regardless of
// direction. Grounded on the Java original's
// TxState.nodeRelationshipTypes (spec.md §6 names the operation without
// elaborating it; see DESIGN.md SUPPLEMENTED FEATURES).
func (n *NodeState) RelationshipTypes() []RelTypeID {
	if n == nil {
		return nil
	}
	seen := make(map[RelTypeID]struct{})
	for _, byType := range n.relSlots {
		for typeID, d := range byType {
			if !d.IsEmpty() {
				seen[typeID] = struct{}{}
			}
		}
	}
	out := make([]RelTypeID, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	return out
}

// registerIndexDiff and deregisterIndexDiff manage the back-link set used by
// a later node delete to excise stale index-diff entries (see IndexUpdates
// in index_updates.go).
func (n *NodeState) registerIndexDiff(h IndexDiffHandle) {
	if n.indexDiffHandles == nil {
		n.indexDiffHandles = make(map[IndexDiffHandle]struct{})
	}
	n.indexDiffHandles[h] = struct{}{}
}

func (n *NodeState) deregisterIndexDiff(h IndexDiffHandle) {
	delete(n.indexDiffHandles, h)
}

func (n *NodeState) hasChanges() bool {
	if n == nil {
		return false
	}
	if n.PropertyContainerState.HasChanges() {
		return true
	}
	if n.labelDiffs != nil && !n.labelDiffs.IsEmpty() {
		return true
	}
	for _, byType := range n.relSlots {
		for _, d := range byType {
			if !d.IsEmpty() {
				return true
			}
		}
	}
	return false
}
