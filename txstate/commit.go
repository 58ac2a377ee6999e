package txstate

import (
	"sort"

	"github.com/bellorr/txstate/diffset"
)

// Accept walks the buffer in the fixed categorical order of spec.md §4.7
// and invokes exactly one Visitor method per event, so downstream code
// observes the categories in the same order regardless of the temporal
// order mutations happened in. Within a category, nodes, relationships and
// tokens are emitted in ascending id order; index and constraint
// descriptors are emitted in map iteration order, which is not fixed from
// one call to the next. Any Visitor method may return a
// ConstraintValidationFailure or CreateConstraintFailure, which aborts the
// walk immediately and is returned unchanged to the caller.
func (ts *TxState) Accept(v Visitor) error {
	if err := ts.acceptCreatedNodes(v); err != nil {
		return err
	}
	if err := ts.acceptCreatedRelationships(v); err != nil {
		return err
	}
	if err := ts.acceptDeletedRelationships(v); err != nil {
		return err
	}
	if err := ts.acceptDeletedNodes(v); err != nil {
		return err
	}
	if err := ts.acceptModifiedNodes(v); err != nil {
		return err
	}
	if err := ts.acceptModifiedRelationships(v); err != nil {
		return err
	}
	if err := ts.acceptGraphPropertyChanges(v); err != nil {
		return err
	}
	if err := ts.acceptIndexChanges(v); err != nil {
		return err
	}
	if err := ts.acceptConstraintChanges(v); err != nil {
		return err
	}
	if err := ts.acceptCreatedTokens(v); err != nil {
		return err
	}
	return nil
}

func (ts *TxState) acceptCreatedNodes(v Visitor) error {
	for _, id := range sortedIDs(ts.nodes.AddedSet()) {
		if err := v.VisitCreatedNode(id); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TxState) acceptCreatedRelationships(v Visitor) error {
	for _, id := range sortedIDs(ts.relationships.AddedSet()) {
		rel := ts.relationshipStateIfPresent(id)
		if rel == nil {
			continue
		}
		if err := v.VisitCreatedRelationship(id, rel.Type, rel.StartNode, rel.EndNode); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TxState) acceptDeletedRelationships(v Visitor) error {
	for _, id := range sortedIDs(ts.relationships.RemovedSet()) {
		meta, ok := ts.deletedRelationshipMeta[id]
		if !ok {
			continue
		}
		if err := v.VisitDeletedRelationship(id, meta.typeID, meta.startNode, meta.endNode); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TxState) acceptDeletedNodes(v Visitor) error {
	for _, id := range sortedIDs(ts.nodes.RemovedSet()) {
		if err := v.VisitDeletedNode(id); err != nil {
			return err
		}
	}
	return nil
}

// acceptModifiedNodes emits label-change then property-change events for
// every node with recorded state that was not deleted this transaction
// (spec.md §4.7 step 5). A node both created and modified this tx (S1) is
// included here in addition to its step-1 creation event; a node deleted
// this tx (whether net-cancelled create+delete or a pure delete) is
// excluded since it no longer exists to report changes for.
func (ts *TxState) acceptModifiedNodes(v Visitor) error {
	for _, id := range sortedNodeStateIDs(ts.nodeStates) {
		if _, deleted := ts.nodesDeletedInTx[id]; deleted {
			continue
		}
		node := ts.nodeStates[id]
		if !node.hasChanges() {
			continue
		}
		added, removed := labelDiffSlices(node.LabelDiffs())
		if err := v.VisitNodeLabelChanges(id, added, removed); err != nil {
			return err
		}
		if err := v.VisitNodePropertyChanges(id, node.Added(), node.Changed(), node.Removed()); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TxState) acceptModifiedRelationships(v Visitor) error {
	for _, id := range sortedRelationshipStateIDs(ts.relationshipStates) {
		if _, deleted := ts.relationshipsDeletedInTx[id]; deleted {
			continue
		}
		rel := ts.relationshipStates[id]
		if !rel.hasChanges() {
			continue
		}
		if err := v.VisitRelPropertyChanges(id, rel.Added(), rel.Changed(), rel.Removed()); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TxState) acceptGraphPropertyChanges(v Visitor) error {
	if ts.graphState == nil || !ts.graphState.hasChanges() {
		return nil
	}
	return v.VisitGraphPropertyChanges(ts.graphState.Added(), ts.graphState.Changed(), ts.graphState.Removed())
}

func (ts *TxState) acceptIndexChanges(v Visitor) error {
	if ts.schema == nil {
		return nil
	}
	added, removed := ts.schema.IndexChanges()
	for _, d := range added {
		if err := v.VisitAddedIndex(d); err != nil {
			return err
		}
	}
	for _, d := range removed {
		if err := v.VisitRemovedIndex(d); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TxState) acceptConstraintChanges(v Visitor) error {
	if ts.schema == nil {
		return nil
	}
	added, removed := ts.schema.ConstraintChanges()
	for _, d := range added {
		if err := v.VisitAddedConstraint(d); err != nil {
			return err
		}
	}
	for _, d := range removed {
		if err := v.VisitRemovedConstraint(d); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TxState) acceptCreatedTokens(v Visitor) error {
	for _, tok := range ts.labelTokens.sorted() {
		if err := v.VisitCreatedLabelToken(tok.Name, tok.ID); err != nil {
			return err
		}
	}
	for _, tok := range ts.propertyKeyTokens.sorted() {
		if err := v.VisitCreatedPropertyKeyToken(tok.Name, tok.ID); err != nil {
			return err
		}
	}
	for _, tok := range ts.relationshipTokens.sorted() {
		if err := v.VisitCreatedRelationshipTypeToken(tok.Name, tok.ID); err != nil {
			return err
		}
	}
	return nil
}

func labelDiffSlices(d *diffset.DiffSet[LabelID]) (added, removed []LabelID) {
	for x := range d.AddedSet() {
		added = append(added, x)
	}
	for x := range d.RemovedSet() {
		removed = append(removed, x)
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}

func sortedNodeStateIDs(m map[NodeID]*NodeState) []NodeID {
	out := make([]NodeID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedRelationshipStateIDs(m map[RelationshipID]*RelationshipState) []RelationshipID {
	out := make([]RelationshipID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
