package txstate

// RelationshipState is the per-relationship leaf: property changes (via the
// embedded PropertyContainerState) plus the (start, end, type) metadata
// triple fixed once at creation.
type RelationshipState struct {
	PropertyContainerState

	ID        RelationshipID
	StartNode NodeID
	EndNode   NodeID
	Type      RelTypeID
}

func newRelationshipState(id RelationshipID, startNode, endNode NodeID, typeID RelTypeID) *RelationshipState {
	return &RelationshipState{ID: id, StartNode: startNode, EndNode: endNode, Type: typeID}
}

// DirectionFor reports this relationship's direction relative to nodeID:
// OUTGOING if nodeID is the start, INCOMING if it is the end, and BOTH for
// self-loops (start == end == nodeID).
func (r *RelationshipState) DirectionFor(nodeID NodeID) Direction {
	if r.StartNode == r.EndNode && r.StartNode == nodeID {
		return Both
	}
	if r.StartNode == nodeID {
		return Outgoing
	}
	return Incoming
}

func (r *RelationshipState) hasChanges() bool {
	if r == nil {
		return false
	}
	return r.PropertyContainerState.HasChanges()
}
