package txstate

import "github.com/bellorr/txstate/diffset"

// LabelState is the per-label leaf: the set of nodes added to or removed
// from this label this transaction.
type LabelState struct {
	Label LabelID
	Nodes *diffset.DiffSet[NodeID]
}

func newLabelState(label LabelID) *LabelState {
	return &LabelState{Label: label, Nodes: diffset.New[NodeID]()}
}

func (l *LabelState) hasChanges() bool {
	return l != nil && !l.Nodes.IsEmpty()
}
