package txstate

// GraphState is the single graph-wide PropertyContainerState, shared by
// every graphDo*Property call this transaction (there is exactly one graph
// per transaction, unlike nodes/relationships which are keyed by id).
type GraphState struct {
	PropertyContainerState
}

func (g *GraphState) hasChanges() bool {
	return g != nil && g.PropertyContainerState.HasChanges()
}
