package txstate

import (
	"github.com/google/uuid"

	"github.com/bellorr/txstate/diffset"
	"github.com/bellorr/txstate/values"
)

// relationshipMeta is the (type, start, end) triple needed to emit a
// deleted-relationship commit event for a relationship this transaction
// never created (so there is no RelationshipState to read it back from).
// The caller always supplies this triple to RelationshipDoDelete, mirroring
// spec.md §6's relationshipDoDelete(id, type, start, end) signature.
type relationshipMeta struct {
	typeID    RelTypeID
	startNode NodeID
	endNode   NodeID
}

// TxState is the transaction-local mutation buffer façade: every leaf
// collection described in spec.md §3/§4 lives behind this type, allocated
// lazily on first write. One TxState is owned by exactly one transaction and
// is never shared (spec.md §5).
type TxState struct {
	// ID is a correlation id for external logging/debugging only; it is
	// never read or branched on internally. Grounded on
	// storage.BadgerTransaction.ID = generateTxID() (see SPEC_FULL.md §6).
	ID string

	nodes         *diffset.DiffSet[NodeID]
	relationships *diffset.DiffSet[RelationshipID]

	nodeStates         map[NodeID]*NodeState
	relationshipStates map[RelationshipID]*RelationshipState
	labelStates        map[LabelID]*LabelState

	graphState *GraphState

	indexUpdates *IndexUpdates

	labelTokens        *tokenTable
	propertyKeyTokens  *tokenTable
	relationshipTokens *tokenTable

	schema *schemaChanges

	nodesDeletedInTx         map[NodeID]struct{}
	relationshipsDeletedInTx map[RelationshipID]struct{}
	deletedRelationshipMeta  map[RelationshipID]relationshipMeta

	idCursors       idCursorPool
	propertyCursors propertyCursorPool
}

// New constructs an empty buffer. Every internal collection remains nil
// until its first write, per spec.md §3's lifecycle contract, except the
// IndexUpdates holder, which is allocated here; its maps stay nil until the
// first index update.
func New() *TxState {
	ts := &TxState{ID: uuid.NewString()}
	ts.indexUpdates = newIndexUpdates(ts)
	return ts
}

// ---- lazy accessors ----

func (ts *TxState) nodesDiff() *diffset.DiffSet[NodeID] {
	if ts.nodes == nil {
		ts.nodes = diffset.New[NodeID]()
	}
	return ts.nodes
}

func (ts *TxState) relationshipsDiff() *diffset.DiffSet[RelationshipID] {
	if ts.relationships == nil {
		ts.relationships = diffset.New[RelationshipID]()
	}
	return ts.relationships
}

// nodeStateFor lazily creates and returns the NodeState for id; used by
// every mutation path that needs to record a change against a node.
func (ts *TxState) nodeStateFor(id NodeID) *NodeState {
	if ts.nodeStates == nil {
		ts.nodeStates = make(map[NodeID]*NodeState)
	}
	n, ok := ts.nodeStates[id]
	if !ok {
		n = newNodeState(id)
		ts.nodeStates[id] = n
	}
	return n
}

// nodeStateIfPresent is the non-allocating counterpart used by read paths
// that must not force an empty NodeState into existence just by looking.
func (ts *TxState) nodeStateIfPresent(id NodeID) *NodeState {
	if ts.nodeStates == nil {
		return nil
	}
	return ts.nodeStates[id]
}

func (ts *TxState) relationshipStateFor(id RelationshipID) *RelationshipState {
	if ts.relationshipStates == nil {
		ts.relationshipStates = make(map[RelationshipID]*RelationshipState)
	}
	r, ok := ts.relationshipStates[id]
	if !ok {
		r = &RelationshipState{ID: id}
		ts.relationshipStates[id] = r
	}
	return r
}

func (ts *TxState) relationshipStateIfPresent(id RelationshipID) *RelationshipState {
	if ts.relationshipStates == nil {
		return nil
	}
	return ts.relationshipStates[id]
}

func (ts *TxState) labelStateFor(label LabelID) *LabelState {
	if ts.labelStates == nil {
		ts.labelStates = make(map[LabelID]*LabelState)
	}
	l, ok := ts.labelStates[label]
	if !ok {
		l = newLabelState(label)
		ts.labelStates[label] = l
	}
	return l
}

func (ts *TxState) graph() *GraphState {
	if ts.graphState == nil {
		ts.graphState = &GraphState{}
	}
	return ts.graphState
}

func (ts *TxState) schemaChangesFor() *schemaChanges {
	if ts.schema == nil {
		ts.schema = &schemaChanges{}
	}
	return ts.schema
}

func (ts *TxState) labelTokensFor() *tokenTable {
	if ts.labelTokens == nil {
		ts.labelTokens = &tokenTable{}
	}
	return ts.labelTokens
}

func (ts *TxState) propertyKeyTokensFor() *tokenTable {
	if ts.propertyKeyTokens == nil {
		ts.propertyKeyTokens = &tokenTable{}
	}
	return ts.propertyKeyTokens
}

func (ts *TxState) relationshipTokensFor() *tokenTable {
	if ts.relationshipTokens == nil {
		ts.relationshipTokens = &tokenTable{}
	}
	return ts.relationshipTokens
}

// ---- mutation API (producer side) ----

func (ts *TxState) NodeDoCreate(id NodeID) {
	ts.nodesDiff().Add(id)
}

// NodeDoDelete removes id from the committed ∪ pending node view and
// records it in the deleted shadow set regardless of whether it also
// cancelled out of the main DiffSet (a create-then-delete this transaction
// is externally invisible but still "deleted" for idempotency checks, per
// spec.md §3's shadow deletion sets).
func (ts *TxState) NodeDoDelete(id NodeID) {
	ts.nodesDiff().Remove(id)
	if ts.nodesDeletedInTx == nil {
		ts.nodesDeletedInTx = make(map[NodeID]struct{})
	}
	ts.nodesDeletedInTx[id] = struct{}{}

	node := ts.nodeStateIfPresent(id)
	if node == nil {
		return
	}
	// Label bijection (spec.md §4.4, resolved per SPEC_FULL.md §4): walk the
	// node's own added labels and remove it from each corresponding
	// LabelState; labels the node only ever held in the removed side refer
	// to the committed store and are left untouched.
	for label := range node.LabelDiffs().AddedSet() {
		if ls := ts.labelStates[label]; ls != nil {
			ls.Nodes.Remove(id)
		}
	}
	node.labelDiffs = nil
	ts.indexUpdates.PurgeNode(node)
}

func (ts *TxState) nodeDirectionsFor(start, end NodeID) (startDir, endDir Direction, selfLoop bool) {
	if start == end {
		return Both, Both, true
	}
	return Outgoing, Incoming, false
}

func (ts *TxState) RelationshipDoCreate(id RelationshipID, typeID RelTypeID, startNode, endNode NodeID) {
	ts.relationshipsDiff().Add(id)
	if ts.relationshipStates == nil {
		ts.relationshipStates = make(map[RelationshipID]*RelationshipState)
	}
	ts.relationshipStates[id] = newRelationshipState(id, startNode, endNode, typeID)

	startDir, endDir, selfLoop := ts.nodeDirectionsFor(startNode, endNode)
	ts.nodeStateFor(startNode).AddRelationship(id, typeID, startDir)
	if !selfLoop {
		ts.nodeStateFor(endNode).AddRelationship(id, typeID, endDir)
	}
}

// RelationshipDoDelete removes id from the committed ∪ pending relationship
// view. The caller supplies (typeID, startNode, endNode) directly since the
// buffer has no other way to recover that metadata for a relationship it
// never created this transaction.
func (ts *TxState) RelationshipDoDelete(id RelationshipID, typeID RelTypeID, startNode, endNode NodeID) {
	ts.relationshipsDiff().Remove(id)
	if ts.relationshipsDeletedInTx == nil {
		ts.relationshipsDeletedInTx = make(map[RelationshipID]struct{})
	}
	ts.relationshipsDeletedInTx[id] = struct{}{}
	if ts.deletedRelationshipMeta == nil {
		ts.deletedRelationshipMeta = make(map[RelationshipID]relationshipMeta)
	}
	ts.deletedRelationshipMeta[id] = relationshipMeta{typeID: typeID, startNode: startNode, endNode: endNode}

	startDir, endDir, selfLoop := ts.nodeDirectionsFor(startNode, endNode)
	ts.nodeStateFor(startNode).RemoveRelationship(id, typeID, startDir)
	if !selfLoop {
		ts.nodeStateFor(endNode).RemoveRelationship(id, typeID, endDir)
	}
}

func (ts *TxState) NodeDoAddProperty(id NodeID, key PropertyKeyID, v values.Value) {
	ts.nodeStateFor(id).AddProperty(key, v)
}

func (ts *TxState) NodeDoChangeProperty(id NodeID, key PropertyKeyID, v values.Value) {
	ts.nodeStateFor(id).ChangeProperty(key, v)
}

func (ts *TxState) NodeDoRemoveProperty(id NodeID, key PropertyKeyID, oldValue values.Value) {
	ts.nodeStateFor(id).RemoveProperty(key, oldValue)
}

func (ts *TxState) RelationshipDoAddProperty(id RelationshipID, key PropertyKeyID, v values.Value) {
	ts.relationshipStateFor(id).AddProperty(key, v)
}

func (ts *TxState) RelationshipDoChangeProperty(id RelationshipID, key PropertyKeyID, v values.Value) {
	ts.relationshipStateFor(id).ChangeProperty(key, v)
}

func (ts *TxState) RelationshipDoRemoveProperty(id RelationshipID, key PropertyKeyID, oldValue values.Value) {
	ts.relationshipStateFor(id).RemoveProperty(key, oldValue)
}

func (ts *TxState) GraphDoAddProperty(key PropertyKeyID, v values.Value) {
	ts.graph().AddProperty(key, v)
}

func (ts *TxState) GraphDoChangeProperty(key PropertyKeyID, v values.Value) {
	ts.graph().ChangeProperty(key, v)
}

func (ts *TxState) GraphDoRemoveProperty(key PropertyKeyID, oldValue values.Value) {
	ts.graph().RemoveProperty(key, oldValue)
}

// NodeDoAddLabel and NodeDoRemoveLabel maintain the NodeState↔LabelState
// bijection described in spec.md §4.4.
func (ts *TxState) NodeDoAddLabel(label LabelID, node NodeID) {
	ts.nodeStateFor(node).AddLabel(label)
	ts.labelStateFor(label).Nodes.Add(node)
}

func (ts *TxState) NodeDoRemoveLabel(label LabelID, node NodeID) {
	ts.nodeStateFor(node).RemoveLabel(label)
	ts.labelStateFor(label).Nodes.Remove(node)
}

func (ts *TxState) LabelDoCreateForName(name string, id LabelID) {
	ts.labelTokensFor().create(name, id)
}

func (ts *TxState) PropertyKeyDoCreateForName(name string, id PropertyKeyID) {
	ts.propertyKeyTokensFor().create(name, id)
}

func (ts *TxState) RelationshipTypeDoCreateForName(name string, id RelTypeID) {
	ts.relationshipTokensFor().create(name, id)
}

func (ts *TxState) IndexRuleDoAdd(d IndexDescriptor) { ts.schemaChangesFor().IndexRuleDoAdd(d) }

func (ts *TxState) IndexDoDrop(d IndexDescriptor) { ts.schemaChangesFor().IndexDoDrop(d) }

func (ts *TxState) IndexDoUnRemove(d IndexDescriptor) bool {
	return ts.schemaChangesFor().IndexDoUnRemove(d)
}

func (ts *TxState) ConstraintDoAdd(d ConstraintDescriptor, owningIndex *IndexDescriptor) {
	ts.schemaChangesFor().ConstraintDoAdd(d, owningIndex)
}

func (ts *TxState) ConstraintDoDrop(d ConstraintDescriptor) {
	ts.schemaChangesFor().ConstraintDoDrop(d)
}

func (ts *TxState) IndexDoUpdateEntry(schema LabelSchemaDescriptor, node NodeID, before, after *values.ValueTuple) {
	ts.indexUpdates.IndexDoUpdateEntry(schema, node, before, after)
}

// ---- read API (consumer side) ----

func (ts *TxState) NodeIsAddedInThisTx(id NodeID) bool { return ts.nodes.IsAdded(id) }

func (ts *TxState) NodeIsDeletedInThisTx(id NodeID) bool {
	_, ok := ts.nodesDeletedInTx[id]
	return ok
}

func (ts *TxState) NodeModifiedInThisTx(id NodeID) bool {
	return ts.nodeStateIfPresent(id).hasChanges()
}

func (ts *TxState) RelationshipIsAddedInThisTx(id RelationshipID) bool {
	return ts.relationships.IsAdded(id)
}

func (ts *TxState) RelationshipIsDeletedInThisTx(id RelationshipID) bool {
	_, ok := ts.relationshipsDeletedInTx[id]
	return ok
}

func (ts *TxState) RelationshipModifiedInThisTx(id RelationshipID) bool {
	return ts.relationshipStateIfPresent(id).hasChanges()
}

func (ts *TxState) AddedAndRemovedNodes() *diffset.DiffSet[NodeID] {
	if ts.nodes == nil {
		return diffset.Empty[NodeID]()
	}
	return ts.nodes
}

func (ts *TxState) AddedAndRemovedRelationships() *diffset.DiffSet[RelationshipID] {
	if ts.relationships == nil {
		return diffset.Empty[RelationshipID]()
	}
	return ts.relationships
}

func (ts *TxState) NodesWithLabelChanged(label LabelID) *diffset.DiffSet[NodeID] {
	if ts.labelStates == nil {
		return diffset.Empty[NodeID]()
	}
	ls, ok := ts.labelStates[label]
	if !ok {
		return diffset.Empty[NodeID]()
	}
	return ls.Nodes
}

func (ts *TxState) IndexDiffSetsByLabel(label LabelID) *diffset.DiffSet[NodeID] {
	return ts.indexUpdates.IndexDiffSetsByLabel(label)
}

func (ts *TxState) ConstraintsChangesForLabel(label LabelID) (added, removed []ConstraintDescriptor) {
	if ts.schema == nil {
		return nil, nil
	}
	return ts.schema.constraintsForLabel(label)
}

func (ts *TxState) ConstraintsChangesForSchema(schema LabelSchemaDescriptor) (added, removed []ConstraintDescriptor) {
	if ts.schema == nil {
		return nil, nil
	}
	return ts.schema.constraintsForSchema(schema)
}

func (ts *TxState) ConstraintsChangesForRelationshipType(relType RelTypeID) (added, removed []ConstraintDescriptor) {
	if ts.schema == nil {
		return nil, nil
	}
	return ts.schema.constraintsForRelationshipType(relType)
}

func (ts *TxState) ConstraintIndexesCreatedInTx() []IndexDescriptor {
	if ts.schema == nil {
		return nil
	}
	return ts.schema.ConstraintIndexesCreatedInTx()
}

func (ts *TxState) IndexCreatedForConstraint(d ConstraintDescriptor) (IndexDescriptor, bool) {
	if ts.schema == nil {
		return IndexDescriptor{}, false
	}
	return ts.schema.IndexCreatedForConstraint(d)
}

func (ts *TxState) IndexUpdatesForScan(schema LabelSchemaDescriptor) *diffset.DiffSet[NodeID] {
	return ts.indexUpdates.IndexUpdatesForScan(schema)
}

func (ts *TxState) IndexUpdatesForSeek(schema LabelSchemaDescriptor, tuple values.ValueTuple) *diffset.DiffSet[NodeID] {
	return ts.indexUpdates.IndexUpdatesForSeek(schema, tuple)
}

func (ts *TxState) IndexUpdatesForRangeSeekByNumber(schema LabelSchemaDescriptor, lower *float64, includeLower bool, upper *float64, includeUpper bool) (*diffset.DiffSet[NodeID], error) {
	return ts.indexUpdates.IndexUpdatesForRangeSeekByNumber(schema, lower, includeLower, upper, includeUpper)
}

func (ts *TxState) IndexUpdatesForRangeSeekByString(schema LabelSchemaDescriptor, lower *string, includeLower bool, upper *string, includeUpper bool) (*diffset.DiffSet[NodeID], error) {
	return ts.indexUpdates.IndexUpdatesForRangeSeekByString(schema, lower, includeLower, upper, includeUpper)
}

func (ts *TxState) IndexUpdatesForRangeSeekByPrefix(schema LabelSchemaDescriptor, prefix string) (*diffset.DiffSet[NodeID], error) {
	return ts.indexUpdates.IndexUpdatesForRangeSeekByPrefix(schema, prefix)
}

func (ts *TxState) NodeRelationshipTypes(id NodeID) []RelTypeID {
	return ts.nodeStateIfPresent(id).RelationshipTypes()
}

// ---- augmenting cursors ----

func (ts *TxState) AugmentNodesGetAll(committed IDCursor) IDCursor {
	if ts.nodes == nil {
		return committed
	}
	return ts.idCursors.augment(committed, ts.nodes.IsRemoved, sortedIDs(ts.nodes.AddedSet()))
}

func (ts *TxState) AugmentRelationshipsGetAll(committed IDCursor) IDCursor {
	if ts.relationships == nil {
		return committed
	}
	return ts.idCursors.augment(committed, ts.relationships.IsRemoved, sortedIDs(ts.relationships.AddedSet()))
}

// AugmentRelationshipsGetAllCursor is the cursor-API equivalent of
// AugmentRelationshipsGetAll, named separately per spec.md §6 (the Java
// original exposes both an iterator-based and a cursor-based relationship
// scan augmenter; both share this implementation here).
func (ts *TxState) AugmentRelationshipsGetAllCursor(committed IDCursor) IDCursor {
	return ts.AugmentRelationshipsGetAll(committed)
}

// AugmentSingleNodeCursor reports whether node id should be visible,
// combining the committed store's answer with this transaction's pending
// changes: deleted hides it even if committed says it exists; added shows
// it even if committed says it doesn't.
func (ts *TxState) AugmentSingleNodeCursor(id NodeID, existsInCommitted bool) bool {
	if ts.nodes.IsRemoved(id) {
		return false
	}
	if ts.nodes.IsAdded(id) {
		return true
	}
	return existsInCommitted
}

func (ts *TxState) AugmentSingleRelationshipCursor(id RelationshipID, existsInCommitted bool) bool {
	if ts.relationships.IsRemoved(id) {
		return false
	}
	if ts.relationships.IsAdded(id) {
		return true
	}
	return existsInCommitted
}

func (ts *TxState) AugmentPropertyCursor(committed PropertyCursor, container *PropertyContainerState) PropertyCursor {
	return ts.propertyCursors.augment(committed, container)
}

func (ts *TxState) AugmentNodePropertyCursor(id NodeID, committed PropertyCursor) PropertyCursor {
	node := ts.nodeStateIfPresent(id)
	if node == nil {
		return committed
	}
	return ts.AugmentPropertyCursor(committed, &node.PropertyContainerState)
}

func (ts *TxState) AugmentRelationshipPropertyCursor(id RelationshipID, committed PropertyCursor) PropertyCursor {
	rel := ts.relationshipStateIfPresent(id)
	if rel == nil {
		return committed
	}
	return ts.AugmentPropertyCursor(committed, &rel.PropertyContainerState)
}

func (ts *TxState) AugmentGraphProperties(committed PropertyCursor) PropertyCursor {
	if ts.graphState == nil {
		return committed
	}
	return ts.AugmentPropertyCursor(committed, &ts.graphState.PropertyContainerState)
}

// AugmentNodeRelationshipCursor augments a committed relationship-id cursor
// for one node's traversal, optionally filtered to a single type.
func (ts *TxState) AugmentNodeRelationshipCursor(id NodeID, committed IDCursor, dir Direction, typeID *RelTypeID) IDCursor {
	node := ts.nodeStateIfPresent(id)
	if node == nil {
		return committed
	}
	diffSets := node.matchingDiffSets(dir, typeID, false)
	if len(diffSets) == 0 {
		return committed
	}
	isRemoved := func(relID uint64) bool {
		for _, d := range diffSets {
			if d.IsRemoved(relID) {
				return true
			}
		}
		return false
	}
	var added []uint64
	for _, d := range diffSets {
		for relID := range d.AddedSet() {
			added = append(added, relID)
		}
	}
	return ts.idCursors.augment(committed, isRemoved, added)
}

func (ts *TxState) AugmentLabels(id NodeID, committedLabels []LabelID) []LabelID {
	node := ts.nodeStateIfPresent(id)
	if node == nil {
		return committedLabels
	}
	return node.LabelDiffs().AugmentSlice(committedLabels)
}

func (ts *TxState) AugmentNodeDegree(id NodeID, dir Direction, committedDegree int, typeID *RelTypeID) int {
	return ts.nodeStateIfPresent(id).AugmentDegree(dir, committedDegree, typeID)
}

// ---- change tracking ----

// HasDataChanges reports whether any entity/property/label/relationship
// mutation occurred this transaction, excluding token and schema changes.
func (ts *TxState) HasDataChanges() bool {
	if !ts.nodes.IsEmpty() || !ts.relationships.IsEmpty() {
		return true
	}
	for _, n := range ts.nodeStates {
		if n.hasChanges() {
			return true
		}
	}
	for _, r := range ts.relationshipStates {
		if r.hasChanges() {
			return true
		}
	}
	for _, l := range ts.labelStates {
		if l.hasChanges() {
			return true
		}
	}
	if ts.graphState != nil && ts.graphState.hasChanges() {
		return true
	}
	if ts.indexUpdates.hasChanges() {
		return true
	}
	return false
}

// HasChanges reports whether anything at all changed this transaction,
// including token creation and schema (index/constraint) changes.
func (ts *TxState) HasChanges() bool {
	if ts.HasDataChanges() {
		return true
	}
	if ts.schema != nil && ts.schema.hasChanges() {
		return true
	}
	if ts.labelTokens.hasChanges() || ts.propertyKeyTokens.hasChanges() || ts.relationshipTokens.hasChanges() {
		return true
	}
	return false
}
