package txstate

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellorr/txstate/values"
)

// recordingVisitor captures every event Accept emits, in order, so tests can
// assert both content and the fixed categorical ordering of spec.md §4.7.
type recordingVisitor struct {
	VisitorAdapter
	events []string

	createdRelType   map[RelationshipID][3]uint64
	nodePropsAdded   map[NodeID]map[PropertyKeyID]values.Value
	nodePropsChanged map[NodeID]map[PropertyKeyID]values.Value
	nodePropsRemoved map[NodeID]map[PropertyKeyID]struct{}
}

func newRecordingVisitor() *recordingVisitor {
	return &recordingVisitor{
		createdRelType:    map[RelationshipID][3]uint64{},
		nodePropsAdded:    map[NodeID]map[PropertyKeyID]values.Value{},
		nodePropsChanged:  map[NodeID]map[PropertyKeyID]values.Value{},
		nodePropsRemoved:  map[NodeID]map[PropertyKeyID]struct{}{},
	}
}

func (r *recordingVisitor) VisitCreatedNode(id NodeID) error {
	r.events = append(r.events, "createdNode")
	return nil
}

func (r *recordingVisitor) VisitDeletedNode(id NodeID) error {
	r.events = append(r.events, "deletedNode")
	return nil
}

func (r *recordingVisitor) VisitCreatedRelationship(id RelationshipID, typeID RelTypeID, start, end NodeID) error {
	r.events = append(r.events, "createdRelationship")
	r.createdRelType[id] = [3]uint64{uint64(typeID), start, end}
	return nil
}

func (r *recordingVisitor) VisitDeletedRelationship(id RelationshipID, typeID RelTypeID, start, end NodeID) error {
	r.events = append(r.events, "deletedRelationship")
	return nil
}

func (r *recordingVisitor) VisitNodeLabelChanges(id NodeID, added, removed []LabelID) error {
	r.events = append(r.events, "nodeLabelChanges")
	return nil
}

func (r *recordingVisitor) VisitNodePropertyChanges(id NodeID, added, changed map[PropertyKeyID]values.Value, removed map[PropertyKeyID]struct{}) error {
	r.events = append(r.events, "nodePropertyChanges")
	r.nodePropsAdded[id] = added
	r.nodePropsChanged[id] = changed
	r.nodePropsRemoved[id] = removed
	return nil
}

func (r *recordingVisitor) VisitRelPropertyChanges(id RelationshipID, added, changed map[PropertyKeyID]values.Value, removed map[PropertyKeyID]struct{}) error {
	r.events = append(r.events, "relPropertyChanges")
	return nil
}

func (r *recordingVisitor) VisitGraphPropertyChanges(added, changed map[PropertyKeyID]values.Value, removed map[PropertyKeyID]struct{}) error {
	r.events = append(r.events, "graphPropertyChanges")
	return nil
}

func (r *recordingVisitor) VisitAddedIndex(d IndexDescriptor) error {
	r.events = append(r.events, "addedIndex")
	return nil
}

func (r *recordingVisitor) VisitRemovedIndex(d IndexDescriptor) error {
	r.events = append(r.events, "removedIndex")
	return nil
}

func (r *recordingVisitor) VisitAddedConstraint(d ConstraintDescriptor) error {
	r.events = append(r.events, "addedConstraint")
	return nil
}

func (r *recordingVisitor) VisitRemovedConstraint(d ConstraintDescriptor) error {
	r.events = append(r.events, "removedConstraint")
	return nil
}

func (r *recordingVisitor) VisitCreatedLabelToken(name string, id LabelID) error {
	r.events = append(r.events, "createdLabelToken")
	return nil
}

func (r *recordingVisitor) VisitCreatedPropertyKeyToken(name string, id PropertyKeyID) error {
	r.events = append(r.events, "createdPropertyKeyToken")
	return nil
}

func (r *recordingVisitor) VisitCreatedRelationshipTypeToken(name string, id RelTypeID) error {
	r.events = append(r.events, "createdRelationshipTypeToken")
	return nil
}

// --- S1: create + property ---

func TestScenario_S1_CreateAndProperty(t *testing.T) {
	ts := New()
	ts.NodeDoCreate(7)
	ts.NodeDoAddProperty(7, 1, values.OfString("a"))

	assert.True(t, ts.AddedAndRemovedNodes().IsAdded(7))
	node := ts.nodeStateIfPresent(7)
	require.NotNil(t, node)
	assert.Equal(t, values.OfString("a"), node.Added()[1])

	v := newRecordingVisitor()
	require.NoError(t, ts.Accept(v))
	assert.Equal(t, []string{"createdNode", "nodeLabelChanges", "nodePropertyChanges"}, v.events)
	assert.Equal(t, values.OfString("a"), v.nodePropsAdded[7][1])
	assert.Empty(t, v.nodePropsChanged[7])
	assert.Empty(t, v.nodePropsRemoved[7])
}

// --- S2: label bijection ---

func TestScenario_S2_LabelBijection(t *testing.T) {
	ts := New()
	ts.NodeDoAddLabel(42, 9)
	ts.NodeDoAddLabel(43, 9)
	ts.NodeDoRemoveLabel(42, 9)

	changed42 := ts.NodesWithLabelChanged(42)
	assert.Empty(t, changed42.AddedSet())
	assert.Empty(t, changed42.RemovedSet())

	node := ts.nodeStateIfPresent(9)
	require.NotNil(t, node)
	assert.Contains(t, node.LabelDiffs().AddedSet(), LabelID(43))
	assert.NotContains(t, node.LabelDiffs().AddedSet(), LabelID(42))
}

// --- S3: string range seek ---

func TestScenario_S3_RangeSeekByString(t *testing.T) {
	ts := New()
	schema := LabelSchemaDescriptor{Label: 1, Properties: []PropertyKeyID{2}}
	apple := values.NewValueTuple(values.OfString("apple"))
	banana := values.NewValueTuple(values.OfString("banana"))
	cherry := values.NewValueTuple(values.OfString("cherry"))
	ts.IndexDoUpdateEntry(schema, 1, nil, &apple)
	ts.IndexDoUpdateEntry(schema, 2, nil, &banana)
	ts.IndexDoUpdateEntry(schema, 3, nil, &cherry)

	lower, upper := "apricot", "cherry"
	diff, err := ts.IndexUpdatesForRangeSeekByString(schema, &lower, true, &upper, false)
	require.NoError(t, err)
	assert.Equal(t, map[NodeID]struct{}{2: {}}, diff.AddedSet())
	assert.Empty(t, diff.RemovedSet())
}

// --- S4: prefix seek ---

func TestScenario_S4_RangeSeekByPrefix(t *testing.T) {
	ts := New()
	schema := LabelSchemaDescriptor{Label: 1, Properties: []PropertyKeyID{2}}
	apple := values.NewValueTuple(values.OfString("apple"))
	appliance := values.NewValueTuple(values.OfString("appliance"))
	banana := values.NewValueTuple(values.OfString("banana"))
	ts.IndexDoUpdateEntry(schema, 1, nil, &apple)
	ts.IndexDoUpdateEntry(schema, 2, nil, &appliance)
	ts.IndexDoUpdateEntry(schema, 3, nil, &banana)

	diff, err := ts.IndexUpdatesForRangeSeekByPrefix(schema, "app")
	require.NoError(t, err)
	got := sortedIDs(diff.AddedSet())
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []uint64{1, 2}, got)
}

// --- S5: create-delete shadow set ---

func TestScenario_S5_RelationshipCreateThenDelete(t *testing.T) {
	ts := New()
	ts.RelationshipDoCreate(50, 1, 10, 20)
	ts.RelationshipDoDelete(50, 1, 10, 20)

	assert.Empty(t, ts.AddedAndRemovedRelationships().AddedSet())
	assert.Empty(t, ts.AddedAndRemovedRelationships().RemovedSet())
	assert.True(t, ts.RelationshipIsDeletedInThisTx(50))
	assert.False(t, ts.RelationshipIsAddedInThisTx(50))

	v := newRecordingVisitor()
	require.NoError(t, ts.Accept(v))
	for _, e := range v.events {
		assert.NotEqual(t, "createdRelationship", e)
		assert.NotEqual(t, "deletedRelationship", e)
	}
}

// --- S6: constraint + backing index cascade drop ---

func TestScenario_S6_ConstraintDropCascadesIndex(t *testing.T) {
	ts := New()
	schema := LabelSchemaDescriptor{Label: 1, Properties: []PropertyKeyID{2}}
	idx := IndexDescriptor{Schema: schema, Name: "idx100"}
	constraint := ConstraintDescriptor{Schema: schema, Type: ConstraintUnique, Name: "cUnique"}

	ts.ConstraintDoAdd(constraint, &idx)
	ts.ConstraintDoDrop(constraint)

	addedC, removedC := ts.ConstraintsChangesForSchema(schema)
	assert.Empty(t, addedC)
	assert.Empty(t, removedC)

	_, removedIdx := ts.schema.IndexChanges()
	require.Len(t, removedIdx, 1)
	assert.Equal(t, idx, removedIdx[0])
}

// --- Universal invariants (spec.md §8) ---

func TestInvariant_CreateDeleteCancellation(t *testing.T) {
	ts := New()
	ts.NodeDoCreate(5)
	ts.NodeDoDelete(5)

	assert.False(t, ts.AddedAndRemovedNodes().IsAdded(5))
	assert.False(t, ts.AddedAndRemovedNodes().IsRemoved(5))
	assert.True(t, ts.NodeIsDeletedInThisTx(5))
	assert.False(t, ts.NodeIsAddedInThisTx(5))
}

func TestInvariant_AugmentationCorrectness(t *testing.T) {
	ts := New()
	ts.NodeDoCreate(10)
	ts.NodeDoDelete(2)

	committed := NewSliceIDCursor([]uint64{1, 2, 3})
	cur := ts.AugmentNodesGetAll(committed)

	var got []uint64
	for cur.Next() {
		got = append(got, cur.ID())
	}
	assert.ElementsMatch(t, []uint64{1, 3, 10}, got)
}

func TestInvariant_EmptyBufferIdentity(t *testing.T) {
	ts := New()
	assert.False(t, ts.HasChanges())
	assert.False(t, ts.HasDataChanges())

	committed := NewSliceIDCursor([]uint64{1, 2, 3})
	cur := ts.AugmentNodesGetAll(committed)
	assert.Same(t, committed, cur)
}

func TestInvariant_IdempotentUnRemoveThenAdd(t *testing.T) {
	ts := New()
	ts.NodeDoCreate(1)
	ts.NodeDoDelete(1)
	ts.NodeDoCreate(1)

	assert.True(t, ts.AddedAndRemovedNodes().IsAdded(1))
	assert.False(t, ts.AddedAndRemovedNodes().IsRemoved(1))
}

func TestInvariant_CommitOrdering(t *testing.T) {
	ts := New()
	ts.NodeDoCreate(1)
	ts.RelationshipDoCreate(100, 1, 1, 2)
	ts.RelationshipDoDelete(200, 1, 3, 4)
	ts.NodeDoDelete(5)
	ts.NodeDoAddProperty(1, 9, values.OfInt(1))
	ts.GraphDoAddProperty(11, values.OfBool(true))
	idx := IndexDescriptor{Schema: LabelSchemaDescriptor{Label: 1, Properties: []PropertyKeyID{2}}, Name: "ix"}
	ts.IndexRuleDoAdd(idx)
	ts.LabelDoCreateForName("Person", 1)

	v := newRecordingVisitor()
	require.NoError(t, ts.Accept(v))

	order := map[string]int{}
	for i, e := range v.events {
		if _, ok := order[e]; !ok {
			order[e] = i
		}
	}
	assert.Less(t, order["createdNode"], order["createdRelationship"])
	assert.Less(t, order["createdRelationship"], order["deletedRelationship"])
	assert.Less(t, order["deletedRelationship"], order["deletedNode"])
	assert.Less(t, order["deletedNode"], order["nodePropertyChanges"])
	assert.Less(t, order["nodePropertyChanges"], order["graphPropertyChanges"])
	assert.Less(t, order["graphPropertyChanges"], order["addedIndex"])
	assert.Less(t, order["addedIndex"], order["createdLabelToken"])
}

func TestInvariant_RangeSeekMonotonicityStopsAtFirstMismatch(t *testing.T) {
	ts := New()
	schema := LabelSchemaDescriptor{Label: 1, Properties: []PropertyKeyID{2}}
	for i, s := range []string{"app", "apple", "application", "banana"} {
		tup := values.NewValueTuple(values.OfString(s))
		ts.IndexDoUpdateEntry(schema, NodeID(i+1), nil, &tup)
	}
	diff, err := ts.IndexUpdatesForRangeSeekByPrefix(schema, "app")
	require.NoError(t, err)
	assert.Len(t, diff.AddedSet(), 3)
	assert.NotContains(t, diff.AddedSet(), NodeID(4))
}

func TestCompositeIndexRangeSeekRejected(t *testing.T) {
	ts := New()
	schema := LabelSchemaDescriptor{Label: 1, Properties: []PropertyKeyID{2, 3}}
	lower := "a"
	_, err := ts.IndexUpdatesForRangeSeekByString(schema, &lower, true, nil, true)
	assert.ErrorIs(t, err, ErrCompositeRangeUnsupported)
}

// --- Node-delete label bijection (SPEC_FULL.md §4 resolution) ---

func TestNodeDelete_RemovesFromAddedLabelStatesOnly(t *testing.T) {
	ts := New()
	ts.NodeDoAddLabel(1, 9)
	ts.NodeDoRemoveLabel(2, 9) // label 2 was only ever in the committed store for node 9
	ts.NodeDoDelete(9)

	ls1 := ts.labelStates[1]
	require.NotNil(t, ls1)
	assert.False(t, ls1.Nodes.IsAdded(9))

	ls2 := ts.labelStates[2]
	require.NotNil(t, ls2)
	assert.True(t, ls2.Nodes.IsRemoved(9))
}

// --- relationship-type vs label constraint disambiguation ---

func TestConstraintsChangesForRelationshipType_DoesNotMatchLabelConstraints(t *testing.T) {
	ts := New()
	labelSchema := LabelSchemaDescriptor{Label: 5, Properties: []PropertyKeyID{1}}
	relSchema := RelTypeSchema(5, 1) // same numeric id, different kind
	ts.ConstraintDoAdd(ConstraintDescriptor{Schema: labelSchema, Type: ConstraintExists, Name: "onLabel"}, nil)
	ts.ConstraintDoAdd(ConstraintDescriptor{Schema: relSchema, Type: ConstraintExists, Name: "onRelType"}, nil)

	addedForLabel, _ := ts.ConstraintsChangesForLabel(5)
	require.Len(t, addedForLabel, 1)
	assert.Equal(t, "onLabel", addedForLabel[0].Name)

	addedForRelType, _ := ts.ConstraintsChangesForRelationshipType(5)
	require.Len(t, addedForRelType, 1)
	assert.Equal(t, "onRelType", addedForRelType[0].Name)
}

// --- degree augmentation with self-loops ---

func TestAugmentNodeDegree_SelfLoopCountsBothDirections(t *testing.T) {
	ts := New()
	ts.RelationshipDoCreate(1, 7, 100, 100) // self-loop on node 100

	outDeg := ts.AugmentNodeDegree(100, Outgoing, 0, nil)
	inDeg := ts.AugmentNodeDegree(100, Incoming, 0, nil)
	assert.Equal(t, 1, outDeg)
	assert.Equal(t, 1, inDeg)
}

func TestSnapshot_RoundTripsThroughBothCodecs(t *testing.T) {
	ts := New()
	ts.NodeDoCreate(1)
	ts.NodeDoAddProperty(1, 1, values.OfString("hello"))

	snap := ts.TakeSnapshot()

	gobBytes, err := snap.Encode(CodecGob)
	require.NoError(t, err)
	gobBack, err := DecodeSnapshot(gobBytes)
	require.NoError(t, err)
	assert.Equal(t, snap, gobBack)

	mpBytes, err := snap.Encode(CodecMsgpack)
	require.NoError(t, err)
	mpBack, err := DecodeSnapshot(mpBytes)
	require.NoError(t, err)
	assert.Equal(t, snap, mpBack)
}
