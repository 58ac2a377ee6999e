package txstate

import (
	"sort"
	"strings"

	"github.com/bellorr/txstate/diffset"
	"github.com/bellorr/txstate/values"
)

// IndexDiffHandle addresses one per-value DiffSet inside the IndexUpdates
// arena. NodeState stores a small set of these instead of a direct pointer
// back into the per-schema map, replacing the Java source's cyclic
// NodeState↔DiffSet object graph with the arena-of-handles redesign called
// for in spec.md §9.
type IndexDiffHandle int

type indexValueEntry struct {
	tuple  values.ValueTuple
	diff   *diffset.DiffSet[NodeID]
	handle IndexDiffHandle
}

// schemaIndex is the per-descriptor inner map described in spec.md §3: it
// starts "hashed" (an unordered map keyed by the value tuple) and is
// promoted in place to a "sorted" slice, maintained by sort.Search
// insertion, the first time a range query touches it. Once promoted, all
// subsequent writes target the sorted form (spec.md §3's invariant).
type schemaIndex struct {
	descriptor LabelSchemaDescriptor

	promoted bool
	hashed   map[string]*indexValueEntry // keyed by tuple.Key()
	sorted   []*indexValueEntry          // ordered by tuple.Compare
}

func (s *schemaIndex) entryFor(tuple values.ValueTuple, arena *[]*diffset.DiffSet[NodeID]) *indexValueEntry {
	if s.promoted {
		idx, found := s.searchSorted(tuple)
		if found {
			return s.sorted[idx]
		}
		e := newIndexValueEntry(tuple, arena)
		s.sorted = append(s.sorted, nil)
		copy(s.sorted[idx+1:], s.sorted[idx:])
		s.sorted[idx] = e
		return e
	}
	if s.hashed == nil {
		s.hashed = make(map[string]*indexValueEntry)
	}
	key := tuple.Key()
	e, ok := s.hashed[key]
	if !ok {
		e = newIndexValueEntry(tuple, arena)
		s.hashed[key] = e
	}
	return e
}

func (s *schemaIndex) lookup(tuple values.ValueTuple) *indexValueEntry {
	if s.promoted {
		idx, found := s.searchSorted(tuple)
		if !found {
			return nil
		}
		return s.sorted[idx]
	}
	if s.hashed == nil {
		return nil
	}
	return s.hashed[tuple.Key()]
}

// searchSorted returns the insertion index for tuple and whether an entry
// already exists there.
func (s *schemaIndex) searchSorted(tuple values.ValueTuple) (int, bool) {
	idx := sort.Search(len(s.sorted), func(i int) bool {
		return s.sorted[i].tuple.Compare(tuple) >= 0
	})
	if idx < len(s.sorted) && s.sorted[idx].tuple.Compare(tuple) == 0 {
		return idx, true
	}
	return idx, false
}

// promote converts the hashed form to the sorted form in place, per
// spec.md §4.5. It is a no-op if already promoted.
func (s *schemaIndex) promote() {
	if s.promoted {
		return
	}
	s.sorted = make([]*indexValueEntry, 0, len(s.hashed))
	for _, e := range s.hashed {
		s.sorted = append(s.sorted, e)
	}
	sort.Slice(s.sorted, func(i, j int) bool { return s.sorted[i].tuple.Compare(s.sorted[j].tuple) < 0 })
	s.hashed = nil
	s.promoted = true
}

func (s *schemaIndex) allEntries() []*indexValueEntry {
	if s.promoted {
		return s.sorted
	}
	out := make([]*indexValueEntry, 0, len(s.hashed))
	for _, e := range s.hashed {
		out = append(out, e)
	}
	return out
}

func newIndexValueEntry(tuple values.ValueTuple, arena *[]*diffset.DiffSet[NodeID]) *indexValueEntry {
	d := diffset.New[NodeID]()
	*arena = append(*arena, d)
	return &indexValueEntry{tuple: tuple, diff: d, handle: IndexDiffHandle(len(*arena) - 1)}
}

// IndexUpdates is the txstate.indexUpdates: map<LabelSchemaDescriptor →
// map<ValueTuple → DiffSet<nodeId>>>, plus the back-link arena.
type IndexUpdates struct {
	bySchema map[string]*schemaIndex
	arena    []*diffset.DiffSet[NodeID]

	nodes nodeStateLookup // to register/deregister back-links
}

// nodeStateLookup is the narrow slice of TxState the index table needs: the
// ability to find (and lazily create) a NodeState by id, so it can register
// back-links. Kept as an interface rather than a direct *TxState field to
// avoid a cyclic type definition between the two files.
type nodeStateLookup interface {
	nodeStateFor(id NodeID) *NodeState
}

func newIndexUpdates(nodes nodeStateLookup) *IndexUpdates {
	return &IndexUpdates{nodes: nodes}
}

func (iu *IndexUpdates) hasChanges() bool {
	if iu == nil {
		return false
	}
	for _, s := range iu.bySchema {
		for _, e := range s.allEntries() {
			if !e.diff.IsEmpty() {
				return true
			}
		}
	}
	return false
}

func (iu *IndexUpdates) schemaFor(d LabelSchemaDescriptor) *schemaIndex {
	if iu.bySchema == nil {
		iu.bySchema = make(map[string]*schemaIndex)
	}
	key := d.Key()
	s, ok := iu.bySchema[key]
	if !ok {
		s = &schemaIndex{descriptor: d}
		iu.bySchema[key] = s
	}
	return s
}

// IndexDoUpdateEntry implements spec.md §4.5: removing nodeID from the
// before-value's DiffSet and/or adding it to the after-value's DiffSet, with
// back-link bookkeeping so a later NodeDoDelete can excise stale entries.
func (iu *IndexUpdates) IndexDoUpdateEntry(schema LabelSchemaDescriptor, nodeID NodeID, before, after *values.ValueTuple) {
	s := iu.schemaFor(schema)
	if before != nil {
		e := s.entryFor(*before, &iu.arena)
		e.diff.Remove(nodeID)
		iu.syncBackLink(nodeID, e)
	}
	if after != nil {
		e := s.entryFor(*after, &iu.arena)
		e.diff.Add(nodeID)
		iu.syncBackLink(nodeID, e)
	}
}

// syncBackLink registers e's handle on nodeID's NodeState if nodeID now
// appears in either side of e.diff (so a later delete can excise it),
// otherwise deregisters it (the update was a net no-op for this value).
func (iu *IndexUpdates) syncBackLink(nodeID NodeID, e *indexValueEntry) {
	node := iu.nodes.nodeStateFor(nodeID)
	if node == nil {
		return
	}
	if e.diff.IsAdded(nodeID) || e.diff.IsRemoved(nodeID) {
		node.registerIndexDiff(e.handle)
	} else {
		node.deregisterIndexDiff(e.handle)
	}
}

// PurgeNode excises nodeID from every index-diff entry handle registered on
// its NodeState, called from NodeDoDelete so a deleted node's stale entries
// never surface through a later range scan (spec.md §4.5).
func (iu *IndexUpdates) PurgeNode(node *NodeState) {
	if node == nil {
		return
	}
	for h := range node.indexDiffHandles {
		if int(h) < 0 || int(h) >= len(iu.arena) {
			continue
		}
		iu.arena[h].Purge(node.ID)
	}
	node.indexDiffHandles = nil
}

// IndexUpdatesForScan returns the union of every per-value DiffSet for this
// schema, as a single merged DiffSet.
func (iu *IndexUpdates) IndexUpdatesForScan(schema LabelSchemaDescriptor) *diffset.DiffSet[NodeID] {
	s, ok := iu.bySchema[schema.Key()]
	if !ok {
		return diffset.Empty[NodeID]()
	}
	merged := diffset.New[NodeID]()
	for _, e := range s.allEntries() {
		for id := range e.diff.AddedSet() {
			merged.Add(id)
		}
		for id := range e.diff.RemovedSet() {
			merged.Remove(id)
		}
	}
	return merged
}

// IndexUpdatesForSeek returns the DiffSet stored at exactly the given tuple,
// or an empty DiffSet if no updates exist there.
func (iu *IndexUpdates) IndexUpdatesForSeek(schema LabelSchemaDescriptor, tuple values.ValueTuple) *diffset.DiffSet[NodeID] {
	s, ok := iu.bySchema[schema.Key()]
	if !ok {
		return diffset.Empty[NodeID]()
	}
	e := s.lookup(tuple)
	if e == nil {
		return diffset.Empty[NodeID]()
	}
	return e.diff
}

// rangeBound models an optional, inclusivity-tagged bound; nil means
// unbounded on that side. Resolved per SPEC_FULL.md §4: nil is always
// treated as inclusive of everything, for both numeric and string ranges —
// a deliberate fix of the MAX_STRING/MAX_NUMBER asymmetry flagged in
// spec.md §9.
type rangeBound struct {
	value     *values.Value
	inclusive bool
}

func (iu *IndexUpdates) rangeSeek(schema LabelSchemaDescriptor, lower, upper rangeBound) (*diffset.DiffSet[NodeID], error) {
	if schema.IsComposite() {
		return nil, ErrCompositeRangeUnsupported
	}
	s := iu.schemaFor(schema)
	s.promote()

	merged := diffset.New[NodeID]()
	for _, e := range s.sorted {
		v := e.tuple.At(0)
		if lower.value != nil {
			c := v.Compare(*lower.value)
			if c < 0 || (c == 0 && !lower.inclusive) {
				continue
			}
		}
		if upper.value != nil {
			c := v.Compare(*upper.value)
			if c > 0 || (c == 0 && !upper.inclusive) {
				continue
			}
		}
		for id := range e.diff.AddedSet() {
			merged.Add(id)
		}
		for id := range e.diff.RemovedSet() {
			merged.Remove(id)
		}
	}
	return merged, nil
}

// IndexUpdatesForRangeSeekByNumber implements spec.md §4.5's numeric range
// query. lower/upper of nil mean unbounded.
func (iu *IndexUpdates) IndexUpdatesForRangeSeekByNumber(schema LabelSchemaDescriptor, lower *float64, includeLower bool, upper *float64, includeUpper bool) (*diffset.DiffSet[NodeID], error) {
	var lb, ub rangeBound
	if lower != nil {
		v := values.OfFloat(*lower)
		lb = rangeBound{value: &v, inclusive: includeLower}
	}
	if upper != nil {
		v := values.OfFloat(*upper)
		ub = rangeBound{value: &v, inclusive: includeUpper}
	}
	return iu.rangeSeek(schema, lb, ub)
}

// IndexUpdatesForRangeSeekByString implements spec.md §4.5's string range
// query. lower/upper of nil mean unbounded.
func (iu *IndexUpdates) IndexUpdatesForRangeSeekByString(schema LabelSchemaDescriptor, lower *string, includeLower bool, upper *string, includeUpper bool) (*diffset.DiffSet[NodeID], error) {
	var lb, ub rangeBound
	if lower != nil {
		v := values.OfString(*lower)
		lb = rangeBound{value: &v, inclusive: includeLower}
	}
	if upper != nil {
		v := values.OfString(*upper)
		ub = rangeBound{value: &v, inclusive: includeUpper}
	}
	return iu.rangeSeek(schema, lb, ub)
}

// IndexUpdatesForRangeSeekByPrefix seeks to the first key ≥ prefix and
// streams forward, stopping at the first key whose string does not start
// with prefix (spec.md §4.5).
func (iu *IndexUpdates) IndexUpdatesForRangeSeekByPrefix(schema LabelSchemaDescriptor, prefix string) (*diffset.DiffSet[NodeID], error) {
	if schema.IsComposite() {
		return nil, ErrCompositeRangeUnsupported
	}
	s := iu.schemaFor(schema)
	s.promote()

	prefixValue := values.OfString(prefix)
	start := sort.Search(len(s.sorted), func(i int) bool {
		return s.sorted[i].tuple.At(0).Compare(prefixValue) >= 0
	})

	merged := diffset.New[NodeID]()
	for i := start; i < len(s.sorted); i++ {
		v := s.sorted[i].tuple.At(0)
		if v.Kind() != values.String || !strings.HasPrefix(v.StringVal(), prefix) {
			break
		}
		for id := range s.sorted[i].diff.AddedSet() {
			merged.Add(id)
		}
		for id := range s.sorted[i].diff.RemovedSet() {
			merged.Remove(id)
		}
	}
	return merged, nil
}

// IndexDiffSetsByLabel returns the merged DiffSet across every schema whose
// descriptor's Label matches, used by the façade's IndexDiffSetsByLabel read
// API (spec.md §6).
func (iu *IndexUpdates) IndexDiffSetsByLabel(label LabelID) *diffset.DiffSet[NodeID] {
	merged := diffset.New[NodeID]()
	for _, s := range iu.bySchema {
		if s.descriptor.Label != label {
			continue
		}
		for _, e := range s.allEntries() {
			for id := range e.diff.AddedSet() {
				merged.Add(id)
			}
			for id := range e.diff.RemovedSet() {
				merged.Remove(id)
			}
		}
	}
	return merged
}
