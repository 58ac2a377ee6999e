package txstate

import "github.com/bellorr/txstate/diffset"

// schemaChanges holds the index-descriptor and constraint-descriptor
// DiffSets for this transaction, plus the bookkeeping needed to cascade a
// uniqueness constraint drop to its backing index (spec.md §4.6).
type schemaChanges struct {
	indexChanges      *diffset.DiffSet[string] // keyed by IndexDescriptor.Key()
	constraintChanges *diffset.DiffSet[string] // keyed by ConstraintDescriptor.Key()

	indexByKey      map[string]IndexDescriptor
	constraintByKey map[string]ConstraintDescriptor

	// constraintIndex maps a uniqueness-enforcing constraint's key to the
	// full descriptor of the index backing it, recorded when constraintDoAdd
	// is called with an owning index. The backing index is ordinarily
	// created by its own, separate indexRuleDoAdd call (possibly in an
	// earlier transaction) — constraintDoAdd only records the pairing, it
	// never creates the index itself.
	constraintIndex map[string]IndexDescriptor
}

func (s *schemaChanges) hasChanges() bool {
	return s != nil && (!s.indexChanges.IsEmpty() || !s.constraintChanges.IsEmpty())
}

func (s *schemaChanges) indexDiff() *diffset.DiffSet[string] {
	if s.indexChanges == nil {
		s.indexChanges = diffset.New[string]()
	}
	return s.indexChanges
}

func (s *schemaChanges) constraintDiff() *diffset.DiffSet[string] {
	if s.constraintChanges == nil {
		s.constraintChanges = diffset.New[string]()
	}
	return s.constraintChanges
}

// IndexRuleDoAdd records a schema index as created this transaction.
// UnRemove is tried first: if the index had been dropped earlier this same
// transaction, re-adding it cancels the drop instead of appearing in both a
// drop and a create.
func (s *schemaChanges) IndexRuleDoAdd(d IndexDescriptor) {
	key := d.Key()
	if s.indexByKey == nil {
		s.indexByKey = make(map[string]IndexDescriptor)
	}
	s.indexByKey[key] = d
	if s.indexDiff().UnRemove(key) {
		return
	}
	s.indexDiff().Add(key)
}

// IndexDoDrop records a schema index as dropped this transaction.
func (s *schemaChanges) IndexDoDrop(d IndexDescriptor) {
	key := d.Key()
	if s.indexByKey == nil {
		s.indexByKey = make(map[string]IndexDescriptor)
	}
	s.indexByKey[key] = d
	s.indexDiff().Remove(key)
}

// IndexDoUnRemove cancels a pending drop without creating a fresh add entry,
// matching spec.md §6's separate indexDoUnRemove operation.
func (s *schemaChanges) IndexDoUnRemove(d IndexDescriptor) bool {
	return s.indexDiff().UnRemove(d.Key())
}

// ConstraintDoAdd records a constraint as created this transaction. When the
// constraint is uniqueness-enforcing and owningIndex is non-nil, it also
// records the constraint→index pairing used by ConstraintDoDrop to cascade
// and by IndexCreatedForConstraint to look the pairing back up. The backing
// index itself is not created here — the caller issues its own, separate
// indexRuleDoAdd call (the index may even already exist from an earlier
// transaction); ConstraintDoAdd only remembers which index backs which
// constraint.
func (s *schemaChanges) ConstraintDoAdd(d ConstraintDescriptor, owningIndex *IndexDescriptor) {
	key := d.Key()
	if s.constraintByKey == nil {
		s.constraintByKey = make(map[string]ConstraintDescriptor)
	}
	s.constraintByKey[key] = d
	if !s.constraintDiff().UnRemove(key) {
		s.constraintDiff().Add(key)
	}
	if d.Type.IsUniquenessEnforcing() && owningIndex != nil {
		if s.constraintIndex == nil {
			s.constraintIndex = make(map[string]IndexDescriptor)
		}
		s.constraintIndex[key] = *owningIndex
	}
}

// ConstraintDoDrop records a constraint as dropped this transaction. If the
// constraint is uniqueness-enforcing, its backing index is also dropped
// (spec.md §4.6: "dropping a uniqueness-enforcing constraint also drops its
// backing index").
func (s *schemaChanges) ConstraintDoDrop(d ConstraintDescriptor) {
	key := d.Key()
	s.constraintDiff().Remove(key)
	if idx, ok := s.constraintIndex[key]; ok {
		s.IndexDoDrop(idx)
		delete(s.constraintIndex, key)
	}
}

// IndexCreatedForConstraint returns the index descriptor backing the given
// constraint, if any (supplemented from the Java original's
// indexCreatedForConstraint — see DESIGN.md).
func (s *schemaChanges) IndexCreatedForConstraint(d ConstraintDescriptor) (IndexDescriptor, bool) {
	idx, ok := s.constraintIndex[d.Key()]
	return idx, ok
}

// ConstraintIndexesCreatedInTx returns the index descriptors owned by every
// uniqueness constraint added this transaction (spec.md §4.6; named but not
// listed among spec.md §6's operations — see DESIGN.md SUPPLEMENTED
// FEATURES).
func (s *schemaChanges) ConstraintIndexesCreatedInTx() []IndexDescriptor {
	var out []IndexDescriptor
	for constraintKey := range s.constraintDiff().AddedSet() {
		if idx, ok := s.constraintIndex[constraintKey]; ok {
			out = append(out, idx)
		}
	}
	return out
}

// IndexChanges and ConstraintChanges expose the raw descriptor DiffSets
// resolved back to their full descriptor values, for read APIs and the
// commit-time visitor walk.
func (s *schemaChanges) IndexChanges() ([]IndexDescriptor, []IndexDescriptor) {
	return s.resolveIndexes(s.indexDiff().AddedSet()), s.resolveIndexes(s.indexDiff().RemovedSet())
}

func (s *schemaChanges) resolveIndexes(keys map[string]struct{}) []IndexDescriptor {
	out := make([]IndexDescriptor, 0, len(keys))
	for k := range keys {
		if d, ok := s.indexByKey[k]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (s *schemaChanges) ConstraintChanges() ([]ConstraintDescriptor, []ConstraintDescriptor) {
	return s.resolveConstraints(s.constraintDiff().AddedSet()), s.resolveConstraints(s.constraintDiff().RemovedSet())
}

func (s *schemaChanges) resolveConstraints(keys map[string]struct{}) []ConstraintDescriptor {
	out := make([]ConstraintDescriptor, 0, len(keys))
	for k := range keys {
		if d, ok := s.constraintByKey[k]; ok {
			out = append(out, d)
		}
	}
	return out
}

// constraintsForLabel/ForRelationshipType/ForSchema each return the
// (added, removed) constraint descriptors matching the filter, mirroring
// IndexChanges/ConstraintChanges's added/removed shape rather than a flat
// list, since a caller asking "what changed for this label" needs to
// distinguish a newly-added constraint from a dropped one.
func (s *schemaChanges) constraintsForLabel(label LabelID) (added, removed []ConstraintDescriptor) {
	return s.filterConstraints(func(d ConstraintDescriptor) bool {
		return !d.Schema.ForRelType && d.Schema.Label == label
	})
}

func (s *schemaChanges) constraintsForRelationshipType(relType RelTypeID) (added, removed []ConstraintDescriptor) {
	return s.filterConstraints(func(d ConstraintDescriptor) bool {
		return d.Schema.ForRelType && d.Schema.Label == relType
	})
}

func (s *schemaChanges) constraintsForSchema(schema LabelSchemaDescriptor) (added, removed []ConstraintDescriptor) {
	schemaKey := schema.Key()
	return s.filterConstraints(func(d ConstraintDescriptor) bool { return d.Schema.Key() == schemaKey })
}

func (s *schemaChanges) filterConstraints(pred func(ConstraintDescriptor) bool) (added, removed []ConstraintDescriptor) {
	allAdded, allRemoved := s.ConstraintChanges()
	for _, d := range allAdded {
		if pred(d) {
			added = append(added, d)
		}
	}
	for _, d := range allRemoved {
		if pred(d) {
			removed = append(removed, d)
		}
	}
	return added, removed
}
