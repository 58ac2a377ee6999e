// Package txstate implements the transaction-local mutation buffer: the set
// of in-memory leaf collections behind the TxState façade that accumulate a
// single transaction's uncommitted graph changes, expose a committed ∪
// pending read view, and emit a deterministic commit-time event stream.
package txstate

import (
	"fmt"
	"sort"
	"strings"
)

// NodeID and RelationshipID are assigned by an external id generator before
// they ever reach the buffer (the graph kernel's id allocator); the buffer
// never generates or validates them.
type NodeID = uint64
type RelationshipID = uint64

// LabelID, PropertyKeyID, and RelTypeID are the 32-bit signed token ids
// assigned to label/property-key/relationship-type names.
type LabelID = int32
type PropertyKeyID = int32
type RelTypeID = int32

// Direction is a relationship's orientation relative to a particular node.
type Direction uint8

const (
	Outgoing Direction = iota
	Incoming
	Both
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "OUTGOING"
	case Incoming:
		return "INCOMING"
	case Both:
		return "BOTH"
	default:
		return "UNKNOWN"
	}
}

// LabelSchemaDescriptor identifies an index/constraint schema: either a node
// label or a relationship type, plus an ordered list of property keys. It is
// used as a map key throughout the index-update table and the schema-change
// DiffSets; since Go map keys must be comparable and a descriptor carries a
// slice, callers needing a map key use Key() rather than the struct itself.
// Index schemas are always node-label schemas (ForRelType is only set on
// relationship-type existence constraints, which have no backing index);
// ForRelType distinguishes the two so ConstraintsChangesForLabel and
// ConstraintsChangesForRelationshipType never match each other's constraints
// even though LabelID and RelTypeID share the same underlying int32 range.
type LabelSchemaDescriptor struct {
	Label      LabelID
	Properties []PropertyKeyID
	ForRelType bool
}

// RelTypeSchema builds a relationship-type-scoped descriptor, the
// relationship-constraint counterpart to a plain (node-label) descriptor.
func RelTypeSchema(relType RelTypeID, properties ...PropertyKeyID) LabelSchemaDescriptor {
	return LabelSchemaDescriptor{Label: relType, Properties: properties, ForRelType: true}
}

// Key renders a canonical, comparable string for use as a map key.
func (d LabelSchemaDescriptor) Key() string {
	parts := make([]string, len(d.Properties))
	for i, p := range d.Properties {
		parts[i] = fmt.Sprintf("%d", p)
	}
	kind := "L"
	if d.ForRelType {
		kind = "T"
	}
	return fmt.Sprintf("%s%d:%s", kind, d.Label, strings.Join(parts, ","))
}

func (d LabelSchemaDescriptor) String() string {
	if d.ForRelType {
		return fmt.Sprintf("Schema(relType=%d, props=%v)", d.Label, d.Properties)
	}
	return fmt.Sprintf("Schema(label=%d, props=%v)", d.Label, d.Properties)
}

// IsComposite reports whether the descriptor covers anything other than
// exactly one property (zero or several), which range-seek queries reject (spec.md §9 Open Question, resolved in
// SPEC_FULL.md §4: rejected outright rather than silently wrong).
func (d LabelSchemaDescriptor) IsComposite() bool {
	return len(d.Properties) != 1
}

// ConstraintKind enumerates the constraint kinds the buffer needs to track
// to decide "dropping a uniqueness-enforcing constraint also drops its
// backing index" — a reduced set relative to the teacher's full
// ConstraintType (which also validates temporal/property-type constraints;
// the buffer only stores descriptors, it does not re-run validation).
type ConstraintKind uint8

const (
	ConstraintUnique ConstraintKind = iota
	ConstraintNodeKey
	ConstraintExists
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "UNIQUE"
	case ConstraintNodeKey:
		return "NODE_KEY"
	case ConstraintExists:
		return "EXISTS"
	default:
		return "UNKNOWN"
	}
}

// IsUniquenessEnforcing reports whether this constraint kind owns a backing
// index that must be dropped together with the constraint.
func (k ConstraintKind) IsUniquenessEnforcing() bool {
	return k == ConstraintUnique || k == ConstraintNodeKey
}

// IndexDescriptor identifies a schema index by its schema plus a name.
type IndexDescriptor struct {
	Schema LabelSchemaDescriptor
	Name   string
}

func (d IndexDescriptor) Key() string { return d.Schema.Key() + "#" + d.Name }

// ConstraintDescriptor identifies a schema constraint by its schema, kind,
// and name.
type ConstraintDescriptor struct {
	Schema LabelSchemaDescriptor
	Type   ConstraintKind
	Name   string
}

func (d ConstraintDescriptor) Key() string {
	return fmt.Sprintf("%s#%s#%s", d.Schema.Key(), d.Type, d.Name)
}

func (d ConstraintDescriptor) String() string {
	return fmt.Sprintf("Constraint(%s, type=%s, name=%s)", d.Schema, d.Type, d.Name)
}

// sortedIDs is a small helper used by read APIs that want deterministic
// output for tests (map iteration order is randomized in Go).
func sortedIDs(s map[uint64]struct{}) []uint64 {
	out := make([]uint64, 0, len(s))
	for x := range s {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
