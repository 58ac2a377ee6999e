package txstate

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bellorr/txstate/values"
)

// Codec selects the wire format used by Snapshot's Encode/Decode, mirroring
// the teacher's storage.StorageSerializer selection between gob and msgpack
// (badger_serialization.go).
type Codec string

const (
	CodecGob     Codec = "gob"
	CodecMsgpack Codec = "msgpack"
)

const (
	snapshotMagic   = "\xffTXS"
	snapshotVersion = byte(1)
	codecIDGob      = byte(1)
	codecIDMsgpack  = byte(2)
)

func init() {
	gob.Register(PropertyDiff{})
}

// PropertyDiff is a gob/msgpack-friendly rendering of one property change.
// values.Value carries private fields and cannot be encoded directly, so the
// snapshot captures its Kind and a rendered string form — sufficient for the
// debug/logging use this codec exists for (SPEC_FULL.md's "available to
// callers that want to log a transaction's net effect"), not for round-trip
// reconstruction of typed values.
type PropertyDiff struct {
	Key      PropertyKeyID
	Kind     values.Kind
	Rendered string
}

// NodeSnapshot summarizes one node's pending changes.
type NodeSnapshot struct {
	ID            NodeID
	LabelsAdded   []LabelID
	LabelsRemoved []LabelID
	PropsAdded    []PropertyDiff
	PropsChanged  []PropertyDiff
	PropsRemoved  []PropertyKeyID
}

// RelationshipSnapshot summarizes one relationship's pending property changes.
type RelationshipSnapshot struct {
	ID           RelationshipID
	PropsAdded   []PropertyDiff
	PropsChanged []PropertyDiff
	PropsRemoved []PropertyKeyID
}

// Snapshot is a point-in-time, deterministic, plain-data summary of a
// TxState's net effect: which ids were added/removed and what each touched
// node/relationship/graph property container looks like. It exists for
// tests that want to assert full-state equality in one call and for callers
// that want to log a transaction's net effect — it is not consulted by any
// internal txstate operation.
type Snapshot struct {
	TxID                 string
	AddedNodes           []NodeID
	RemovedNodes         []NodeID
	AddedRelationships   []RelationshipID
	RemovedRelationships []RelationshipID
	Nodes                []NodeSnapshot
	Relationships        []RelationshipSnapshot
	GraphPropsAdded      []PropertyDiff
	GraphPropsChanged    []PropertyDiff
	GraphPropsRemoved    []PropertyKeyID
}

// TakeSnapshot builds a Snapshot of ts's current state. Every slice is
// sorted so two snapshots of logically equal states compare equal
// regardless of Go's randomized map iteration order.
func (ts *TxState) TakeSnapshot() Snapshot {
	snap := Snapshot{
		TxID:                 ts.ID,
		AddedNodes:           sortedU64(ts.nodes.AddedSet()),
		RemovedNodes:         sortedU64(ts.nodes.RemovedSet()),
		AddedRelationships:   sortedU64(ts.relationships.AddedSet()),
		RemovedRelationships: sortedU64(ts.relationships.RemovedSet()),
	}
	for _, id := range sortedNodeStateIDs(ts.nodeStates) {
		n := ts.nodeStates[id]
		if !n.hasChanges() {
			continue
		}
		addedLabels, removedLabels := labelDiffSlices(n.LabelDiffs())
		snap.Nodes = append(snap.Nodes, NodeSnapshot{
			ID:            id,
			LabelsAdded:   addedLabels,
			LabelsRemoved: removedLabels,
			PropsAdded:    renderProperties(n.Added()),
			PropsChanged:  renderProperties(n.Changed()),
			PropsRemoved:  sortedKeys(n.Removed()),
		})
	}
	for _, id := range sortedRelationshipStateIDs(ts.relationshipStates) {
		r := ts.relationshipStates[id]
		if !r.hasChanges() {
			continue
		}
		snap.Relationships = append(snap.Relationships, RelationshipSnapshot{
			ID:           id,
			PropsAdded:   renderProperties(r.Added()),
			PropsChanged: renderProperties(r.Changed()),
			PropsRemoved: sortedKeys(r.Removed()),
		})
	}
	if ts.graphState != nil {
		snap.GraphPropsAdded = renderProperties(ts.graphState.Added())
		snap.GraphPropsChanged = renderProperties(ts.graphState.Changed())
		snap.GraphPropsRemoved = sortedKeys(ts.graphState.Removed())
	}
	return snap
}

func renderProperties(m map[PropertyKeyID]values.Value) []PropertyDiff {
	if len(m) == 0 {
		return nil
	}
	out := make([]PropertyDiff, 0, len(m))
	for k, v := range m {
		out = append(out, PropertyDiff{Key: k, Kind: v.Kind(), Rendered: v.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func sortedKeys(m map[PropertyKeyID]struct{}) []PropertyKeyID {
	if len(m) == 0 {
		return nil
	}
	out := make([]PropertyKeyID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedU64(m map[uint64]struct{}) []uint64 {
	if len(m) == 0 {
		return nil
	}
	return sortedIDs(m)
}

// Encode serializes the snapshot with codec, using the same magic-header +
// version + codec-id framing the teacher applies in
// storage.badger_serialization.go's encodeValue, so a decoder can detect the
// format without an out-of-band hint.
func (s Snapshot) Encode(codec Codec) ([]byte, error) {
	payload, err := encodeSnapshotPayload(codec, s)
	if err != nil {
		return nil, err
	}
	id, err := codecID(codec)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(snapshotMagic)+2+len(payload))
	out = append(out, []byte(snapshotMagic)...)
	out = append(out, snapshotVersion, id)
	out = append(out, payload...)
	return out, nil
}

// DecodeSnapshot reverses Encode, reading the codec off the header.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) < len(snapshotMagic)+2 || string(data[:len(snapshotMagic)]) != snapshotMagic {
		return Snapshot{}, fmt.Errorf("txstate: snapshot data missing magic header")
	}
	version := data[len(snapshotMagic)]
	if version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("txstate: unsupported snapshot version %d", version)
	}
	codec, err := codecFromID(data[len(snapshotMagic)+1])
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := decodeSnapshotPayload(codec, data[len(snapshotMagic)+2:], &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func codecID(c Codec) (byte, error) {
	switch c {
	case CodecGob:
		return codecIDGob, nil
	case CodecMsgpack:
		return codecIDMsgpack, nil
	default:
		return 0, fmt.Errorf("txstate: unsupported snapshot codec: %s", c)
	}
}

func codecFromID(id byte) (Codec, error) {
	switch id {
	case codecIDGob:
		return CodecGob, nil
	case codecIDMsgpack:
		return CodecMsgpack, nil
	default:
		return "", fmt.Errorf("txstate: unsupported snapshot codec id: %d", id)
	}
}

func encodeSnapshotPayload(codec Codec, s Snapshot) ([]byte, error) {
	switch codec {
	case CodecGob:
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(s); err != nil {
			return nil, fmt.Errorf("txstate: gob-encoding snapshot: %w", err)
		}
		return buf.Bytes(), nil
	case CodecMsgpack:
		data, err := msgpack.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("txstate: msgpack-encoding snapshot: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("txstate: unsupported snapshot codec: %s", codec)
	}
}

func decodeSnapshotPayload(codec Codec, data []byte, out *Snapshot) error {
	switch codec {
	case CodecGob:
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
			return fmt.Errorf("txstate: gob-decoding snapshot: %w", err)
		}
		return nil
	case CodecMsgpack:
		if err := msgpack.Unmarshal(data, out); err != nil {
			return fmt.Errorf("txstate: msgpack-decoding snapshot: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("txstate: unsupported snapshot codec: %s", codec)
	}
}
