package types

import "github.com/bits-and-blooms/bitset"

// VNodeBitmap marks which of a job's vnodes an actor owns. Wraps
// bits-and-blooms/bitset rather than a plain []bool: vnode counts are
// always a fixed power of two and every bitmap gets cloned on every staged
// mutation, so a packed word-oriented representation is worth it.
type VNodeBitmap struct {
	bits *bitset.BitSet
}

// NewVNodeBitmap returns an empty bitmap sized for n vnodes.
func NewVNodeBitmap(n uint) *VNodeBitmap {
	return &VNodeBitmap{bits: bitset.New(n)}
}

// Set marks vnode i as owned.
func (b *VNodeBitmap) Set(i uint) { b.bits.Set(i) }

// Test reports whether vnode i is owned.
func (b *VNodeBitmap) Test(i uint) bool {
	if b == nil || b.bits == nil {
		return false
	}
	return b.bits.Test(i)
}

// Count returns the number of owned vnodes.
func (b *VNodeBitmap) Count() uint {
	if b == nil || b.bits == nil {
		return 0
	}
	return b.bits.Count()
}

// Clone returns an independent copy of the bitmap.
func (b *VNodeBitmap) Clone() *VNodeBitmap {
	if b == nil || b.bits == nil {
		return nil
	}
	return &VNodeBitmap{bits: b.bits.Clone()}
}

// VNodeMapping is a run-length encoding of a vnode-count-sized array
// mapping each vnode to the ParallelUnit that owns it. OriginalIndices[i]
// is the last vnode index (inclusive) covered by the run whose owner is
// Data[i]; runs are contiguous and cover [0, vnodeCount).
type VNodeMapping struct {
	OriginalIndices []uint32
	Data            []ParallelUnitID
}

// NewVNodeMapping builds the run-length encoding of assignment, which must
// have exactly vnodeCount entries, assignment[v] being the owner of vnode v.
func NewVNodeMapping(vnodeCount uint32, assignment []ParallelUnitID) *VNodeMapping {
	m := &VNodeMapping{}
	for v := uint32(0); v < vnodeCount; v++ {
		pu := assignment[v]
		if n := len(m.Data); n > 0 && m.Data[n-1] == pu {
			m.OriginalIndices[n-1] = v
			continue
		}
		m.OriginalIndices = append(m.OriginalIndices, v)
		m.Data = append(m.Data, pu)
	}
	return m
}

// Expand decodes the mapping back into a vnodeCount-sized per-vnode array.
func (m *VNodeMapping) Expand(vnodeCount uint32) []ParallelUnitID {
	out := make([]ParallelUnitID, vnodeCount)
	if m == nil {
		return out
	}
	start := uint32(0)
	for i, end := range m.OriginalIndices {
		pu := m.Data[i]
		for v := start; v <= end && v < vnodeCount; v++ {
			out[v] = pu
		}
		start = end + 1
	}
	return out
}

// ParallelUnitIDs returns the set of parallel units referenced by the
// mapping.
func (m *VNodeMapping) ParallelUnitIDs() map[ParallelUnitID]struct{} {
	set := make(map[ParallelUnitID]struct{})
	if m == nil {
		return set
	}
	for _, pu := range m.Data {
		set[pu] = struct{}{}
	}
	return set
}

// Rewrite substitutes parallel unit ids per sub, leaving the run boundaries
// untouched, and returns the result as a new mapping.
func (m *VNodeMapping) Rewrite(sub map[ParallelUnitID]ParallelUnitID) *VNodeMapping {
	if m == nil {
		return nil
	}
	data := make([]ParallelUnitID, len(m.Data))
	for i, pu := range m.Data {
		if np, ok := sub[pu]; ok {
			data[i] = np
		} else {
			data[i] = pu
		}
	}
	return &VNodeMapping{
		OriginalIndices: append([]uint32(nil), m.OriginalIndices...),
		Data:            data,
	}
}

// Clone returns an independent copy.
func (m *VNodeMapping) Clone() *VNodeMapping {
	if m == nil {
		return nil
	}
	return &VNodeMapping{
		OriginalIndices: append([]uint32(nil), m.OriginalIndices...),
		Data:            append([]ParallelUnitID(nil), m.Data...),
	}
}

// ActorMapping is the vnode-granular counterpart of VNodeMapping: it routes
// by actor rather than by parallel unit. The reschedule engine receives one
// of these for the dispatcher side of a scaling plan and must resolve it
// against the fragment's current actor-to-parallel-unit assignment before
// it can be installed as a VNodeMapping.
type ActorMapping struct {
	OriginalIndices []uint32
	Data            []ActorID
}

// Clone returns an independent copy.
func (m *ActorMapping) Clone() *ActorMapping {
	if m == nil {
		return nil
	}
	return &ActorMapping{
		OriginalIndices: append([]uint32(nil), m.OriginalIndices...),
		Data:            append([]ActorID(nil), m.Data...),
	}
}

// ToParallelUnitMapping resolves m's actor ids through actorToPU to produce
// the equivalent VNodeMapping.
func (m *ActorMapping) ToParallelUnitMapping(actorToPU map[ActorID]ParallelUnitID) *VNodeMapping {
	if m == nil {
		return nil
	}
	data := make([]ParallelUnitID, len(m.Data))
	for i, aid := range m.Data {
		data[i] = actorToPU[aid]
	}
	return &VNodeMapping{
		OriginalIndices: append([]uint32(nil), m.OriginalIndices...),
		Data:            data,
	}
}
