// Package types defines the core data structures of the fragment manager's
// domain model: jobs, fragments, actors and the vnode/parallel-unit mappings
// that route data between them.
package types

import "encoding/json"

// JobID identifies a streaming job (what the catalog calls a "table").
type JobID uint32

// FragmentID identifies a fragment. Unique within a job, not globally.
type FragmentID uint32

// ActorID identifies a single actor instance, globally unique.
type ActorID uint32

// DispatcherID identifies a dispatcher attached to an actor.
type DispatcherID uint32

// ParallelUnitID identifies a slot of compute owned by a worker.
type ParallelUnitID uint32

// WorkerID identifies a worker node in the cluster.
type WorkerID uint32

// TableID identifies an internal state table owned by a fragment.
type TableID uint32

// JobState is the lifecycle state of a job's table fragments.
type JobState string

const (
	JobStateCreating JobState = "creating"
	JobStateCreated  JobState = "created"
)

// FragmentType discriminates what role a fragment plays in the dataflow
// graph. It drives which fragments participate in dependency bookkeeping.
type FragmentType string

const (
	FragmentTypeSource   FragmentType = "source"
	FragmentTypeSink     FragmentType = "sink"
	FragmentTypeChain    FragmentType = "chain"
	FragmentTypeInternal FragmentType = "internal"
)

// ActorLifecycleState tracks whether an actor has been wired into a running
// barrier pipeline yet.
type ActorLifecycleState string

const (
	ActorInactive ActorLifecycleState = "inactive"
	ActorRunning  ActorLifecycleState = "running"
)

// DefaultVNodeCount is the number of virtual nodes a job's key space is
// partitioned into. Fixed per deployment, always a power of two.
const DefaultVNodeCount = 256

// ParallelUnit is a single slot of compute on a worker.
type ParallelUnit struct {
	ID       ParallelUnitID
	WorkerID WorkerID
}

// ActorStatus is the side-table entry tracking where an actor runs and
// whether it has joined the running barrier pipeline.
type ActorStatus struct {
	State        ActorLifecycleState
	ParallelUnit ParallelUnit
}

func (s *ActorStatus) clone() *ActorStatus {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// ActorIDState pairs an actor id with its current lifecycle state, returned
// by the worker-grouped accessor methods.
type ActorIDState struct {
	ActorID ActorID
	State   ActorLifecycleState
}

// SourceSplit is an opaque, connector-specific source-split assignment.
// Parsing split contents is outside this package's concern; it is kept as
// raw JSON so it round-trips through storage untouched.
type SourceSplit struct {
	SplitID string
	Info    json.RawMessage
}

func cloneSplits(in []SourceSplit) []SourceSplit {
	if in == nil {
		return nil
	}
	out := make([]SourceSplit, len(in))
	for i, s := range in {
		out[i] = SourceSplit{SplitID: s.SplitID, Info: append(json.RawMessage(nil), s.Info...)}
	}
	return out
}

// MergeNode is the inbound fan-in point embedded in an actor's stream-node
// tree. It names the fragment it reads from and the actors it currently
// merges from that fragment.
type MergeNode struct {
	UpstreamFragmentID FragmentID
	UpstreamActorID    []ActorID
}

func (m *MergeNode) clone() *MergeNode {
	if m == nil {
		return nil
	}
	return &MergeNode{
		UpstreamFragmentID: m.UpstreamFragmentID,
		UpstreamActorID:    append([]ActorID(nil), m.UpstreamActorID...),
	}
}

// StreamNode is a node in an actor's executor tree. Only Merge nodes carry
// fan-in routing information the fragment manager needs to patch during a
// reschedule; everything else is opaque payload.
type StreamNode struct {
	NodeType string
	Merge    *MergeNode
	Input    []*StreamNode
}

// Walk visits n and every descendant, depth first.
func (n *StreamNode) Walk(fn func(*StreamNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Input {
		c.Walk(fn)
	}
}

// Clone returns a deep copy of the tree.
func (n *StreamNode) Clone() *StreamNode {
	if n == nil {
		return nil
	}
	clone := &StreamNode{NodeType: n.NodeType, Merge: n.Merge.clone()}
	for _, c := range n.Input {
		clone.Input = append(clone.Input, c.Clone())
	}
	return clone
}

// PatchMergeUpstream rewrites every Merge node in the tree whose
// UpstreamFragmentID matches fragmentID, removing actors in remove and
// appending actors in add to its UpstreamActorID list.
func (n *StreamNode) PatchMergeUpstream(fragmentID FragmentID, remove map[ActorID]struct{}, add []ActorID) {
	if n == nil {
		return
	}
	if n.Merge != nil && n.Merge.UpstreamFragmentID == fragmentID {
		n.Merge.UpstreamActorID = SpliceActorIDs(n.Merge.UpstreamActorID, remove, add)
	}
	for _, c := range n.Input {
		c.PatchMergeUpstream(fragmentID, remove, add)
	}
}

// Dispatcher fans an actor's output out to downstream actors.
type Dispatcher struct {
	ID                DispatcherID
	DownstreamActorID []ActorID

	// HashMapping routes by actor id, not parallel unit: a reschedule plan
	// hands this field the plan's UpstreamDispatcherMapping unconverted, so
	// it always reflects the exact actor-granular table the barrier
	// coordinator computed, independent of which parallel unit an actor
	// happens to be pinned to.
	HashMapping *ActorMapping
}

func (d *Dispatcher) clone() *Dispatcher {
	if d == nil {
		return nil
	}
	return &Dispatcher{
		ID:                d.ID,
		DownstreamActorID: append([]ActorID(nil), d.DownstreamActorID...),
		HashMapping:       d.HashMapping.Clone(),
	}
}

// Actor is one instance of a fragment's executor graph, pinned to a
// ParallelUnit via the owning job's ActorStatus side table.
type Actor struct {
	ID          ActorID
	Node        *StreamNode
	VNodeBitmap *VNodeBitmap
	Dispatcher  []*Dispatcher

	// UpstreamActorID mirrors the Merge nodes' upstream actor lists at the
	// actor level, so upstream dispatcher patches don't need to walk the
	// stream-node tree to find what they're fanning out to.
	UpstreamActorID []ActorID
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}
	clone := &Actor{
		ID:              a.ID,
		Node:            a.Node.Clone(),
		VNodeBitmap:     a.VNodeBitmap.Clone(),
		UpstreamActorID: append([]ActorID(nil), a.UpstreamActorID...),
	}
	for _, d := range a.Dispatcher {
		clone.Dispatcher = append(clone.Dispatcher, d.clone())
	}
	return clone
}

// Fragment is a vertex in the dataflow graph: a group of actors all running
// the same executor pipeline over disjoint partitions of the key space.
type Fragment struct {
	ID            FragmentID
	Type          FragmentType
	Actors        []*Actor
	VNodeMapping  *VNodeMapping
	StateTableIDs []TableID

	// UpstreamJobID is set only on Chain fragments: the job this chain
	// bridges historical data in from.
	UpstreamJobID *JobID
}

func (f *Fragment) sortedActors() []*Actor {
	out := append([]*Actor(nil), f.Actors...)
	sortActorsByID(out)
	return out
}

// ActorByID returns the actor with the given id, if present.
func (f *Fragment) ActorByID(id ActorID) (*Actor, bool) {
	for _, a := range f.Actors {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the fragment.
func (f *Fragment) Clone() *Fragment {
	if f == nil {
		return nil
	}
	clone := &Fragment{
		ID:            f.ID,
		Type:          f.Type,
		VNodeMapping:  f.VNodeMapping.Clone(),
		StateTableIDs: append([]TableID(nil), f.StateTableIDs...),
	}
	if f.UpstreamJobID != nil {
		id := *f.UpstreamJobID
		clone.UpstreamJobID = &id
	}
	for _, a := range f.Actors {
		clone.Actors = append(clone.Actors, a.Clone())
	}
	return clone
}

// TableFragments is the full fragment graph of one job: its fragments, and
// the actor-status and actor-splits side tables keyed by actor id.
//
// Ownership is tree-shaped: a job owns its fragments, a fragment owns its
// actors. ActorStatus and ActorSplits live in side maps keyed by actor id
// rather than embedded in Actor, matching the critical-section discipline
// that only ever stages whole TableFragments values.
type TableFragments struct {
	ID          JobID
	State       JobState
	Fragments   map[FragmentID]*Fragment
	ActorStatus map[ActorID]*ActorStatus
	ActorSplits map[ActorID][]SourceSplit
}

// NewTableFragments returns an empty, initialized TableFragments for id.
func NewTableFragments(id JobID) *TableFragments {
	return &TableFragments{
		ID:          id,
		State:       JobStateCreating,
		Fragments:   make(map[FragmentID]*Fragment),
		ActorStatus: make(map[ActorID]*ActorStatus),
		ActorSplits: make(map[ActorID][]SourceSplit),
	}
}

// Clone returns a deep copy, independent of tf, suitable for staging under a
// write transaction.
func (tf *TableFragments) Clone() *TableFragments {
	if tf == nil {
		return nil
	}
	clone := &TableFragments{
		ID:          tf.ID,
		State:       tf.State,
		Fragments:   make(map[FragmentID]*Fragment, len(tf.Fragments)),
		ActorStatus: make(map[ActorID]*ActorStatus, len(tf.ActorStatus)),
		ActorSplits: make(map[ActorID][]SourceSplit, len(tf.ActorSplits)),
	}
	for id, f := range tf.Fragments {
		clone.Fragments[id] = f.Clone()
	}
	for id, s := range tf.ActorStatus {
		clone.ActorStatus[id] = s.clone()
	}
	for id, splits := range tf.ActorSplits {
		clone.ActorSplits[id] = cloneSplits(splits)
	}
	return clone
}

// SpliceActorIDs returns ids with every member of remove dropped and add
// appended, without aliasing the input slice.
func SpliceActorIDs(ids []ActorID, remove map[ActorID]struct{}, add []ActorID) []ActorID {
	out := make([]ActorID, 0, len(ids)+len(add))
	for _, id := range ids {
		if _, drop := remove[id]; drop {
			continue
		}
		out = append(out, id)
	}
	out = append(out, add...)
	return out
}
