package types

// UpstreamFragmentDispatcher names a dispatcher on an upstream fragment's
// actors whose downstream actor list needs patching as part of a reschedule.
type UpstreamFragmentDispatcher struct {
	UpstreamFragmentID FragmentID
	DispatcherID       DispatcherID
}

// ReschedulePlan describes a single fragment's side of an online scale
// in/out: which actors to add and remove, how vnode ownership shifts, and
// which neighboring fragments' routing needs patching to match.
type ReschedulePlan struct {
	AddedActors   []ActorID
	RemovedActors []ActorID

	// VNodeBitmapUpdates gives the new vnode ownership bitmap for actors
	// that keep their existing parallel unit but gain or lose vnodes.
	VNodeBitmapUpdates map[ActorID]*VNodeBitmap

	// UpstreamFragmentDispatcherIDs names the dispatchers on upstream
	// fragments (within the same job) whose downstream actor list and hash
	// mapping must be patched to match this fragment's new actor set.
	UpstreamFragmentDispatcherIDs []UpstreamFragmentDispatcher

	// UpstreamDispatcherMapping is the new vnode-to-actor routing table for
	// the patched upstream dispatchers, and also the source used to derive
	// this fragment's own new vnode-to-parallel-unit mapping.
	UpstreamDispatcherMapping *ActorMapping

	// DownstreamFragmentID names the fragment (within the same job) whose
	// actors merge from this one, if any; its merge nodes and per-actor
	// upstream actor lists are patched to match this fragment's new actor
	// set.
	DownstreamFragmentID *FragmentID

	ActorSplits map[ActorID][]SourceSplit
}
