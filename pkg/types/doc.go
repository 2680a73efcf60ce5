/*
Package types defines the core data structures of the fragment manager.

This package contains the fundamental types representing a streaming job's
dataflow graph: jobs, fragments, actors and the vnode mappings that route
keyed data between them. These types are used by every other package in
this module for state management and reschedule bookkeeping.

# Core Types

Job Structure:
  - TableFragments: the full fragment graph of one job, plus its actor
    status and actor split side tables
  - Fragment: one vertex of the dataflow graph, a group of actors running
    identical logic over disjoint partitions of the key space
  - Actor: one instance of a fragment's executor pipeline
  - ActorStatus: where an actor runs and whether it has joined the running
    barrier pipeline

Routing:
  - VNodeMapping: a run-length-encoded vnode-to-parallel-unit table
  - ActorMapping: the vnode-to-actor counterpart, used to compute a new
    VNodeMapping after a reschedule
  - Dispatcher, MergeNode: the outbound and inbound sides of fan-out/fan-in
    between fragments
  - VNodeBitmap: which vnodes a single actor owns

Reschedule:
  - ReschedulePlan: one fragment's side of an online scale in/out

# Thread Safety

Types in this package carry no synchronization of their own. TableFragments
values are always read and mutated under the fragment store's lock, and
every staged mutation works against Clone()'d copies so in-flight readers
never observe a partially-applied change.
*/
package types
