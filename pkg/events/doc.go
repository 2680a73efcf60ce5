// Package events carries vnode mapping change notifications from the
// fragment manager out to whoever routes keyed traffic (the frontend /
// compute nodes in the original system; here, any subscriber). See Broker.
package events
