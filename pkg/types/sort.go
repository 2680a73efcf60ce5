package types

import "sort"

func sortActorsByID(actors []*Actor) {
	sort.Slice(actors, func(i, j int) bool { return actors[i].ID < actors[j].ID })
}

func sortActorIDs(ids []ActorID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortFragmentIDs(ids []FragmentID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortJobIDs(ids []JobID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortTableIDs(ids []TableID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortWorkerIDs(ids []WorkerID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
