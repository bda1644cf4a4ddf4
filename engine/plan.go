// Package engine computes the reconciliation plan between
// the remote playlist order and the tracked local files,
// and renders it for confirmation. Applying the plan is
// the executor's job; the engine never touches the disk.
package engine

import "github.com/plsync/plsync/entity"

// Add downloads a remote track missing locally
type Add struct {
	Remote   entity.RemoteTrack
	Position int
	Filename string
}

// Remove drops a local track whose remote counterpart
// vanished; with Preserve set the file stays on disk
// and is excluded from repositioning
type Remove struct {
	Local    entity.LocalTrack
	Preserve bool
}

// Reposition renames a local track to a new position
// slot. Staged entries open a permutation cycle and go
// through a temporary name (two-phase rename).
type Reposition struct {
	Local   entity.LocalTrack
	From    int
	To      int
	NewName string
	Staged  bool
}

// Warning surfaces an MP3 file the sync will not touch
type Warning struct {
	File string
	Hint string
}

// Plan is the ordered set of actions converging local
// state to remote state: removes, then repositions in a
// collision-free order, then adds. At most one action
// exists per stable id.
type Plan struct {
	PlaylistTitle string
	Dir           string
	Removes       []Remove
	Repositions   []Reposition
	Adds          []Add
	Warnings      []Warning
}

type Summary struct {
	Adds        int
	Removes     int
	Preserved   int
	Repositions int
	Warnings    int
}

func (plan *Plan) Empty() bool {
	return len(plan.Removes)+len(plan.Repositions)+len(plan.Adds) == 0
}

func (plan *Plan) Summary() Summary {
	summary := Summary{
		Adds:        len(plan.Adds),
		Repositions: len(plan.Repositions),
		Warnings:    len(plan.Warnings),
	}
	for _, remove := range plan.Removes {
		if remove.Preserve {
			summary.Preserved++
		} else {
			summary.Removes++
		}
	}
	return summary
}
