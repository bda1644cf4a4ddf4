package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/plsync/plsync/entity"
)

var ErrDuplicateTrack = errors.New("duplicate stable id in remote playlist")

type Options struct {
	// PreserveDeleted keeps locally-deleted-from-remote
	// files on disk instead of deleting them
	PreserveDeleted bool
	// NoRename suppresses repositioning entirely
	NoRename bool
}

// Compute diffs the remote ordered list against the local
// set, keyed by stable id. Running it again after a full
// apply yields an empty plan.
func Compute(remote []entity.RemoteTrack, local []entity.LocalTrack, untracked []string, opts Options) (*Plan, error) {
	remoteByID := make(map[string]entity.RemoteTrack, len(remote))
	for _, track := range remote {
		if _, dupe := remoteByID[track.ID]; dupe {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTrack, track.ID)
		}
		remoteByID[track.ID] = track
	}

	// first local file per id wins; later duplicates are
	// treated as removed so the id maps to a single file
	sorted := make([]entity.LocalTrack, len(local))
	copy(sorted, local)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].ID < sorted[j].ID
	})

	plan := &Plan{}
	localByID := make(map[string]entity.LocalTrack, len(sorted))
	for _, track := range sorted {
		if _, seen := localByID[track.ID]; seen {
			plan.Removes = append(plan.Removes, Remove{Local: track, Preserve: opts.PreserveDeleted})
			continue
		}
		localByID[track.ID] = track
	}

	var moves []Reposition
	for _, track := range sorted {
		matched, ok := remoteByID[track.ID]
		if localByID[track.ID].Path != track.Path {
			continue // duplicate, already queued for removal
		}
		if !ok {
			plan.Removes = append(plan.Removes, Remove{Local: track, Preserve: opts.PreserveDeleted})
			continue
		}
		if track.Position == matched.Position || opts.NoRename {
			continue
		}
		moves = append(moves, Reposition{
			Local:   track,
			From:    track.Position,
			To:      matched.Position,
			NewName: entity.Filename(matched.Position, track.ID, track.Artist, track.Title),
		})
	}
	plan.Repositions = orderRepositions(moves)

	for _, track := range remote {
		if _, ok := localByID[track.ID]; ok {
			continue
		}
		plan.Adds = append(plan.Adds, Add{
			Remote:   track,
			Position: track.Position,
			Filename: track.Filename(),
		})
	}
	sort.Slice(plan.Adds, func(i, j int) bool { return plan.Adds[i].Position < plan.Adds[j].Position })

	for _, file := range untracked {
		plan.Warnings = append(plan.Warnings, Warning{File: file, Hint: closestRemote(file, remote)})
	}
	return plan, nil
}

// closestRemote suggests the remote track an untracked
// file most likely corresponds to, when one is close
// enough to be worth mentioning
func closestRemote(file string, remote []entity.RemoteTrack) string {
	stem := strings.ToLower(strings.TrimSuffix(file, "."+entity.TrackFormat))

	best, bestDistance := "", len(stem)
	for _, track := range remote {
		candidate := track.Title
		if track.Artist != "" {
			candidate = track.Artist + " - " + track.Title
		}
		if distance := levenshtein.ComputeDistance(stem, strings.ToLower(candidate)); distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}

	if best == "" || bestDistance > len(stem)/2 {
		return ""
	}
	return best
}
