package executor

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrPartial marks a run in which some per-item
// operations failed while the rest completed
var ErrPartial = errors.New("completed with failures")

type Failure struct {
	Kind string // "add", "remove", "reposition"
	Item string
	Err  error
}

// Report accumulates per-item outcomes across the apply
// phase; adds run concurrently, so counting is locked
type Report struct {
	mu sync.Mutex

	Added        int
	AddFailed    int
	Removed      int
	RemoveFailed int
	Kept         int
	Renamed      int
	RenameFailed int

	Failures []Failure
}

func (report *Report) Failed() int {
	report.mu.Lock()
	defer report.mu.Unlock()
	return report.AddFailed + report.RemoveFailed + report.RenameFailed
}

func (report *Report) success(kind string) {
	report.mu.Lock()
	defer report.mu.Unlock()
	switch kind {
	case "add":
		report.Added++
	case "remove":
		report.Removed++
	case "reposition":
		report.Renamed++
	}
}

func (report *Report) failure(kind, item string, err error) {
	report.mu.Lock()
	defer report.mu.Unlock()
	switch kind {
	case "add":
		report.AddFailed++
	case "remove":
		report.RemoveFailed++
	case "reposition":
		report.RenameFailed++
	}
	report.Failures = append(report.Failures, Failure{Kind: kind, Item: item, Err: err})
}

func (report *Report) kept() {
	report.mu.Lock()
	defer report.mu.Unlock()
	report.Kept++
}

// String summarizes the report for the final screen
func (report *Report) String() string {
	report.mu.Lock()
	defer report.mu.Unlock()

	var out strings.Builder
	fmt.Fprintf(&out, "added %d (%d failed), renamed %d (%d failed), deleted %d (%d failed), kept %d",
		report.Added, report.AddFailed,
		report.Renamed, report.RenameFailed,
		report.Removed, report.RemoveFailed,
		report.Kept,
	)
	for _, failure := range report.Failures {
		fmt.Fprintf(&out, "\n%s %s: %s", failure.Kind, failure.Item, failure.Err)
	}
	return out.String()
}
