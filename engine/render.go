package engine

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
)

// Render formats the plan as grouped confirmation tables.
// Pure and deterministic: equal plans render identically.
func Render(plan *Plan) string {
	var out strings.Builder

	if plan.Empty() {
		out.WriteString("No changes to be applied!\n")
		renderWarnings(&out, plan)
		return out.String()
	}

	if plan.PlaylistTitle != "" {
		fmt.Fprintf(&out, "Planning to sync with remote playlist %q\n", plan.PlaylistTitle)
	}
	fmt.Fprintf(&out, "The following changes will be applied to the local playlist at %s:\n\n", plan.Dir)

	if len(plan.Adds) > 0 {
		out.WriteString("The following songs will be downloaded:\n")
		rows := make([][]string, 0, len(plan.Adds))
		for _, add := range plan.Adds {
			rows = append(rows, cleanRow(
				add.Filename,
				add.Remote.Title,
				add.Remote.Artist,
				duration(add.Remote.Duration),
				add.Remote.ID,
				strconv.Itoa(add.Position),
			))
		}
		renderTable(&out, []string{"Filename", "Title", "Artist", "Duration", "Video ID", "Index"}, rows)
	}

	if len(plan.Repositions) > 0 {
		out.WriteString("The following songs will have their files renamed:\n")
		moves := make([]Reposition, len(plan.Repositions))
		copy(moves, plan.Repositions)
		sort.Slice(moves, func(i, j int) bool { return moves[i].To < moves[j].To })
		rows := make([][]string, 0, len(moves))
		for _, move := range moves {
			rows = append(rows, cleanRow(
				move.Local.Title,
				move.Local.Artist,
				strconv.Itoa(move.From),
				strconv.Itoa(move.To),
				move.NewName,
			))
		}
		renderTable(&out, []string{"Title", "Artist", "Old Index", "New Index", "New Filename"}, rows)
	}

	deletes, preserved := splitRemoves(plan.Removes)

	if len(deletes) > 0 {
		out.WriteString(color.New(color.FgRed, color.Bold).Sprint("The following songs will have their files PERMANENTLY DELETED:"))
		out.WriteString("\n")
		rows := make([][]string, 0, len(deletes))
		for _, remove := range deletes {
			rows = append(rows, cleanRow(
				remove.Local.Title,
				remove.Local.Artist,
				filename(remove.Local.Path),
			))
		}
		renderTable(&out, []string{"Title", "Artist", "Filename"}, rows)
	}

	if len(preserved) > 0 {
		out.WriteString("The following songs left the remote playlist and will be kept on disk:\n")
		rows := make([][]string, 0, len(preserved))
		for _, remove := range preserved {
			rows = append(rows, cleanRow(
				remove.Local.Title,
				remove.Local.Artist,
				filename(remove.Local.Path),
			))
		}
		renderTable(&out, []string{"Title", "Artist", "Filename"}, rows)
	}

	renderWarnings(&out, plan)
	return out.String()
}

func renderWarnings(out *strings.Builder, plan *Plan) {
	if len(plan.Warnings) == 0 {
		return
	}

	warnings := make([]Warning, len(plan.Warnings))
	copy(warnings, plan.Warnings)
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].File < warnings[j].File })

	out.WriteString("The following files are not tracked and will be left untouched:\n")
	for _, warning := range warnings {
		if warning.Hint != "" {
			fmt.Fprintf(out, "  %s (closest remote track: %s)\n", warning.File, warning.Hint)
		} else {
			fmt.Fprintf(out, "  %s\n", warning.File)
		}
	}
	out.WriteString("\n")
}

func renderTable(out *strings.Builder, headers []string, rows [][]string) {
	rendered := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	out.WriteString(rendered.String())
	out.WriteString("\n\n")
}

func splitRemoves(removes []Remove) (deletes, preserved []Remove) {
	sorted := make([]Remove, len(removes))
	copy(sorted, removes)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Local.Position != sorted[j].Local.Position {
			return sorted[i].Local.Position < sorted[j].Local.Position
		}
		return sorted[i].Local.Path < sorted[j].Local.Path
	})
	for _, remove := range sorted {
		if remove.Preserve {
			preserved = append(preserved, remove)
		} else {
			deletes = append(deletes, remove)
		}
	}
	return deletes, preserved
}

func cleanRow(values ...string) []string {
	for index, value := range values {
		if value == "" {
			values[index] = "(none)"
		}
	}
	return values
}

func filename(path string) string {
	return filepath.Base(path)
}

func duration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
