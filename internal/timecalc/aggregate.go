package timecalc

import (
	"fmt"
	"sort"

	"github.com/personalweb03/services/internal/model"
	"github.com/personalweb03/services/internal/toggl"
)

// NoProject is the bucket for entries without a project.
const NoProject = "No Project"

// Aggregate sums the positive durations of entries per project and returns
// one row per project, highest hours first. Running entries (negative
// duration) and zero-length entries are skipped. Projects with equal hours
// keep the order in which they were first seen.
func Aggregate(entries []toggl.TimeEntry, projects []toggl.Project) []model.ProjectHours {
	names := make(map[int64]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	// Key 0 never collides with a Toggl ID; it stands for "no project".
	const noProjectKey int64 = 0
	totals := map[int64]int64{}
	var order []int64
	for _, e := range entries {
		if e.Duration <= 0 {
			continue
		}
		key := noProjectKey
		if e.ProjectID != nil {
			key = *e.ProjectID
		}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += e.Duration
	}

	rows := make([]model.ProjectHours, 0, len(order))
	for _, key := range order {
		var name string
		switch n, ok := names[key]; {
		case key == noProjectKey:
			name = NoProject
		case ok:
			name = n
		default:
			name = fmt.Sprintf("Unknown Project (%d)", key)
		}
		rows = append(rows, model.ProjectHours{
			ProjectName: name,
			HoursWorked: RoundHours(totals[key]),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].HoursWorked > rows[j].HoursWorked
	})
	return rows
}
