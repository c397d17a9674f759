package domain

import (
	"sort"
	"strings"
)

const (
	highPriorityMarker = "High Priority"
	fireMarker         = "🔥"
	inProgressMarker   = "in progress"
)

// ColumnTask is a task annotated with the title of the column holding it.
type ColumnTask struct {
	Task
	Column string `json:"column"`
}

// MemberStats counts the tasks assigned to one family member.
type MemberStats struct {
	Total int `json:"total"`
	Done  int `json:"done"`
}

// DashboardSummary is the aggregate view served on the dashboard.
type DashboardSummary struct {
	UpcomingJobs      []Job                  `json:"upcomingJobs"`
	HighPriorityTasks []ColumnTask           `json:"highPriorityTasks"`
	InProgressTasks   []ColumnTask           `json:"inProgressTasks"`
	PersonStats       map[string]MemberStats `json:"personStats"`
	TotalTasks        int                    `json:"totalTasks"`
	CompletedTasks    int                    `json:"completedTasks"`
	TotalJobs         int                    `json:"totalJobs"`
	EnabledJobs       int                    `json:"enabledJobs"`
}

// Summarize derives dashboard statistics from the board, the roster ids and
// the scheduled job list.
//
// A task counts as high priority when it is marked !high or sits in a column
// whose title mentions "High Priority" or carries the fire emoji. Only open
// tasks are listed there and in the in-progress list.
func Summarize(columns []Column, memberIDs []string, jobs []Job) DashboardSummary {
	s := DashboardSummary{
		HighPriorityTasks: []ColumnTask{},
		InProgressTasks:   []ColumnTask{},
		PersonStats:       make(map[string]MemberStats, len(memberIDs)),
	}
	for _, id := range memberIDs {
		s.PersonStats[id] = MemberStats{}
	}

	for _, col := range columns {
		columnHigh := strings.Contains(col.Title, highPriorityMarker) || strings.Contains(col.Title, fireMarker)
		columnInProgress := strings.Contains(strings.ToLower(col.Title), inProgressMarker)

		for _, t := range col.Tasks {
			s.TotalTasks++
			if t.Done {
				s.CompletedTasks++
			}

			if !t.Done && (t.Priority == PriorityHigh || columnHigh) {
				s.HighPriorityTasks = append(s.HighPriorityTasks, ColumnTask{Task: t, Column: col.Title})
			}
			if !t.Done && columnInProgress {
				s.InProgressTasks = append(s.InProgressTasks, ColumnTask{Task: t, Column: col.Title})
			}

			for _, a := range t.Assignees {
				st, ok := s.PersonStats[a]
				if !ok {
					continue
				}
				st.Total++
				if t.Done {
					st.Done++
				}
				s.PersonStats[a] = st
			}
		}
	}

	s.UpcomingJobs = UpcomingJobs(jobs)
	s.TotalJobs = len(jobs)
	s.EnabledJobs = len(s.UpcomingJobs)
	return s
}

// UpcomingJobs returns the enabled jobs ordered by next run time. Jobs with
// no next run time sort first; ties keep their input order.
func UpcomingJobs(jobs []Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Enabled() {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].NextRunAtMs() < out[k].NextRunAtMs()
	})
	return out
}
