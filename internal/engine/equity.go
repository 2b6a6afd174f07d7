package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"teampulse/internal/domain"
	"teampulse/internal/events"
	"teampulse/internal/repo"
)

// Global workload blends effort-weighted cumulative load with the load
// carried by high-urgency tasks.
const (
	equityAlpha = 0.6
	equityBeta  = 0.4
)

type MemberWorkload struct {
	EmployeeID     string  `json:"employee_id"`
	EmployeeName   string  `json:"employee_name"`
	CumulativeLoad float64 `json:"cumulative_load"`
	CriticalScore  float64 `json:"critical_score"`
	GlobalScore    float64 `json:"global_score"`
	ActiveTasks    int     `json:"active_tasks"`
	HighPriority   int     `json:"high_priority"`
}

type EquityReport struct {
	TeamID          string           `json:"team_id"`
	TeamName        string           `json:"team_name"`
	EquityScore     float64          `json:"equity_score"`
	MemberWorkloads []MemberWorkload `json:"member_workloads"`
	Recommendations []string         `json:"recommendations"`
}

type TransferSuggestion struct {
	TaskID          string   `json:"task_id"`
	TaskTitle       string   `json:"task_title"`
	FromEmployee    string   `json:"from_employee"`
	ToEmployee      string   `json:"to_employee"`
	PriorityScore   *float64 `json:"priority_score,omitempty"`
	EstimatedEffort *float64 `json:"estimated_effort,omitempty"`
}

type AssignmentSuggestion struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
}

func memberWorkload(emp domain.Employee, tasks []domain.Task) MemberWorkload {
	w := MemberWorkload{EmployeeID: emp.ID, EmployeeName: emp.Name, ActiveTasks: len(tasks)}
	for _, t := range tasks {
		w.CumulativeLoad += taskLoad(t)
		if t.Urgency >= 4 {
			w.CriticalScore += priorityOrDefault(t.PriorityScore)
		}
		if floatOrZero(t.PriorityScore) >= 0.7 {
			w.HighPriority++
		}
	}
	w.GlobalScore = equityAlpha*w.CumulativeLoad + equityBeta*w.CriticalScore
	return w
}

func priorityOrDefault(v *float64) float64 {
	if v == nil {
		return 0.5
	}
	return *v
}

// TeamEquity scores how evenly global workload is spread across the team
// and explains any imbalance. An empty team is vacuously balanced.
func (e Engine) TeamEquity(ctx context.Context, teamID string) (EquityReport, error) {
	team, err := e.GetTeam(ctx, teamID)
	if err != nil {
		return EquityReport{}, err
	}
	members, err := e.Repo.TeamMembers(ctx, teamID)
	if err != nil {
		return EquityReport{}, err
	}
	report := EquityReport{TeamID: team.ID, TeamName: team.Name, MemberWorkloads: []MemberWorkload{}}
	if len(members) == 0 {
		report.EquityScore = 1.0
		report.Recommendations = []string{"No team members found"}
		return report, nil
	}
	for _, m := range members {
		tasks, err := e.Repo.ActiveTasks(ctx, m.ID)
		if err != nil {
			return EquityReport{}, err
		}
		report.MemberWorkloads = append(report.MemberWorkloads, memberWorkload(m, tasks))
	}
	report.EquityScore = equityScore(report.MemberWorkloads)
	report.Recommendations = balancingRecommendations(report.MemberWorkloads)
	return report, nil
}

// equityScore is max(0, 1-CV) over the members' global scores, CV being
// population standard deviation over mean. Zero mean means zero workload
// everywhere, which counts as perfect equity.
func equityScore(workloads []MemberWorkload) float64 {
	if len(workloads) == 0 {
		return 1.0
	}
	var mean float64
	for _, w := range workloads {
		mean += w.GlobalScore
	}
	mean /= float64(len(workloads))
	if mean == 0 {
		return 1.0
	}
	var variance float64
	for _, w := range workloads {
		d := w.GlobalScore - mean
		variance += d * d
	}
	variance /= float64(len(workloads))
	cv := math.Sqrt(variance) / mean
	return math.Max(0.0, 1.0-cv)
}

// balancingRecommendations flags imbalance between the most and least
// loaded members, members drowning in high-priority work, and teams running
// over capacity. The >2.0 and >1.5 ratio bands both fire above 2.0.
func balancingRecommendations(workloads []MemberWorkload) []string {
	var recs []string
	sorted := make([]MemberWorkload, len(workloads))
	copy(sorted, workloads)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].GlobalScore > sorted[j].GlobalScore })
	over := sorted[0]
	under := sorted[len(sorted)-1]
	ratio := over.GlobalScore / (under.GlobalScore + 0.1)
	if ratio > 2.0 {
		recs = append(recs, fmt.Sprintf("CRITICAL: %s is significantly overloaded. Consider redistributing tasks to %s.", over.EmployeeName, under.EmployeeName))
	}
	if ratio > 1.5 {
		recs = append(recs, fmt.Sprintf("Workload imbalance detected. Review task distribution between %s and %s.", over.EmployeeName, under.EmployeeName))
	}
	for _, w := range workloads {
		if w.HighPriority > 5 {
			recs = append(recs, fmt.Sprintf("%s has %d high-priority tasks. Consider delegating lower-priority items.", w.EmployeeName, w.HighPriority))
		}
	}
	var total float64
	for _, w := range workloads {
		total += w.GlobalScore
	}
	if total/float64(len(workloads)) > 20 {
		recs = append(recs, "Team appears to be operating at high capacity. Consider extending deadlines or requesting additional resources.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Workload is well-balanced across the team. Keep monitoring.")
	}
	return recs
}

// RedistributeTasks moves (or just proposes moving) pending work from the
// most loaded member to the least loaded one until the gap closes or no
// transferable task remains. The whole pass runs in one transaction; in
// suggest-only mode workloads never change, so the same transfer repeats
// until the suggestion cap.
func (e Engine) RedistributeTasks(ctx context.Context, teamID string, autoAssign bool, actorID string) ([]TransferSuggestion, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetTeamTx(ctx, tx, teamID); err != nil {
		return nil, asNotFound(err, "Team not found")
	}
	members, err := e.Repo.TeamMembersTx(ctx, tx, teamID)
	if err != nil {
		return nil, err
	}
	suggestions := []TransferSuggestion{}
	if len(members) < 2 {
		return suggestions, nil
	}
	workloads, err := e.teamWorkloadsTx(ctx, tx, members)
	if err != nil {
		return nil, err
	}
	for {
		over := workloads[0]
		under := workloads[len(workloads)-1]
		if over.GlobalScore < 1.5*under.GlobalScore {
			break
		}
		transfer, err := e.Repo.TransferableTaskTx(ctx, tx, over.EmployeeID)
		if errors.Is(err, repo.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, TransferSuggestion{
			TaskID:          transfer.ID,
			TaskTitle:       transfer.Title,
			FromEmployee:    over.EmployeeName,
			ToEmployee:      under.EmployeeName,
			PriorityScore:   transfer.PriorityScore,
			EstimatedEffort: transfer.EstimatedEffort,
		})
		if autoAssign {
			if err := e.Repo.ReassignTaskTx(ctx, tx, transfer.ID, under.EmployeeID, e.timestamp()); err != nil {
				return nil, err
			}
			if err := e.Events.Append(ctx, tx, "task.reassigned", "task", transfer.ID, actorID, events.EventPayload{"from": over.EmployeeID, "to": under.EmployeeID}); err != nil {
				return nil, err
			}
			e.Log.Info("task transferred",
				zap.String("task_id", transfer.ID),
				zap.String("from", over.EmployeeName),
				zap.String("to", under.EmployeeName))
		}
		workloads, err = e.teamWorkloadsTx(ctx, tx, members)
		if err != nil {
			return nil, err
		}
		if len(suggestions) >= 10 {
			break
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (e Engine) teamWorkloadsTx(ctx context.Context, tx *sql.Tx, members []domain.Employee) ([]MemberWorkload, error) {
	workloads := make([]MemberWorkload, 0, len(members))
	for _, m := range members {
		tasks, err := e.Repo.ActiveTasksTx(ctx, tx, m.ID)
		if err != nil {
			return nil, err
		}
		workloads = append(workloads, memberWorkload(m, tasks))
	}
	sort.SliceStable(workloads, func(i, j int) bool { return workloads[i].GlobalScore > workloads[j].GlobalScore })
	return workloads, nil
}

// SuggestAssignment picks the team member who should take a new task:
// whoever carries the lowest global workload right now.
func (e Engine) SuggestAssignment(ctx context.Context, teamID, taskID string) (AssignmentSuggestion, error) {
	if taskID != "" {
		if _, err := e.GetTask(ctx, taskID); err != nil {
			return AssignmentSuggestion{}, err
		}
	}
	members, err := e.Repo.TeamMembers(ctx, teamID)
	if err != nil {
		return AssignmentSuggestion{}, err
	}
	if len(members) == 0 {
		return AssignmentSuggestion{}, ValidationError{Msg: "No employees in team"}
	}
	if len(members) == 1 {
		return AssignmentSuggestion{EmployeeID: members[0].ID, Reason: "Only team member available"}, nil
	}
	workloads := make([]MemberWorkload, 0, len(members))
	for _, m := range members {
		tasks, err := e.Repo.ActiveTasks(ctx, m.ID)
		if err != nil {
			return AssignmentSuggestion{}, err
		}
		workloads = append(workloads, memberWorkload(m, tasks))
	}
	sort.SliceStable(workloads, func(i, j int) bool { return workloads[i].GlobalScore < workloads[j].GlobalScore })
	best := workloads[0]
	return AssignmentSuggestion{
		EmployeeID: best.EmployeeID,
		Reason:     fmt.Sprintf("Lowest current workload (score: %.2f)", best.GlobalScore),
	}, nil
}
