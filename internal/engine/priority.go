package engine

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"teampulse/internal/domain"
	"teampulse/internal/events"
)

// Priority is a weighted blend of five normalized signals. Deadline
// pressure and urgency dominate; the rest nudge.
const (
	weightUrgency      = 0.3
	weightDeadline     = 0.25
	weightEffort       = 0.2
	weightProductivity = 0.15
	weightDependencies = 0.1
)

// PriorityScore rates how urgently a task should be worked next by its
// assignee, in [0,1]. Pure function of the task, the employee's
// productivity profile and the clock.
func PriorityScore(t domain.Task, emp domain.Employee, now time.Time) float64 {
	urgency := float64(t.Urgency) / 5.0
	dependencies := 0.5
	if len(t.Dependencies) > 0 {
		dependencies = 1.0
	}
	score := weightUrgency*urgency +
		weightDeadline*deadlineFactor(t.Deadline, now) +
		weightEffort*effortFactor(t.EstimatedEffort) +
		weightProductivity*productivityAt(emp, now) +
		weightDependencies*dependencies
	return clamp01(score)
}

// deadlineFactor scores deadline pressure: overdue tops out at 1.0 and the
// score decays with the integer number of days remaining. No deadline sits
// at a moderate 0.3.
func deadlineFactor(deadline *string, now time.Time) float64 {
	if deadline == nil {
		return 0.3
	}
	due, err := time.Parse(time.RFC3339, *deadline)
	if err != nil {
		return 0.3
	}
	days := int(math.Floor(due.Sub(now).Hours() / 24))
	switch {
	case days < 0:
		return 1.0
	case days == 0:
		return 0.95
	case days <= 2:
		return 0.8
	case days <= 7:
		return 0.6
	case days <= 14:
		return 0.4
	default:
		return 0.2
	}
}

// effortFactor favors the 2-4h sweet spot. Very long tasks score low; they
// should be broken down instead.
func effortFactor(effort *float64) float64 {
	if effort == nil || *effort <= 0 {
		return 0.5
	}
	e := *effort
	switch {
	case e >= 2.0 && e <= 4.0:
		return 1.0
	case e < 2.0:
		return 0.7 + (e/2.0)*0.3
	case e <= 8.0:
		return 1.0 - ((e-4.0)/4.0)*0.3
	default:
		return 0.4
	}
}

func dayPeriod(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

// productivityAt reads the employee's multiplier for the period containing
// the given instant. Missing keys and unreadable profiles fall back to 0.7.
func productivityAt(emp domain.Employee, at time.Time) float64 {
	periods := map[string]float64{}
	if emp.ProductivityJSON != "" {
		if err := json.Unmarshal([]byte(emp.ProductivityJSON), &periods); err != nil {
			periods = map[string]float64{}
		}
	}
	if v, ok := periods[dayPeriod(at.Hour())]; ok {
		return v
	}
	return 0.7
}

// ScheduleSlot is one task placed on the suggested timeline.
type ScheduleSlot struct {
	TaskID         string  `json:"task_id"`
	TaskTitle      string  `json:"task_title"`
	PriorityScore  float64 `json:"priority_score"`
	SuggestedStart string  `json:"suggested_start"`
	SuggestedEnd   string  `json:"suggested_end"`
	Urgency        int     `json:"urgency"`
	Deadline       *string `json:"deadline,omitempty"`
}

type ScheduleOptions struct {
	EmployeeID string
	TaskIDs    []string
	Start      *string
	ActorID    string
}

// SuggestSchedule orders tasks by priority (ties broken by effective
// deadline) and walks them through the employee's best productivity slots.
// Without explicit task ids it schedules the employee's active tasks.
func (e Engine) SuggestSchedule(ctx context.Context, opts ScheduleOptions) ([]ScheduleSlot, error) {
	emp, err := e.GetEmployee(ctx, opts.EmployeeID)
	if err != nil {
		return nil, err
	}
	var tasks []domain.Task
	if len(opts.TaskIDs) > 0 {
		for _, id := range opts.TaskIDs {
			t, err := e.GetTask(ctx, id)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	} else {
		tasks, err = e.Repo.ActiveTasks(ctx, opts.EmployeeID)
		if err != nil {
			return nil, err
		}
	}
	start := e.now()
	if opts.Start != nil {
		start, err = time.Parse(time.RFC3339, *opts.Start)
		if err != nil {
			return nil, ValidationError{Msg: "start_time must be an RFC 3339 timestamp"}
		}
	}
	return e.buildSchedule(tasks, emp, start), nil
}

// ScheduleTask suggests a single slot for one task using its assignee's
// productivity profile.
func (e Engine) ScheduleTask(ctx context.Context, taskID string) (ScheduleSlot, error) {
	t, err := e.GetTask(ctx, taskID)
	if err != nil {
		return ScheduleSlot{}, err
	}
	if t.AssignedTo == nil {
		return ScheduleSlot{}, ValidationError{Msg: "Task must be assigned first"}
	}
	emp, err := e.GetEmployee(ctx, *t.AssignedTo)
	if err != nil {
		return ScheduleSlot{}, err
	}
	return e.buildSchedule([]domain.Task{t}, emp, e.now())[0], nil
}

func (e Engine) buildSchedule(tasks []domain.Task, emp domain.Employee, start time.Time) []ScheduleSlot {
	type entry struct {
		task     domain.Task
		score    float64
		deadline time.Time
	}
	entries := make([]entry, 0, len(tasks))
	for _, t := range tasks {
		it := entry{task: t, score: PriorityScore(t, emp, e.now()), deadline: start.AddDate(0, 0, 30)}
		if t.Deadline != nil {
			if due, err := time.Parse(time.RFC3339, *t.Deadline); err == nil {
				it.deadline = due
			}
		}
		entries = append(entries, it)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].deadline.Before(entries[j].deadline)
	})
	slots := make([]ScheduleSlot, 0, len(entries))
	cursor := start
	for _, it := range entries {
		effort := 2.0
		if it.task.EstimatedEffort != nil && *it.task.EstimatedEffort > 0 {
			effort = *it.task.EstimatedEffort
		}
		slot := bestSlot(emp, cursor)
		end := slot.Add(time.Duration(effort * float64(time.Hour)))
		slots = append(slots, ScheduleSlot{
			TaskID:         it.task.ID,
			TaskTitle:      it.task.Title,
			PriorityScore:  it.score,
			SuggestedStart: slot.UTC().Format(time.RFC3339),
			SuggestedEnd:   end.UTC().Format(time.RFC3339),
			Urgency:        it.task.Urgency,
			Deadline:       it.task.Deadline,
		})
		cursor = end
	}
	return slots
}

// bestSlot scans the next seven days of working hours (08:00-17:00,
// hourly) from the cursor's day and keeps the first hour with the highest
// productivity multiplier. It deliberately ignores collisions with earlier
// slots in the same batch; the cursor advance is the only sequencing.
func bestSlot(emp domain.Employee, cursor time.Time) time.Time {
	best := cursor
	bestScore := 0.0
	for day := 0; day < 7; day++ {
		for hour := 8; hour < 18; hour++ {
			candidate := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), hour, 0, 0, 0, cursor.Location()).AddDate(0, 0, day)
			if p := productivityAt(emp, candidate); p > bestScore {
				bestScore = p
				best = candidate
			}
		}
	}
	return best
}

// UpdateTaskPriority recomputes and persists one task's priority score.
func (e Engine) UpdateTaskPriority(ctx context.Context, taskID, employeeID, actorID string) (float64, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return 0, asNotFound(err, "Task or Employee not found")
	}
	emp, err := e.Repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return 0, asNotFound(err, "Task or Employee not found")
	}
	score := PriorityScore(t, emp, e.now())
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetPriorityScoreTx(ctx, tx, t.ID, score, e.timestamp()); err != nil {
		return 0, err
	}
	if err := e.Events.Append(ctx, tx, "task.updated", "task", t.ID, actorID, events.EventPayload{"title": t.Title, "priority_score": score}); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return score, nil
}

// RecalculateAll refreshes priority scores for every active task of the
// employee and returns how many were touched.
func (e Engine) RecalculateAll(ctx context.Context, employeeID, actorID string) (int, error) {
	emp, err := e.Repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return 0, asNotFound(err, "Employee not found")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	tasks, err := e.Repo.ActiveTasksTx(ctx, tx, employeeID)
	if err != nil {
		return 0, err
	}
	now := e.timestamp()
	for _, t := range tasks {
		if err := e.Repo.SetPriorityScoreTx(ctx, tx, t.ID, PriorityScore(t, emp, e.now()), now); err != nil {
			return 0, err
		}
	}
	if err := e.Events.Append(ctx, tx, "task.recalculated", "employee", employeeID, actorID, events.EventPayload{"count": len(tasks)}); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(tasks), nil
}
