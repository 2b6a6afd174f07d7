package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teampulse/internal/domain"
	"teampulse/internal/engine"
	"teampulse/internal/repo"
)

func rfc(t time.Time) *string {
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func TestPriorityScoreBaseline(t *testing.T) {
	// Urgency 3, no deadline, unknown effort, no profile, no dependencies.
	task := domain.Task{Urgency: 3}
	score := engine.PriorityScore(task, domain.Employee{}, testNow)
	assert.InDelta(t, 0.51, score, 1e-9)
}

func TestPriorityScoreMaximum(t *testing.T) {
	effort := 3.0
	task := domain.Task{
		Urgency:         5,
		Deadline:        rfc(testNow.Add(-time.Hour)),
		EstimatedEffort: &effort,
		Dependencies:    []string{"other"},
	}
	emp := domain.Employee{ProductivityJSON: `{"morning":1.0}`}
	score := engine.PriorityScore(task, emp, testNow)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestPriorityScoreDeadlineBands(t *testing.T) {
	cases := []struct {
		name     string
		deadline *string
		want     float64
	}{
		{"none", nil, 0.3},
		{"unparseable", fpStr("soon"), 0.3},
		{"overdue", rfc(testNow.Add(-time.Hour)), 1.0},
		{"today", rfc(testNow.Add(10 * time.Hour)), 0.95},
		{"within two days", rfc(testNow.Add(36 * time.Hour)), 0.8},
		{"this week", rfc(testNow.AddDate(0, 0, 5)), 0.6},
		{"next week", rfc(testNow.AddDate(0, 0, 8)), 0.4},
		{"distant", rfc(testNow.AddDate(0, 0, 20)), 0.2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := domain.Task{Urgency: 3, Deadline: tc.deadline}
			score := engine.PriorityScore(task, domain.Employee{}, testNow)
			// Strip the fixed terms to isolate the deadline contribution.
			base := 0.3*0.6 + 0.2*0.5 + 0.15*0.7 + 0.1*0.5
			assert.InDelta(t, base+0.25*tc.want, score, 1e-9)
		})
	}
}

func TestPriorityScoreEffortSweetSpot(t *testing.T) {
	cases := []struct {
		effort *float64
		want   float64
	}{
		{nil, 0.5},
		{fp(0), 0.5},
		{fp(1), 0.85},
		{fp(2), 1.0},
		{fp(4), 1.0},
		{fp(6), 0.85},
		{fp(8), 0.7},
		{fp(10), 0.4},
	}
	for _, tc := range cases {
		task := domain.Task{Urgency: 3, EstimatedEffort: tc.effort}
		score := engine.PriorityScore(task, domain.Employee{}, testNow)
		base := 0.3*0.6 + 0.25*0.3 + 0.15*0.7 + 0.1*0.5
		assert.InDelta(t, base+0.2*tc.want, score, 1e-9, "effort=%v", tc.effort)
	}
}

func TestPriorityScoreProductivityPeriods(t *testing.T) {
	task := domain.Task{Urgency: 3}
	emp := domain.Employee{ProductivityJSON: `{"morning":1.2,"afternoon":0.9}`}

	morning := engine.PriorityScore(task, emp, testNow) // 09:00
	afternoon := engine.PriorityScore(task, emp, testNow.Add(5*time.Hour))
	evening := engine.PriorityScore(task, emp, testNow.Add(11*time.Hour))

	base := 0.3*0.6 + 0.25*0.3 + 0.2*0.5 + 0.1*0.5
	assert.InDelta(t, base+0.15*1.2, morning, 1e-9)
	assert.InDelta(t, base+0.15*0.9, afternoon, 1e-9)
	// No evening key in the profile: falls back to the 0.7 default.
	assert.InDelta(t, base+0.15*0.7, evening, 1e-9)

	broken := domain.Employee{ProductivityJSON: `not json`}
	assert.InDelta(t, base+0.15*0.7, engine.PriorityScore(task, broken, testNow), 1e-9)
}

func TestPriorityScoreDependencies(t *testing.T) {
	without := engine.PriorityScore(domain.Task{Urgency: 3}, domain.Employee{}, testNow)
	with := engine.PriorityScore(domain.Task{Urgency: 3, Dependencies: []string{"x"}}, domain.Employee{}, testNow)
	assert.InDelta(t, 0.05, with-without, 1e-9)
}

func TestSuggestScheduleOrdering(t *testing.T) {
	env := newTestEnv(t)
	emp, err := env.Engine.CreateEmployee(env.Ctx, engine.EmployeeCreateOptions{
		Name:                "Alice",
		Email:               "alice@example.com",
		Role:                "developer",
		ProductivityPeriods: map[string]float64{"morning": 1.2, "afternoon": 0.9},
		ActorID:             "tester",
	})
	require.NoError(t, err)

	effort2, effort1, effort3 := 2.0, 1.0, 3.0
	hotfix := env.mkTask(t, engine.TaskCreateOptions{Title: "Ship hotfix", CreatedBy: emp.ID, AssignedTo: emp.ID, Urgency: 5, Deadline: rfc(testNow.Add(10 * time.Hour)), EstimatedEffort: &effort2})
	docs := env.mkTask(t, engine.TaskCreateOptions{Title: "Write docs", CreatedBy: emp.ID, AssignedTo: emp.ID, Urgency: 2, EstimatedEffort: &effort1})
	review := env.mkTask(t, engine.TaskCreateOptions{Title: "Review proposal", CreatedBy: emp.ID, AssignedTo: emp.ID, Urgency: 4, Deadline: rfc(testNow.AddDate(0, 0, 5)), EstimatedEffort: &effort3})

	slots, err := env.Engine.SuggestSchedule(env.Ctx, engine.ScheduleOptions{EmployeeID: emp.ID, ActorID: "tester"})
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, hotfix.ID, slots[0].TaskID)
	assert.Equal(t, review.ID, slots[1].TaskID)
	assert.Equal(t, docs.ID, slots[2].TaskID)
	assert.InDelta(t, 0.9675, slots[0].PriorityScore, 1e-9)
	assert.InDelta(t, 0.82, slots[1].PriorityScore, 1e-9)
	assert.InDelta(t, 0.595, slots[2].PriorityScore, 1e-9)

	// The slot picker always lands on the first best-productivity hour of
	// the cursor's day; overlaps are accepted.
	for _, s := range slots {
		assert.Equal(t, "2026-03-02T08:00:00Z", s.SuggestedStart)
	}
	assert.Equal(t, "2026-03-02T10:00:00Z", slots[0].SuggestedEnd)
	assert.Equal(t, "2026-03-02T11:00:00Z", slots[1].SuggestedEnd)
	assert.Equal(t, "2026-03-02T09:00:00Z", slots[2].SuggestedEnd)
}

func TestSuggestScheduleExplicitTasksAndStart(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Alice", "alice@example.com")
	task := env.mkTask(t, engine.TaskCreateOptions{Title: "Solo", CreatedBy: emp.ID, AssignedTo: emp.ID})
	env.mkTask(t, engine.TaskCreateOptions{Title: "Ignored", CreatedBy: emp.ID, AssignedTo: emp.ID})

	start := "2026-03-05T09:00:00Z"
	slots, err := env.Engine.SuggestSchedule(env.Ctx, engine.ScheduleOptions{
		EmployeeID: emp.ID,
		TaskIDs:    []string{task.ID},
		Start:      &start,
		ActorID:    "tester",
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, task.ID, slots[0].TaskID)
	assert.Equal(t, "2026-03-05T08:00:00Z", slots[0].SuggestedStart)

	bad := "march fifth"
	_, err = env.Engine.SuggestSchedule(env.Ctx, engine.ScheduleOptions{EmployeeID: emp.ID, Start: &bad})
	assert.EqualError(t, err, "start_time must be an RFC 3339 timestamp")
}

func TestScheduleTaskRequiresAssignee(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Alice", "alice@example.com")
	loose := env.mkTask(t, engine.TaskCreateOptions{Title: "Loose", CreatedBy: emp.ID})

	_, err := env.Engine.ScheduleTask(env.Ctx, loose.ID)
	var ve engine.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.EqualError(t, err, "Task must be assigned first")

	owned := env.mkTask(t, engine.TaskCreateOptions{Title: "Owned", CreatedBy: emp.ID, AssignedTo: emp.ID})
	slot, err := env.Engine.ScheduleTask(env.Ctx, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, owned.ID, slot.TaskID)
	assert.Equal(t, "2026-03-02T08:00:00Z", slot.SuggestedStart)
}

func TestUpdateTaskPriorityPersists(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Alice", "alice@example.com")
	task := env.mkTask(t, engine.TaskCreateOptions{Title: "Rescore me", CreatedBy: emp.ID, AssignedTo: emp.ID})

	score, err := env.Engine.UpdateTaskPriority(env.Ctx, task.ID, emp.ID, "tester")
	require.NoError(t, err)

	got, err := env.Engine.GetTask(env.Ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PriorityScore)
	assert.InDelta(t, score, *got.PriorityScore, 1e-9)

	_, err = env.Engine.UpdateTaskPriority(env.Ctx, "ghost", emp.ID, "tester")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repo.ErrNotFound))
	assert.EqualError(t, err, "Task or Employee not found")
}

func TestRecalculateAllCountsActiveOnly(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Alice", "alice@example.com")
	env.mkTask(t, engine.TaskCreateOptions{Title: "One", CreatedBy: emp.ID, AssignedTo: emp.ID})
	env.mkTask(t, engine.TaskCreateOptions{Title: "Two", CreatedBy: emp.ID, AssignedTo: emp.ID})
	done := env.mkTask(t, engine.TaskCreateOptions{Title: "Done", CreatedBy: emp.ID, AssignedTo: emp.ID})
	env.completeTask(t, done.ID, nil)

	count, err := env.Engine.RecalculateAll(env.Ctx, emp.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, countEvents(t, env, "task.recalculated"))

	_, err = env.Engine.RecalculateAll(env.Ctx, "ghost", "tester")
	assert.EqualError(t, err, "Employee not found")
}

func fpStr(s string) *string { return &s }
