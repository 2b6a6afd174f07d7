package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teampulse/internal/domain"
	"teampulse/internal/engine"
)

// plainTask assigns a dependency-free pending task with a 2h estimate.
// With default productivity periods it scores 0.61, so each one adds
// 0.732 to the assignee's global workload.
func (env testEnv) plainTask(t *testing.T, title string, emp domain.Employee) domain.Task {
	t.Helper()
	effort := 2.0
	return env.mkTask(t, engine.TaskCreateOptions{
		Title:           title,
		CreatedBy:       emp.ID,
		AssignedTo:      emp.ID,
		EstimatedEffort: &effort,
	})
}

func TestTeamEquityBalanced(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Platform")
	ava := env.mkEmployee(t, "Ava", "ava@example.com")
	ben := env.mkEmployee(t, "Ben", "ben@example.com")
	env.joinTeam(t, ava.ID, team.ID)
	env.joinTeam(t, ben.ID, team.ID)
	env.plainTask(t, "Ava work", ava)
	env.plainTask(t, "Ben work", ben)

	report, err := env.Engine.TeamEquity(env.Ctx, team.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, report.EquityScore, 1e-9)
	assert.Equal(t, []string{"Workload is well-balanced across the team. Keep monitoring."}, report.Recommendations)
	require.Len(t, report.MemberWorkloads, 2)
	for _, w := range report.MemberWorkloads {
		assert.Equal(t, 1, w.ActiveTasks)
		assert.InDelta(t, 1.22, w.CumulativeLoad, 1e-9)
		assert.InDelta(t, 0.732, w.GlobalScore, 1e-9)
		assert.Zero(t, w.CriticalScore)
	}
}

func TestTeamEquityEmptyTeam(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Ghost crew")

	report, err := env.Engine.TeamEquity(env.Ctx, team.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, report.EquityScore, 1e-9)
	assert.Equal(t, []string{"No team members found"}, report.Recommendations)
	assert.Empty(t, report.MemberWorkloads)
}

func TestTeamEquityImbalance(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Platform")
	ava := env.mkEmployee(t, "Ava", "ava@example.com")
	ben := env.mkEmployee(t, "Ben", "ben@example.com")
	env.joinTeam(t, ava.ID, team.ID)
	env.joinTeam(t, ben.ID, team.ID)
	env.plainTask(t, "Heavy one", ava)
	env.plainTask(t, "Heavy two", ava)

	report, err := env.Engine.TeamEquity(env.Ctx, team.ID)
	require.NoError(t, err)
	// One member with everything, one with nothing: the coefficient of
	// variation hits 1 and both ratio bands fire.
	assert.InDelta(t, 0.0, report.EquityScore, 1e-9)
	require.Len(t, report.Recommendations, 2)
	assert.Equal(t, "CRITICAL: Ava is significantly overloaded. Consider redistributing tasks to Ben.", report.Recommendations[0])
	assert.Equal(t, "Workload imbalance detected. Review task distribution between Ava and Ben.", report.Recommendations[1])
}

func TestTeamEquityHighPriorityFlag(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Platform")
	cara := env.mkEmployee(t, "Cara", "cara@example.com")
	env.joinTeam(t, cara.ID, team.ID)
	effort := 2.0
	for i := 0; i < 6; i++ {
		env.mkTask(t, engine.TaskCreateOptions{
			Title:           fmt.Sprintf("Urgent %d", i),
			CreatedBy:       cara.ID,
			AssignedTo:      cara.ID,
			Urgency:         5,
			EstimatedEffort: &effort,
		})
	}

	report, err := env.Engine.TeamEquity(env.Ctx, team.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, report.EquityScore, 1e-9)
	assert.Equal(t, []string{"Cara has 6 high-priority tasks. Consider delegating lower-priority items."}, report.Recommendations)
	require.Len(t, report.MemberWorkloads, 1)
	assert.Equal(t, 6, report.MemberWorkloads[0].HighPriority)
	assert.Positive(t, report.MemberWorkloads[0].CriticalScore)
}

func TestRedistributeSuggestOnly(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Platform")
	ava := env.mkEmployee(t, "Ava", "ava@example.com")
	ben := env.mkEmployee(t, "Ben", "ben@example.com")
	env.joinTeam(t, ava.ID, team.ID)
	env.joinTeam(t, ben.ID, team.ID)
	task := env.plainTask(t, "Movable", ava)

	suggestions, err := env.Engine.RedistributeTasks(env.Ctx, team.ID, false, "tester")
	require.NoError(t, err)
	// Nothing actually moves, so the imbalance never closes and the same
	// transfer is proposed until the cap.
	require.Len(t, suggestions, 10)
	for _, s := range suggestions {
		assert.Equal(t, task.ID, s.TaskID)
		assert.Equal(t, "Ava", s.FromEmployee)
		assert.Equal(t, "Ben", s.ToEmployee)
	}

	got, err := env.Engine.GetTask(env.Ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, ava.ID, *got.AssignedTo)
	assert.Zero(t, countEvents(t, env, "task.reassigned"))
}

func TestRedistributeAutoAssign(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Platform")
	ava := env.mkEmployee(t, "Ava", "ava@example.com")
	ben := env.mkEmployee(t, "Ben", "ben@example.com")
	env.joinTeam(t, ava.ID, team.ID)
	env.joinTeam(t, ben.ID, team.ID)
	for i := 0; i < 4; i++ {
		env.plainTask(t, fmt.Sprintf("Chore %d", i), ava)
	}

	suggestions, err := env.Engine.RedistributeTasks(env.Ctx, team.ID, true, "tester")
	require.NoError(t, err)
	// Two moves even the split at 2-2; a third would overshoot.
	require.Len(t, suggestions, 2)
	assert.Equal(t, 2, countEvents(t, env, "task.reassigned"))

	avaTasks, err := env.Engine.Repo.ActiveTasks(env.Ctx, ava.ID)
	require.NoError(t, err)
	benTasks, err := env.Engine.Repo.ActiveTasks(env.Ctx, ben.ID)
	require.NoError(t, err)
	assert.Len(t, avaTasks, 2)
	assert.Len(t, benTasks, 2)
}

func TestRedistributeSmallTeam(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Solo")
	ava := env.mkEmployee(t, "Ava", "ava@example.com")
	env.joinTeam(t, ava.ID, team.ID)
	env.plainTask(t, "Stuck", ava)

	suggestions, err := env.Engine.RedistributeTasks(env.Ctx, team.ID, true, "tester")
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestSuggestAssignment(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Platform")

	_, err := env.Engine.SuggestAssignment(env.Ctx, team.ID, "")
	require.Error(t, err)
	assert.EqualError(t, err, "No employees in team")

	ava := env.mkEmployee(t, "Ava", "ava@example.com")
	env.joinTeam(t, ava.ID, team.ID)
	suggestion, err := env.Engine.SuggestAssignment(env.Ctx, team.ID, "")
	require.NoError(t, err)
	assert.Equal(t, ava.ID, suggestion.EmployeeID)
	assert.Equal(t, "Only team member available", suggestion.Reason)

	ben := env.mkEmployee(t, "Ben", "ben@example.com")
	env.joinTeam(t, ben.ID, team.ID)
	env.plainTask(t, "Busy work", ava)
	suggestion, err = env.Engine.SuggestAssignment(env.Ctx, team.ID, "")
	require.NoError(t, err)
	assert.Equal(t, ben.ID, suggestion.EmployeeID)
	assert.Equal(t, "Lowest current workload (score: 0.00)", suggestion.Reason)

	_, err = env.Engine.SuggestAssignment(env.Ctx, team.ID, "ghost")
	assert.EqualError(t, err, "Task not found")
}
