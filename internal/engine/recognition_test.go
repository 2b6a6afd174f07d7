package engine_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teampulse/internal/domain"
	"teampulse/internal/engine"
)

func achievementDescriptions(found []domain.Achievement) []string {
	descs := make([]string, 0, len(found))
	for _, a := range found {
		descs = append(descs, a.Description)
	}
	return descs
}

func TestDetectAchievements(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Dana", "dana@example.com")

	// High stored priority, finished one day early: deliverable only.
	effort3 := 3.0
	launch := env.mkTask(t, engine.TaskCreateOptions{
		Title: "Launch checklist", CreatedBy: emp.ID, AssignedTo: emp.ID,
		Urgency: 5, Deadline: rfc(testNow.Add(36 * time.Hour)), EstimatedEffort: &effort3,
	})
	// Low priority but five days ahead of its deadline.
	prep := env.mkTask(t, engine.TaskCreateOptions{
		Title: "Quiet prep", CreatedBy: emp.ID, AssignedTo: emp.ID,
		Urgency: 1, Deadline: rfc(testNow.AddDate(0, 0, 5)),
	})
	// Done in 3h against a 5h estimate: efficient execution.
	effort5 := 5.0
	cache := env.mkTask(t, engine.TaskCreateOptions{
		Title: "Tune cache", CreatedBy: emp.ID, AssignedTo: emp.ID,
		Urgency: 1, EstimatedEffort: &effort5,
	})
	env.completeTask(t, launch.ID, nil)
	env.completeTask(t, prep.ID, nil)
	actual := 3.0
	env.completeTask(t, cache.ID, &actual)

	found, err := env.Engine.DetectAchievements(env.Ctx, emp.ID, "tester")
	require.NoError(t, err)
	require.Len(t, found, 4)
	assert.ElementsMatch(t, []string{
		"Completed high-priority task: Launch checklist",
		"Completed task 5 days ahead of deadline: Quiet prep",
		"Completed task efficiently (20%+ under estimate): Tune cache",
		"High productivity: Completed 3 tasks today",
	}, achievementDescriptions(found))

	byDesc := map[string]domain.Achievement{}
	for _, a := range found {
		byDesc[a.Description] = a
	}
	assert.Equal(t, "deliverable", byDesc["Completed high-priority task: Launch checklist"].Type)
	assert.InDelta(t, 0.855, byDesc["Completed high-priority task: Launch checklist"].ImpactScore, 1e-9)
	assert.Equal(t, "innovation", byDesc["Completed task 5 days ahead of deadline: Quiet prep"].Type)
	assert.InDelta(t, 0.75, byDesc["Completed task 5 days ahead of deadline: Quiet prep"].ImpactScore, 1e-9)
	assert.InDelta(t, 0.7, byDesc["Completed task efficiently (20%+ under estimate): Tune cache"].ImpactScore, 1e-9)
	bonus := byDesc["High productivity: Completed 3 tasks today"]
	assert.Equal(t, "deliverable", bonus.Type)
	assert.InDelta(t, 0.8, bonus.ImpactScore, 1e-9)
	assert.Nil(t, bonus.RelatedTaskID)

	assert.Equal(t, 4, countEvents(t, env, "achievement.detected"))

	stored, err := env.Engine.ListAchievements(env.Ctx, emp.ID, 1, "")
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	// Detection has no dedup; a second run records the same four again.
	again, err := env.Engine.DetectAchievements(env.Ctx, emp.ID, "tester")
	require.NoError(t, err)
	assert.Len(t, again, 4)
}

func TestDetectAchievementsHighPriorityBatch(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Dana", "dana@example.com")

	effort3 := 3.0
	for _, title := range []string{"Patch auth", "Rotate keys", "Close audit"} {
		task := env.mkTask(t, engine.TaskCreateOptions{
			Title: title, CreatedBy: emp.ID, AssignedTo: emp.ID,
			Urgency: 5, Deadline: rfc(testNow.Add(36 * time.Hour)), EstimatedEffort: &effort3,
		})
		env.completeTask(t, task.ID, nil)
	}

	found, err := env.Engine.DetectAchievements(env.Ctx, emp.ID, "tester")
	require.NoError(t, err)
	require.Len(t, found, 4)

	var batch int
	for _, a := range found {
		assert.Equal(t, "deliverable", a.Type)
		if a.RelatedTaskID == nil {
			batch++
			assert.Equal(t, "High productivity: Completed 3 tasks today", a.Description)
			assert.InDelta(t, 0.8, a.ImpactScore, 1e-9)
			continue
		}
		assert.InDelta(t, 0.855, a.ImpactScore, 1e-9)
	}
	assert.Equal(t, 1, batch)
}

func TestDetectAchievementsNothingCompleted(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Dana", "dana@example.com")
	env.mkTask(t, engine.TaskCreateOptions{Title: "Still open", CreatedBy: emp.ID, AssignedTo: emp.ID})

	found, err := env.Engine.DetectAchievements(env.Ctx, emp.ID, "tester")
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Zero(t, countEvents(t, env, "achievement.detected"))
}

func TestRecordAchievementValidation(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Dana", "dana@example.com")

	_, err := env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{EmployeeID: emp.ID, Type: "heroics", Description: "saved the day"})
	assert.EqualError(t, err, "invalid achievement type heroics")

	_, err = env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{EmployeeID: emp.ID, Type: "learning"})
	assert.EqualError(t, err, "description is required")

	_, err = env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{EmployeeID: emp.ID, Type: "learning", Description: "x", ImpactScore: fp(1.5)})
	assert.EqualError(t, err, "impact_score must be between 0 and 1")

	_, err = env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{EmployeeID: emp.ID, Type: "learning", Description: "x", RelatedTaskID: "ghost"})
	assert.EqualError(t, err, "Task not found")

	a, err := env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{EmployeeID: emp.ID, Type: "learning", Description: "Finished the Go course", ActorID: "tester"})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, a.ImpactScore, 1e-9)
	assert.False(t, a.RecognizedByManager)

	task := env.mkTask(t, engine.TaskCreateOptions{Title: "Linked", CreatedBy: emp.ID})
	a, err = env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{
		EmployeeID: emp.ID, Type: "collaboration", Description: "Paired on the migration",
		ImpactScore: fp(0.9), RelatedTaskID: task.ID, ActorID: "tester",
	})
	require.NoError(t, err)
	require.NotNil(t, a.RelatedTaskID)
	assert.Equal(t, task.ID, *a.RelatedTaskID)
	assert.InDelta(t, 0.9, a.ImpactScore, 1e-9)
}

func TestRecognizeAchievement(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Dana", "dana@example.com")
	a, err := env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{EmployeeID: emp.ID, Type: "deliverable", Description: "Shipped the beta", ActorID: "tester"})
	require.NoError(t, err)

	_, err = env.Engine.RecognizeAchievement(env.Ctx, a.ID, "", "boss")
	assert.EqualError(t, err, "recognition_note is required")

	_, err = env.Engine.RecognizeAchievement(env.Ctx, "ghost", "nice", "boss")
	assert.EqualError(t, err, "Achievement not found")

	recognized, err := env.Engine.RecognizeAchievement(env.Ctx, a.ID, "Great launch", "boss")
	require.NoError(t, err)
	assert.True(t, recognized.RecognizedByManager)
	require.NotNil(t, recognized.RecognitionNote)
	assert.Equal(t, "Great launch", *recognized.RecognitionNote)

	// Recognizing again swaps the note.
	_, err = env.Engine.RecognizeAchievement(env.Ctx, a.ID, "Even better in hindsight", "boss")
	require.NoError(t, err)
	stored, err := env.Engine.Repo.GetAchievement(env.Ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RecognitionNote)
	assert.Equal(t, "Even better in hindsight", *stored.RecognitionNote)
}

func TestAchievementSummary(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Dana", "dana@example.com")
	record := func(kind string, impact float64) domain.Achievement {
		a, err := env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{
			EmployeeID: emp.ID, Type: kind, Description: "entry", ImpactScore: &impact, ActorID: "tester",
		})
		require.NoError(t, err)
		return a
	}
	first := record("deliverable", 0.6)
	record("deliverable", 0.8)
	record("innovation", 1.0)
	record("learning", 0.2)
	_, err := env.Engine.RecognizeAchievement(env.Ctx, first.ID, "noted", "boss")
	require.NoError(t, err)

	summary, err := env.Engine.AchievementSummary(env.Ctx, emp.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalAchievements)
	assert.Equal(t, 1, summary.RecognizedByManager)
	assert.InDelta(t, 25.0, summary.RecognitionRate, 1e-9)
	assert.InDelta(t, 0.65, summary.AverageImpactScore, 1e-9)
	assert.Equal(t, 2, summary.ByType["deliverable"].Count)
	assert.InDelta(t, 0.7, summary.ByType["deliverable"].AvgImpact, 1e-9)
	assert.Equal(t, 1, summary.ByType["innovation"].Count)
	assert.InDelta(t, 1.0, summary.ByType["innovation"].AvgImpact, 1e-9)

	empty, err := env.Engine.AchievementSummary(env.Ctx, env.mkEmployee(t, "Newbie", "new@example.com").ID, 30)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalAchievements)
	assert.Zero(t, empty.RecognitionRate)
}

func TestUnrecognizedAchievements(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Platform")
	emp := env.mkEmployee(t, "Dana", "dana@example.com")
	env.joinTeam(t, emp.ID, team.ID)
	outsider := env.mkEmployee(t, "Eli", "eli@example.com")

	record := func(who domain.Employee, impact float64) domain.Achievement {
		a, err := env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{
			EmployeeID: who.ID, Type: "deliverable", Description: "entry", ImpactScore: &impact, ActorID: "tester",
		})
		require.NoError(t, err)
		return a
	}
	record(emp, 0.9)
	record(emp, 0.7)
	record(emp, 0.5) // below the significance bar
	praised := record(emp, 0.95)
	_, err := env.Engine.RecognizeAchievement(env.Ctx, praised.ID, "seen", "boss")
	require.NoError(t, err)
	record(outsider, 0.8) // not on the team

	rows, err := env.Engine.UnrecognizedAchievements(env.Ctx, team.ID, 7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, 0.9, rows[0].ImpactScore, 1e-9)
	assert.InDelta(t, 0.7, rows[1].ImpactScore, 1e-9)
	assert.Equal(t, "Dana", rows[0].EmployeeName)

	// Unscoped, the outsider shows up too.
	all, err := env.Engine.UnrecognizedAchievements(env.Ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecognitionOpportunities(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Platform")
	emp := env.mkEmployee(t, "Dana", "dana@example.com")
	env.joinTeam(t, emp.ID, team.ID)

	longDesc := strings.Repeat("d", 120)
	for _, impact := range []float64{0.5, 0.5, 0.5} {
		impact := impact
		_, err := env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{
			EmployeeID: emp.ID, Type: "learning", Description: "entry", ImpactScore: &impact, ActorID: "tester",
		})
		require.NoError(t, err)
	}
	_, err := env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{
		EmployeeID: emp.ID, Type: "deliverable", Description: longDesc, ImpactScore: fp(0.9), ActorID: "tester",
	})
	require.NoError(t, err)

	opportunities, err := env.Engine.RecognitionOpportunities(env.Ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, opportunities, 2)

	assert.Equal(t, "Has 4 achievements but only 0% recognition rate", opportunities[0].Reason)
	assert.Equal(t, 4, opportunities[0].AchievementCount)
	assert.Equal(t, 4, opportunities[0].UnrecognizedCount)
	assert.Equal(t, "Dana", opportunities[0].EmployeeName)

	assert.Equal(t, "High-impact achievement: "+strings.Repeat("d", 100), opportunities[1].Reason)
	require.NotNil(t, opportunities[1].ImpactScore)
	assert.InDelta(t, 0.9, *opportunities[1].ImpactScore, 1e-9)
}

func TestListAchievementsTypeFilter(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Dana", "dana@example.com")
	for _, kind := range []string{"deliverable", "innovation", "deliverable"} {
		_, err := env.Engine.RecordAchievement(env.Ctx, engine.AchievementRecordOptions{
			EmployeeID: emp.ID, Type: kind, Description: "entry", ActorID: "tester",
		})
		require.NoError(t, err)
	}

	deliverables, err := env.Engine.ListAchievements(env.Ctx, emp.ID, 0, "deliverable")
	require.NoError(t, err)
	assert.Len(t, deliverables, 2)

	_, err = env.Engine.ListAchievements(env.Ctx, emp.ID, 0, "bravery")
	assert.EqualError(t, err, "invalid achievement type bravery")
}
