package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"teampulse/internal/db"
	"teampulse/internal/domain"
	"teampulse/internal/engine"
	"teampulse/internal/migrate"
	"teampulse/internal/repo"
)

// Monday 09:00 UTC. Fixing the clock keeps date windows, deadline bands
// and productivity periods deterministic across the package.
var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, nil)
	eng.Now = func() time.Time { return testNow }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func (env testEnv) mkEmployee(t *testing.T, name, email string) domain.Employee {
	t.Helper()
	emp, err := env.Engine.CreateEmployee(env.Ctx, engine.EmployeeCreateOptions{
		Name:    name,
		Email:   email,
		Role:    "developer",
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create employee %s: %v", name, err)
	}
	return emp
}

func (env testEnv) mkTeam(t *testing.T, name string) domain.Team {
	t.Helper()
	team, err := env.Engine.CreateTeam(env.Ctx, engine.TeamCreateOptions{Name: name, ActorID: "tester"})
	if err != nil {
		t.Fatalf("create team %s: %v", name, err)
	}
	return team
}

func (env testEnv) mkTask(t *testing.T, opts engine.TaskCreateOptions) domain.Task {
	t.Helper()
	if opts.ActorID == "" {
		opts.ActorID = "tester"
	}
	task, err := env.Engine.CreateTask(env.Ctx, opts)
	if err != nil {
		t.Fatalf("create task %s: %v", opts.Title, err)
	}
	return task
}

func (env testEnv) completeTask(t *testing.T, id string, actualEffort *float64) domain.Task {
	t.Helper()
	status := "completed"
	task, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{
		ID:           id,
		Status:       &status,
		ActualEffort: actualEffort,
		Force:        true,
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatalf("complete task %s: %v", id, err)
	}
	return task
}

func (env testEnv) joinTeam(t *testing.T, employeeID, teamID string) {
	t.Helper()
	_, err := env.Engine.UpdateEmployee(env.Ctx, engine.EmployeeUpdateOptions{
		ID:      employeeID,
		TeamID:  &teamID,
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("join team: %v", err)
	}
}

func countEvents(t *testing.T, env testEnv, evtType string) int {
	t.Helper()
	var count int
	err := env.Engine.DB.QueryRowContext(env.Ctx, `SELECT count(*) FROM events WHERE type=?`, evtType).Scan(&count)
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func TestCreateEmployeeValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateEmployee(env.Ctx, engine.EmployeeCreateOptions{Email: "a@example.com", Role: "developer", ActorID: "tester"})
	if err == nil || err.Error() != "name is required" {
		t.Fatalf("expected name error, got %v", err)
	}
	_, err = env.Engine.CreateEmployee(env.Ctx, engine.EmployeeCreateOptions{Name: "A", Role: "developer", ActorID: "tester"})
	if err == nil || err.Error() != "email is required" {
		t.Fatalf("expected email error, got %v", err)
	}
	env.mkEmployee(t, "Alice", "alice@example.com")
	_, err = env.Engine.CreateEmployee(env.Ctx, engine.EmployeeCreateOptions{Name: "Other", Email: "alice@example.com", Role: "developer", ActorID: "tester"})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
	_, err = env.Engine.CreateEmployee(env.Ctx, engine.EmployeeCreateOptions{Name: "B", Email: "b@example.com", Role: "developer", TeamID: "missing", ActorID: "tester"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for missing team, got %v", err)
	}
	if countEvents(t, env, "employee.created") != 1 {
		t.Fatalf("expected one employee.created event")
	}
}

func TestTaskDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Alice", "alice@example.com")

	task := env.mkTask(t, engine.TaskCreateOptions{Title: "Plain", CreatedBy: emp.ID})
	if task.Status != "pending" || task.Urgency != 3 || task.Source != "manual" {
		t.Fatalf("unexpected defaults %+v", task)
	}
	if task.PriorityScore != nil {
		t.Fatalf("unassigned task should carry no priority score")
	}

	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Bad", CreatedBy: emp.ID, Urgency: 6, ActorID: "tester"})
	if err == nil || err.Error() != "urgency must be between 1 and 5" {
		t.Fatalf("expected urgency error, got %v", err)
	}
	bad := "next tuesday"
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Bad", CreatedBy: emp.ID, Deadline: &bad, ActorID: "tester"})
	if err == nil || err.Error() != "deadline must be an RFC 3339 timestamp" {
		t.Fatalf("expected deadline error, got %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Bad", CreatedBy: emp.ID, Source: "carrier-pigeon", ActorID: "tester"})
	if err == nil || err.Error() != "invalid task source carrier-pigeon" {
		t.Fatalf("expected source error, got %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Bad", CreatedBy: "ghost", ActorID: "tester"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for unknown creator, got %v", err)
	}

	assigned := env.mkTask(t, engine.TaskCreateOptions{Title: "Scored", CreatedBy: emp.ID, AssignedTo: emp.ID})
	if assigned.PriorityScore == nil {
		t.Fatalf("assigned task should be scored on create")
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	emp := env.mkEmployee(t, "Alice", "alice@example.com")
	task := env.mkTask(t, engine.TaskCreateOptions{Title: "Do work", CreatedBy: emp.ID})

	// valid path
	status := "in_progress"
	task, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Status: &status, ActorID: "tester"})
	if err != nil || task.Status != "in_progress" {
		t.Fatalf("to in_progress: %v", err)
	}
	status = "completed"
	task, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Status: &status, ActorID: "tester"})
	if err != nil || task.Status != "completed" {
		t.Fatalf("to completed: %v", err)
	}
	if task.CompletedAt == nil {
		t.Fatalf("expected completion timestamp")
	}

	// completed is terminal without force
	status = "pending"
	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Status: &status, ActorID: "tester"})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected transition error, got %v", err)
	}

	// force reopens and drops the completion timestamp
	task, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Status: &status, Force: true, ActorID: "tester"})
	if err != nil || task.Status != "pending" {
		t.Fatalf("forced reopen: %v", err)
	}
	if task.CompletedAt != nil {
		t.Fatalf("reopened task should lose completed_at")
	}

	// pending cannot jump straight to completed
	status = "completed"
	_, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Status: &status, ActorID: "tester"})
	if err == nil {
		t.Fatalf("expected transition error for pending -> completed")
	}
}

func TestTaskReassignmentRescores(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mkEmployee(t, "Alice", "alice@example.com")
	bob := env.mkEmployee(t, "Bob", "bob@example.com")
	task := env.mkTask(t, engine.TaskCreateOptions{Title: "Handoff", CreatedBy: alice.ID, AssignedTo: alice.ID})

	task, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Assign: &bob.ID, ActorID: "tester"})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if task.AssignedTo == nil || *task.AssignedTo != bob.ID {
		t.Fatalf("expected task on bob, got %v", task.AssignedTo)
	}
	if task.PriorityScore == nil {
		t.Fatalf("reassigned task should stay scored")
	}

	empty := ""
	task, err = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Assign: &empty, ActorID: "tester"})
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if task.AssignedTo != nil || task.PriorityScore != nil {
		t.Fatalf("unassigned task should drop assignee and score, got %+v", task)
	}
}

func TestTeamLifecycle(t *testing.T) {
	env := newTestEnv(t)
	team := env.mkTeam(t, "Platform")
	_, err := env.Engine.CreateTeam(env.Ctx, engine.TeamCreateOptions{Name: "Platform", ActorID: "tester"})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected duplicate team conflict, got %v", err)
	}

	alice := env.mkEmployee(t, "Alice", "alice@example.com")
	env.joinTeam(t, alice.ID, team.ID)
	members, err := env.Engine.TeamMembers(env.Ctx, team.ID)
	if err != nil || len(members) != 1 || members[0].ID != alice.ID {
		t.Fatalf("expected alice as sole member, got %v (%v)", members, err)
	}

	if err := env.Engine.DeleteTeam(env.Ctx, team.ID, "tester"); err != nil {
		t.Fatalf("delete team: %v", err)
	}
	emp, err := env.Engine.GetEmployee(env.Ctx, alice.ID)
	if err != nil {
		t.Fatalf("get employee: %v", err)
	}
	if emp.TeamID != nil {
		t.Fatalf("expected alice detached after team delete, got %v", *emp.TeamID)
	}
}

func TestSkillFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mkEmployee(t, "Alice", "alice@example.com")

	skill, err := env.Engine.DefineSkill(env.Ctx, engine.SkillDefineOptions{Name: "Go", Category: "technical", ActorID: "tester"})
	if err != nil {
		t.Fatalf("define skill: %v", err)
	}
	_, err = env.Engine.DefineSkill(env.Ctx, engine.SkillDefineOptions{Name: "Go", Category: "technical", ActorID: "tester"})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected duplicate skill conflict, got %v", err)
	}
	_, err = env.Engine.DefineSkill(env.Ctx, engine.SkillDefineOptions{Name: "Juggling", Category: "hobby", ActorID: "tester"})
	if err == nil || err.Error() != "invalid skill category hobby" {
		t.Fatalf("expected category error, got %v", err)
	}

	_, err = env.Engine.AssignSkill(env.Ctx, engine.SkillAssignOptions{EmployeeID: alice.ID, SkillID: skill.ID, Level: "grandmaster", ActorID: "tester"})
	if err == nil || err.Error() != "invalid skill level grandmaster" {
		t.Fatalf("expected level error, got %v", err)
	}
	es, err := env.Engine.AssignSkill(env.Ctx, engine.SkillAssignOptions{EmployeeID: alice.ID, SkillID: skill.ID, Level: "expert", ActorID: "tester"})
	if err != nil || es.Level != "expert" {
		t.Fatalf("assign skill: %v", err)
	}

	skills, err := env.Engine.EmployeeSkills(env.Ctx, alice.ID)
	if err != nil || len(skills) != 1 {
		t.Fatalf("expected one employee skill: %v (%v)", skills, err)
	}
	if skills[0].SkillName != "Go" || skills[0].SkillCategory != "technical" {
		t.Fatalf("expected joined skill fields, got %+v", skills[0])
	}

	if err := env.Engine.RemoveSkill(env.Ctx, alice.ID, skill.ID); err != nil {
		t.Fatalf("remove skill: %v", err)
	}
	skills, _ = env.Engine.EmployeeSkills(env.Ctx, alice.ID)
	if len(skills) != 0 {
		t.Fatalf("expected no skills after removal, got %v", skills)
	}
}

func TestEmployeeOverviewCounts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mkEmployee(t, "Alice", "alice@example.com")
	effort := 4.0
	env.mkTask(t, engine.TaskCreateOptions{Title: "One", CreatedBy: alice.ID, AssignedTo: alice.ID, EstimatedEffort: &effort})
	env.mkTask(t, engine.TaskCreateOptions{Title: "Two", CreatedBy: alice.ID, AssignedTo: alice.ID})
	done := env.mkTask(t, engine.TaskCreateOptions{Title: "Three", CreatedBy: alice.ID, AssignedTo: alice.ID})
	env.completeTask(t, done.ID, nil)

	overview, err := env.Engine.EmployeeOverview(env.Ctx, alice.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.ActiveTasks != 2 || overview.CompletedTasks != 1 {
		t.Fatalf("unexpected counts %+v", overview)
	}
	if overview.CurrentWorkload <= 0 {
		t.Fatalf("expected positive workload")
	}
	if overview.BurnoutRisk != nil {
		t.Fatalf("no metrics yet, risk should be nil")
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mkEmployee(t, "Alice", "alice@example.com")
	task := env.mkTask(t, engine.TaskCreateOptions{Title: "Evented", CreatedBy: alice.ID})
	status := "in_progress"
	_, _ = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Status: &status, ActorID: "tester"})
	status = "completed"
	_, _ = env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Status: &status, ActorID: "tester"})

	rows, err := env.Engine.DB.QueryContext(env.Ctx, `SELECT type FROM events WHERE entity_id=?`, task.ID)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count < 3 {
		t.Fatalf("expected create plus two updates, got %d", count)
	}

	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "task.updated", "", "")
	if err != nil {
		t.Fatalf("latest events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 task.updated events, got %d", len(events))
	}
	for _, evt := range events {
		if evt.ActorID != "tester" || evt.EntityKind != "task" {
			t.Fatalf("unexpected event %+v", evt)
		}
	}
}

func TestExtractTasksRouting(t *testing.T) {
	env := newTestEnv(t)

	candidates, err := env.Engine.ExtractTasks("Please prepare the board update by tomorrow.", "email")
	if err != nil {
		t.Fatalf("extract from email: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %d", len(candidates))
	}
	if candidates[0].Deadline == nil || *candidates[0].Deadline != "2026-03-03T23:59:00Z" {
		t.Fatalf("deadline should resolve against the engine clock, got %v", candidates[0].Deadline)
	}

	notes := "Action items:\n- Prepare the board update slides\n\nDone."
	candidates, err = env.Engine.ExtractTasks(notes, "meeting")
	if err != nil || len(candidates) != 1 {
		t.Fatalf("extract from meeting: %v (%d)", err, len(candidates))
	}

	if _, err := env.Engine.ExtractTasks("whatever", "carrier-pigeon"); err == nil || err.Error() != "Invalid source type" {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestDeleteEmployeeDetachesWork(t *testing.T) {
	env := newTestEnv(t)
	alice := env.mkEmployee(t, "Alice", "alice@example.com")
	bob := env.mkEmployee(t, "Bob", "bob@example.com")
	task := env.mkTask(t, engine.TaskCreateOptions{Title: "Orphan me", CreatedBy: bob.ID, AssignedTo: alice.ID})

	if err := env.Engine.DeleteEmployee(env.Ctx, alice.ID, "tester"); err != nil {
		t.Fatalf("delete employee: %v", err)
	}
	if _, err := env.Engine.GetEmployee(env.Ctx, alice.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected employee gone, got %v", err)
	}
	got, err := env.Engine.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("task should survive its assignee: %v", err)
	}
	if got.AssignedTo != nil {
		t.Fatalf("expected task unassigned after delete, got %v", *got.AssignedTo)
	}
}
