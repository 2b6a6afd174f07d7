// Package engine holds the business rules of teampulse: employee, team,
// task and skill lifecycles plus the scoring engines built on top of them
// (burnout risk, task priority, workload equity, recognition). Every write
// goes through a transaction that also appends to the event log.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teampulse/internal/domain"
	"teampulse/internal/events"
	"teampulse/internal/repo"
)

// ValidationError is returned for input the caller can correct.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// ConflictError is returned when a write collides with existing state,
// typically a uniqueness rule.
type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string { return e.Msg }

// NotFoundError names the entity a lookup failed to resolve. It matches
// repo.ErrNotFound under errors.Is so callers can branch on either.
type NotFoundError struct {
	Msg string
}

func (e NotFoundError) Error() string { return e.Msg }

func (e NotFoundError) Is(target error) bool { return target == repo.ErrNotFound }

func asNotFound(err error, msg string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NotFoundError{Msg: msg}
	}
	return err
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Log    *zap.Logger
	Now    func() time.Time
}

func New(db *sql.DB, log *zap.Logger) Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Log:    log,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

var taskStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"completed":   true,
	"blocked":     true,
	"cancelled":   true,
}

var taskSources = map[string]bool{
	"email":    true,
	"meeting":  true,
	"manual":   true,
	"calendar": true,
}

var skillCategories = map[string]bool{
	"technical":  true,
	"soft_skill": true,
	"domain":     true,
}

var skillLevels = map[string]bool{
	"beginner":     true,
	"intermediate": true,
	"expert":       true,
}

// ensureStatusTransition enforces the task lifecycle. Completed and
// cancelled are terminal; force bypasses the check entirely.
func ensureStatusTransition(oldStatus, newStatus string, force bool) error {
	if force || oldStatus == newStatus {
		return nil
	}
	switch oldStatus {
	case "pending":
		if newStatus == "in_progress" || newStatus == "blocked" || newStatus == "cancelled" {
			return nil
		}
	case "in_progress":
		if newStatus == "pending" || newStatus == "completed" || newStatus == "blocked" || newStatus == "cancelled" {
			return nil
		}
	case "blocked":
		if newStatus == "pending" || newStatus == "in_progress" || newStatus == "cancelled" {
			return nil
		}
	}
	return ValidationError{Msg: fmt.Sprintf("invalid task status transition %s -> %s", oldStatus, newStatus)}
}

func defaultProductivityPeriods() map[string]float64 {
	return map[string]float64{"morning": 0.7, "afternoon": 0.7, "evening": 0.5}
}

func marshalPeriods(periods map[string]float64) (string, error) {
	if len(periods) == 0 {
		periods = defaultProductivityPeriods()
	}
	data, err := json.Marshal(periods)
	if err != nil {
		return "", fmt.Errorf("marshal productivity periods: %w", err)
	}
	return string(data), nil
}

type EmployeeCreateOptions struct {
	Name                string
	Email               string
	Role                string
	TeamID              string
	ProductivityPeriods map[string]float64
	ActorID             string
}

func (e Engine) CreateEmployee(ctx context.Context, opts EmployeeCreateOptions) (domain.Employee, error) {
	if opts.Name == "" {
		return domain.Employee{}, ValidationError{Msg: "name is required"}
	}
	if opts.Email == "" {
		return domain.Employee{}, ValidationError{Msg: "email is required"}
	}
	if opts.Role == "" {
		return domain.Employee{}, ValidationError{Msg: "role is required"}
	}
	if _, err := e.Repo.GetEmployeeByEmail(ctx, opts.Email); err == nil {
		return domain.Employee{}, ConflictError{Msg: "Email already registered"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Employee{}, err
	}
	if opts.TeamID != "" {
		if _, err := e.Repo.GetTeam(ctx, opts.TeamID); err != nil {
			return domain.Employee{}, asNotFound(err, "Team not found")
		}
	}
	periodsJSON, err := marshalPeriods(opts.ProductivityPeriods)
	if err != nil {
		return domain.Employee{}, err
	}
	now := e.timestamp()
	emp := domain.Employee{
		ID:               uuid.NewString(),
		Name:             opts.Name,
		Email:            opts.Email,
		Role:             opts.Role,
		TeamID:           optionalString(opts.TeamID),
		ProductivityJSON: periodsJSON,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Employee{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertEmployeeTx(ctx, tx, emp); err != nil {
		return domain.Employee{}, err
	}
	if err := e.Events.Append(ctx, tx, "employee.created", "employee", emp.ID, opts.ActorID, events.EventPayload{"name": emp.Name, "email": emp.Email}); err != nil {
		return domain.Employee{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Employee{}, err
	}
	return emp, nil
}

func (e Engine) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	emp, err := e.Repo.GetEmployee(ctx, id)
	if err != nil {
		return domain.Employee{}, asNotFound(err, "Employee not found")
	}
	return emp, nil
}

func (e Engine) ListEmployees(ctx context.Context, f repo.EmployeeFilters) ([]domain.Employee, error) {
	return e.Repo.ListEmployees(ctx, f)
}

type EmployeeUpdateOptions struct {
	ID    string
	Name  *string
	Email *string
	Role  *string
	// TeamID set to the empty string detaches the employee from any team.
	TeamID              *string
	ProductivityPeriods map[string]float64
	ActorID             string
}

func (e Engine) UpdateEmployee(ctx context.Context, opts EmployeeUpdateOptions) (domain.Employee, error) {
	emp, err := e.GetEmployee(ctx, opts.ID)
	if err != nil {
		return domain.Employee{}, err
	}
	if opts.Name != nil {
		if *opts.Name == "" {
			return domain.Employee{}, ValidationError{Msg: "name is required"}
		}
		emp.Name = *opts.Name
	}
	if opts.Email != nil && *opts.Email != emp.Email {
		if *opts.Email == "" {
			return domain.Employee{}, ValidationError{Msg: "email is required"}
		}
		if other, err := e.Repo.GetEmployeeByEmail(ctx, *opts.Email); err == nil && other.ID != emp.ID {
			return domain.Employee{}, ConflictError{Msg: "Email already registered"}
		} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return domain.Employee{}, err
		}
		emp.Email = *opts.Email
	}
	if opts.Role != nil {
		if *opts.Role == "" {
			return domain.Employee{}, ValidationError{Msg: "role is required"}
		}
		emp.Role = *opts.Role
	}
	if opts.TeamID != nil {
		if *opts.TeamID == "" {
			emp.TeamID = nil
		} else {
			if _, err := e.Repo.GetTeam(ctx, *opts.TeamID); err != nil {
				return domain.Employee{}, asNotFound(err, "Team not found")
			}
			emp.TeamID = opts.TeamID
		}
	}
	if len(opts.ProductivityPeriods) > 0 {
		periodsJSON, err := marshalPeriods(opts.ProductivityPeriods)
		if err != nil {
			return domain.Employee{}, err
		}
		emp.ProductivityJSON = periodsJSON
	}
	emp.UpdatedAt = e.timestamp()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Employee{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateEmployee(ctx, tx, emp); err != nil {
		return domain.Employee{}, err
	}
	if err := e.Events.Append(ctx, tx, "employee.updated", "employee", emp.ID, opts.ActorID, events.EventPayload{"name": emp.Name}); err != nil {
		return domain.Employee{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Employee{}, err
	}
	return emp, nil
}

// DeleteEmployee removes an employee. Metrics, achievements, skill links
// and authored tasks go with them; tasks merely assigned to them are left
// unassigned.
func (e Engine) DeleteEmployee(ctx context.Context, id, actorID string) error {
	emp, err := e.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteEmployeeTx(ctx, tx, id); err != nil {
		return asNotFound(err, "Employee not found")
	}
	if err := e.Events.Append(ctx, tx, "employee.deleted", "employee", id, actorID, events.EventPayload{"name": emp.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

// EmployeeOverview is an employee record enriched with live workload and
// wellbeing figures.
type EmployeeOverview struct {
	Employee        domain.Employee `json:"employee"`
	ActiveTasks     int             `json:"active_tasks"`
	CompletedTasks  int             `json:"completed_tasks"`
	CurrentWorkload float64         `json:"current_workload"`
	BurnoutRisk     *float64        `json:"burnout_risk,omitempty"`
	SkillsCount     int             `json:"skills_count"`
}

func (e Engine) EmployeeOverview(ctx context.Context, id string) (EmployeeOverview, error) {
	emp, err := e.GetEmployee(ctx, id)
	if err != nil {
		return EmployeeOverview{}, err
	}
	counts, err := e.Repo.CountTasksByStatusFor(ctx, id)
	if err != nil {
		return EmployeeOverview{}, err
	}
	active, err := e.Repo.ActiveTasks(ctx, id)
	if err != nil {
		return EmployeeOverview{}, err
	}
	var workload float64
	for _, t := range active {
		workload += taskLoad(t)
	}
	score, hasData, err := e.RiskScore(ctx, id, 7)
	if err != nil {
		return EmployeeOverview{}, err
	}
	var risk *float64
	if hasData {
		risk = &score
	}
	skills, err := e.Repo.CountEmployeeSkills(ctx, id)
	if err != nil {
		return EmployeeOverview{}, err
	}
	return EmployeeOverview{
		Employee:        emp,
		ActiveTasks:     counts["pending"] + counts["in_progress"],
		CompletedTasks:  counts["completed"],
		CurrentWorkload: workload,
		BurnoutRisk:     risk,
		SkillsCount:     skills,
	}, nil
}

type TeamCreateOptions struct {
	Name        string
	Description string
	ManagerID   string
	ActorID     string
}

func (e Engine) CreateTeam(ctx context.Context, opts TeamCreateOptions) (domain.Team, error) {
	if opts.Name == "" {
		return domain.Team{}, ValidationError{Msg: "name is required"}
	}
	if _, err := e.Repo.GetTeamByName(ctx, opts.Name); err == nil {
		return domain.Team{}, ConflictError{Msg: "Team name already exists"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Team{}, err
	}
	if opts.ManagerID != "" {
		if _, err := e.Repo.GetEmployee(ctx, opts.ManagerID); err != nil {
			return domain.Team{}, asNotFound(err, "Employee not found")
		}
	}
	team := domain.Team{
		ID:          uuid.NewString(),
		Name:        opts.Name,
		Description: opts.Description,
		ManagerID:   optionalString(opts.ManagerID),
		CreatedAt:   e.timestamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Team{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTeamTx(ctx, tx, team); err != nil {
		return domain.Team{}, err
	}
	if err := e.Events.Append(ctx, tx, "team.created", "team", team.ID, opts.ActorID, events.EventPayload{"name": team.Name}); err != nil {
		return domain.Team{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Team{}, err
	}
	return team, nil
}

func (e Engine) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	team, err := e.Repo.GetTeam(ctx, id)
	if err != nil {
		return domain.Team{}, asNotFound(err, "Team not found")
	}
	return team, nil
}

func (e Engine) ListTeams(ctx context.Context) ([]domain.Team, error) {
	return e.Repo.ListTeams(ctx)
}

func (e Engine) TeamMembers(ctx context.Context, teamID string) ([]domain.Employee, error) {
	if _, err := e.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	return e.Repo.TeamMembers(ctx, teamID)
}

type TeamUpdateOptions struct {
	ID          string
	Name        *string
	Description *string
	// ManagerID set to the empty string clears the manager.
	ManagerID *string
	ActorID   string
}

func (e Engine) UpdateTeam(ctx context.Context, opts TeamUpdateOptions) (domain.Team, error) {
	team, err := e.GetTeam(ctx, opts.ID)
	if err != nil {
		return domain.Team{}, err
	}
	if opts.Name != nil && *opts.Name != team.Name {
		if *opts.Name == "" {
			return domain.Team{}, ValidationError{Msg: "name is required"}
		}
		if other, err := e.Repo.GetTeamByName(ctx, *opts.Name); err == nil && other.ID != team.ID {
			return domain.Team{}, ConflictError{Msg: "Team name already exists"}
		} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return domain.Team{}, err
		}
		team.Name = *opts.Name
	}
	if opts.Description != nil {
		team.Description = *opts.Description
	}
	if opts.ManagerID != nil {
		if *opts.ManagerID == "" {
			team.ManagerID = nil
		} else {
			if _, err := e.Repo.GetEmployee(ctx, *opts.ManagerID); err != nil {
				return domain.Team{}, asNotFound(err, "Employee not found")
			}
			team.ManagerID = opts.ManagerID
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Team{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTeamTx(ctx, tx, team); err != nil {
		return domain.Team{}, err
	}
	if err := e.Events.Append(ctx, tx, "team.updated", "team", team.ID, opts.ActorID, events.EventPayload{"name": team.Name}); err != nil {
		return domain.Team{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Team{}, err
	}
	return team, nil
}

// DeleteTeam removes a team. Members stay but lose their team link.
func (e Engine) DeleteTeam(ctx context.Context, id, actorID string) error {
	team, err := e.GetTeam(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTeamTx(ctx, tx, id); err != nil {
		return asNotFound(err, "Team not found")
	}
	if err := e.Events.Append(ctx, tx, "team.deleted", "team", id, actorID, events.EventPayload{"name": team.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

type TaskCreateOptions struct {
	Title           string
	Description     string
	AssignedTo      string
	CreatedBy       string
	Urgency         int
	Deadline        *string
	EstimatedEffort *float64
	Dependencies    []string
	Source          string
	SourceMetaJSON  *string
	ActorID         string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, ValidationError{Msg: "title is required"}
	}
	if opts.CreatedBy == "" {
		return domain.Task{}, ValidationError{Msg: "created_by is required"}
	}
	if _, err := e.Repo.GetEmployee(ctx, opts.CreatedBy); err != nil {
		return domain.Task{}, asNotFound(err, "Employee not found")
	}
	urgency := opts.Urgency
	if urgency == 0 {
		urgency = 3
	}
	if urgency < 1 || urgency > 5 {
		return domain.Task{}, ValidationError{Msg: "urgency must be between 1 and 5"}
	}
	source := opts.Source
	if source == "" {
		source = "manual"
	}
	if !taskSources[source] {
		return domain.Task{}, ValidationError{Msg: fmt.Sprintf("invalid task source %s", source)}
	}
	if opts.Deadline != nil {
		if _, err := time.Parse(time.RFC3339, *opts.Deadline); err != nil {
			return domain.Task{}, ValidationError{Msg: "deadline must be an RFC 3339 timestamp"}
		}
	}
	var assignee *domain.Employee
	if opts.AssignedTo != "" {
		emp, err := e.Repo.GetEmployee(ctx, opts.AssignedTo)
		if err != nil {
			return domain.Task{}, asNotFound(err, "Employee not found")
		}
		assignee = &emp
	}
	now := e.timestamp()
	t := domain.Task{
		ID:              uuid.NewString(),
		Title:           opts.Title,
		Description:     opts.Description,
		Status:          "pending",
		Source:          source,
		SourceMetaJSON:  opts.SourceMetaJSON,
		AssignedTo:      optionalString(opts.AssignedTo),
		CreatedBy:       opts.CreatedBy,
		Urgency:         urgency,
		Deadline:        opts.Deadline,
		EstimatedEffort: opts.EstimatedEffort,
		Dependencies:    opts.Dependencies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if assignee != nil {
		score := PriorityScore(t, *assignee, e.now())
		t.PriorityScore = &score
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", "task", t.ID, opts.ActorID, events.EventPayload{"title": t.Title, "source": t.Source}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, asNotFound(err, "Task not found")
	}
	return t, nil
}

func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, f)
}

type TaskUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	Status      *string
	Source      *string
	// Assign set to the empty string unassigns the task.
	Assign               *string
	Urgency              *int
	Deadline             *string
	ClearDeadline        bool
	EstimatedEffort      *float64
	ClearEstimatedEffort bool
	ActualEffort         *float64
	ClearActualEffort    bool
	Dependencies         []string
	Force                bool
	ActorID              string
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	t, err := e.GetTask(ctx, opts.ID)
	if err != nil {
		return domain.Task{}, err
	}
	oldStatus := t.Status
	rescore := false
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.Task{}, ValidationError{Msg: "title is required"}
		}
		t.Title = *opts.Title
	}
	if opts.Description != nil {
		t.Description = *opts.Description
	}
	if opts.Source != nil {
		if !taskSources[*opts.Source] {
			return domain.Task{}, ValidationError{Msg: fmt.Sprintf("invalid task source %s", *opts.Source)}
		}
		t.Source = *opts.Source
	}
	if opts.Urgency != nil {
		if *opts.Urgency < 1 || *opts.Urgency > 5 {
			return domain.Task{}, ValidationError{Msg: "urgency must be between 1 and 5"}
		}
		if *opts.Urgency != t.Urgency {
			rescore = true
		}
		t.Urgency = *opts.Urgency
	}
	if opts.ClearDeadline {
		if t.Deadline != nil {
			rescore = true
		}
		t.Deadline = nil
	} else if opts.Deadline != nil {
		if _, err := time.Parse(time.RFC3339, *opts.Deadline); err != nil {
			return domain.Task{}, ValidationError{Msg: "deadline must be an RFC 3339 timestamp"}
		}
		t.Deadline = opts.Deadline
		rescore = true
	}
	if opts.ClearEstimatedEffort {
		if t.EstimatedEffort != nil {
			rescore = true
		}
		t.EstimatedEffort = nil
	} else if opts.EstimatedEffort != nil {
		if *opts.EstimatedEffort < 0 {
			return domain.Task{}, ValidationError{Msg: "estimated_effort must be positive"}
		}
		t.EstimatedEffort = opts.EstimatedEffort
		rescore = true
	}
	if opts.ClearActualEffort {
		t.ActualEffort = nil
	} else if opts.ActualEffort != nil {
		if *opts.ActualEffort < 0 {
			return domain.Task{}, ValidationError{Msg: "actual_effort must be positive"}
		}
		t.ActualEffort = opts.ActualEffort
	}
	if opts.Dependencies != nil {
		t.Dependencies = opts.Dependencies
		rescore = true
	}
	var assignee *domain.Employee
	if opts.Assign != nil {
		if *opts.Assign == "" {
			if t.AssignedTo != nil {
				rescore = true
			}
			t.AssignedTo = nil
		} else {
			emp, err := e.Repo.GetEmployee(ctx, *opts.Assign)
			if err != nil {
				return domain.Task{}, asNotFound(err, "Employee not found")
			}
			assignee = &emp
			if t.AssignedTo == nil || *t.AssignedTo != emp.ID {
				rescore = true
			}
			t.AssignedTo = &emp.ID
		}
	}
	if opts.Status != nil {
		if !taskStatuses[*opts.Status] {
			return domain.Task{}, ValidationError{Msg: fmt.Sprintf("invalid task status %s", *opts.Status)}
		}
		if err := ensureStatusTransition(oldStatus, *opts.Status, opts.Force); err != nil {
			return domain.Task{}, err
		}
		t.Status = *opts.Status
	}
	now := e.timestamp()
	if t.Status == "completed" && oldStatus != "completed" {
		t.CompletedAt = &now
	} else if t.Status != "completed" {
		t.CompletedAt = nil
	}
	if t.AssignedTo == nil {
		t.PriorityScore = nil
	} else if rescore {
		if assignee == nil {
			emp, err := e.Repo.GetEmployee(ctx, *t.AssignedTo)
			if err != nil {
				return domain.Task{}, asNotFound(err, "Employee not found")
			}
			assignee = &emp
		}
		score := PriorityScore(t, *assignee, e.now())
		t.PriorityScore = &score
	}
	t.UpdatedAt = now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	payload := events.EventPayload{"title": t.Title}
	if t.Status != oldStatus {
		payload["from_status"] = oldStatus
		payload["to_status"] = t.Status
	}
	if err := e.Events.Append(ctx, tx, "task.updated", "task", t.ID, opts.ActorID, payload); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) DeleteTask(ctx context.Context, id, actorID string) error {
	t, err := e.GetTask(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTaskTx(ctx, tx, id); err != nil {
		return asNotFound(err, "Task not found")
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", "task", id, actorID, events.EventPayload{"title": t.Title}); err != nil {
		return err
	}
	return tx.Commit()
}

// PrioritizedTasks returns the employee's active tasks, highest priority
// first. Tasks without a score sort last.
func (e Engine) PrioritizedTasks(ctx context.Context, employeeID string) ([]domain.Task, error) {
	if _, err := e.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	tasks, err := e.Repo.ActiveTasks(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return floatOrZero(tasks[i].PriorityScore) > floatOrZero(tasks[j].PriorityScore)
	})
	return tasks, nil
}

type SkillDefineOptions struct {
	Name        string
	Category    string
	Description string
	ActorID     string
}

func (e Engine) DefineSkill(ctx context.Context, opts SkillDefineOptions) (domain.Skill, error) {
	if opts.Name == "" {
		return domain.Skill{}, ValidationError{Msg: "name is required"}
	}
	if !skillCategories[opts.Category] {
		return domain.Skill{}, ValidationError{Msg: fmt.Sprintf("invalid skill category %s", opts.Category)}
	}
	if _, err := e.Repo.GetSkillByName(ctx, opts.Name); err == nil {
		return domain.Skill{}, ConflictError{Msg: "Skill already exists"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Skill{}, err
	}
	s := domain.Skill{
		ID:          uuid.NewString(),
		Name:        opts.Name,
		Category:    opts.Category,
		Description: opts.Description,
		CreatedAt:   e.timestamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Skill{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertSkillTx(ctx, tx, s); err != nil {
		return domain.Skill{}, err
	}
	if err := e.Events.Append(ctx, tx, "skill.defined", "skill", s.ID, opts.ActorID, events.EventPayload{"name": s.Name, "category": s.Category}); err != nil {
		return domain.Skill{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Skill{}, err
	}
	return s, nil
}

func (e Engine) ListSkills(ctx context.Context, category string) ([]domain.Skill, error) {
	if category != "" && !skillCategories[category] {
		return nil, ValidationError{Msg: fmt.Sprintf("invalid skill category %s", category)}
	}
	return e.Repo.ListSkills(ctx, category)
}

type SkillAssignOptions struct {
	EmployeeID string
	SkillID    string
	Level      string
	ActorID    string
}

// AssignSkill links a skill to an employee. Assigning the same skill again
// updates the level.
func (e Engine) AssignSkill(ctx context.Context, opts SkillAssignOptions) (domain.EmployeeSkill, error) {
	if !skillLevels[opts.Level] {
		return domain.EmployeeSkill{}, ValidationError{Msg: fmt.Sprintf("invalid skill level %s", opts.Level)}
	}
	if _, err := e.Repo.GetEmployee(ctx, opts.EmployeeID); err != nil {
		return domain.EmployeeSkill{}, asNotFound(err, "Employee not found")
	}
	skill, err := e.Repo.GetSkill(ctx, opts.SkillID)
	if err != nil {
		return domain.EmployeeSkill{}, asNotFound(err, "Skill not found")
	}
	es := domain.EmployeeSkill{
		ID:            uuid.NewString(),
		EmployeeID:    opts.EmployeeID,
		SkillID:       opts.SkillID,
		Level:         opts.Level,
		SkillName:     skill.Name,
		SkillCategory: skill.Category,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.EmployeeSkill{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.AssignSkillTx(ctx, tx, es); err != nil {
		return domain.EmployeeSkill{}, err
	}
	if err := e.Events.Append(ctx, tx, "skill.assigned", "employee", opts.EmployeeID, opts.ActorID, events.EventPayload{"skill": skill.Name, "level": opts.Level}); err != nil {
		return domain.EmployeeSkill{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.EmployeeSkill{}, err
	}
	return es, nil
}

func (e Engine) EmployeeSkills(ctx context.Context, employeeID string) ([]domain.EmployeeSkill, error) {
	if _, err := e.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	return e.Repo.EmployeeSkills(ctx, employeeID)
}

func (e Engine) RemoveSkill(ctx context.Context, employeeID, skillID string) error {
	if _, err := e.GetEmployee(ctx, employeeID); err != nil {
		return err
	}
	if err := e.Repo.RemoveSkill(ctx, employeeID, skillID); err != nil {
		return asNotFound(err, "Skill not found")
	}
	return nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// taskLoad is the workload contribution of one task: estimated effort
// (2h default) weighted by priority (0.5 default).
func taskLoad(t domain.Task) float64 {
	effort := 2.0
	if t.EstimatedEffort != nil && *t.EstimatedEffort > 0 {
		effort = *t.EstimatedEffort
	}
	priority := 0.5
	if t.PriorityScore != nil {
		priority = *t.PriorityScore
	}
	return effort * priority
}
