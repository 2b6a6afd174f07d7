package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"teampulse/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const employeeColumns = `id,name,email,role,team_id,productivity_periods,created_at,updated_at`

func (r Repo) InsertEmployee(ctx context.Context, e domain.Employee) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO employees(id,name,email,role,team_id,productivity_periods,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.Name, e.Email, e.Role, nullableStringPtr(e.TeamID), e.ProductivityJSON, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r Repo) InsertEmployeeTx(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO employees(id,name,email,role,team_id,productivity_periods,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.Name, e.Email, e.Role, nullableStringPtr(e.TeamID), e.ProductivityJSON, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r Repo) GetEmployee(ctx context.Context, id string) (domain.Employee, error) {
	var e domain.Employee
	var teamID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id=?`, id).
		Scan(&e.ID, &e.Name, &e.Email, &e.Role, &teamID, &e.ProductivityJSON, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if teamID.Valid {
		e.TeamID = &teamID.String
	}
	return e, nil
}

func (r Repo) GetEmployeeTx(ctx context.Context, tx *sql.Tx, id string) (domain.Employee, error) {
	var e domain.Employee
	var teamID sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id=?`, id).
		Scan(&e.ID, &e.Name, &e.Email, &e.Role, &teamID, &e.ProductivityJSON, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if teamID.Valid {
		e.TeamID = &teamID.String
	}
	return e, nil
}

func (r Repo) GetEmployeeByEmail(ctx context.Context, email string) (domain.Employee, error) {
	var e domain.Employee
	var teamID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE email=?`, email).
		Scan(&e.ID, &e.Name, &e.Email, &e.Role, &teamID, &e.ProductivityJSON, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if teamID.Valid {
		e.TeamID = &teamID.String
	}
	return e, nil
}

type EmployeeFilters struct {
	TeamID          string
	Role            string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListEmployees(ctx context.Context, f EmployeeFilters) ([]domain.Employee, error) {
	var clauses []string
	var args []any
	if f.TeamID != "" {
		clauses = append(clauses, "team_id=?")
		args = append(args, f.TeamID)
	}
	if f.Role != "" {
		clauses = append(clauses, "role=?")
		args = append(args, f.Role)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + employeeColumns + ` FROM employees ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Employee
	for rows.Next() {
		var e domain.Employee
		var teamID sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Role, &teamID, &e.ProductivityJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if teamID.Valid {
			e.TeamID = &teamID.String
		}
		res = append(res, e)
	}
	return res, nil
}

// TeamMembers lists employees of a team in stable creation order.
func (r Repo) TeamMembers(ctx context.Context, teamID string) ([]domain.Employee, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE team_id=? ORDER BY created_at ASC, id ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Employee
	for rows.Next() {
		var e domain.Employee
		var memberTeamID sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Role, &memberTeamID, &e.ProductivityJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if memberTeamID.Valid {
			e.TeamID = &memberTeamID.String
		}
		res = append(res, e)
	}
	return res, nil
}

func (r Repo) TeamMembersTx(ctx context.Context, tx *sql.Tx, teamID string) ([]domain.Employee, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE team_id=? ORDER BY created_at ASC, id ASC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Employee
	for rows.Next() {
		var e domain.Employee
		var memberTeamID sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Role, &memberTeamID, &e.ProductivityJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if memberTeamID.Valid {
			e.TeamID = &memberTeamID.String
		}
		res = append(res, e)
	}
	return res, nil
}

func (r Repo) UpdateEmployee(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	_, err := tx.ExecContext(ctx, `UPDATE employees SET name=?, email=?, role=?, team_id=?, productivity_periods=?, updated_at=? WHERE id=?`,
		e.Name, e.Email, e.Role, nullableStringPtr(e.TeamID), e.ProductivityJSON, e.UpdatedAt, e.ID)
	return err
}

func (r Repo) DeleteEmployeeTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM employees WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteEmployee(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM employees WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertTeam(ctx context.Context, t domain.Team) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO teams(id,name,description,manager_id,created_at) VALUES (?,?,?,?,?)`,
		t.ID, t.Name, nullable(t.Description), nullableStringPtr(t.ManagerID), t.CreatedAt)
	return err
}

func (r Repo) InsertTeamTx(ctx context.Context, tx *sql.Tx, t domain.Team) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO teams(id,name,description,manager_id,created_at) VALUES (?,?,?,?,?)`,
		t.ID, t.Name, nullable(t.Description), nullableStringPtr(t.ManagerID), t.CreatedAt)
	return err
}

func (r Repo) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	var t domain.Team
	var managerID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(description,'') AS description,manager_id,created_at FROM teams WHERE id=?`, id).
		Scan(&t.ID, &t.Name, &t.Description, &managerID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if managerID.Valid {
		t.ManagerID = &managerID.String
	}
	return t, err
}

func (r Repo) GetTeamTx(ctx context.Context, tx *sql.Tx, id string) (domain.Team, error) {
	var t domain.Team
	var managerID sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT id,name,COALESCE(description,'') AS description,manager_id,created_at FROM teams WHERE id=?`, id).
		Scan(&t.ID, &t.Name, &t.Description, &managerID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if managerID.Valid {
		t.ManagerID = &managerID.String
	}
	return t, err
}

func (r Repo) GetTeamByName(ctx context.Context, name string) (domain.Team, error) {
	var t domain.Team
	var managerID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(description,'') AS description,manager_id,created_at FROM teams WHERE name=?`, name).
		Scan(&t.ID, &t.Name, &t.Description, &managerID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if managerID.Valid {
		t.ManagerID = &managerID.String
	}
	return t, err
}

func (r Repo) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(description,'') AS description,manager_id,created_at FROM teams ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Team
	for rows.Next() {
		var t domain.Team
		var managerID sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &managerID, &t.CreatedAt); err != nil {
			return nil, err
		}
		if managerID.Valid {
			t.ManagerID = &managerID.String
		}
		res = append(res, t)
	}
	return res, nil
}

func (r Repo) UpdateTeam(ctx context.Context, id string, name, description, managerID *string) error {
	var (
		fields []string
		args   []any
	)
	if name != nil {
		fields = append(fields, "name=?")
		args = append(args, *name)
	}
	if description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*description))
	}
	if managerID != nil {
		fields = append(fields, "manager_id=?")
		args = append(args, nullable(*managerID))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE teams SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateTeamTx(ctx context.Context, tx *sql.Tx, t domain.Team) error {
	res, err := tx.ExecContext(ctx, `UPDATE teams SET name=?, description=?, manager_id=? WHERE id=?`,
		t.Name, nullable(t.Description), nullableStringPtr(t.ManagerID), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTeam(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM teams WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTeamTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func marshalDeps(deps []string) string {
	if deps == nil {
		deps = []string{}
	}
	data, err := json.Marshal(deps)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalDeps(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var deps []string
	if err := json.Unmarshal([]byte(raw), &deps); err != nil {
		return []string{}
	}
	if deps == nil {
		return []string{}
	}
	return deps
}

const taskColumns = `id,title,description,status,source,source_metadata,assigned_to,created_by,urgency,deadline,estimated_effort,actual_effort,priority_score,dependencies,created_at,updated_at,completed_at`

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(id,title,description,status,source,source_metadata,assigned_to,created_by,urgency,deadline,estimated_effort,actual_effort,priority_score,dependencies,created_at,updated_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, nullable(t.Description), t.Status, t.Source, nullableStringPtr(t.SourceMetaJSON),
		nullableStringPtr(t.AssignedTo), t.CreatedBy, t.Urgency, nullableStringPtr(t.Deadline),
		nullableFloatPtr(t.EstimatedEffort), nullableFloatPtr(t.ActualEffort), nullableFloatPtr(t.PriorityScore),
		marshalDeps(t.Dependencies), t.CreatedAt, t.UpdatedAt, nullableStringPtr(t.CompletedAt))
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, source=?, source_metadata=?, assigned_to=?, urgency=?, deadline=?, estimated_effort=?, actual_effort=?, priority_score=?, dependencies=?, updated_at=?, completed_at=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Status, t.Source, nullableStringPtr(t.SourceMetaJSON),
		nullableStringPtr(t.AssignedTo), t.Urgency, nullableStringPtr(t.Deadline),
		nullableFloatPtr(t.EstimatedEffort), nullableFloatPtr(t.ActualEffort), nullableFloatPtr(t.PriorityScore),
		marshalDeps(t.Dependencies), t.UpdatedAt, nullableStringPtr(t.CompletedAt), t.ID)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var t domain.Task
	var description, sourceMeta, assignedTo, deadline, completedAt sql.NullString
	var estimated, actual, score sql.NullFloat64
	var deps string
	err := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id).
		Scan(&t.ID, &t.Title, &description, &t.Status, &t.Source, &sourceMeta, &assignedTo, &t.CreatedBy, &t.Urgency, &deadline, &estimated, &actual, &score, &deps, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if description.Valid {
		t.Description = description.String
	}
	if sourceMeta.Valid {
		t.SourceMetaJSON = &sourceMeta.String
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.String
	}
	if deadline.Valid {
		t.Deadline = &deadline.String
	}
	if estimated.Valid {
		t.EstimatedEffort = &estimated.Float64
	}
	if actual.Valid {
		t.ActualEffort = &actual.Float64
	}
	if score.Valid {
		t.PriorityScore = &score.Float64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	t.Dependencies = unmarshalDeps(deps)
	return t, nil
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	var t domain.Task
	var description, sourceMeta, assignedTo, deadline, completedAt sql.NullString
	var estimated, actual, score sql.NullFloat64
	var deps string
	err := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id).
		Scan(&t.ID, &t.Title, &description, &t.Status, &t.Source, &sourceMeta, &assignedTo, &t.CreatedBy, &t.Urgency, &deadline, &estimated, &actual, &score, &deps, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if description.Valid {
		t.Description = description.String
	}
	if sourceMeta.Valid {
		t.SourceMetaJSON = &sourceMeta.String
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.String
	}
	if deadline.Valid {
		t.Deadline = &deadline.String
	}
	if estimated.Valid {
		t.EstimatedEffort = &estimated.Float64
	}
	if actual.Valid {
		t.ActualEffort = &actual.Float64
	}
	if score.Valid {
		t.PriorityScore = &score.Float64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	t.Dependencies = unmarshalDeps(deps)
	return t, nil
}

type TaskFilters struct {
	Status          string
	AssignedTo      string
	CreatedBy       string
	Source          string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	if f.CreatedBy != "" {
		clauses = append(clauses, "created_by=?")
		args = append(args, f.CreatedBy)
	}
	if f.Source != "" {
		clauses = append(clauses, "source=?")
		args = append(args, f.Source)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ActiveTasks returns pending and in-progress tasks assigned to an employee.
func (r Repo) ActiveTasks(ctx context.Context, employeeID string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_to=? AND status IN ('pending','in_progress') ORDER BY created_at ASC, id ASC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r Repo) ActiveTasksTx(ctx context.Context, tx *sql.Tx, employeeID string) ([]domain.Task, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_to=? AND status IN ('pending','in_progress') ORDER BY created_at ASC, id ASC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// CompletedTasksSince returns tasks an employee completed at or after the
// given RFC3339 instant.
func (r Repo) CompletedTasksSince(ctx context.Context, employeeID, since string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_to=? AND status='completed' AND completed_at>=? ORDER BY completed_at ASC, id ASC`, employeeID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// DelegationCandidates returns up to three low-priority pending tasks that
// could move off an overloaded employee.
func (r Repo) DelegationCandidates(ctx context.Context, employeeID string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_to=? AND status='pending' AND priority_score<0.6 ORDER BY priority_score ASC LIMIT 3`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// TransferableTaskTx picks the most movable task of an employee: pending, no
// dependencies, lowest priority first, furthest deadline first.
func (r Repo) TransferableTaskTx(ctx context.Context, tx *sql.Tx, employeeID string) (domain.Task, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_to=? AND status='pending' AND dependencies='[]' ORDER BY priority_score ASC, deadline DESC LIMIT 1`, employeeID)
	if err != nil {
		return domain.Task{}, err
	}
	defer rows.Close()
	tasks, err := collectTasks(rows)
	if err != nil {
		return domain.Task{}, err
	}
	if len(tasks) == 0 {
		return domain.Task{}, ErrNotFound
	}
	return tasks[0], nil
}

func (r Repo) ReassignTaskTx(ctx context.Context, tx *sql.Tx, taskID, employeeID, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET assigned_to=?, updated_at=? WHERE id=?`, employeeID, now, taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetPriorityScore(ctx context.Context, taskID string, score float64, now string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := r.SetPriorityScoreTx(ctx, tx, taskID, score, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (r Repo) SetPriorityScoreTx(ctx context.Context, tx *sql.Tx, taskID string, score float64, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET priority_score=?, updated_at=? WHERE id=?`, score, now, taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTaskTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountTasksByStatusFor(ctx context.Context, employeeID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM tasks WHERE assigned_to=? GROUP BY status`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, nil
}

func collectTasks(rows *sql.Rows) ([]domain.Task, error) {
	var res []domain.Task
	for rows.Next() {
		var t domain.Task
		var description, sourceMeta, assignedTo, deadline, completedAt sql.NullString
		var estimated, actual, score sql.NullFloat64
		var deps string
		if err := rows.Scan(&t.ID, &t.Title, &description, &t.Status, &t.Source, &sourceMeta, &assignedTo, &t.CreatedBy, &t.Urgency, &deadline, &estimated, &actual, &score, &deps, &t.CreatedAt, &t.UpdatedAt, &completedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			t.Description = description.String
		}
		if sourceMeta.Valid {
			t.SourceMetaJSON = &sourceMeta.String
		}
		if assignedTo.Valid {
			t.AssignedTo = &assignedTo.String
		}
		if deadline.Valid {
			t.Deadline = &deadline.String
		}
		if estimated.Valid {
			t.EstimatedEffort = &estimated.Float64
		}
		if actual.Valid {
			t.ActualEffort = &actual.Float64
		}
		if score.Valid {
			t.PriorityScore = &score.Float64
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.String
		}
		t.Dependencies = unmarshalDeps(deps)
		res = append(res, t)
	}
	return res, nil
}

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, nil
}
