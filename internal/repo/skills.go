package repo

import (
	"context"
	"database/sql"

	"teampulse/internal/domain"
)

func (r Repo) InsertSkill(ctx context.Context, s domain.Skill) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO skills(id,name,category,description,created_at) VALUES (?,?,?,?,?)`,
		s.ID, s.Name, s.Category, s.Description, s.CreatedAt)
	return err
}

func (r Repo) InsertSkillTx(ctx context.Context, tx *sql.Tx, s domain.Skill) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO skills(id,name,category,description,created_at) VALUES (?,?,?,?,?)`,
		s.ID, s.Name, s.Category, s.Description, s.CreatedAt)
	return err
}

func (r Repo) GetSkill(ctx context.Context, id string) (domain.Skill, error) {
	var s domain.Skill
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,category,description,created_at FROM skills WHERE id=?`, id).
		Scan(&s.ID, &s.Name, &s.Category, &s.Description, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) GetSkillByName(ctx context.Context, name string) (domain.Skill, error) {
	var s domain.Skill
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,category,description,created_at FROM skills WHERE name=?`, name).
		Scan(&s.ID, &s.Name, &s.Category, &s.Description, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListSkills(ctx context.Context, category string) ([]domain.Skill, error) {
	query := `SELECT id,name,category,description,created_at FROM skills`
	var args []any
	if category != "" {
		query += ` WHERE category=?`
		args = append(args, category)
	}
	query += ` ORDER BY name ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Skill
	for rows.Next() {
		var s domain.Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.Description, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// AssignSkill grants or relevels a skill for an employee. A second assignment
// of the same skill only moves the level.
func (r Repo) AssignSkill(ctx context.Context, es domain.EmployeeSkill) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO employee_skills(id,employee_id,skill_id,level) VALUES (?,?,?,?)
ON CONFLICT(employee_id,skill_id) DO UPDATE SET level=excluded.level`,
		es.ID, es.EmployeeID, es.SkillID, es.Level)
	return err
}

func (r Repo) AssignSkillTx(ctx context.Context, tx *sql.Tx, es domain.EmployeeSkill) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO employee_skills(id,employee_id,skill_id,level) VALUES (?,?,?,?)
ON CONFLICT(employee_id,skill_id) DO UPDATE SET level=excluded.level`,
		es.ID, es.EmployeeID, es.SkillID, es.Level)
	return err
}

func (r Repo) RemoveSkill(ctx context.Context, employeeID, skillID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM employee_skills WHERE employee_id=? AND skill_id=?`, employeeID, skillID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// EmployeeSkills lists an employee's skills with the skill catalog fields
// joined in.
func (r Repo) EmployeeSkills(ctx context.Context, employeeID string) ([]domain.EmployeeSkill, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT es.id,es.employee_id,es.skill_id,es.level,s.name,s.category
FROM employee_skills es JOIN skills s ON s.id=es.skill_id
WHERE es.employee_id=? ORDER BY s.name ASC`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EmployeeSkill
	for rows.Next() {
		var es domain.EmployeeSkill
		if err := rows.Scan(&es.ID, &es.EmployeeID, &es.SkillID, &es.Level, &es.SkillName, &es.SkillCategory); err != nil {
			return nil, err
		}
		res = append(res, es)
	}
	return res, rows.Err()
}

func (r Repo) CountEmployeeSkills(ctx context.Context, employeeID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM employee_skills WHERE employee_id=?`, employeeID).Scan(&n)
	return n, err
}
