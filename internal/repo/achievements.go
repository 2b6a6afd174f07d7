package repo

import (
	"context"
	"database/sql"

	"teampulse/internal/domain"
)

const achievementColumns = `id,employee_id,type,description,impact_score,recognized_by_manager,recognition_note,related_task_id,created_at`

func (r Repo) InsertAchievement(ctx context.Context, a domain.Achievement) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := r.InsertAchievementTx(ctx, tx, a); err != nil {
		return err
	}
	return tx.Commit()
}

func (r Repo) InsertAchievementTx(ctx context.Context, tx *sql.Tx, a domain.Achievement) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO achievements(id,employee_id,type,description,impact_score,recognized_by_manager,recognition_note,related_task_id,created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.EmployeeID, a.Type, a.Description, a.ImpactScore, a.RecognizedByManager,
		nullableStringPtr(a.RecognitionNote), nullableStringPtr(a.RelatedTaskID), a.CreatedAt)
	return err
}

func (r Repo) GetAchievement(ctx context.Context, id string) (domain.Achievement, error) {
	var a domain.Achievement
	var note, relatedTask sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE id=?`, id).
		Scan(&a.ID, &a.EmployeeID, &a.Type, &a.Description, &a.ImpactScore, &a.RecognizedByManager, &note, &relatedTask, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if note.Valid {
		a.RecognitionNote = &note.String
	}
	if relatedTask.Valid {
		a.RelatedTaskID = &relatedTask.String
	}
	return a, nil
}

func (r Repo) GetAchievementTx(ctx context.Context, tx *sql.Tx, id string) (domain.Achievement, error) {
	var a domain.Achievement
	var note, relatedTask sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE id=?`, id).
		Scan(&a.ID, &a.EmployeeID, &a.Type, &a.Description, &a.ImpactScore, &a.RecognizedByManager, &note, &relatedTask, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if note.Valid {
		a.RecognitionNote = &note.String
	}
	if relatedTask.Valid {
		a.RelatedTaskID = &relatedTask.String
	}
	return a, nil
}

// RecognizeTx marks an achievement as acknowledged by a manager. Calling it
// again replaces the note.
func (r Repo) RecognizeTx(ctx context.Context, tx *sql.Tx, id, note string) error {
	res, err := tx.ExecContext(ctx, `UPDATE achievements SET recognized_by_manager=1, recognition_note=? WHERE id=?`, nullable(note), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AchievementsSince lists an employee's achievements created at or after the
// given instant, newest first.
func (r Repo) AchievementsSince(ctx context.Context, employeeID, since string) ([]domain.Achievement, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE employee_id=? AND created_at>=? ORDER BY created_at DESC, id DESC`, employeeID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Achievement
	for rows.Next() {
		var a domain.Achievement
		var note, relatedTask sql.NullString
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.Type, &a.Description, &a.ImpactScore, &a.RecognizedByManager, &note, &relatedTask, &a.CreatedAt); err != nil {
			return nil, err
		}
		if note.Valid {
			a.RecognitionNote = &note.String
		}
		if relatedTask.Valid {
			a.RelatedTaskID = &relatedTask.String
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// UnrecognizedAchievement is an achievement row joined with its owner's name.
type UnrecognizedAchievement struct {
	AchievementID string  `json:"achievement_id"`
	EmployeeID    string  `json:"employee_id"`
	EmployeeName  string  `json:"employee_name"`
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	ImpactScore   float64 `json:"impact_score"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

// UnrecognizedAchievements returns notable achievements (impact 0.6 and up)
// no manager has acknowledged yet, highest impact first. teamID narrows the
// search to one team when set.
func (r Repo) UnrecognizedAchievements(ctx context.Context, teamID, since string) ([]UnrecognizedAchievement, error) {
	query := `SELECT a.id,a.employee_id,e.name,a.type,a.description,a.impact_score,a.created_at
FROM achievements a JOIN employees e ON e.id=a.employee_id
WHERE a.recognized_by_manager=0 AND a.impact_score>=0.6 AND a.created_at>=?`
	args := []any{since}
	if teamID != "" {
		query += " AND e.team_id=?"
		args = append(args, teamID)
	}
	query += " ORDER BY a.impact_score DESC, a.id DESC"
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []UnrecognizedAchievement
	for rows.Next() {
		var u UnrecognizedAchievement
		if err := rows.Scan(&u.AchievementID, &u.EmployeeID, &u.EmployeeName, &u.Type, &u.Description, &u.ImpactScore, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}
