package repo

import (
	"context"
	"database/sql"

	"teampulse/internal/domain"
)

const metricColumns = `id,employee_id,date,hours_worked,breaks_taken,cognitive_load,social_interactions,task_completion_rate,sentiment_score,risk_score,created_at`

// UpsertActivityTx records a day of activity for an employee. An existing row
// for the same day keeps its cognitive, social and completion figures; the
// sentiment score is only replaced when a new one is supplied.
func (r Repo) UpsertActivityTx(ctx context.Context, tx *sql.Tx, m domain.DailyMetric) (domain.DailyMetric, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO daily_metrics(id,employee_id,date,hours_worked,breaks_taken,sentiment_score,created_at)
VALUES (?,?,?,?,?,?,?)
ON CONFLICT(employee_id, date) DO UPDATE SET
 hours_worked=excluded.hours_worked,
 breaks_taken=excluded.breaks_taken,
 sentiment_score=COALESCE(excluded.sentiment_score, daily_metrics.sentiment_score)`,
		m.ID, m.EmployeeID, m.Date, m.HoursWorked, m.BreaksTaken, nullableFloatPtr(m.SentimentScore), m.CreatedAt)
	if err != nil {
		return domain.DailyMetric{}, err
	}
	return r.GetMetricByDateTx(ctx, tx, m.EmployeeID, m.Date)
}

func (r Repo) GetMetricByDate(ctx context.Context, employeeID, date string) (domain.DailyMetric, error) {
	var m domain.DailyMetric
	var sentiment, risk sql.NullFloat64
	err := r.DB.QueryRowContext(ctx, `SELECT `+metricColumns+` FROM daily_metrics WHERE employee_id=? AND date=?`, employeeID, date).
		Scan(&m.ID, &m.EmployeeID, &m.Date, &m.HoursWorked, &m.BreaksTaken, &m.CognitiveLoad, &m.SocialInteractions, &m.TaskCompletionRate, &sentiment, &risk, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if sentiment.Valid {
		m.SentimentScore = &sentiment.Float64
	}
	if risk.Valid {
		m.RiskScore = &risk.Float64
	}
	return m, nil
}

func (r Repo) GetMetricByDateTx(ctx context.Context, tx *sql.Tx, employeeID, date string) (domain.DailyMetric, error) {
	var m domain.DailyMetric
	var sentiment, risk sql.NullFloat64
	err := tx.QueryRowContext(ctx, `SELECT `+metricColumns+` FROM daily_metrics WHERE employee_id=? AND date=?`, employeeID, date).
		Scan(&m.ID, &m.EmployeeID, &m.Date, &m.HoursWorked, &m.BreaksTaken, &m.CognitiveLoad, &m.SocialInteractions, &m.TaskCompletionRate, &sentiment, &risk, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if sentiment.Valid {
		m.SentimentScore = &sentiment.Float64
	}
	if risk.Valid {
		m.RiskScore = &risk.Float64
	}
	return m, nil
}

// MetricHistory lists an employee's daily metrics from the given date
// (inclusive), most recent first.
func (r Repo) MetricHistory(ctx context.Context, employeeID, since string) ([]domain.DailyMetric, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+metricColumns+` FROM daily_metrics WHERE employee_id=? AND date>=? ORDER BY date DESC`, employeeID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DailyMetric
	for rows.Next() {
		var m domain.DailyMetric
		var sentiment, risk sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.EmployeeID, &m.Date, &m.HoursWorked, &m.BreaksTaken, &m.CognitiveLoad, &m.SocialInteractions, &m.TaskCompletionRate, &sentiment, &risk, &m.CreatedAt); err != nil {
			return nil, err
		}
		if sentiment.Valid {
			m.SentimentScore = &sentiment.Float64
		}
		if risk.Valid {
			m.RiskScore = &risk.Float64
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// MetricAverages holds per-field means over a window. A nil field means no
// rows carried a value for it.
type MetricAverages struct {
	Hours      *float64
	Cognitive  *float64
	Social     *float64
	Completion *float64
	Sentiment  *float64
}

const metricAveragesQuery = `SELECT AVG(hours_worked),AVG(cognitive_load),AVG(social_interactions),AVG(task_completion_rate),AVG(sentiment_score) FROM daily_metrics WHERE employee_id=? AND date>=?`

func (r Repo) MetricAverages(ctx context.Context, employeeID, since string) (MetricAverages, error) {
	return scanAverages(r.DB.QueryRowContext(ctx, metricAveragesQuery, employeeID, since))
}

func (r Repo) MetricAveragesTx(ctx context.Context, tx *sql.Tx, employeeID, since string) (MetricAverages, error) {
	return scanAverages(tx.QueryRowContext(ctx, metricAveragesQuery, employeeID, since))
}

func scanAverages(row *sql.Row) (MetricAverages, error) {
	var a MetricAverages
	var hours, cognitive, social, completion, sentiment sql.NullFloat64
	if err := row.Scan(&hours, &cognitive, &social, &completion, &sentiment); err != nil {
		return a, err
	}
	if hours.Valid {
		a.Hours = &hours.Float64
	}
	if cognitive.Valid {
		a.Cognitive = &cognitive.Float64
	}
	if social.Valid {
		a.Social = &social.Float64
	}
	if completion.Valid {
		a.Completion = &completion.Float64
	}
	if sentiment.Valid {
		a.Sentiment = &sentiment.Float64
	}
	return a, nil
}

func (r Repo) SetRiskScoreTx(ctx context.Context, tx *sql.Tx, metricID string, score float64) error {
	_, err := tx.ExecContext(ctx, `UPDATE daily_metrics SET risk_score=? WHERE id=?`, score, metricID)
	return err
}
