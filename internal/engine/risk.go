package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"teampulse/internal/domain"
	"teampulse/internal/engine/textkit"
	"teampulse/internal/events"
	"teampulse/internal/repo"
)

// Burnout risk is a weighted blend of five normalized signals averaged
// over a trailing window of daily metrics.
const (
	riskWeightHours      = 0.3
	riskWeightCognitive  = 0.25
	riskWeightIsolation  = 0.2
	riskWeightCompletion = 0.1
	riskWeightSentiment  = 0.15
)

const dateLayout = "2006-01-02"

// RiskReport is the full burnout picture for one employee.
type RiskReport struct {
	EmployeeID       string             `json:"employee_id"`
	CurrentRiskScore float64            `json:"current_risk_score"`
	RiskLevel        string             `json:"risk_level"`
	Factors          map[string]float64 `json:"factors"`
	Recommendations  []string           `json:"recommendations"`
	Trend            string             `json:"trend"`
}

type InterventionAction struct {
	Action   string   `json:"action"`
	Severity string   `json:"severity"`
	Tasks    []string `json:"tasks,omitempty"`
}

type InterventionReport struct {
	EmployeeID string               `json:"employee_id"`
	RiskScore  float64              `json:"risk_score"`
	RiskLevel  string               `json:"risk_level"`
	Actions    []InterventionAction `json:"actions"`
}

func (e Engine) sinceDate(days int) string {
	return e.now().UTC().AddDate(0, 0, -days).Format(dateLayout)
}

// RiskScore computes the burnout risk over the trailing window. The second
// return reports whether any metrics existed; without data the score is 0.
func (e Engine) RiskScore(ctx context.Context, employeeID string, days int) (float64, bool, error) {
	avg, err := e.Repo.MetricAverages(ctx, employeeID, e.sinceDate(days))
	if err != nil {
		return 0, false, err
	}
	score, hasData := riskFromAverages(avg)
	return score, hasData, nil
}

func (e Engine) riskScoreTx(ctx context.Context, tx *sql.Tx, employeeID string, days int) (float64, bool, error) {
	avg, err := e.Repo.MetricAveragesTx(ctx, tx, employeeID, e.sinceDate(days))
	if err != nil {
		return 0, false, err
	}
	score, hasData := riskFromAverages(avg)
	return score, hasData, nil
}

// riskFromAverages folds windowed metric averages into a single score.
// hours_worked is NOT NULL, so a nil average means the window had no rows.
func riskFromAverages(avg repo.MetricAverages) (score float64, hasData bool) {
	if avg.Hours == nil {
		return 0, false
	}
	score = riskWeightHours*overworkRisk(*avg.Hours) +
		riskWeightCognitive*floatOrZero(avg.Cognitive) +
		riskWeightIsolation*isolationRisk(floatOrZero(avg.Social)) +
		riskWeightCompletion*(1.0-floatOrZero(avg.Completion)) +
		riskWeightSentiment*sentimentRisk(avg.Sentiment)
	return clamp01(score), true
}

// overworkRisk maps average daily hours onto risk. Eight hours is the
// ideal day; everything above climbs in bands.
func overworkRisk(hours float64) float64 {
	switch {
	case hours <= 8:
		return 0.0
	case hours <= 9:
		return 0.3
	case hours <= 10:
		return 0.6
	case hours <= 11:
		return 0.8
	default:
		return 1.0
	}
}

// isolationRisk maps average daily interactions onto risk; fewer
// interactions mean more isolation.
func isolationRisk(interactions float64) float64 {
	switch {
	case interactions >= 10:
		return 0.0
	case interactions >= 7:
		return 0.2
	case interactions >= 5:
		return 0.4
	case interactions >= 3:
		return 0.7
	default:
		return 1.0
	}
}

// sentimentRisk maps sentiment (-1..1) onto risk (0..1); positive
// sentiment means low risk. Unknown sentiment counts as neutral.
func sentimentRisk(sentiment *float64) float64 {
	if sentiment == nil {
		return 0.5
	}
	return (1.0 - *sentiment) / 2.0
}

func riskLevel(score float64) string {
	switch {
	case score >= 0.8:
		return "critical"
	case score >= 0.6:
		return "high"
	case score >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

func riskRecommendations(score float64, factors map[string]float64) []string {
	var recs []string
	if score >= 0.8 {
		recs = append(recs, "URGENT: Immediate intervention required. Consider task redistribution.")
	}
	if factors["overwork"] > 0.6 {
		recs = append(recs, "Reduce daily working hours. Block calendar for breaks.")
	}
	if factors["cognitive_overload"] > 0.7 {
		recs = append(recs, "Delegate complex tasks. Focus on simpler activities temporarily.")
	}
	if factors["social_isolation"] > 0.6 {
		recs = append(recs, "Schedule team meetings or informal check-ins.")
	}
	if factors["poor_completion"] > 0.5 {
		recs = append(recs, "Review task assignments. May indicate overload or unclear requirements.")
	}
	if factors["negative_sentiment"] > 0.6 {
		recs = append(recs, "Schedule 1-on-1 with manager to discuss concerns.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Keep up the good work! Maintain current work-life balance.")
	}
	return recs
}

// BurnoutAnalysis builds the full risk report: current score and level,
// the contributing factors, recommendations and the short-term trend.
func (e Engine) BurnoutAnalysis(ctx context.Context, employeeID string) (RiskReport, error) {
	if _, err := e.GetEmployee(ctx, employeeID); err != nil {
		return RiskReport{}, err
	}
	avg, err := e.Repo.MetricAverages(ctx, employeeID, e.sinceDate(7))
	if err != nil {
		return RiskReport{}, err
	}
	score, hasData := riskFromAverages(avg)
	factors := map[string]float64{}
	if hasData {
		factors["overwork"] = overworkRisk(*avg.Hours)
		factors["cognitive_overload"] = floatOrZero(avg.Cognitive)
		factors["social_isolation"] = isolationRisk(floatOrZero(avg.Social))
		factors["poor_completion"] = 1.0 - floatOrZero(avg.Completion)
		factors["negative_sentiment"] = sentimentRisk(avg.Sentiment)
	}
	recent, _, err := e.RiskScore(ctx, employeeID, 3)
	if err != nil {
		return RiskReport{}, err
	}
	trend := "stable"
	if recent < score-0.1 {
		trend = "improving"
	} else if recent > score+0.1 {
		trend = "declining"
	}
	return RiskReport{
		EmployeeID:       employeeID,
		CurrentRiskScore: score,
		RiskLevel:        riskLevel(score),
		Factors:          factors,
		Recommendations:  riskRecommendations(score, factors),
		Trend:            trend,
	}, nil
}

// TriggerInterventions picks protective actions for the employee's current
// risk band and records each one in the event log.
func (e Engine) TriggerInterventions(ctx context.Context, employeeID, actorID string) (InterventionReport, error) {
	if _, err := e.GetEmployee(ctx, employeeID); err != nil {
		return InterventionReport{}, err
	}
	score, _, err := e.RiskScore(ctx, employeeID, 7)
	if err != nil {
		return InterventionReport{}, err
	}
	var actions []InterventionAction
	switch {
	case score >= 0.9:
		actions = append(actions,
			InterventionAction{Action: "block_new_tasks"},
			InterventionAction{Action: "alert_manager", Severity: "critical"})
	case score >= 0.8:
		actions = append(actions, InterventionAction{Action: "alert_manager", Severity: "high"})
		delegation, err := e.delegationAction(ctx, employeeID)
		if err != nil {
			return InterventionReport{}, err
		}
		actions = append(actions, delegation)
	case score >= 0.7:
		delegation, err := e.delegationAction(ctx, employeeID)
		if err != nil {
			return InterventionReport{}, err
		}
		actions = append(actions, delegation)
	case score >= 0.5:
		actions = append(actions, InterventionAction{Action: "micro_breaks"})
	}
	if len(actions) > 0 {
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return InterventionReport{}, err
		}
		defer tx.Rollback()
		for _, a := range actions {
			payload := events.EventPayload{"action": a.Action, "risk_score": score}
			if a.Severity != "" {
				payload["severity"] = a.Severity
			}
			if err := e.Events.Append(ctx, tx, "intervention.triggered", "employee", employeeID, actorID, payload); err != nil {
				return InterventionReport{}, err
			}
			e.Log.Warn("burnout intervention",
				zap.String("employee_id", employeeID),
				zap.String("action", a.Action),
				zap.Float64("risk_score", score))
		}
		if err := tx.Commit(); err != nil {
			return InterventionReport{}, err
		}
	}
	return InterventionReport{
		EmployeeID: employeeID,
		RiskScore:  score,
		RiskLevel:  riskLevel(score),
		Actions:    actions,
	}, nil
}

func (e Engine) delegationAction(ctx context.Context, employeeID string) (InterventionAction, error) {
	candidates, err := e.Repo.DelegationCandidates(ctx, employeeID)
	if err != nil {
		return InterventionAction{}, err
	}
	titles := make([]string, 0, len(candidates))
	for _, t := range candidates {
		titles = append(titles, t.Title)
	}
	return InterventionAction{Action: "suggest_delegation", Tasks: titles}, nil
}

type ActivityOptions struct {
	EmployeeID  string
	HoursWorked float64
	BreaksTaken int
	Sentiment   *float64
	Note        string
	Date        string
	ActorID     string
}

// TrackActivity upserts the day's metric and refreshes the stored risk
// score in the same transaction. When no explicit sentiment is given but a
// note is, the note's sentiment stands in.
func (e Engine) TrackActivity(ctx context.Context, opts ActivityOptions) (domain.DailyMetric, error) {
	if _, err := e.GetEmployee(ctx, opts.EmployeeID); err != nil {
		return domain.DailyMetric{}, err
	}
	if opts.HoursWorked < 0 || opts.HoursWorked > 24 {
		return domain.DailyMetric{}, ValidationError{Msg: "hours_worked must be between 0 and 24"}
	}
	if opts.BreaksTaken < 0 {
		return domain.DailyMetric{}, ValidationError{Msg: "breaks_taken must not be negative"}
	}
	sentiment := opts.Sentiment
	if sentiment != nil && (*sentiment < -1 || *sentiment > 1) {
		return domain.DailyMetric{}, ValidationError{Msg: "sentiment must be between -1 and 1"}
	}
	if sentiment == nil && opts.Note != "" {
		s := textkit.SentimentScore(opts.Note)
		sentiment = &s
	}
	date := opts.Date
	if date == "" {
		date = e.now().UTC().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return domain.DailyMetric{}, ValidationError{Msg: "date must be formatted YYYY-MM-DD"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DailyMetric{}, err
	}
	defer tx.Rollback()
	metric, err := e.Repo.UpsertActivityTx(ctx, tx, domain.DailyMetric{
		ID:             uuid.NewString(),
		EmployeeID:     opts.EmployeeID,
		Date:           date,
		HoursWorked:    opts.HoursWorked,
		BreaksTaken:    opts.BreaksTaken,
		SentimentScore: sentiment,
		CreatedAt:      e.timestamp(),
	})
	if err != nil {
		return domain.DailyMetric{}, err
	}
	score, _, err := e.riskScoreTx(ctx, tx, opts.EmployeeID, 7)
	if err != nil {
		return domain.DailyMetric{}, err
	}
	if err := e.Repo.SetRiskScoreTx(ctx, tx, metric.ID, score); err != nil {
		return domain.DailyMetric{}, err
	}
	metric.RiskScore = &score
	if err := e.Events.Append(ctx, tx, "metric.tracked", "employee", opts.EmployeeID, opts.ActorID, events.EventPayload{"date": date, "hours_worked": opts.HoursWorked}); err != nil {
		return domain.DailyMetric{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DailyMetric{}, err
	}
	return metric, nil
}

// MetricHistory lists the employee's daily metrics over the trailing
// window, most recent first.
func (e Engine) MetricHistory(ctx context.Context, employeeID string, days int) ([]domain.DailyMetric, error) {
	if _, err := e.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	return e.Repo.MetricHistory(ctx, employeeID, e.sinceDate(days))
}
