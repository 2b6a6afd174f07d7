package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"teampulse/internal/domain"
	"teampulse/internal/events"
	"teampulse/internal/repo"
)

var achievementTypes = map[string]bool{
	"deliverable":     true,
	"innovation":      true,
	"client_feedback": true,
	"collaboration":   true,
	"learning":        true,
}

// RecognitionSummary aggregates an employee's achievements over a window.
type RecognitionSummary struct {
	TotalAchievements   int                      `json:"total_achievements"`
	RecognizedByManager int                      `json:"recognized_by_manager"`
	RecognitionRate     float64                  `json:"recognition_rate"`
	AverageImpactScore  float64                  `json:"average_impact_score"`
	ByType              map[string]TypeBreakdown `json:"by_type"`
}

type TypeBreakdown struct {
	Count     int     `json:"count"`
	AvgImpact float64 `json:"avg_impact"`
}

// RecognitionOpportunity points a manager at recognition they are sitting
// on: either an employee with a poor recognition rate or a single
// high-impact achievement.
type RecognitionOpportunity struct {
	EmployeeID        string   `json:"employee_id"`
	EmployeeName      string   `json:"employee_name"`
	Reason            string   `json:"reason"`
	AchievementCount  int      `json:"achievement_count,omitempty"`
	UnrecognizedCount int      `json:"unrecognized_count,omitempty"`
	AchievementID     string   `json:"achievement_id,omitempty"`
	ImpactScore       *float64 `json:"impact_score,omitempty"`
}

func (e Engine) sinceTimestamp(days int) string {
	return e.now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
}

func (e Engine) newAchievement(employeeID, achievementType, description string, impact float64, relatedTaskID *string) domain.Achievement {
	return domain.Achievement{
		ID:            uuid.NewString(),
		EmployeeID:    employeeID,
		Type:          achievementType,
		Description:   description,
		ImpactScore:   impact,
		RelatedTaskID: relatedTaskID,
		CreatedAt:     e.timestamp(),
	}
}

// DetectAchievements scans the employee's completions from the last 24
// hours and records the achievements the rules find: high-priority
// deliverables, substantially-early finishes, efficient execution, and a
// productivity bonus at three or more completions. Re-running detects the
// same achievements again; there is no dedup.
func (e Engine) DetectAchievements(ctx context.Context, employeeID, actorID string) ([]domain.Achievement, error) {
	if _, err := e.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	since := e.now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	completed, err := e.Repo.CompletedTasksSince(ctx, employeeID, since)
	if err != nil {
		return nil, err
	}
	found := []domain.Achievement{}
	for _, t := range completed {
		taskID := t.ID
		if t.PriorityScore != nil && *t.PriorityScore >= 0.8 {
			found = append(found, e.newAchievement(employeeID, "deliverable",
				fmt.Sprintf("Completed high-priority task: %s", t.Title), *t.PriorityScore, &taskID))
		}
		if t.Deadline != nil && t.CompletedAt != nil {
			due, dueErr := time.Parse(time.RFC3339, *t.Deadline)
			done, doneErr := time.Parse(time.RFC3339, *t.CompletedAt)
			if dueErr == nil && doneErr == nil && done.Before(due) {
				daysEarly := int(math.Floor(due.Sub(done).Hours() / 24))
				if daysEarly >= 2 {
					found = append(found, e.newAchievement(employeeID, "innovation",
						fmt.Sprintf("Completed task %d days ahead of deadline: %s", daysEarly, t.Title),
						math.Min(0.8, 0.5+float64(daysEarly)*0.05), &taskID))
				}
			}
		}
		if t.ActualEffort != nil && *t.ActualEffort > 0 && t.EstimatedEffort != nil && *t.EstimatedEffort > 0 &&
			*t.ActualEffort < *t.EstimatedEffort*0.8 {
			found = append(found, e.newAchievement(employeeID, "innovation",
				fmt.Sprintf("Completed task efficiently (20%%+ under estimate): %s", t.Title), 0.7, &taskID))
		}
	}
	if len(completed) >= 3 {
		found = append(found, e.newAchievement(employeeID, "deliverable",
			fmt.Sprintf("High productivity: Completed %d tasks today", len(completed)), 0.8, nil))
	}
	if len(found) == 0 {
		return found, nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	for _, a := range found {
		if err := e.Repo.InsertAchievementTx(ctx, tx, a); err != nil {
			return nil, err
		}
		if err := e.Events.Append(ctx, tx, "achievement.detected", "achievement", a.ID, actorID, events.EventPayload{"type": a.Type, "impact_score": a.ImpactScore}); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return found, nil
}

type AchievementRecordOptions struct {
	EmployeeID    string
	Type          string
	Description   string
	ImpactScore   *float64
	RelatedTaskID string
	ActorID       string
}

// RecordAchievement creates an achievement by hand, outside the detection
// rules. Impact defaults to 0.5.
func (e Engine) RecordAchievement(ctx context.Context, opts AchievementRecordOptions) (domain.Achievement, error) {
	if _, err := e.GetEmployee(ctx, opts.EmployeeID); err != nil {
		return domain.Achievement{}, err
	}
	if !achievementTypes[opts.Type] {
		return domain.Achievement{}, ValidationError{Msg: fmt.Sprintf("invalid achievement type %s", opts.Type)}
	}
	if opts.Description == "" {
		return domain.Achievement{}, ValidationError{Msg: "description is required"}
	}
	impact := 0.5
	if opts.ImpactScore != nil {
		impact = *opts.ImpactScore
	}
	if impact < 0 || impact > 1 {
		return domain.Achievement{}, ValidationError{Msg: "impact_score must be between 0 and 1"}
	}
	var relatedTask *string
	if opts.RelatedTaskID != "" {
		if _, err := e.GetTask(ctx, opts.RelatedTaskID); err != nil {
			return domain.Achievement{}, err
		}
		relatedTask = &opts.RelatedTaskID
	}
	a := e.newAchievement(opts.EmployeeID, opts.Type, opts.Description, impact, relatedTask)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Achievement{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAchievementTx(ctx, tx, a); err != nil {
		return domain.Achievement{}, err
	}
	if err := e.Events.Append(ctx, tx, "achievement.recorded", "achievement", a.ID, opts.ActorID, events.EventPayload{"type": a.Type, "impact_score": a.ImpactScore}); err != nil {
		return domain.Achievement{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Achievement{}, err
	}
	return a, nil
}

// RecognizeAchievement marks an achievement as recognized with a manager
// note. Recognizing again replaces the note.
func (e Engine) RecognizeAchievement(ctx context.Context, achievementID, note, actorID string) (domain.Achievement, error) {
	if note == "" {
		return domain.Achievement{}, ValidationError{Msg: "recognition_note is required"}
	}
	a, err := e.Repo.GetAchievement(ctx, achievementID)
	if err != nil {
		return domain.Achievement{}, asNotFound(err, "Achievement not found")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Achievement{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.RecognizeTx(ctx, tx, achievementID, note); err != nil {
		return domain.Achievement{}, asNotFound(err, "Achievement not found")
	}
	if err := e.Events.Append(ctx, tx, "achievement.recognized", "achievement", achievementID, actorID, events.EventPayload{"employee_id": a.EmployeeID}); err != nil {
		return domain.Achievement{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Achievement{}, err
	}
	a.RecognizedByManager = true
	a.RecognitionNote = &note
	return a, nil
}

// ListAchievements returns the employee's achievements over the window,
// newest first, optionally narrowed to one type.
func (e Engine) ListAchievements(ctx context.Context, employeeID string, days int, achievementType string) ([]domain.Achievement, error) {
	if _, err := e.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	if achievementType != "" && !achievementTypes[achievementType] {
		return nil, ValidationError{Msg: fmt.Sprintf("invalid achievement type %s", achievementType)}
	}
	if days <= 0 {
		days = 30
	}
	rows, err := e.Repo.AchievementsSince(ctx, employeeID, e.sinceTimestamp(days))
	if err != nil {
		return nil, err
	}
	if achievementType == "" {
		return rows, nil
	}
	filtered := rows[:0]
	for _, a := range rows {
		if a.Type == achievementType {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// AchievementSummary aggregates the employee's achievements over the
// window: totals, recognition rate as a percentage, average impact, and a
// per-type breakdown.
func (e Engine) AchievementSummary(ctx context.Context, employeeID string, days int) (RecognitionSummary, error) {
	if _, err := e.GetEmployee(ctx, employeeID); err != nil {
		return RecognitionSummary{}, err
	}
	if days <= 0 {
		days = 30
	}
	return e.achievementSummary(ctx, employeeID, days)
}

func (e Engine) achievementSummary(ctx context.Context, employeeID string, days int) (RecognitionSummary, error) {
	rows, err := e.Repo.AchievementsSince(ctx, employeeID, e.sinceTimestamp(days))
	if err != nil {
		return RecognitionSummary{}, err
	}
	summary := RecognitionSummary{ByType: map[string]TypeBreakdown{}}
	var impactSum float64
	typeImpact := map[string]float64{}
	for _, a := range rows {
		summary.TotalAchievements++
		if a.RecognizedByManager {
			summary.RecognizedByManager++
		}
		impactSum += a.ImpactScore
		b := summary.ByType[a.Type]
		b.Count++
		summary.ByType[a.Type] = b
		typeImpact[a.Type] += a.ImpactScore
	}
	if summary.TotalAchievements > 0 {
		summary.RecognitionRate = float64(summary.RecognizedByManager) / float64(summary.TotalAchievements) * 100
		summary.AverageImpactScore = impactSum / float64(summary.TotalAchievements)
	}
	for t, b := range summary.ByType {
		b.AvgImpact = typeImpact[t] / float64(b.Count)
		summary.ByType[t] = b
	}
	return summary, nil
}

// UnrecognizedAchievements lists significant (impact >= 0.6) achievements
// still waiting on manager recognition, highest impact first, optionally
// scoped to one team.
func (e Engine) UnrecognizedAchievements(ctx context.Context, teamID string, days int) ([]repo.UnrecognizedAchievement, error) {
	if days <= 0 {
		days = 7
	}
	return e.Repo.UnrecognizedAchievements(ctx, teamID, e.sinceTimestamp(days))
}

// RecognitionOpportunities surfaces what a team's manager should recognize:
// members with three or more achievements in 30 days but under 50%
// recognition, then up to five recent unrecognized achievements with impact
// at or above 0.8.
func (e Engine) RecognitionOpportunities(ctx context.Context, teamID string) ([]RecognitionOpportunity, error) {
	members, err := e.Repo.TeamMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	opportunities := []RecognitionOpportunity{}
	for _, m := range members {
		summary, err := e.achievementSummary(ctx, m.ID, 30)
		if err != nil {
			return nil, err
		}
		if summary.TotalAchievements >= 3 && summary.RecognitionRate < 50 {
			opportunities = append(opportunities, RecognitionOpportunity{
				EmployeeID:        m.ID,
				EmployeeName:      m.Name,
				Reason:            fmt.Sprintf("Has %d achievements but only %.0f%% recognition rate", summary.TotalAchievements, summary.RecognitionRate),
				AchievementCount:  summary.TotalAchievements,
				UnrecognizedCount: summary.TotalAchievements - summary.RecognizedByManager,
			})
		}
	}
	unrecognized, err := e.UnrecognizedAchievements(ctx, teamID, 7)
	if err != nil {
		return nil, err
	}
	if len(unrecognized) > 5 {
		unrecognized = unrecognized[:5]
	}
	for _, u := range unrecognized {
		if u.ImpactScore < 0.8 {
			continue
		}
		impact := u.ImpactScore
		opportunities = append(opportunities, RecognitionOpportunity{
			EmployeeID:    u.EmployeeID,
			EmployeeName:  u.EmployeeName,
			Reason:        "High-impact achievement: " + truncateRunes(u.Description, 100),
			AchievementID: u.AchievementID,
			ImpactScore:   &impact,
		})
	}
	return opportunities, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
