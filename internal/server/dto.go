package server

import (
	"encoding/json"

	"teampulse/internal/domain"
	"teampulse/internal/engine"
	"teampulse/internal/engine/textkit"
	"teampulse/internal/repo"
)

// Request payloads

type CreateEmployeeRequest struct {
	Name                string             `json:"name"`
	Email               string             `json:"email" format:"email"`
	Role                string             `json:"role"`
	TeamID              *string            `json:"team_id,omitempty"`
	ProductivityPeriods map[string]float64 `json:"productivity_periods,omitempty"`
}

type UpdateEmployeeRequest struct {
	Name                *string            `json:"name,omitempty"`
	Email               *string            `json:"email,omitempty" format:"email"`
	Role                *string            `json:"role,omitempty"`
	TeamID              *string            `json:"team_id,omitempty"`
	ProductivityPeriods map[string]float64 `json:"productivity_periods,omitempty"`
}

type CreateTeamRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ManagerID   *string `json:"manager_id,omitempty"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ManagerID   *string `json:"manager_id,omitempty"`
}

type CreateTaskRequest struct {
	Title           string         `json:"title"`
	Description     *string        `json:"description,omitempty"`
	AssignedTo      *string        `json:"assigned_to,omitempty"`
	CreatedBy       *string        `json:"created_by,omitempty"`
	Urgency         *int           `json:"urgency,omitempty" minimum:"1" maximum:"5"`
	Deadline        *string        `json:"deadline,omitempty" format:"date-time"`
	EstimatedEffort *float64       `json:"estimated_effort,omitempty" minimum:"0"`
	Dependencies    []string       `json:"dependencies,omitempty"`
	Source          string         `json:"source,omitempty" enum:"email,meeting,manual,calendar"`
	SourceMetadata  map[string]any `json:"source_metadata,omitempty"`
}

type UpdateTaskRequest struct {
	Title           *string  `json:"title,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Status          *string  `json:"status,omitempty" enum:"pending,in_progress,completed,blocked,cancelled"`
	Source          *string  `json:"source,omitempty" enum:"email,meeting,manual,calendar"`
	AssignedTo      *string  `json:"assigned_to,omitempty"`
	Urgency         *int     `json:"urgency,omitempty" minimum:"1" maximum:"5"`
	Deadline        *string  `json:"deadline,omitempty" format:"date-time"`
	EstimatedEffort *float64 `json:"estimated_effort,omitempty" minimum:"0"`
	ActualEffort    *float64 `json:"actual_effort,omitempty" minimum:"0"`
	Dependencies    []string `json:"dependencies,omitempty"`
}

type ExtractTasksRequest struct {
	SourceType string `json:"source_type"`
	Content    string `json:"content"`
}

type TrackActivityRequest struct {
	Date           string   `json:"date,omitempty" format:"date"`
	HoursWorked    float64  `json:"hours_worked" minimum:"0" maximum:"24"`
	BreaksTaken    int      `json:"breaks_taken,omitempty" minimum:"0"`
	SentimentScore *float64 `json:"sentiment_score,omitempty" minimum:"-1" maximum:"1"`
	Note           string   `json:"note,omitempty"`
}

type ScheduleRequest struct {
	TaskIDs   []string `json:"task_ids,omitempty"`
	StartTime *string  `json:"start_time,omitempty" format:"date-time"`
}

type RecordAchievementRequest struct {
	EmployeeID    string   `json:"employee_id"`
	Type          string   `json:"type" enum:"deliverable,innovation,client_feedback,collaboration,learning"`
	Description   string   `json:"description"`
	ImpactScore   *float64 `json:"impact_score,omitempty" minimum:"0" maximum:"1"`
	RelatedTaskID *string  `json:"related_task_id,omitempty"`
}

type RecognizeAchievementRequest struct {
	RecognitionNote string `json:"recognition_note"`
}

type CreateSkillRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category" enum:"technical,soft_skill,domain"`
	Description string `json:"description,omitempty"`
}

type AssignSkillRequest struct {
	SkillID string `json:"skill_id"`
	Level   string `json:"level" enum:"beginner,intermediate,expert"`
}

type SentimentRequest struct {
	Text string `json:"text"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles,omitempty"`
}

// Response payloads

type EmployeeResponse struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	Email               string             `json:"email"`
	Role                string             `json:"role"`
	TeamID              *string            `json:"team_id,omitempty"`
	ProductivityPeriods map[string]float64 `json:"productivity_periods,omitempty"`
	CreatedAt           string             `json:"created_at" format:"date-time"`
	UpdatedAt           string             `json:"updated_at" format:"date-time"`
}

type EmployeeStatsResponse struct {
	EmployeeResponse
	ActiveTasksCount    int      `json:"active_tasks_count"`
	CompletedTasksCount int      `json:"completed_tasks_count"`
	CurrentWorkload     float64  `json:"current_workload"`
	BurnoutRiskScore    *float64 `json:"burnout_risk_score,omitempty"`
	SkillsCount         int      `json:"skills_count"`
}

type TeamResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ManagerID   *string `json:"manager_id,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

type TaskResponse struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Status          string         `json:"status" enum:"pending,in_progress,completed,blocked,cancelled"`
	Source          string         `json:"source" enum:"email,meeting,manual,calendar"`
	SourceMetadata  map[string]any `json:"source_metadata,omitempty"`
	AssignedTo      *string        `json:"assigned_to,omitempty"`
	CreatedBy       string         `json:"created_by"`
	Urgency         int            `json:"urgency"`
	Deadline        *string        `json:"deadline,omitempty" format:"date-time"`
	EstimatedEffort *float64       `json:"estimated_effort,omitempty"`
	ActualEffort    *float64       `json:"actual_effort,omitempty"`
	PriorityScore   *float64       `json:"priority_score,omitempty"`
	Dependencies    []string       `json:"dependencies"`
	CreatedAt       string         `json:"created_at" format:"date-time"`
	UpdatedAt       string         `json:"updated_at" format:"date-time"`
	CompletedAt     *string        `json:"completed_at,omitempty" format:"date-time"`
}

type TaskCandidateResponse struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Urgency         int     `json:"urgency"`
	EstimatedEffort float64 `json:"estimated_effort"`
	Deadline        *string `json:"deadline,omitempty" format:"date-time"`
	Confidence      float64 `json:"confidence"`
}

type MetricResponse struct {
	ID                 string   `json:"id"`
	EmployeeID         string   `json:"employee_id"`
	Date               string   `json:"date" format:"date"`
	HoursWorked        float64  `json:"hours_worked"`
	BreaksTaken        int      `json:"breaks_taken"`
	CognitiveLoad      float64  `json:"cognitive_load"`
	SocialInteractions int      `json:"social_interactions"`
	TaskCompletionRate float64  `json:"task_completion_rate"`
	SentimentScore     *float64 `json:"sentiment_score,omitempty"`
	RiskScore          *float64 `json:"risk_score,omitempty"`
	CreatedAt          string   `json:"created_at" format:"date-time"`
}

type BurnoutReportResponse struct {
	EmployeeID       string             `json:"employee_id"`
	CurrentRiskScore float64            `json:"current_risk_score"`
	RiskLevel        string             `json:"risk_level" enum:"low,medium,high,critical"`
	Factors          map[string]float64 `json:"factors"`
	Recommendations  []string           `json:"recommendations"`
	Trend            string             `json:"trend" enum:"improving,stable,declining"`
}

type InterventionActionResponse struct {
	Action   string   `json:"action"`
	Severity string   `json:"severity"`
	Tasks    []string `json:"tasks,omitempty"`
}

type InterventionReportResponse struct {
	EmployeeID string                       `json:"employee_id"`
	RiskScore  float64                      `json:"risk_score"`
	RiskLevel  string                       `json:"risk_level" enum:"low,medium,high,critical"`
	Actions    []InterventionActionResponse `json:"actions"`
}

type ScheduleSlotResponse struct {
	TaskID         string  `json:"task_id"`
	TaskTitle      string  `json:"task_title"`
	PriorityScore  float64 `json:"priority_score"`
	SuggestedStart string  `json:"suggested_start" format:"date-time"`
	SuggestedEnd   string  `json:"suggested_end" format:"date-time"`
	Urgency        int     `json:"urgency"`
	Deadline       *string `json:"deadline,omitempty" format:"date-time"`
}

type RecalculateResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type MemberWorkloadResponse struct {
	EmployeeID     string  `json:"employee_id"`
	EmployeeName   string  `json:"employee_name"`
	CumulativeLoad float64 `json:"cumulative_load"`
	CriticalScore  float64 `json:"critical_score"`
	GlobalScore    float64 `json:"global_score"`
	ActiveTasks    int     `json:"active_tasks"`
	HighPriority   int     `json:"high_priority"`
}

type EquityReportResponse struct {
	TeamID          string                   `json:"team_id"`
	TeamName        string                   `json:"team_name"`
	EquityScore     float64                  `json:"equity_score"`
	MemberWorkloads []MemberWorkloadResponse `json:"member_workloads"`
	Recommendations []string                 `json:"recommendations"`
}

type TransferSuggestionResponse struct {
	TaskID          string   `json:"task_id"`
	TaskTitle       string   `json:"task_title"`
	FromEmployee    string   `json:"from_employee"`
	ToEmployee      string   `json:"to_employee"`
	PriorityScore   *float64 `json:"priority_score,omitempty"`
	EstimatedEffort *float64 `json:"estimated_effort,omitempty"`
}

type RedistributeResponse struct {
	Suggestions  []TransferSuggestionResponse `json:"suggestions"`
	AutoAssigned bool                         `json:"auto_assigned"`
	Count        int                          `json:"count"`
}

type AssignmentSuggestionResponse struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
}

type AchievementResponse struct {
	ID                  string  `json:"id"`
	EmployeeID          string  `json:"employee_id"`
	Type                string  `json:"type" enum:"deliverable,innovation,client_feedback,collaboration,learning"`
	Description         string  `json:"description"`
	ImpactScore         float64 `json:"impact_score"`
	RecognizedByManager bool    `json:"recognized_by_manager"`
	RecognitionNote     *string `json:"recognition_note,omitempty"`
	RelatedTaskID       *string `json:"related_task_id,omitempty"`
	CreatedAt           string  `json:"created_at" format:"date-time"`
}

type DetectAchievementsResponse struct {
	DetectedAchievements int                   `json:"detected_achievements"`
	Achievements         []AchievementResponse `json:"achievements"`
}

type TypeBreakdownResponse struct {
	Count     int     `json:"count"`
	AvgImpact float64 `json:"avg_impact"`
}

type AchievementSummaryResponse struct {
	TotalAchievements   int                              `json:"total_achievements"`
	RecognizedByManager int                              `json:"recognized_by_manager"`
	RecognitionRate     float64                          `json:"recognition_rate"`
	AverageImpactScore  float64                          `json:"average_impact_score"`
	ByType              map[string]TypeBreakdownResponse `json:"by_type"`
}

type UnrecognizedAchievementResponse struct {
	AchievementID string  `json:"achievement_id"`
	EmployeeID    string  `json:"employee_id"`
	EmployeeName  string  `json:"employee_name"`
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	ImpactScore   float64 `json:"impact_score"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type RecognitionOpportunityResponse struct {
	EmployeeID        string   `json:"employee_id"`
	EmployeeName      string   `json:"employee_name"`
	Reason            string   `json:"reason"`
	AchievementCount  int      `json:"achievement_count,omitempty"`
	UnrecognizedCount int      `json:"unrecognized_count,omitempty"`
	AchievementID     string   `json:"achievement_id,omitempty"`
	ImpactScore       *float64 `json:"impact_score,omitempty"`
}

type SkillResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category" enum:"technical,soft_skill,domain"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type EmployeeSkillResponse struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	SkillID       string `json:"skill_id"`
	Level         string `json:"level" enum:"beginner,intermediate,expert"`
	SkillName     string `json:"skill_name,omitempty"`
	SkillCategory string `json:"skill_category,omitempty"`
}

type SentimentResponse struct {
	Score            float64  `json:"score"`
	Category         string   `json:"category" enum:"positive,neutral,negative"`
	Confidence       float64  `json:"confidence"`
	PositiveKeywords []string `json:"positive_keywords"`
	NegativeKeywords []string `json:"negative_keywords"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type MeResponse struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles"`
	Source  string   `json:"source"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type paginatedEmployees struct {
	Items      []EmployeeResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type paginatedTasks struct {
	Items      []TaskResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func employeeResponse(emp domain.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:                  emp.ID,
		Name:                emp.Name,
		Email:               emp.Email,
		Role:                emp.Role,
		TeamID:              emp.TeamID,
		ProductivityPeriods: decodeFloatMap(emp.ProductivityJSON),
		CreatedAt:           emp.CreatedAt,
		UpdatedAt:           emp.UpdatedAt,
	}
}

func employeeStatsResponse(o engine.EmployeeOverview) EmployeeStatsResponse {
	return EmployeeStatsResponse{
		EmployeeResponse:    employeeResponse(o.Employee),
		ActiveTasksCount:    o.ActiveTasks,
		CompletedTasksCount: o.CompletedTasks,
		CurrentWorkload:     o.CurrentWorkload,
		BurnoutRiskScore:    o.BurnoutRisk,
		SkillsCount:         o.SkillsCount,
	}
}

func teamResponse(t domain.Team) TeamResponse {
	return TeamResponse(t)
}

func taskResponse(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		Source:          t.Source,
		SourceMetadata:  decodeJSONMap(t.SourceMetaJSON),
		AssignedTo:      t.AssignedTo,
		CreatedBy:       t.CreatedBy,
		Urgency:         t.Urgency,
		Deadline:        t.Deadline,
		EstimatedEffort: t.EstimatedEffort,
		ActualEffort:    t.ActualEffort,
		PriorityScore:   t.PriorityScore,
		Dependencies:    nonNilSlice(t.Dependencies),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		CompletedAt:     t.CompletedAt,
	}
}

func metricResponse(m domain.DailyMetric) MetricResponse {
	return MetricResponse(m)
}

func burnoutResponse(r engine.RiskReport) BurnoutReportResponse {
	return BurnoutReportResponse{
		EmployeeID:       r.EmployeeID,
		CurrentRiskScore: r.CurrentRiskScore,
		RiskLevel:        r.RiskLevel,
		Factors:          r.Factors,
		Recommendations:  nonNilSlice(r.Recommendations),
		Trend:            r.Trend,
	}
}

func interventionResponse(r engine.InterventionReport) InterventionReportResponse {
	actions := make([]InterventionActionResponse, 0, len(r.Actions))
	for _, a := range r.Actions {
		actions = append(actions, InterventionActionResponse(a))
	}
	return InterventionReportResponse{
		EmployeeID: r.EmployeeID,
		RiskScore:  r.RiskScore,
		RiskLevel:  r.RiskLevel,
		Actions:    actions,
	}
}

func slotResponses(slots []engine.ScheduleSlot) []ScheduleSlotResponse {
	res := make([]ScheduleSlotResponse, 0, len(slots))
	for _, s := range slots {
		res = append(res, ScheduleSlotResponse(s))
	}
	return res
}

func equityResponse(r engine.EquityReport) EquityReportResponse {
	members := make([]MemberWorkloadResponse, 0, len(r.MemberWorkloads))
	for _, m := range r.MemberWorkloads {
		members = append(members, MemberWorkloadResponse(m))
	}
	return EquityReportResponse{
		TeamID:          r.TeamID,
		TeamName:        r.TeamName,
		EquityScore:     r.EquityScore,
		MemberWorkloads: members,
		Recommendations: nonNilSlice(r.Recommendations),
	}
}

func transferResponses(suggestions []engine.TransferSuggestion) []TransferSuggestionResponse {
	res := make([]TransferSuggestionResponse, 0, len(suggestions))
	for _, s := range suggestions {
		res = append(res, TransferSuggestionResponse(s))
	}
	return res
}

func achievementResponse(a domain.Achievement) AchievementResponse {
	return AchievementResponse(a)
}

func mapAchievements(items []domain.Achievement) []AchievementResponse {
	res := make([]AchievementResponse, 0, len(items))
	for _, a := range items {
		res = append(res, achievementResponse(a))
	}
	return res
}

func summaryResponse(s engine.RecognitionSummary) AchievementSummaryResponse {
	byType := make(map[string]TypeBreakdownResponse, len(s.ByType))
	for k, v := range s.ByType {
		byType[k] = TypeBreakdownResponse(v)
	}
	return AchievementSummaryResponse{
		TotalAchievements:   s.TotalAchievements,
		RecognizedByManager: s.RecognizedByManager,
		RecognitionRate:     s.RecognitionRate,
		AverageImpactScore:  s.AverageImpactScore,
		ByType:              byType,
	}
}

func mapUnrecognized(items []repo.UnrecognizedAchievement) []UnrecognizedAchievementResponse {
	res := make([]UnrecognizedAchievementResponse, 0, len(items))
	for _, u := range items {
		res = append(res, UnrecognizedAchievementResponse(u))
	}
	return res
}

func mapOpportunities(items []engine.RecognitionOpportunity) []RecognitionOpportunityResponse {
	res := make([]RecognitionOpportunityResponse, 0, len(items))
	for _, o := range items {
		res = append(res, RecognitionOpportunityResponse(o))
	}
	return res
}

func skillResponse(s domain.Skill) SkillResponse {
	return SkillResponse(s)
}

func employeeSkillResponse(s domain.EmployeeSkill) EmployeeSkillResponse {
	return EmployeeSkillResponse(s)
}

func mapCandidates(items []textkit.Candidate) []TaskCandidateResponse {
	res := make([]TaskCandidateResponse, 0, len(items))
	for _, c := range items {
		res = append(res, TaskCandidateResponse(c))
	}
	return res
}

func sentimentResponse(s textkit.Sentiment) SentimentResponse {
	return SentimentResponse{
		Score:            s.Score,
		Category:         s.Category,
		Confidence:       s.Confidence,
		PositiveKeywords: nonNilSlice(s.PositiveKeywords),
		NegativeKeywords: nonNilSlice(s.NegativeKeywords),
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(strPtr(e.Payload)),
	}
}

func mapEmployees(items []domain.Employee) []EmployeeResponse {
	res := make([]EmployeeResponse, 0, len(items))
	for _, emp := range items {
		res = append(res, employeeResponse(emp))
	}
	return res
}

func mapTasks(items []domain.Task) []TaskResponse {
	res := make([]TaskResponse, 0, len(items))
	for _, t := range items {
		res = append(res, taskResponse(t))
	}
	return res
}

func mapTeams(items []domain.Team) []TeamResponse {
	res := make([]TeamResponse, 0, len(items))
	for _, t := range items {
		res = append(res, teamResponse(t))
	}
	return res
}

func mapMetrics(items []domain.DailyMetric) []MetricResponse {
	res := make([]MetricResponse, 0, len(items))
	for _, m := range items {
		res = append(res, metricResponse(m))
	}
	return res
}

func mapSkills(items []domain.Skill) []SkillResponse {
	res := make([]SkillResponse, 0, len(items))
	for _, s := range items {
		res = append(res, skillResponse(s))
	}
	return res
}

func mapEmployeeSkills(items []domain.EmployeeSkill) []EmployeeSkillResponse {
	res := make([]EmployeeSkillResponse, 0, len(items))
	for _, s := range items {
		res = append(res, employeeSkillResponse(s))
	}
	return res
}

// JSON helpers

func decodeJSONMap(raw *string) map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(*raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func decodeFloatMap(raw string) map[string]float64 {
	if raw == "" {
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func strPtr(in string) *string {
	return &in
}
