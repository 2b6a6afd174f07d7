package teampulsesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal TeamPulse HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	ActorID     string // legacy X-Actor-Id header, only honored by dev servers
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. baseURL includes the API base
// path, e.g. http://127.0.0.1:8484/api/v1.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Employee mirrors the API employee model.
type Employee struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	Email               string             `json:"email"`
	Role                string             `json:"role"`
	TeamID              *string            `json:"team_id,omitempty"`
	ProductivityPeriods map[string]float64 `json:"productivity_periods,omitempty"`
	CreatedAt           string             `json:"created_at"`
	UpdatedAt           string             `json:"updated_at"`
}

// EmployeeStats is the employee plus computed counters.
type EmployeeStats struct {
	Employee
	ActiveTasksCount    int      `json:"active_tasks_count"`
	CompletedTasksCount int      `json:"completed_tasks_count"`
	CurrentWorkload     float64  `json:"current_workload"`
	BurnoutRiskScore    *float64 `json:"burnout_risk_score,omitempty"`
	SkillsCount         int      `json:"skills_count"`
}

// Team mirrors the API team model.
type Team struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ManagerID   *string `json:"manager_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// Task mirrors the API task model.
type Task struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Status          string         `json:"status"`
	Source          string         `json:"source"`
	SourceMetadata  map[string]any `json:"source_metadata,omitempty"`
	AssignedTo      *string        `json:"assigned_to,omitempty"`
	CreatedBy       string         `json:"created_by"`
	Urgency         int            `json:"urgency"`
	Deadline        *string        `json:"deadline,omitempty"`
	EstimatedEffort *float64       `json:"estimated_effort,omitempty"`
	ActualEffort    *float64       `json:"actual_effort,omitempty"`
	PriorityScore   *float64       `json:"priority_score,omitempty"`
	Dependencies    []string       `json:"dependencies"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
	CompletedAt     *string        `json:"completed_at,omitempty"`
}

// TaskCandidate is one task suggestion extracted from text.
type TaskCandidate struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Urgency         int     `json:"urgency"`
	EstimatedEffort float64 `json:"estimated_effort"`
	Deadline        *string `json:"deadline,omitempty"`
	Confidence      float64 `json:"confidence"`
}

// Metric is one day of tracked activity.
type Metric struct {
	ID                 string   `json:"id"`
	EmployeeID         string   `json:"employee_id"`
	Date               string   `json:"date"`
	HoursWorked        float64  `json:"hours_worked"`
	BreaksTaken        int      `json:"breaks_taken"`
	CognitiveLoad      float64  `json:"cognitive_load"`
	SocialInteractions int      `json:"social_interactions"`
	TaskCompletionRate float64  `json:"task_completion_rate"`
	SentimentScore     *float64 `json:"sentiment_score,omitempty"`
	RiskScore          *float64 `json:"risk_score,omitempty"`
	CreatedAt          string   `json:"created_at"`
}

// BurnoutReport is the risk analysis for one employee.
type BurnoutReport struct {
	EmployeeID       string             `json:"employee_id"`
	CurrentRiskScore float64            `json:"current_risk_score"`
	RiskLevel        string             `json:"risk_level"`
	Factors          map[string]float64 `json:"factors"`
	Recommendations  []string           `json:"recommendations"`
	Trend            string             `json:"trend"`
}

// InterventionAction is one recommended intervention.
type InterventionAction struct {
	Action   string   `json:"action"`
	Severity string   `json:"severity"`
	Tasks    []string `json:"tasks,omitempty"`
}

// InterventionReport lists the interventions triggered for an employee.
type InterventionReport struct {
	EmployeeID string               `json:"employee_id"`
	RiskScore  float64              `json:"risk_score"`
	RiskLevel  string               `json:"risk_level"`
	Actions    []InterventionAction `json:"actions"`
}

// MemberWorkload is one team member's share of the load.
type MemberWorkload struct {
	EmployeeID     string  `json:"employee_id"`
	EmployeeName   string  `json:"employee_name"`
	CumulativeLoad float64 `json:"cumulative_load"`
	CriticalScore  float64 `json:"critical_score"`
	GlobalScore    float64 `json:"global_score"`
	ActiveTasks    int     `json:"active_tasks"`
	HighPriority   int     `json:"high_priority"`
}

// EquityReport scores how evenly work is spread across a team.
type EquityReport struct {
	TeamID          string           `json:"team_id"`
	TeamName        string           `json:"team_name"`
	EquityScore     float64          `json:"equity_score"`
	MemberWorkloads []MemberWorkload `json:"member_workloads"`
	Recommendations []string         `json:"recommendations"`
}

// TransferSuggestion proposes moving one task between members.
type TransferSuggestion struct {
	TaskID          string   `json:"task_id"`
	TaskTitle       string   `json:"task_title"`
	FromEmployee    string   `json:"from_employee"`
	ToEmployee      string   `json:"to_employee"`
	PriorityScore   *float64 `json:"priority_score,omitempty"`
	EstimatedEffort *float64 `json:"estimated_effort,omitempty"`
}

// RedistributeResult is the outcome of a redistribution run.
type RedistributeResult struct {
	Suggestions  []TransferSuggestion `json:"suggestions"`
	AutoAssigned bool                 `json:"auto_assigned"`
	Count        int                  `json:"count"`
}

// AssignmentSuggestion names the best assignee for a task.
type AssignmentSuggestion struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
}

// ScheduleSlot is one suggested working slot.
type ScheduleSlot struct {
	TaskID         string  `json:"task_id"`
	TaskTitle      string  `json:"task_title"`
	PriorityScore  float64 `json:"priority_score"`
	SuggestedStart string  `json:"suggested_start"`
	SuggestedEnd   string  `json:"suggested_end"`
	Urgency        int     `json:"urgency"`
	Deadline       *string `json:"deadline,omitempty"`
}

// Achievement mirrors the API achievement model.
type Achievement struct {
	ID                  string  `json:"id"`
	EmployeeID          string  `json:"employee_id"`
	Type                string  `json:"type"`
	Description         string  `json:"description"`
	ImpactScore         float64 `json:"impact_score"`
	RecognizedByManager bool    `json:"recognized_by_manager"`
	RecognitionNote     *string `json:"recognition_note,omitempty"`
	RelatedTaskID       *string `json:"related_task_id,omitempty"`
	CreatedAt           string  `json:"created_at"`
}

// DetectResult is the outcome of an achievement detection run.
type DetectResult struct {
	DetectedAchievements int           `json:"detected_achievements"`
	Achievements         []Achievement `json:"achievements"`
}

// TypeBreakdown is per-type achievement stats.
type TypeBreakdown struct {
	Count     int     `json:"count"`
	AvgImpact float64 `json:"avg_impact"`
}

// AchievementSummary aggregates achievements over a window.
type AchievementSummary struct {
	TotalAchievements   int                      `json:"total_achievements"`
	RecognizedByManager int                      `json:"recognized_by_manager"`
	RecognitionRate     float64                  `json:"recognition_rate"`
	AverageImpactScore  float64                  `json:"average_impact_score"`
	ByType              map[string]TypeBreakdown `json:"by_type"`
}

// UnrecognizedAchievement is a notable achievement still waiting on a manager.
type UnrecognizedAchievement struct {
	AchievementID string  `json:"achievement_id"`
	EmployeeID    string  `json:"employee_id"`
	EmployeeName  string  `json:"employee_name"`
	Type          string  `json:"type"`
	Description   string  `json:"description"`
	ImpactScore   float64 `json:"impact_score"`
	CreatedAt     string  `json:"created_at"`
}

// RecognitionOpportunity flags recognition a manager should act on.
type RecognitionOpportunity struct {
	EmployeeID        string   `json:"employee_id"`
	EmployeeName      string   `json:"employee_name"`
	Reason            string   `json:"reason"`
	AchievementCount  int      `json:"achievement_count,omitempty"`
	UnrecognizedCount int      `json:"unrecognized_count,omitempty"`
	AchievementID     string   `json:"achievement_id,omitempty"`
	ImpactScore       *float64 `json:"impact_score,omitempty"`
}

// Skill mirrors the API skill model.
type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// EmployeeSkill links an employee to a skill at a level.
type EmployeeSkill struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	SkillID       string `json:"skill_id"`
	Level         string `json:"level"`
	SkillName     string `json:"skill_name,omitempty"`
	SkillCategory string `json:"skill_category,omitempty"`
}

// SentimentResult scores a piece of text.
type SentimentResult struct {
	Score            float64  `json:"score"`
	Category         string   `json:"category"`
	Confidence       float64  `json:"confidence"`
	PositiveKeywords []string `json:"positive_keywords"`
	NegativeKeywords []string `json:"negative_keywords"`
}

// Event is a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Identity describes the authenticated caller.
type Identity struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles"`
	Source  string   `json:"source"`
}

// RecalculateResult reports a bulk priority recalculation.
type RecalculateResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// PaginatedEmployees wraps an employee page with its cursor.
type PaginatedEmployees struct {
	Items      []Employee `json:"items"`
	NextCursor string     `json:"next_cursor"`
}

// PaginatedTasks wraps a task page with its cursor.
type PaginatedTasks struct {
	Items      []Task `json:"items"`
	NextCursor string `json:"next_cursor"`
}

// PaginatedEvents wraps an event page with its cursor.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses. Code/Message/Details are filled from the
// API's error envelope when the body parses as one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// EmployeeInput is the payload for CreateEmployee.
type EmployeeInput struct {
	Name                string             `json:"name"`
	Email               string             `json:"email"`
	Role                string             `json:"role"`
	TeamID              *string            `json:"team_id,omitempty"`
	ProductivityPeriods map[string]float64 `json:"productivity_periods,omitempty"`
}

// CreateEmployee creates an employee.
func (c *Client) CreateEmployee(ctx context.Context, in EmployeeInput) (Employee, error) {
	var resp Employee
	err := c.do(ctx, http.MethodPost, "employees", in, &resp)
	return resp, err
}

// GetEmployee fetches an employee by id.
func (c *Client) GetEmployee(ctx context.Context, id string) (Employee, error) {
	var resp Employee
	err := c.do(ctx, http.MethodGet, "employees/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// EmployeesPage lists employees one page at a time.
func (c *Client) EmployeesPage(ctx context.Context, limit int, cursor string) (PaginatedEmployees, error) {
	var resp PaginatedEmployees
	err := c.do(ctx, http.MethodGet, "employees"+pageQuery(limit, cursor), nil, &resp)
	return resp, err
}

// UpdateEmployee patches an employee. Use explicit JSON null values in the
// patch to clear nullable fields (e.g. "team_id": nil detaches the team).
func (c *Client) UpdateEmployee(ctx context.Context, id string, patch map[string]any) (Employee, error) {
	var resp Employee
	err := c.do(ctx, http.MethodPatch, "employees/"+url.PathEscape(id), patch, &resp)
	return resp, err
}

// DeleteEmployee removes an employee and everything hanging off it.
func (c *Client) DeleteEmployee(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "employees/"+url.PathEscape(id), nil, nil)
}

// EmployeeStats returns the employee overview with computed counters.
func (c *Client) EmployeeStats(ctx context.Context, id string) (EmployeeStats, error) {
	var resp EmployeeStats
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("employees/%s/stats", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// CreateTeam creates a team.
func (c *Client) CreateTeam(ctx context.Context, name, description, managerID string) (Team, error) {
	body := map[string]any{"name": name}
	if description != "" {
		body["description"] = description
	}
	if managerID != "" {
		body["manager_id"] = managerID
	}
	var resp Team
	err := c.do(ctx, http.MethodPost, "teams", body, &resp)
	return resp, err
}

// Teams lists all teams.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var resp []Team
	err := c.do(ctx, http.MethodGet, "teams", nil, &resp)
	return resp, err
}

// TaskInput is the payload for CreateTask. Zero values are omitted.
type TaskInput struct {
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	AssignedTo      string         `json:"assigned_to,omitempty"`
	CreatedBy       string         `json:"created_by,omitempty"`
	Urgency         int            `json:"urgency,omitempty"`
	Deadline        string         `json:"deadline,omitempty"`
	EstimatedEffort *float64       `json:"estimated_effort,omitempty"`
	Dependencies    []string       `json:"dependencies,omitempty"`
	Source          string         `json:"source,omitempty"`
	SourceMetadata  map[string]any `json:"source_metadata,omitempty"`
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", in, &resp)
	return resp, err
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// TasksPage lists tasks one page at a time.
func (c *Client) TasksPage(ctx context.Context, limit int, cursor string) (PaginatedTasks, error) {
	var resp PaginatedTasks
	err := c.do(ctx, http.MethodGet, "tasks"+pageQuery(limit, cursor), nil, &resp)
	return resp, err
}

// UpdateTask patches a task. force skips the status transition check.
func (c *Client) UpdateTask(ctx context.Context, id string, patch map[string]any, force bool) (Task, error) {
	endpoint := "tasks/" + url.PathEscape(id)
	if force {
		endpoint += "?force=true"
	}
	var resp Task
	err := c.do(ctx, http.MethodPatch, endpoint, patch, &resp)
	return resp, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(id), nil, nil)
}

// PrioritizedTasks returns an employee's active tasks by priority.
func (c *Client) PrioritizedTasks(ctx context.Context, employeeID string) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("employees/%s/tasks/prioritized", url.PathEscape(employeeID)), nil, &resp)
	return resp, err
}

// RecalculatePriorities rescores an employee's active tasks.
func (c *Client) RecalculatePriorities(ctx context.Context, employeeID string) (RecalculateResult, error) {
	var resp RecalculateResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("employees/%s/tasks/recalculate", url.PathEscape(employeeID)), nil, &resp)
	return resp, err
}

// SuggestSchedule lays the given tasks (or all active ones) into the
// employee's productive hours. start is an optional RFC 3339 timestamp.
func (c *Client) SuggestSchedule(ctx context.Context, employeeID string, taskIDs []string, start string) ([]ScheduleSlot, error) {
	body := map[string]any{}
	if len(taskIDs) > 0 {
		body["task_ids"] = taskIDs
	}
	if start != "" {
		body["start_time"] = start
	}
	var resp []ScheduleSlot
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("employees/%s/schedule", url.PathEscape(employeeID)), body, &resp)
	return resp, err
}

// ScheduleTask suggests a slot for one task.
func (c *Client) ScheduleTask(ctx context.Context, taskID string) (ScheduleSlot, error) {
	var resp ScheduleSlot
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("tasks/%s/schedule", url.PathEscape(taskID)), nil, &resp)
	return resp, err
}

// ExtractTasks pulls task candidates out of free text.
func (c *Client) ExtractTasks(ctx context.Context, content, sourceType string) ([]TaskCandidate, error) {
	body := map[string]any{"content": content, "source_type": sourceType}
	var resp []TaskCandidate
	err := c.do(ctx, http.MethodPost, "tasks/extract", body, &resp)
	return resp, err
}

// ActivityInput is the payload for TrackActivity.
type ActivityInput struct {
	Date           string   `json:"date,omitempty"`
	HoursWorked    float64  `json:"hours_worked"`
	BreaksTaken    int      `json:"breaks_taken,omitempty"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	Note           string   `json:"note,omitempty"`
}

// TrackActivity records (or updates) one day of activity.
func (c *Client) TrackActivity(ctx context.Context, employeeID string, in ActivityInput) (Metric, error) {
	var resp Metric
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("employees/%s/metrics", url.PathEscape(employeeID)), in, &resp)
	return resp, err
}

// MetricHistory returns the trailing window of daily metrics.
func (c *Client) MetricHistory(ctx context.Context, employeeID string, days int) ([]Metric, error) {
	endpoint := fmt.Sprintf("employees/%s/metrics", url.PathEscape(employeeID))
	if days > 0 {
		endpoint += "?days=" + strconv.Itoa(days)
	}
	var resp []Metric
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// BurnoutAnalysis returns the burnout risk report for an employee.
func (c *Client) BurnoutAnalysis(ctx context.Context, employeeID string) (BurnoutReport, error) {
	var resp BurnoutReport
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("employees/%s/burnout", url.PathEscape(employeeID)), nil, &resp)
	return resp, err
}

// TriggerInterventions records interventions for an at-risk employee.
func (c *Client) TriggerInterventions(ctx context.Context, employeeID string) (InterventionReport, error) {
	var resp InterventionReport
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("employees/%s/interventions", url.PathEscape(employeeID)), nil, &resp)
	return resp, err
}

// TeamEquity scores workload equity for a team.
func (c *Client) TeamEquity(ctx context.Context, teamID string) (EquityReport, error) {
	var resp EquityReport
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("teams/%s/equity", url.PathEscape(teamID)), nil, &resp)
	return resp, err
}

// Redistribute suggests task transfers; autoAssign applies them (manager role).
func (c *Client) Redistribute(ctx context.Context, teamID string, autoAssign bool) (RedistributeResult, error) {
	endpoint := fmt.Sprintf("teams/%s/redistribute", url.PathEscape(teamID))
	if autoAssign {
		endpoint += "?auto_assign=true"
	}
	var resp RedistributeResult
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// SuggestAssignment names the best team member for a task.
func (c *Client) SuggestAssignment(ctx context.Context, teamID, taskID string) (AssignmentSuggestion, error) {
	endpoint := fmt.Sprintf("teams/%s/assignment-suggestion?task_id=%s", url.PathEscape(teamID), url.QueryEscape(taskID))
	var resp AssignmentSuggestion
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// AchievementInput is the payload for RecordAchievement.
type AchievementInput struct {
	EmployeeID    string   `json:"employee_id"`
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	ImpactScore   *float64 `json:"impact_score,omitempty"`
	RelatedTaskID string   `json:"related_task_id,omitempty"`
}

// RecordAchievement creates an achievement by hand.
func (c *Client) RecordAchievement(ctx context.Context, in AchievementInput) (Achievement, error) {
	var resp Achievement
	err := c.do(ctx, http.MethodPost, "achievements", in, &resp)
	return resp, err
}

// DetectAchievements mines recent completed work for achievements.
func (c *Client) DetectAchievements(ctx context.Context, employeeID string) (DetectResult, error) {
	var resp DetectResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("employees/%s/achievements/detect", url.PathEscape(employeeID)), nil, &resp)
	return resp, err
}

// RecognizeAchievement marks an achievement recognized (manager role).
func (c *Client) RecognizeAchievement(ctx context.Context, id, note string) (Achievement, error) {
	body := map[string]any{"recognition_note": note}
	var resp Achievement
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("achievements/%s/recognize", url.PathEscape(id)), body, &resp)
	return resp, err
}

// Achievements lists an employee's achievements over a window.
func (c *Client) Achievements(ctx context.Context, employeeID string, days int, achievementType string) ([]Achievement, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	if achievementType != "" {
		q.Set("type", achievementType)
	}
	endpoint := fmt.Sprintf("employees/%s/achievements", url.PathEscape(employeeID))
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Achievement
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Summary aggregates an employee's achievements.
func (c *Client) Summary(ctx context.Context, employeeID string, days int) (AchievementSummary, error) {
	endpoint := fmt.Sprintf("employees/%s/achievements/summary", url.PathEscape(employeeID))
	if days > 0 {
		endpoint += "?days=" + strconv.Itoa(days)
	}
	var resp AchievementSummary
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// UnrecognizedAchievements lists notable achievements without recognition.
func (c *Client) UnrecognizedAchievements(ctx context.Context, teamID string, days int) ([]UnrecognizedAchievement, error) {
	q := url.Values{}
	if teamID != "" {
		q.Set("team_id", teamID)
	}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	endpoint := "achievements/unrecognized"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []UnrecognizedAchievement
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// RecognitionOpportunities flags recognition a team's manager should act on.
func (c *Client) RecognitionOpportunities(ctx context.Context, teamID string) ([]RecognitionOpportunity, error) {
	var resp []RecognitionOpportunity
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("teams/%s/recognition-opportunities", url.PathEscape(teamID)), nil, &resp)
	return resp, err
}

// DefineSkill creates a skill.
func (c *Client) DefineSkill(ctx context.Context, name, category, description string) (Skill, error) {
	body := map[string]any{"name": name, "category": category}
	if description != "" {
		body["description"] = description
	}
	var resp Skill
	err := c.do(ctx, http.MethodPost, "skills", body, &resp)
	return resp, err
}

// AssignSkill links a skill to an employee at a level.
func (c *Client) AssignSkill(ctx context.Context, employeeID, skillID, level string) (EmployeeSkill, error) {
	body := map[string]any{"skill_id": skillID, "level": level}
	var resp EmployeeSkill
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("employees/%s/skills", url.PathEscape(employeeID)), body, &resp)
	return resp, err
}

// Skills lists defined skills, optionally by category.
func (c *Client) Skills(ctx context.Context, category string) ([]Skill, error) {
	endpoint := "skills"
	if category != "" {
		endpoint += "?category=" + url.QueryEscape(category)
	}
	var resp []Skill
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// EmployeeSkills lists an employee's skills.
func (c *Client) EmployeeSkills(ctx context.Context, employeeID string) ([]EmployeeSkill, error) {
	var resp []EmployeeSkill
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("employees/%s/skills", url.PathEscape(employeeID)), nil, &resp)
	return resp, err
}

// AnalyzeSentiment scores a piece of text.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (SentimentResult, error) {
	body := map[string]any{"text": text}
	var resp SentimentResult
	err := c.do(ctx, http.MethodPost, "sentiment", body, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, "events"+pageQuery(limit, cursor), nil, &resp)
	return resp, err
}

// Me returns the authenticated identity.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var resp Identity
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return apiErrorFrom(resp.StatusCode, b)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func apiErrorFrom(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	}
	return apiErr
}

func pageQuery(limit int, cursor string) string {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
