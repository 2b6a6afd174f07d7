package domain

type Employee struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Role             string  `json:"role"`
	TeamID           *string `json:"team_id,omitempty"`
	ProductivityJSON string  `json:"productivity_periods_json,omitempty"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
}

type Team struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ManagerID   *string `json:"manager_id,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

type Task struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Status          string   `json:"status" enum:"pending,in_progress,completed,blocked,cancelled"`
	Source          string   `json:"source" enum:"email,meeting,manual,calendar"`
	SourceMetaJSON  *string  `json:"source_metadata_json,omitempty"`
	AssignedTo      *string  `json:"assigned_to,omitempty"`
	CreatedBy       string   `json:"created_by"`
	Urgency         int      `json:"urgency"`
	Deadline        *string  `json:"deadline,omitempty" format:"date-time"`
	EstimatedEffort *float64 `json:"estimated_effort,omitempty"`
	ActualEffort    *float64 `json:"actual_effort,omitempty"`
	PriorityScore   *float64 `json:"priority_score,omitempty"`
	Dependencies    []string `json:"dependencies,omitempty"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" format:"date-time"`
	CompletedAt     *string  `json:"completed_at,omitempty" format:"date-time"`
}

type DailyMetric struct {
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

type Achievement struct {
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

type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category" enum:"technical,soft_skill,domain"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type EmployeeSkill struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	SkillID       string `json:"skill_id"`
	Level         string `json:"level" enum:"beginner,intermediate,expert"`
	SkillName     string `json:"skill_name,omitempty"`
	SkillCategory string `json:"skill_category,omitempty"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
