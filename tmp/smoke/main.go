// Manual end-to-end smoke check: boots a throwaway workspace, starts the
// API in-process and walks one week of team activity through the Go SDK.
// Not wired into go test on purpose; run it by hand when touching the
// server wiring.
package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"time"

	"teampulse/internal/db"
	"teampulse/internal/engine"
	"teampulse/internal/engine/auth"
	"teampulse/internal/migrate"
	"teampulse/internal/server"
	teampulsesdk "teampulse/sdk/go"
)

const secret = "smoke-secret"

func main() {
	ws, err := os.MkdirTemp("", "teampulse-smoke-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(ws)
	fmt.Println("workspace:", ws)

	conn, err := db.Open(db.Config{Workspace: ws})
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		panic(err)
	}

	e := engine.New(conn, nil)
	handler, err := server.New(server.Config{
		Engine:   e,
		BasePath: "/api/v1",
		Auth:     server.AuthConfig{JWTSecret: secret},
	})
	if err != nil {
		panic(err)
	}
	ts := httptest.NewServer(handler)
	defer ts.Close()
	fmt.Println("server:", ts.URL)

	token, err := auth.Service{Repo: e.Repo, Secret: secret}.MintToken("smoke-admin", []string{"manager"})
	if err != nil {
		panic(err)
	}

	c := teampulsesdk.New(ts.URL + "/api/v1")
	c.BearerToken = token
	ctx := context.Background()

	me := must(c.Me(ctx))
	fmt.Printf("identity: %s roles=%v via %s\n", me.ActorID, me.Roles, me.Source)

	team := must(c.CreateTeam(ctx, "Platform", "Smoke test crew", ""))
	alice := must(c.CreateEmployee(ctx, teampulsesdk.EmployeeInput{
		Name:   "Alice",
		Email:  "alice@example.com",
		Role:   "developer",
		TeamID: &team.ID,
		ProductivityPeriods: map[string]float64{
			"morning":   1.2,
			"afternoon": 0.9,
		},
	}))
	bob := must(c.CreateEmployee(ctx, teampulsesdk.EmployeeInput{
		Name:   "Bob",
		Email:  "bob@example.com",
		Role:   "developer",
		TeamID: &team.ID,
	}))
	fmt.Printf("team %s with %s and %s\n", team.Name, alice.Name, bob.Name)

	// Pile work on Alice, keep Bob light.
	deadline := time.Now().Add(36 * time.Hour).UTC().Format(time.RFC3339)
	effort := 6.0
	var aliceTasks []teampulsesdk.Task
	for i := 0; i < 4; i++ {
		t := must(c.CreateTask(ctx, teampulsesdk.TaskInput{
			Title:           fmt.Sprintf("Migrate shard %d", i+1),
			AssignedTo:      alice.ID,
			CreatedBy:       bob.ID,
			Urgency:         5,
			Deadline:        deadline,
			EstimatedEffort: &effort,
		}))
		aliceTasks = append(aliceTasks, t)
	}
	must(c.CreateTask(ctx, teampulsesdk.TaskInput{
		Title:      "Update the runbook",
		AssignedTo: bob.ID,
		CreatedBy:  alice.ID,
		Urgency:    2,
	}))

	// A heavy week for Alice, a normal one for Bob.
	for i := 0; i < 5; i++ {
		date := time.Now().AddDate(0, 0, -i).Format("2006-01-02")
		low := -0.6
		must(c.TrackActivity(ctx, alice.ID, teampulsesdk.ActivityInput{
			Date:           date,
			HoursWorked:    11.5,
			BreaksTaken:    0,
			SentimentScore: &low,
		}))
		ok := 0.4
		must(c.TrackActivity(ctx, bob.ID, teampulsesdk.ActivityInput{
			Date:           date,
			HoursWorked:    7.5,
			BreaksTaken:    3,
			SentimentScore: &ok,
		}))
	}

	burnout := must(c.BurnoutAnalysis(ctx, alice.ID))
	fmt.Printf("alice burnout: %.2f (%s, trend %s)\n", burnout.CurrentRiskScore, burnout.RiskLevel, burnout.Trend)
	for _, r := range burnout.Recommendations {
		fmt.Println("  -", r)
	}

	interventions := must(c.TriggerInterventions(ctx, alice.ID))
	fmt.Printf("interventions: %d action(s)\n", len(interventions.Actions))

	equity := must(c.TeamEquity(ctx, team.ID))
	fmt.Printf("equity score: %.2f across %d member(s)\n", equity.EquityScore, len(equity.MemberWorkloads))

	moved := must(c.Redistribute(ctx, team.ID, false))
	fmt.Printf("redistribution: %d suggestion(s)\n", moved.Count)
	for _, s := range moved.Suggestions {
		fmt.Printf("  - %q from %s to %s\n", s.TaskTitle, s.FromEmployee, s.ToEmployee)
	}

	slots := must(c.SuggestSchedule(ctx, alice.ID, nil, ""))
	fmt.Printf("schedule: %d slot(s), first %q at %s\n", len(slots), slots[0].TaskTitle, slots[0].SuggestedStart)

	// Finish two tasks early so the detector has something to find.
	for _, t := range aliceTasks[:2] {
		must(c.UpdateTask(ctx, t.ID, map[string]any{"status": "completed", "actual_effort": 4.0}, false))
	}
	detected := must(c.DetectAchievements(ctx, alice.ID))
	fmt.Printf("achievements detected: %d\n", detected.DetectedAchievements)
	for _, a := range detected.Achievements {
		fmt.Printf("  - [%s] %s\n", a.Type, a.Description)
	}

	summary := must(c.Summary(ctx, alice.ID, 30))
	fmt.Printf("summary: %d total, %.0f%% recognized\n", summary.TotalAchievements, summary.RecognitionRate*100)

	events := must(c.Events(ctx, 50))
	fmt.Printf("event log: %d entr(ies)\n", len(events))

	fmt.Println("smoke OK")
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
