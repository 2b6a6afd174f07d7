package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"

	"teampulse/internal/db"
	"teampulse/internal/engine"
	"teampulse/internal/engine/auth"
	"teampulse/internal/migrate"
)

const testSecret = "server-test-secret"

type testServer struct {
	URL    string
	engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, nil)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/api/v1",
		Auth: AuthConfig{
			JWTSecret:              testSecret,
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

// asActor returns headers for the legacy dev identity used to seed fixtures.
func asActor(id string) map[string]string {
	return map[string]string{"X-Actor-Id": id}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type errEnvelope struct {
	Error apiErrorBody `json:"error"`
}

func decodeEnvelope(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env errEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error
}

func devLogin(t *testing.T, srv *testServer, actorID string, roles []string) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/auth/dev/login", map[string]any{
		"actor_id": actorID,
		"roles":    roles,
	}, asActor("bootstrap"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", res.StatusCode, string(data))
	}
	var out DevLoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	return out.Token
}

func createEmployee(t *testing.T, srv *testServer, name, email string) EmployeeResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/employees", map[string]any{
		"name":  name,
		"email": email,
		"role":  "developer",
	}, asActor("tester"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create employee status %d: %s", res.StatusCode, string(data))
	}
	var emp EmployeeResponse
	if err := json.Unmarshal(data, &emp); err != nil {
		t.Fatalf("unmarshal employee: %v", err)
	}
	return emp
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestAuthModes(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/me", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d: %s", res.StatusCode, string(data))
	}
	if env := decodeEnvelope(t, data); env.Code != "unauthorized" {
		t.Fatalf("expected code unauthorized, got %q", env.Code)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/me", nil, bearer("not-a-token"))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d: %s", res.StatusCode, string(data))
	}
	if env := decodeEnvelope(t, data); env.Code != "invalid_credentials" {
		t.Fatalf("expected code invalid_credentials, got %q", env.Code)
	}

	token := devLogin(t, srv, "alice", []string{"manager"})
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/me", nil, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me with jwt status %d: %s", res.StatusCode, string(data))
	}
	var me MeResponse
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.ActorID != "alice" || me.Source != "jwt" {
		t.Fatalf("unexpected principal %+v", me)
	}
	if len(me.Roles) != 1 || me.Roles[0] != "manager" {
		t.Fatalf("expected manager role, got %v", me.Roles)
	}

	svc := auth.Service{Repo: srv.engine.Repo, Secret: testSecret}
	_, plaintext, err := svc.CreateKey(context.Background(), "bob", "ci")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/me", nil, map[string]string{"X-Api-Key": plaintext})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me with api key status %d: %s", res.StatusCode, string(data))
	}
	me = MeResponse{}
	_ = json.Unmarshal(data, &me)
	if me.ActorID != "bob" || me.Source != "api_key" {
		t.Fatalf("unexpected api key principal %+v", me)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/me", nil, asActor("carol"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me with legacy header status %d: %s", res.StatusCode, string(data))
	}
	me = MeResponse{}
	_ = json.Unmarshal(data, &me)
	if me.ActorID != "carol" || me.Source != "legacy_header" {
		t.Fatalf("unexpected legacy principal %+v", me)
	}
}

func TestEmployeeLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/employees", map[string]any{
		"email": "noname@example.com",
		"role":  "developer",
	}, asActor("tester"))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d: %s", res.StatusCode, string(data))
	}

	emp := createEmployee(t, srv, "Alice", "alice@example.com")

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/employees/nope", nil, asActor("tester"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown employee, got %d: %s", res.StatusCode, string(data))
	}
	if env := decodeEnvelope(t, data); env.Code != "not_found" {
		t.Fatalf("expected code not_found, got %q", env.Code)
	}

	teamRes, teamData := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/teams", map[string]any{
		"name": "Platform",
	}, asActor("tester"))
	if teamRes.StatusCode != http.StatusCreated {
		t.Fatalf("create team status %d: %s", teamRes.StatusCode, string(teamData))
	}
	var team TeamResponse
	_ = json.Unmarshal(teamData, &team)

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/api/v1/employees/"+emp.ID, map[string]any{
		"team_id": team.ID,
	}, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("attach team status %d: %s", res.StatusCode, string(data))
	}
	var updated EmployeeResponse
	_ = json.Unmarshal(data, &updated)
	if updated.TeamID == nil || *updated.TeamID != team.ID {
		t.Fatalf("expected team %s, got %+v", team.ID, updated.TeamID)
	}

	// Explicit null detaches, a missing key leaves the team alone.
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/api/v1/employees/"+emp.ID, map[string]any{
		"team_id": nil,
	}, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("detach team status %d: %s", res.StatusCode, string(data))
	}
	updated = EmployeeResponse{}
	_ = json.Unmarshal(data, &updated)
	if updated.TeamID != nil {
		t.Fatalf("expected detached employee, still on team %v", *updated.TeamID)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/api/v1/employees/"+emp.ID, nil, asActor("tester"))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty patch body, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/api/v1/employees/"+emp.ID, nil, asActor("tester"))
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/employees/"+emp.ID, nil, asActor("tester"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.StatusCode)
	}
}

func TestTeamNameConflict(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/teams", map[string]any{"name": "Core"}, asActor("tester"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create team status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/teams", map[string]any{"name": "Core"}, asActor("tester"))
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate team, got %d: %s", res.StatusCode, string(data))
	}
	env := decodeEnvelope(t, data)
	if env.Code != "conflict" || env.Message != "Team name already exists" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	emp := createEmployee(t, srv, "Dana", "dana@example.com")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks", map[string]any{
		"title":       "Write docs",
		"assigned_to": emp.ID,
		"created_by":  emp.ID,
	}, asActor("tester"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var task TaskResponse
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if task.Status != "pending" || task.Urgency != 3 {
		t.Fatalf("unexpected defaults: status=%s urgency=%d", task.Status, task.Urgency)
	}
	if task.PriorityScore == nil {
		t.Fatal("expected a priority score for an assigned task")
	}

	// pending cannot jump straight to completed.
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/api/v1/tasks/"+task.ID, map[string]any{
		"status": "completed",
	}, asActor("tester"))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for illegal transition, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/api/v1/tasks/"+task.ID+"?force=true", map[string]any{
		"status": "completed",
	}, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("forced completion status %d: %s", res.StatusCode, string(data))
	}
	task = TaskResponse{}
	_ = json.Unmarshal(data, &task)
	if task.Status != "completed" || task.CompletedAt == nil {
		t.Fatalf("expected completed with timestamp, got status=%s completed_at=%v", task.Status, task.CompletedAt)
	}
}

func TestTaskDeadlineClearedByNull(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	emp := createEmployee(t, srv, "Gil", "gil@example.com")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks", map[string]any{
		"title":      "Expiring",
		"deadline":   "2026-09-01T12:00:00Z",
		"created_by": emp.ID,
	}, asActor("tester"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var task TaskResponse
	_ = json.Unmarshal(data, &task)
	if task.Deadline == nil {
		t.Fatal("expected deadline on created task")
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/api/v1/tasks/"+task.ID, map[string]any{
		"deadline": nil,
	}, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("clear deadline status %d: %s", res.StatusCode, string(data))
	}
	task = TaskResponse{}
	_ = json.Unmarshal(data, &task)
	if task.Deadline != nil {
		t.Fatalf("expected deadline cleared, got %v", *task.Deadline)
	}
}

func TestEmployeePaginationCursor(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	for i := 0; i < 3; i++ {
		createEmployee(t, srv, fmt.Sprintf("Emp %d", i), fmt.Sprintf("emp%d@example.com", i))
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/employees?limit=2", nil, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var page paginatedEmployees
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("expected 2 items and a cursor, got %d items cursor=%q", len(page.Items), page.NextCursor)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/employees?limit=2&cursor="+page.NextCursor, nil, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second page status %d: %s", res.StatusCode, string(data))
	}
	var second paginatedEmployees
	_ = json.Unmarshal(data, &second)
	if len(second.Items) != 1 || second.NextCursor != "" {
		t.Fatalf("expected final page with 1 item, got %d items cursor=%q", len(second.Items), second.NextCursor)
	}
	seen := map[string]bool{}
	for _, e := range append(page.Items, second.Items...) {
		if seen[e.ID] {
			t.Fatalf("employee %s appeared on both pages", e.ID)
		}
		seen[e.ID] = true
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/employees?cursor=garbage", nil, asActor("tester"))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed cursor, got %d: %s", res.StatusCode, string(data))
	}
}

func TestEventsCursor(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	for i := 0; i < 4; i++ {
		createEmployee(t, srv, fmt.Sprintf("Evt %d", i), fmt.Sprintf("evt%d@example.com", i))
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/events?limit=2", nil, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(data))
	}
	var page paginatedEvents
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("expected 2 events and a cursor, got %d cursor=%q", len(page.Items), page.NextCursor)
	}
	if _, err := strconv.ParseInt(page.NextCursor, 10, 64); err != nil {
		t.Fatalf("event cursor should be numeric, got %q", page.NextCursor)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/events?limit=10&cursor="+page.NextCursor, nil, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second events page status %d: %s", res.StatusCode, string(data))
	}
	var rest paginatedEvents
	_ = json.Unmarshal(data, &rest)
	for _, evt := range rest.Items {
		for _, first := range page.Items {
			if evt.ID == first.ID {
				t.Fatalf("event %d appeared on both pages", evt.ID)
			}
		}
	}
}

func TestRecognizeRequiresManager(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	emp := createEmployee(t, srv, "Erin", "erin@example.com")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/achievements", map[string]any{
		"employee_id": emp.ID,
		"type":        "deliverable",
		"description": "Shipped the migration",
	}, asActor("tester"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("record achievement status %d: %s", res.StatusCode, string(data))
	}
	var ach AchievementResponse
	if err := json.Unmarshal(data, &ach); err != nil {
		t.Fatalf("unmarshal achievement: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/achievements/"+ach.ID+"/recognize", map[string]any{
		"recognition_note": "nice work",
	}, asActor("tester"))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without manager role, got %d: %s", res.StatusCode, string(data))
	}
	env := decodeEnvelope(t, data)
	if env.Code != "forbidden" || env.Message != "role manager required" {
		t.Fatalf("unexpected envelope %+v", env)
	}

	token := devLogin(t, srv, "boss", []string{"manager"})
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/achievements/"+ach.ID+"/recognize", map[string]any{
		"recognition_note": "nice work",
	}, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("recognize status %d: %s", res.StatusCode, string(data))
	}
	ach = AchievementResponse{}
	_ = json.Unmarshal(data, &ach)
	if !ach.RecognizedByManager || ach.RecognitionNote == nil || *ach.RecognitionNote != "nice work" {
		t.Fatalf("expected recognized achievement, got %+v", ach)
	}
}

func TestMetricsRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	emp := createEmployee(t, srv, "Fay", "fay@example.com")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/employees/"+emp.ID+"/metrics", map[string]any{
		"date":         "2026-08-20",
		"hours_worked": 9.5,
		"breaks_taken": 1,
	}, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("track metric status %d: %s", res.StatusCode, string(data))
	}
	var metric MetricResponse
	if err := json.Unmarshal(data, &metric); err != nil {
		t.Fatalf("unmarshal metric: %v", err)
	}
	if metric.RiskScore == nil {
		t.Fatal("expected a risk score on the recorded day")
	}

	// Same day again replaces, not duplicates.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/employees/"+emp.ID+"/metrics", map[string]any{
		"date":         "2026-08-20",
		"hours_worked": 6,
		"breaks_taken": 3,
	}, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("re-track metric status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/employees/"+emp.ID+"/metrics?days=365", nil, asActor("tester"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("history status %d: %s", res.StatusCode, string(data))
	}
	var history []MetricResponse
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one row after upsert, got %d", len(history))
	}
	if history[0].HoursWorked != 6 {
		t.Fatalf("expected replaced hours 6, got %v", history[0].HoursWorked)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/employees/"+emp.ID+"/metrics", map[string]any{
		"hours_worked": 25,
	}, asActor("tester"))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range hours, got %d: %s", res.StatusCode, string(data))
	}
}
