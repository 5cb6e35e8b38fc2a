package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/units"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.SetGlobalLogger(logger.Nop())
	os.Exit(m.Run())
}

const greetYAML = `
name: greet
description: says hello and counts
start: hello
nodes:
  - name: hello
    component: set
    params:
      values:
        greeting: hello
    next:
      default: count
  - name: count
    component: counter
    params:
      key: n
      limit: 2
    next:
      continue: count
`

const spinYAML = `
name: spin
start: count
max_steps: 3
nodes:
  - name: count
    component: counter
    params:
      key: n
      limit: 100
    next:
      continue: count
`

type testEnv struct {
	handler http.Handler
	store   *MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	rec := flow.NewRecorder()
	catalog := NewCatalog()

	var defs []*flow.Definition
	for _, src := range []string{greetYAML, spinYAML} {
		def, err := flow.ParseDefinition([]byte(src))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		defs = append(defs, def)
	}
	if err := catalog.AddDefinitions(defs, units.NewRegistry(units.Options{}), flow.WithObserver(rec)); err != nil {
		t.Fatalf("AddDefinitions: %v", err)
	}

	boom := flow.Funcs[*flow.State, any, any]{
		Exec: func(context.Context, any) (any, error) { return nil, errors.New("boom") },
	}
	failing := flow.New(flow.NewNode[*flow.State]("explode", boom), flow.WithName("fail"), flow.WithObserver(rec))
	if err := catalog.Add(failing, ""); err != nil {
		t.Fatal(err)
	}

	store := NewMemoryStore(10)
	srv := New(Config{MaxBodySize: "1KB"}, logger.Nop())
	NewAPI("flowkit-test", catalog, store, rec, logger.Nop()).Register(srv.Engine())
	return &testEnv{handler: srv.Handler(), store: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeRun(t *testing.T, rr *httptest.ResponseRecorder) Run {
	t.Helper()
	var resp struct {
		Data Run `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
	return resp.Data
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apperrors.ErrorBody {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
	return resp.Error
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body["status"] != "healthy" || body["service"] != "flowkit-test" || body["version"] == "" {
		t.Fatalf("unexpected body %v", body)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("expected request id header from middleware")
	}
}

func TestListFlows(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "GET", "/flows", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Data  []FlowSummary `json:"data"`
		Count int           `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != len(resp.Data) {
		t.Fatalf("expected count %d, got %d", len(resp.Data), resp.Count)
	}
	var names []string
	for _, f := range resp.Data {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "fail,greet,spin" {
		t.Fatalf("unexpected flows %v", names)
	}
	greet := resp.Data[1]
	if greet.Start != "hello" || greet.Description != "says hello and counts" || len(greet.Nodes) != 2 {
		t.Fatalf("unexpected summary %+v", greet)
	}
	if greet.Nodes[1].Successors["continue"] != "count" {
		t.Fatalf("expected self loop on count, got %v", greet.Nodes[1].Successors)
	}
}

func TestGetFlow(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, "GET", "/flows/greet", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	rr := env.do(t, "GET", "/flows/nope", "")
	if rr.Code != http.StatusNotFound || decodeError(t, rr).Code != apperrors.ErrCodeNotFound {
		t.Fatalf("expected 404 NOT_FOUND, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestStartRun(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/flows/greet/runs", `{"state":{"who":"gopher"}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	run := decodeRun(t, rr)
	if got := rr.Header().Get(HeaderRunID); got != run.ID {
		t.Fatalf("expected %s header %q, got %q", HeaderRunID, run.ID, got)
	}
	if run.Status != RunSucceeded || run.Tag != units.TagDone {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.State["who"] != "gopher" || run.State["greeting"] != "hello" || run.State["n"] != float64(2) {
		t.Fatalf("unexpected final state %v", run.State)
	}
	var nodes []string
	for _, s := range run.Steps {
		nodes = append(nodes, s.Node)
	}
	if strings.Join(nodes, ",") != "hello,count,count" {
		t.Fatalf("unexpected trace %v", nodes)
	}

	stored := decodeRun(t, env.do(t, "GET", "/runs/"+run.ID, ""))
	if stored.ID != run.ID || len(stored.Steps) != 3 {
		t.Fatalf("unexpected stored run %+v", stored)
	}
}

func TestStartRun_EmptyBody(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/flows/greet/runs", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for empty body, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestStartRun_Errors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   apperrors.ErrorCode
	}{
		{"unknown flow", "/flows/nope/runs", `{}`, http.StatusNotFound, apperrors.ErrCodeNotFound},
		{"malformed body", "/flows/greet/runs", `{"state":`, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"body too large", "/flows/greet/runs", `{"state":{"x":"` + strings.Repeat("a", 2048) + `"}}`, http.StatusBadRequest, apperrors.ErrCodeInvalidInput},
		{"unit failure", "/flows/fail/runs", `{}`, http.StatusUnprocessableEntity, apperrors.ErrCodeUnitFailed},
		{"step limit", "/flows/spin/runs", `{}`, http.StatusUnprocessableEntity, apperrors.ErrCodeMaxStepsExceeded},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, "POST", tc.path, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if body := decodeError(t, rr); body.Code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, body.Code)
			}
		})
	}
}

func TestFailedRunIsStored(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/flows/fail/runs", "")
	body := decodeError(t, rr)
	if !strings.Contains(body.Cause, "boom") {
		t.Fatalf("expected unit error as cause, got %q", body.Cause)
	}
	id, _ := body.Details["run_id"].(string)
	if id == "" || rr.Header().Get(HeaderRunID) != id {
		t.Fatalf("expected run id in details and header, got %v / %q", body.Details, rr.Header().Get(HeaderRunID))
	}

	run := decodeRun(t, env.do(t, "GET", "/runs/"+id, ""))
	if run.Status != RunFailed || run.Error != "boom" {
		t.Fatalf("unexpected failed run %+v", run)
	}
	if len(run.Steps) != 1 || run.Steps[0].Error != "boom" {
		t.Fatalf("expected failing step in trace, got %+v", run.Steps)
	}
}

func TestGetRun_Errors(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, "GET", "/runs/not-a-uuid", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if rr := env.do(t, "GET", "/runs/6f1c2a9e-7d0b-4f7e-9a51-3c2b1d0e8f44", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestMemoryStore_Evicts(t *testing.T) {
	s := NewMemoryStore(2)
	for _, id := range []string{"a", "b", "c"} {
		s.Save(Run{ID: id})
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("expected oldest run to be evicted")
	}
	if _, ok := s.Get("c"); !ok || s.Len() != 2 {
		t.Fatalf("expected newest runs kept, len=%d", s.Len())
	}
	s.Save(Run{ID: "c", Tag: "again"})
	if s.Len() != 2 {
		t.Fatalf("re-saving must not grow the store, len=%d", s.Len())
	}
}

func TestCatalog_DuplicateName(t *testing.T) {
	c := NewCatalog()
	f := flow.New(flow.NewNode[*flow.State]("a", flow.Funcs[*flow.State, any, any]{}), flow.WithName("dup"))
	if err := c.Add(f, ""); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(f, ""); err == nil {
		t.Fatal("expected duplicate flow error")
	}
}

func TestCatalog_Replace(t *testing.T) {
	named := func(name string) *flow.Flow[*flow.State] {
		return flow.New(flow.NewNode[*flow.State]("a", flow.Funcs[*flow.State, any, any]{}), flow.WithName(name))
	}
	c := NewCatalog()
	_ = c.Add(named("old"), "")

	next := NewCatalog()
	_ = next.Add(named("new"), "fresh")
	c.Replace(next)

	if _, ok := c.Get("old"); ok {
		t.Fatal("expected old flow to be dropped")
	}
	if s, ok := c.Summary("new"); !ok || s.Description != "fresh" {
		t.Fatalf("expected new flow, got %+v (ok=%v)", s, ok)
	}
	_ = next.Add(named("later"), "")
	if c.Len() != 1 {
		t.Fatalf("later additions to the source must not leak, len=%d", c.Len())
	}
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.MaxRuns != 1000 || cfg.MaxBodySize != "1MB" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected port error")
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := New(Config{Host: "127.0.0.1", Port: 0}, logger.Nop())
	NewAPI("flowkit-test", NewCatalog(), nil, nil, nil).Register(srv.Engine())

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Stop(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
