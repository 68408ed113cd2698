package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestRefreshRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /refresh": `{"task_count":7}`,
	})

	resp, err := ts.client().post(ctx, "/refresh", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		TaskCount int `json:"task_count"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.TaskCount != 7 {
		t.Errorf("task_count = %d, want 7", result.TaskCount)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer test-token" {
		t.Errorf("auth = %q", ts.requests[0].Auth)
	}
}

func TestTriggerRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /trigger": `{"fired":true,"task_id":"abc","text":"buy milk"}`,
	})

	resp, err := ts.client().post(ctx, "/trigger", map[string]any{"force": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Fired bool   `json:"fired"`
		Text  string `json:"text"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !result.Fired || result.Text != "buy milk" {
		t.Errorf("result = %+v", result)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["force"] != true {
		t.Errorf("body.force = %v, want true", body["force"])
	}
}

func TestTasksRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /tasks": `[{"id":"abc12345-0000","text":"buy milk","category":"shopping","fire_count":2}]`,
	})

	resp, err := ts.client().get(ctx, "/tasks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var tasks []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Category  string `json:"category"`
		FireCount int    `json:"fire_count"`
	}
	if err := decodeJSON(resp, &tasks); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Category != "shopping" || tasks[0].FireCount != 2 {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestDecodeJSON_ErrorStatus(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().post(ctx, "/unknown", nil)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var v any
	if err := decodeJSON(resp, &v); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestClientUnreachableServer(t *testing.T) {
	c := &apiClient{
		baseURL:    "http://127.0.0.1:1",
		token:      "t",
		httpClient: &http.Client{},
	}
	if _, err := c.get(ctx, "/status"); err == nil {
		t.Error("expected error for unreachable server")
	}
}
