package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestCmd(t *testing.T, handler http.HandlerFunc) (*bytes.Buffer, func(args ...string) error) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	out := &bytes.Buffer{}
	getenv := func(key string) string {
		switch key {
		case "TENET_ADDR":
			return server.URL
		case "TENET_TOKEN":
			return "cli-token"
		}
		return ""
	}

	return out, func(args ...string) error {
		cmd := newRootCmd(out, getenv)
		cmd.SetArgs(args)
		cmd.SetOut(out)
		cmd.SetErr(out)
		return cmd.Execute()
	}
}

func TestDecisionsList(t *testing.T) {
	out, execute := newTestCmd(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/decisions" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer cli-token" {
			t.Fatalf("expected bearer token from env")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"decisions":[{"id":"dec-1","title":"Adopt Go"}]}`))
	})

	if err := execute("decisions", "list"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Adopt Go") {
		t.Fatalf("expected decision in output, got %q", out.String())
	}
}

func TestDecisionsCreateSendsBody(t *testing.T) {
	_, execute := newTestCmd(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/decisions" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		buf := &bytes.Buffer{}
		buf.ReadFrom(r.Body)
		if !strings.Contains(buf.String(), `"title":"Adopt Go"`) {
			t.Fatalf("expected title in body, got %s", buf.String())
		}
		if !strings.Contains(buf.String(), `"health_signal":80`) {
			t.Fatalf("expected health in body, got %s", buf.String())
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"dec-1"}`))
	})

	if err := execute("decisions", "create", "--title", "Adopt Go", "--health", "80"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBatchEvaluateForceBody(t *testing.T) {
	_, execute := newTestCmd(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/decisions/batch-evaluate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		buf := &bytes.Buffer{}
		buf.ReadFrom(r.Body)
		if !strings.Contains(buf.String(), `"force":true`) {
			t.Fatalf("expected force in body, got %s", buf.String())
		}
		w.Write([]byte(`{"evaluated":2,"skipped":0,"failed":0}`))
	})

	if err := execute("batch-evaluate", "--force"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRetireSendsOutcomeAndConclusions(t *testing.T) {
	_, execute := newTestCmd(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/decisions/dec-1/retire" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		buf := &bytes.Buffer{}
		buf.ReadFrom(r.Body)
		body := buf.String()
		if !strings.Contains(body, `"outcome":"failed"`) {
			t.Fatalf("expected outcome in body, got %s", body)
		}
		if !strings.Contains(body, `"why_outcome":"vendor folded"`) {
			t.Fatalf("expected why_outcome in body, got %s", body)
		}
		if !strings.Contains(body, `"failure_reasons":["vendor insolvency"]`) {
			t.Fatalf("expected failure_reasons in body, got %s", body)
		}
		w.Write([]byte(`{"decision_id":"dec-1"}`))
	})

	err := execute("decisions", "retire", "dec-1",
		"--outcome", "failed",
		"--what-happened", "vendor shut down",
		"--why-outcome", "vendor folded",
		"--failure-reason", "vendor insolvency")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReviewSendsComment(t *testing.T) {
	_, execute := newTestCmd(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/decisions/dec-1/review" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		buf := &bytes.Buffer{}
		buf.ReadFrom(r.Body)
		body := buf.String()
		if !strings.Contains(body, `"comment":"still holds"`) {
			t.Fatalf("expected comment in body, got %s", body)
		}
		if !strings.Contains(body, `"review_type":"scheduled"`) {
			t.Fatalf("expected review_type in body, got %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"rev-1"}`))
	})

	if err := execute("decisions", "review", "dec-1", "--comment", "still holds"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestErrorStatusSurfaced(t *testing.T) {
	_, execute := newTestCmd(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"decision not found","code":"NOT_FOUND"}`))
	})

	err := execute("decisions", "get", "dec-missing")
	if err == nil {
		t.Fatalf("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Fatalf("expected code in error, got %v", err)
	}
}

func TestConflictResolveBody(t *testing.T) {
	_, execute := newTestCmd(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/decision-conflicts/cfl-1/resolve" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		buf := &bytes.Buffer{}
		buf.ReadFrom(r.Body)
		if !strings.Contains(buf.String(), "PRIORITIZE_A") {
			t.Fatalf("expected action in body, got %s", buf.String())
		}
		w.Write([]byte(`{"conflict":{"id":"cfl-1"},"reevaluated":2}`))
	})

	if err := execute("conflicts", "resolve", "cfl-1", "--action", "PRIORITIZE_A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
