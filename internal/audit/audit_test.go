package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shipgate/shipgate/internal/gate"
	"github.com/shipgate/shipgate/internal/toolrunner"
)

// fakeHandle is a background process stand-in recording teardown.
type fakeHandle struct {
	stopped int
	output  []byte
}

func (h *fakeHandle) Stop() error    { h.stopped++; return nil }
func (h *fakeHandle) Output() []byte { return h.output }
func (h *fakeHandle) Running() bool  { return h.stopped == 0 }

// fakeStarter hands out a fakeHandle, or fails to start at all.
type fakeStarter struct {
	handle   *fakeHandle
	startErr error
	starts   int
}

func (s *fakeStarter) Start(ctx context.Context, cmd toolrunner.Command) (toolrunner.Handle, error) {
	s.starts++
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.handle, nil
}

// auditorRunner plays the auditor, emitting a canned report per audited
// URL (matched by suffix) and recording each invocation.
type auditorRunner struct {
	reports map[string]string
	runErr  error
	calls   []toolrunner.Command
}

func (r *auditorRunner) Run(ctx context.Context, cmd toolrunner.Command) (toolrunner.Result, error) {
	r.calls = append(r.calls, cmd)
	if r.runErr != nil {
		return toolrunner.Result{}, r.runErr
	}
	url := cmd.Args[len(cmd.Args)-1]
	for suffix, report := range r.reports {
		if strings.HasSuffix(url, suffix) {
			return toolrunner.Result{ExitCode: 0, Output: []byte(report)}, nil
		}
	}
	return toolrunner.Result{ExitCode: 0, Output: []byte(`{"issues": []}`)}, nil
}

func newTestGate(t *testing.T, cfg Config, runner toolrunner.Runner, starter toolrunner.Starter) *Gate {
	t.Helper()
	if cfg.ReadyAttempts == 0 {
		cfg.ReadyAttempts = 2
	}
	if cfg.ReadyDelay == 0 {
		cfg.ReadyDelay = 10 * time.Millisecond
	}
	return New(cfg, runner, starter, nil)
}

func TestGate_CleanRoutesPass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	handle := &fakeHandle{}
	starter := &fakeStarter{handle: handle}
	runner := &auditorRunner{}

	g := newTestGate(t, Config{
		BaseURL: srv.URL,
		Routes:  []string{"/", "/tasks/"},
	}, runner, starter)

	res := g.Run(context.Background())
	if res.Status != gate.StatusPassed {
		t.Fatalf("status = %s (%v), want passed", res.Status, res.Err)
	}
	if res.Detail != "2 route(s) clean" {
		t.Errorf("detail = %q", res.Detail)
	}
	if len(runner.calls) != 2 {
		t.Errorf("auditor ran %d times, want 2", len(runner.calls))
	}
	if handle.stopped != 1 {
		t.Errorf("server stopped %d times, want 1", handle.stopped)
	}
}

func TestGate_IssuesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	handle := &fakeHandle{}
	runner := &auditorRunner{reports: map[string]string{
		"/tasks/": `{"issues": [{"code": "WCAG2AA.1_1_1", "message": "Img element missing an alt attribute"}, {"message": "Anchor without link text"}]}`,
	}}

	g := newTestGate(t, Config{
		BaseURL: srv.URL,
		Routes:  []string{"/", "/tasks/"},
	}, runner, &fakeStarter{handle: handle})

	res := g.Run(context.Background())
	if res.Status != gate.StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if !strings.Contains(res.Detail, "2 accessibility issue(s)") {
		t.Errorf("detail = %q", res.Detail)
	}
	if !strings.Contains(res.Detail, "/tasks/: 2 issue(s)") {
		t.Errorf("detail = %q, want per-route count", res.Detail)
	}
	if handle.stopped != 1 {
		t.Errorf("server stopped %d times, want 1", handle.stopped)
	}
}

func TestGate_ServerStartFailure(t *testing.T) {
	starter := &fakeStarter{startErr: errors.New("spawn failed")}
	g := newTestGate(t, Config{BaseURL: "http://127.0.0.1:0", Routes: []string{"/"}}, &auditorRunner{}, starter)

	res := g.Run(context.Background())
	if res.Status != gate.StatusErrored {
		t.Fatalf("status = %s, want errored", res.Status)
	}
}

func TestGate_ServerNeverReady(t *testing.T) {
	// A server that was stopped before the test leaves a port nothing
	// answers on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	handle := &fakeHandle{output: []byte("Traceback: port already in use\n")}
	g := newTestGate(t, Config{
		BaseURL:       url,
		Routes:        []string{"/"},
		ReadyAttempts: 2,
		ReadyDelay:    time.Millisecond,
	}, &auditorRunner{}, &fakeStarter{handle: handle})

	res := g.Run(context.Background())
	if res.Status != gate.StatusErrored {
		t.Fatalf("status = %s, want errored", res.Status)
	}
	if !errors.Is(res.Err, ErrServerNotReady) {
		t.Errorf("err = %v, want ErrServerNotReady", res.Err)
	}
	if handle.stopped != 1 {
		t.Errorf("server stopped %d times, want 1: teardown must run on every exit path", handle.stopped)
	}
	if len(res.Output) == 0 {
		t.Error("server output not surfaced on readiness failure")
	}
}

func TestGate_RouteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken/" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	handle := &fakeHandle{}
	runner := &auditorRunner{}
	g := newTestGate(t, Config{
		BaseURL: srv.URL,
		Routes:  []string{"/", "/broken/"},
	}, runner, &fakeStarter{handle: handle})

	res := g.Run(context.Background())
	if res.Status != gate.StatusErrored {
		t.Fatalf("status = %s, want errored", res.Status)
	}
	if !strings.Contains(res.Err.Error(), "route answered 500") {
		t.Errorf("err = %v", res.Err)
	}
	if handle.stopped != 1 {
		t.Errorf("server stopped %d times, want 1", handle.stopped)
	}
}

func TestGate_AuditorURLAppended(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	runner := &auditorRunner{}
	g := newTestGate(t, Config{
		BaseURL:    srv.URL,
		Routes:     []string{"/tasks/"},
		AuditorCmd: toolrunner.Command{Name: "pa11y", Args: []string{"pa11y", "--reporter", "json"}},
	}, runner, &fakeStarter{handle: &fakeHandle{}})

	res := g.Run(context.Background())
	if res.Status != gate.StatusPassed {
		t.Fatalf("status = %s (%v)", res.Status, res.Err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("auditor ran %d times", len(runner.calls))
	}
	args := runner.calls[0].Args
	if args[len(args)-1] != srv.URL+"/tasks/" {
		t.Errorf("auditor URL = %q, want %q", args[len(args)-1], srv.URL+"/tasks/")
	}
}

func TestCountIssues(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		policy  EmptyReportPolicy
		want    int
		wantErr bool
	}{
		{"object with issues", `{"issues": [{"message": "a"}, {"message": "b"}]}`, EmptyReportPass, 2, false},
		{"bare array", `[{"message": "a"}]`, EmptyReportPass, 1, false},
		{"empty issue list passes by default", `{"issues": []}`, EmptyReportPass, 0, false},
		{"empty output passes by default", "", EmptyReportPass, 0, false},
		{"empty output errors under strict policy", "", EmptyReportError, 0, true},
		{"empty issue list errors under strict policy", `{"issues": []}`, EmptyReportError, 0, true},
		{"malformed report always errors", `{not json`, EmptyReportPass, 0, true},
		{"malformed report errors under strict policy", `{not json`, EmptyReportError, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Config{EmptyReport: tt.policy}, nil, nil, nil)
			got, err := g.countIssues([]byte(tt.output))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("count = %d, want %d", got, tt.want)
			}
		})
	}
}
