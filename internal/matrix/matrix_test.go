package matrix

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/shipgate/shipgate/internal/toolrunner"
)

// stageRunner fails selected stages per combination. The combination is
// recovered from the expanded argv, which carries the interpreter via
// the {python} placeholder.
type stageRunner struct {
	// failStage, when non-empty, makes that stage exit non-zero for
	// every combination in failFor (or all combinations when empty).
	failStage string
	failFor   string
	output    string

	// manifests captures the manifest file content as seen at install
	// time, keyed by interpreter token.
	manifests map[string]string

	calls []toolrunner.Command
}

func (r *stageRunner) Run(ctx context.Context, cmd toolrunner.Command) (toolrunner.Result, error) {
	r.calls = append(r.calls, cmd)

	argv := strings.Join(cmd.Args, " ")
	if cmd.Name == "install" && r.manifests != nil {
		for _, arg := range cmd.Args {
			if strings.Contains(arg, ".matrix-requirements-") {
				data, err := os.ReadFile(arg)
				if err == nil {
					r.manifests[arg] = string(data)
				}
			}
		}
	}

	if cmd.Name == r.failStage && (r.failFor == "" || strings.Contains(argv, r.failFor)) {
		return toolrunner.Result{ExitCode: 1, Output: []byte(r.output)}, nil
	}
	return toolrunner.Result{ExitCode: 0}, nil
}

func testConfig(dir string) Config {
	return Config{
		WorkDir:          dir,
		Interpreters:     []string{"3.10", "3.11"},
		Frameworks:       []string{"4.2", "5.0", "5.1"},
		FrameworkPackage: "Django",
		Requirements:     []string{"flake8", "coverage"},
		Commands: Commands{
			Install:  []string{"{python}", "-m", "pip", "install", "-r", "{manifest}"},
			Lint:     []string{"{python}", "-m", "flake8", "."},
			Tests:    []string{"{python}", "manage.py", "test"},
			Coverage: []string{"{python}", "-m", "coverage", "run", "manage.py", "test"},
		},
	}
}

func TestRunner_CartesianProduct(t *testing.T) {
	r, err := New(testConfig(t.TempDir()), &stageRunner{})
	if err != nil {
		t.Fatal(err)
	}

	combos := r.Combinations()
	if len(combos) != 6 {
		t.Fatalf("combinations = %d, want 6", len(combos))
	}
	want := []Combination{
		{"3.10", "4.2"}, {"3.10", "5.0"}, {"3.10", "5.1"},
		{"3.11", "4.2"}, {"3.11", "5.0"}, {"3.11", "5.1"},
	}
	for i, combo := range combos {
		if combo != want[i] {
			t.Errorf("combo[%d] = %v, want %v", i, combo, want[i])
		}
	}
}

func TestRunner_AllPass(t *testing.T) {
	runner := &stageRunner{}
	r, err := New(testConfig(t.TempDir()), runner)
	if err != nil {
		t.Fatal(err)
	}

	outcomes, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 6 {
		t.Fatalf("outcomes = %d, want 6", len(outcomes))
	}
	for _, o := range outcomes {
		if !o.Passed {
			t.Errorf("combination %s failed: %s", o.Combination, o.Detail)
		}
	}
	// Four stages per combination.
	if len(runner.calls) != 24 {
		t.Errorf("stage invocations = %d, want 24", len(runner.calls))
	}

	s := Summarize(outcomes)
	if s.Total != 6 || s.Passed != 6 || s.Failed != 0 {
		t.Errorf("summary = %+v", s)
	}
}

func TestRunner_FailureIsolation(t *testing.T) {
	// Installation fails only for python3.10 combinations.
	runner := &stageRunner{failStage: "install", failFor: "python3.10", output: "No matching distribution\n"}
	r, err := New(testConfig(t.TempDir()), runner)
	if err != nil {
		t.Fatal(err)
	}

	outcomes, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 6 {
		t.Fatalf("outcomes = %d, want 6: a failing combination must not stop the rest", len(outcomes))
	}

	for _, o := range outcomes {
		if o.Combination.Interpreter == "3.10" {
			if o.Passed {
				t.Errorf("%s passed, want failure", o.Combination)
			}
			if o.Reason != ReasonInstallation {
				t.Errorf("%s reason = %s, want Installation", o.Combination, o.Reason)
			}
			if o.Detail != "No matching distribution" {
				t.Errorf("%s detail = %q", o.Combination, o.Detail)
			}
		} else if !o.Passed {
			t.Errorf("%s failed, want pass", o.Combination)
		}
	}

	s := Summarize(outcomes)
	if s.Passed != 3 || s.Failed != 3 {
		t.Errorf("summary = %+v, want 3/3", s)
	}
}

func TestRunner_ReasonPerStage(t *testing.T) {
	tests := []struct {
		stage string
		want  Reason
	}{
		{"install", ReasonInstallation},
		{"lint", ReasonLinter},
		{"tests", ReasonTests},
		{"coverage", ReasonCoverage},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			cfg := testConfig(t.TempDir())
			cfg.Interpreters = []string{"3.11"}
			cfg.Frameworks = []string{"5.0"}
			r, err := New(cfg, &stageRunner{failStage: tt.stage})
			if err != nil {
				t.Fatal(err)
			}

			outcomes, err := r.Run(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if len(outcomes) != 1 || outcomes[0].Passed {
				t.Fatalf("outcomes = %+v, want one failure", outcomes)
			}
			if outcomes[0].Reason != tt.want {
				t.Errorf("reason = %s, want %s", outcomes[0].Reason, tt.want)
			}
		})
	}
}

func TestRunner_FailedStagesStopCombination(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Interpreters = []string{"3.11"}
	cfg.Frameworks = []string{"5.0"}
	runner := &stageRunner{failStage: "lint"}
	r, err := New(cfg, runner)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Only install and lint ran; tests and coverage were skipped.
	stages := make([]string, len(runner.calls))
	for i, c := range runner.calls {
		stages[i] = c.Name
	}
	want := []string{"install", "lint"}
	if strings.Join(stages, ",") != strings.Join(want, ",") {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestRunner_ManifestContent(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Interpreters = []string{"3.11"}
	cfg.Frameworks = []string{"5.0"}
	runner := &stageRunner{manifests: make(map[string]string)}
	r, err := New(cfg, runner)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(runner.manifests) != 1 {
		t.Fatalf("manifests seen = %d, want 1", len(runner.manifests))
	}
	for path, content := range runner.manifests {
		if !strings.HasSuffix(path, ".matrix-requirements-3.11-5.0.txt") {
			t.Errorf("manifest path = %q", path)
		}
		want := "Django==5.0\nflake8\ncoverage\n"
		if content != want {
			t.Errorf("manifest content = %q, want %q", content, want)
		}
		// The manifest is removed after the combination finishes.
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("manifest %q not cleaned up", path)
		}
	}
}

func TestExpand(t *testing.T) {
	combo := Combination{Interpreter: "3.11", Framework: "5.0"}
	got := expand([]string{"{python}", "-m", "pip", "install", "-r", "{manifest}"}, combo, "/tmp/req.txt")
	want := []string{"python3.11", "-m", "pip", "install", "-r", "/tmp/req.txt"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCombinationString(t *testing.T) {
	c := Combination{Interpreter: "3.11", Framework: "Django 5.0"}
	if got := c.String(); got != "python3.11 / Django 5.0" {
		t.Errorf("String() = %q", got)
	}
}

func TestNew_Validation(t *testing.T) {
	valid := testConfig("")
	tools := &stageRunner{}

	tests := []struct {
		name   string
		mutate func(*Config)
		tools  toolrunner.Runner
	}{
		{"no interpreters", func(c *Config) { c.Interpreters = nil }, tools},
		{"no frameworks", func(c *Config) { c.Frameworks = nil }, tools},
		{"no framework package", func(c *Config) { c.FrameworkPackage = "" }, tools},
		{"no tool runner", func(c *Config) {}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := New(cfg, tt.tools); err == nil {
				t.Error("expected error")
			}
		})
	}
}
