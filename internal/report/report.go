// Package report renders operator-facing console output: per-step
// status lines while the pipeline runs, and the final summary blocks.
// The console is presentation only; the machine-readable signal of a
// run remains the process exit status.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/shipgate/shipgate/internal/gate"
	"github.com/shipgate/shipgate/internal/matrix"
	"github.com/shipgate/shipgate/internal/release"
	"github.com/shipgate/shipgate/internal/util"
)

const maxDetailWidth = 100

// Reporter writes styled status lines to a single output stream.
type Reporter struct {
	out io.Writer

	pass    lipgloss.Style
	fail    lipgloss.Style
	pending lipgloss.Style
	header  lipgloss.Style
	dim     lipgloss.Style
}

// New creates a Reporter writing to out.
func New(out io.Writer) *Reporter {
	return &Reporter{
		out:     out,
		pass:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		pending: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		header:  lipgloss.NewStyle().Bold(true),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// GateObserver returns callbacks that render gate progress lines.
func (r *Reporter) GateObserver() gate.Observer {
	return gate.Observer{
		GateStarted: func(name string) {
			fmt.Fprintf(r.out, "%s %s...\n", r.pending.Render("▶"), name)
		},
		GateFinished: func(res gate.Result) {
			r.GateResult(res)
		},
	}
}

// GateResult renders one finished gate.
func (r *Reporter) GateResult(res gate.Result) {
	switch res.Status {
	case gate.StatusPassed:
		fmt.Fprintf(r.out, "%s %s %s\n",
			r.pass.Render("✓"), res.Gate, r.dim.Render(r.detail(res.Detail, res.Duration)))
	case gate.StatusFailed:
		fmt.Fprintf(r.out, "%s %s failed %s\n",
			r.fail.Render("✗"), res.Gate, r.dim.Render(r.detail(res.Detail, res.Duration)))
	case gate.StatusErrored:
		fmt.Fprintf(r.out, "%s %s errored: %v\n", r.fail.Render("✗"), res.Gate, res.Err)
	}
}

// MutationResult renders one finished mutation step.
func (r *Reporter) MutationResult(res release.MutationResult) {
	if res.Succeeded() {
		fmt.Fprintf(r.out, "%s %s %s\n",
			r.pass.Render("✓"), res.Step, r.dim.Render("→ "+res.Target))
		return
	}
	fmt.Fprintf(r.out, "%s %s failed: %v\n", r.fail.Render("✗"), res.Step, res.Err)
}

// PipelineSummary renders the terminal state of a release run.
func (r *Reporter) PipelineSummary(o release.Outcome) {
	fmt.Fprintln(r.out)
	if o.Completed() {
		fmt.Fprintln(r.out, r.pass.Render(fmt.Sprintf("Release %s completed", o.Version)))
		if o.ArchivePath != "" {
			fmt.Fprintf(r.out, "  artifact: %s\n", o.ArchivePath)
		}
		return
	}
	fmt.Fprintln(r.out, r.fail.Render(fmt.Sprintf("Release %s aborted at %s", o.Version, o.AbortedAt)))
	for _, res := range o.Gates {
		if !res.Passed() && len(res.Output) > 0 {
			fmt.Fprintln(r.out, r.dim.Render(strings.TrimSpace(string(res.Output))))
		}
	}
}

// GatesSummary renders the terminal state of a gates-only run.
func (r *Reporter) GatesSummary(results []gate.Result, ok bool) {
	fmt.Fprintln(r.out)
	if ok {
		fmt.Fprintln(r.out, r.pass.Render(fmt.Sprintf("All %d gate(s) passed", len(results))))
		return
	}
	failed := results[len(results)-1]
	fmt.Fprintln(r.out, r.fail.Render(fmt.Sprintf("Gate %s did not pass", failed.Gate)))
}

// MatrixTable renders one row per combination plus aggregate counts.
func (r *Reporter) MatrixTable(outcomes []matrix.Outcome) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.header.Render("Compatibility matrix"))

	width := 0
	for _, o := range outcomes {
		if n := len(o.Combination.String()); n > width {
			width = n
		}
	}

	for _, o := range outcomes {
		name := fmt.Sprintf("%-*s", width, o.Combination.String())
		if o.Passed {
			fmt.Fprintf(r.out, "  %s  %s\n", name, r.pass.Render("passed"))
			continue
		}
		detail := util.TruncateString(o.Detail, maxDetailWidth)
		fmt.Fprintf(r.out, "  %s  %s %s\n",
			name,
			r.fail.Render("failed ("+string(o.Reason)+")"),
			r.dim.Render(detail))
	}

	s := matrix.Summarize(outcomes)
	fmt.Fprintln(r.out)
	line := fmt.Sprintf("%d combination(s): %d passed, %d failed", s.Total, s.Passed, s.Failed)
	if s.Failed > 0 {
		fmt.Fprintln(r.out, r.fail.Render(line))
	} else {
		fmt.Fprintln(r.out, r.pass.Render(line))
	}
}

func (r *Reporter) detail(detail string, d time.Duration) string {
	out := "(" + d.Round(time.Millisecond).String() + ")"
	if detail != "" {
		out = detail + " " + out
	}
	return util.TruncateString(out, maxDetailWidth)
}
