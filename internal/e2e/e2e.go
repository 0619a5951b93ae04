// Package e2e builds the browser-driven end-to-end gate. The scenario
// suite itself lives with the target application; this gate only
// invokes it and reads the exit status.
package e2e

import (
	"github.com/shipgate/shipgate/internal/gate"
	"github.com/shipgate/shipgate/internal/logging"
	"github.com/shipgate/shipgate/internal/toolrunner"
)

// GateName identifies the end-to-end gate in reports.
const GateName = "e2e"

// NewGate creates the end-to-end gate around the configured suite
// command. Headless mode is requested through the environment so the
// suite works on CI hosts without a display.
func NewGate(cmd toolrunner.Command, headless bool, runner toolrunner.Runner, logger *logging.Logger) gate.Gate {
	if headless {
		cmd.Env = append(cmd.Env, "E2E_HEADLESS=1")
	}
	return gate.NewCommand(GateName, cmd, runner, logger)
}
