package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipgate/shipgate/internal/report"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run the accessibility gate standalone",
	Long: `Start a local instance of the application, audit every configured
route for accessibility issues, and tear the instance down again. The
gate fails if any route reports issues.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	env, err := newRunEnv()
	if err != nil {
		return err
	}
	defer env.close()

	rep := report.New(os.Stdout)
	g := env.buildAuditGate()

	obs := rep.GateObserver()
	obs.GateStarted(g.Name())
	res := g.Run(cmd.Context())
	obs.GateFinished(res)

	if !res.Passed() {
		return fmt.Errorf("accessibility audit did not pass")
	}
	return nil
}
