package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipgate/shipgate/internal/gate"
	"github.com/shipgate/shipgate/internal/report"
)

var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "Run the validation gates without releasing",
	Long: `Run the ordered validation gates (lint, unit tests, coverage,
accessibility, optional end-to-end suite) against the working tree and
stop at the first failure. No release state is mutated.`,
	RunE: runGates,
}

func init() {
	rootCmd.AddCommand(gatesCmd)
}

func runGates(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	env, err := newRunEnv()
	if err != nil {
		return err
	}
	defer env.close()

	rep := report.New(os.Stdout)
	results, ok := gate.RunFailFast(cmd.Context(), env.buildGates(), rep.GateObserver())
	rep.GatesSummary(results, ok)

	if !ok {
		return fmt.Errorf("gate %s did not pass", results[len(results)-1].Gate)
	}
	return nil
}
