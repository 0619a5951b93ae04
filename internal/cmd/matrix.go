package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipgate/shipgate/internal/matrix"
	"github.com/shipgate/shipgate/internal/report"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Run the cross-version compatibility matrix",
	Long: `Evaluate the lint, unit test and coverage gates under every
combination of configured interpreter and framework versions. Each
combination gets its own pinned dependency manifest and is evaluated in
isolation: a failure is recorded and the next combination still runs.`,
	RunE: runMatrix,
}

func init() {
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	env, err := newRunEnv()
	if err != nil {
		return err
	}
	defer env.close()

	m := env.cfg.Matrix
	runner, err := matrix.New(matrix.Config{
		WorkDir:          env.workDir,
		Interpreters:     m.Interpreters,
		Frameworks:       m.Frameworks,
		FrameworkPackage: m.FrameworkPackage,
		Requirements:     m.Requirements,
		Commands: matrix.Commands{
			Install:  m.Install,
			Lint:     m.Lint,
			Tests:    m.Tests,
			Coverage: m.Coverage,
		},
	}, env.runner, matrix.WithLogger(env.logger))
	if err != nil {
		return err
	}

	rep := report.New(os.Stdout)
	outcomes, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}
	rep.MatrixTable(outcomes)

	if s := matrix.Summarize(outcomes); s.Failed > 0 {
		return fmt.Errorf("%d of %d combination(s) failed", s.Failed, s.Total)
	}
	return nil
}
