package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipgate/shipgate/internal/release"
	"github.com/shipgate/shipgate/internal/report"
)

var (
	releaseVersion string
	releaseStrict  bool
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Validate and release a new version",
	Long: `Run every validation gate against the working tree and, if all of
them pass, stamp the version into the settings file, commit, create an
annotated tag, push it, and package the release archive.

The first failing gate aborts the run before any state is mutated.
Mutation steps that fail halt the sequence but are never rolled back;
inspect the repository state after a partial failure.`,
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().StringVarP(&releaseVersion, "version", "v", "", "release version to stamp, tag and package (required)")
	releaseCmd.Flags().BoolVar(&releaseStrict, "strict", false, "require the version to parse as semantic versioning")
	_ = releaseCmd.MarkFlagRequired("version")
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, args []string) error {
	if err := release.ValidateVersion(releaseVersion, releaseStrict); err != nil {
		return err
	}
	// Flag parsing succeeded; errors past this point are pipeline
	// failures, not usage mistakes.
	cmd.SilenceUsage = true

	env, err := newRunEnv()
	if err != nil {
		return err
	}
	defer env.close()

	git, err := env.buildGitClient()
	if err != nil {
		return err
	}

	rep := report.New(os.Stdout)
	pipeline, err := release.New(release.Config{
		Version:      releaseVersion,
		WorkDir:      env.workDir,
		SettingsPath: env.cfg.Release.SettingsPath,
		Product:      env.cfg.Product.Name,
		Remote:       env.cfg.Release.Remote,
		StampPolicy:  release.StampPolicy(env.cfg.Release.StampPolicy),
		Gates:        env.buildGates(),
		Git:          git,
	},
		release.WithLogger(env.logger),
		release.WithGateObserver(rep.GateObserver()),
		release.WithMutationObserver(rep.MutationResult),
	)
	if err != nil {
		return err
	}

	outcome := pipeline.Run(cmd.Context())
	rep.PipelineSummary(outcome)

	if !outcome.Completed() {
		return fmt.Errorf("release aborted at %s", outcome.AbortedAt)
	}
	return nil
}
