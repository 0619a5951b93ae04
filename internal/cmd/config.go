package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shipgate/shipgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify shipgate configuration",
	Long: `View or modify shipgate configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  shipgate config set release.stamp_policy strict
  shipgate config set audit.ready_attempts 20
  shipgate config set gates.coverage_min_percent 90

Valid keys:
  product.name                - Artifact name: <name>-<version>.tar.gz
  product.work_dir            - Working tree of the target application
  release.settings_path       - Settings file holding the VERSION line
  release.remote              - Git remote the release tag is pushed to
  release.stamp_policy        - Missing VERSION line handling
                                Options: lenient, strict
  release.git_backend         - Version-control implementation
                                Options: cli, gogit
  gates.coverage_min_percent  - Minimum total coverage (0 disables)
  gates.e2e_enabled           - Include the end-to-end gate (true/false)
  gates.e2e_headless          - Run the browser suite headless (true/false)
  audit.base_url              - Where the dev server answers once ready
  audit.warmup_seconds        - Post-start wait before readiness polling
  audit.ready_attempts        - Readiness polling attempt budget
  audit.ready_delay_seconds   - Delay between readiness attempts
  audit.empty_report_policy   - Absent/empty auditor report handling
                                Options: pass, error
  matrix.framework_package    - Dependency pinned per matrix combination
  logging.level               - Log level: debug, info, warn, error
  logging.dir                 - Log directory (empty logs to stderr)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/shipgate/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("product:")
	fmt.Printf("  name: %s\n", cfg.Product.Name)
	fmt.Printf("  work_dir: %s\n", displayValue(cfg.Product.WorkDir, "(current directory)"))

	fmt.Println("release:")
	fmt.Printf("  settings_path: %s\n", cfg.Release.SettingsPath)
	fmt.Printf("  remote: %s\n", cfg.Release.Remote)
	fmt.Printf("  stamp_policy: %s\n", cfg.Release.StampPolicy)
	fmt.Printf("  git_backend: %s\n", cfg.Release.GitBackend)

	fmt.Println("gates:")
	fmt.Printf("  lint: %s\n", strings.Join(cfg.Gates.Lint, " "))
	fmt.Printf("  tests: %s\n", strings.Join(cfg.Gates.Tests, " "))
	fmt.Printf("  test_report: %s\n", cfg.Gates.TestReport)
	fmt.Printf("  coverage_run: %s\n", strings.Join(cfg.Gates.CoverageRun, " "))
	fmt.Printf("  coverage_report: %s\n", strings.Join(cfg.Gates.CoverageReport, " "))
	fmt.Printf("  coverage_min_percent: %d\n", cfg.Gates.CoverageMinPercent)
	fmt.Printf("  e2e: %s\n", strings.Join(cfg.Gates.E2E, " "))
	fmt.Printf("  e2e_enabled: %v\n", cfg.Gates.E2EEnabled)
	fmt.Printf("  e2e_headless: %v\n", cfg.Gates.E2EHeadless)

	fmt.Println("audit:")
	fmt.Printf("  server: %s\n", strings.Join(cfg.Audit.Server, " "))
	fmt.Printf("  base_url: %s\n", cfg.Audit.BaseURL)
	fmt.Printf("  routes: %s\n", strings.Join(cfg.Audit.Routes, ", "))
	fmt.Printf("  auditor: %s\n", strings.Join(cfg.Audit.Auditor, " "))
	fmt.Printf("  warmup_seconds: %d\n", cfg.Audit.WarmupSeconds)
	fmt.Printf("  ready_attempts: %d\n", cfg.Audit.ReadyAttempts)
	fmt.Printf("  ready_delay_seconds: %d\n", cfg.Audit.ReadyDelaySeconds)
	fmt.Printf("  empty_report_policy: %s\n", cfg.Audit.EmptyReportPolicy)

	fmt.Println("matrix:")
	fmt.Printf("  interpreters: %s\n", strings.Join(cfg.Matrix.Interpreters, ", "))
	fmt.Printf("  frameworks: %s\n", strings.Join(cfg.Matrix.Frameworks, ", "))
	fmt.Printf("  framework_package: %s\n", cfg.Matrix.FrameworkPackage)

	fmt.Println("logging:")
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	fmt.Printf("  dir: %s\n", displayValue(cfg.Logging.Dir, "(stderr)"))

	return nil
}

func displayValue(value, empty string) string {
	if value == "" {
		return empty
	}
	return value
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"product.name":               "string",
		"product.work_dir":           "string",
		"release.settings_path":      "string",
		"release.remote":             "string",
		"release.stamp_policy":       "string",
		"release.git_backend":        "string",
		"release.author_name":        "string",
		"release.author_email":       "string",
		"gates.test_report":          "string",
		"gates.coverage_min_percent": "int",
		"gates.e2e_enabled":          "bool",
		"gates.e2e_headless":         "bool",
		"audit.base_url":             "string",
		"audit.warmup_seconds":       "int",
		"audit.ready_attempts":       "int",
		"audit.ready_delay_seconds":  "int",
		"audit.empty_report_policy":  "string",
		"matrix.framework_package":   "string",
		"logging.level":              "string",
		"logging.dir":                "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'shipgate config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue any
	switch keyType {
	case "string":
		if err := validateEnumKey(key, value); err != nil {
			return err
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

// validateEnumKey rejects values outside a key's fixed option set.
func validateEnumKey(key, value string) error {
	enums := map[string][]string{
		"release.stamp_policy":      config.ValidStampPolicies(),
		"release.git_backend":       config.ValidGitBackends(),
		"audit.empty_report_policy": config.ValidEmptyReportPolicies(),
		"logging.level":             config.ValidLogLevels(),
	}
	options, ok := enums[key]
	if !ok {
		return nil
	}
	for _, option := range options {
		if value == option {
			return nil
		}
	}
	return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
		key, value, strings.Join(options, ", "))
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'shipgate config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Shipgate configuration

# The application being released
product:
  # Artifact name: <name>-<version>.tar.gz
  name: todo
  # Working tree of the application; empty means the current directory
  work_dir: ""

release:
  # File holding the persisted VERSION line, relative to the working tree
  settings_path: todo/settings.py
  # Git remote the release tag is pushed to
  remote: origin
  # What a missing VERSION line means
  # Options: lenient (silent no-op), strict (failure)
  stamp_policy: lenient
  # Version-control implementation
  # Options: cli (shell out to git), gogit (in-process)
  git_backend: cli

gates:
  lint: [flake8, "."]
  tests: [python, tasks/run_tests.py]
  # JSON report the test runner leaves behind; empty disables summaries
  test_report: result_test_auto.json
  coverage_run: [coverage, run, manage.py, test, tasks]
  coverage_report: [coverage, report]
  # Minimum total coverage percent; 0 leaves the exit status as the signal
  coverage_min_percent: 0
  e2e: [python, manage.py, test, tasks.test_e2e_selenium]
  e2e_enabled: false
  e2e_headless: true

audit:
  server: [python, manage.py, runserver, "127.0.0.1:8000", --noreload]
  base_url: http://127.0.0.1:8000
  routes: ["/", "/tasks/new/"]
  auditor: [pa11y, --reporter, json]
  warmup_seconds: 3
  ready_attempts: 10
  ready_delay_seconds: 1
  # What an absent or empty auditor report means
  # Options: pass, error
  empty_report_policy: pass

matrix:
  interpreters: ["3.10", "3.11"]
  frameworks: ["4.2", "5.0", "5.1"]
  framework_package: Django
  requirements: [flake8, coverage]
  install: ["{python}", -m, pip, install, -r, "{manifest}"]
  lint: ["{python}", -m, flake8, "."]
  tests: ["{python}", tasks/run_tests.py]
  coverage: ["{python}", -m, coverage, run, manage.py, test, tasks]

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log directory; empty logs to stderr
  dir: ""
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize shipgate's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Println("\nSearch paths:")
	fmt.Printf("  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Printf("  2. $HOME/.config/shipgate/config.yaml\n")
	fmt.Printf("  3. ./config.yaml (current directory)\n")
	fmt.Println("\nEnvironment variables: SHIPGATE_* (e.g., SHIPGATE_RELEASE_STAMP_POLICY)")

	return nil
}
