package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete shipgate configuration
type Config struct {
	Product ProductConfig `mapstructure:"product"`
	Release ReleaseConfig `mapstructure:"release"`
	Gates   GatesConfig   `mapstructure:"gates"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Matrix  MatrixConfig  `mapstructure:"matrix"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ProductConfig identifies the collaborator application being released
type ProductConfig struct {
	// Name is used in the packaged artifact filename: <name>-<version>.tar.gz
	Name string `mapstructure:"name"`
	// WorkDir is the application's working tree. Empty means the
	// current directory.
	WorkDir string `mapstructure:"work_dir"`
}

// ReleaseConfig controls the mutation sequence
type ReleaseConfig struct {
	// SettingsPath is the file holding the persisted VERSION line,
	// relative to the working tree
	SettingsPath string `mapstructure:"settings_path"`
	// Remote is the git remote the release tag is pushed to
	Remote string `mapstructure:"remote"`
	// StampPolicy decides what a missing VERSION line means
	// Options: "lenient" (silent no-op), "strict" (failure)
	StampPolicy string `mapstructure:"stamp_policy"`
	// GitBackend selects the version-control implementation
	// Options: "cli" (shell out to git), "gogit" (in-process)
	GitBackend string `mapstructure:"git_backend"`
	// AuthorName and AuthorEmail are used by the gogit backend
	AuthorName  string `mapstructure:"author_name"`
	AuthorEmail string `mapstructure:"author_email"`
}

// GatesConfig holds the collaborator invocations for each validation gate
type GatesConfig struct {
	// Lint is the static-analysis invocation
	Lint []string `mapstructure:"lint"`
	// Tests is the unit test suite invocation
	Tests []string `mapstructure:"tests"`
	// TestReport is the JSON report the test runner leaves behind;
	// empty disables summary extraction
	TestReport string `mapstructure:"test_report"`
	// CoverageRun measures coverage; CoverageReport prints the report
	CoverageRun    []string `mapstructure:"coverage_run"`
	CoverageReport []string `mapstructure:"coverage_report"`
	// CoverageMinPercent fails the coverage gate below this total
	// percentage; 0 leaves the exit status as the only signal
	CoverageMinPercent int `mapstructure:"coverage_min_percent"`
	// E2E is the browser scenario suite invocation
	E2E []string `mapstructure:"e2e"`
	// E2EEnabled includes the end-to-end gate in the release pipeline
	E2EEnabled bool `mapstructure:"e2e_enabled"`
	// E2EHeadless requests a headless browser from the suite
	E2EHeadless bool `mapstructure:"e2e_headless"`
}

// AuditConfig controls the accessibility gate
type AuditConfig struct {
	// Server starts the local application instance
	Server []string `mapstructure:"server"`
	// BaseURL is where the instance answers once ready
	BaseURL string `mapstructure:"base_url"`
	// Routes are audited one by one, relative to BaseURL
	Routes []string `mapstructure:"routes"`
	// Auditor is the accessibility tool invocation; the route URL is
	// appended as its last argument
	Auditor []string `mapstructure:"auditor"`
	// WarmupSeconds is waited once after starting the server
	WarmupSeconds int `mapstructure:"warmup_seconds"`
	// ReadyAttempts bounds the readiness polling loop
	ReadyAttempts int `mapstructure:"ready_attempts"`
	// ReadyDelaySeconds separates readiness attempts
	ReadyDelaySeconds int `mapstructure:"ready_delay_seconds"`
	// EmptyReportPolicy decides what an absent/empty report means
	// Options: "pass", "error"
	EmptyReportPolicy string `mapstructure:"empty_report_policy"`
}

// MatrixConfig controls the cross-version compatibility matrix
type MatrixConfig struct {
	// Interpreters are interpreter versions, e.g. ["3.10", "3.11"]
	Interpreters []string `mapstructure:"interpreters"`
	// Frameworks are framework versions, e.g. ["4.2", "5.0"]
	Frameworks []string `mapstructure:"frameworks"`
	// FrameworkPackage is pinned per combination, e.g. "Django"
	FrameworkPackage string `mapstructure:"framework_package"`
	// Requirements are manifest lines shared by every combination
	Requirements []string `mapstructure:"requirements"`
	// Per-stage argv templates; {python} and {manifest} are substituted
	Install  []string `mapstructure:"install"`
	Lint     []string `mapstructure:"lint"`
	Tests    []string `mapstructure:"tests"`
	Coverage []string `mapstructure:"coverage"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the minimum level logged: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir, when set, switches logging from stderr to a JSON file in
	// this directory
	Dir string `mapstructure:"dir"`
}

// WarmupDelay returns the audit warmup delay as a time.Duration
func (a *AuditConfig) WarmupDelay() time.Duration {
	return time.Duration(a.WarmupSeconds) * time.Second
}

// ReadyDelay returns the audit readiness poll interval as a time.Duration
func (a *AuditConfig) ReadyDelay() time.Duration {
	return time.Duration(a.ReadyDelaySeconds) * time.Second
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Product: ProductConfig{
			Name:    "todo",
			WorkDir: "",
		},
		Release: ReleaseConfig{
			SettingsPath: "todo/settings.py",
			Remote:       "origin",
			StampPolicy:  "lenient",
			GitBackend:   "cli",
			AuthorName:   "shipgate",
			AuthorEmail:  "shipgate@localhost",
		},
		Gates: GatesConfig{
			Lint:               []string{"flake8", "."},
			Tests:              []string{"python", "tasks/run_tests.py"},
			TestReport:         "result_test_auto.json",
			CoverageRun:        []string{"coverage", "run", "manage.py", "test", "tasks"},
			CoverageReport:     []string{"coverage", "report"},
			CoverageMinPercent: 0, // exit status only
			E2E:                []string{"python", "manage.py", "test", "tasks.test_e2e_selenium"},
			E2EEnabled:         false,
			E2EHeadless:        true,
		},
		Audit: AuditConfig{
			Server:            []string{"python", "manage.py", "runserver", "127.0.0.1:8000", "--noreload"},
			BaseURL:           "http://127.0.0.1:8000",
			Routes:            []string{"/", "/tasks/new/"},
			Auditor:           []string{"pa11y", "--reporter", "json"},
			WarmupSeconds:     3,
			ReadyAttempts:     10,
			ReadyDelaySeconds: 1,
			EmptyReportPolicy: "pass",
		},
		Matrix: MatrixConfig{
			Interpreters:     []string{"3.10", "3.11"},
			Frameworks:       []string{"4.2", "5.0", "5.1"},
			FrameworkPackage: "Django",
			Requirements:     []string{"flake8", "coverage"},
			Install:          []string{"{python}", "-m", "pip", "install", "-r", "{manifest}"},
			Lint:             []string{"{python}", "-m", "flake8", "."},
			Tests:            []string{"{python}", "tasks/run_tests.py"},
			Coverage:         []string{"{python}", "-m", "coverage", "run", "manage.py", "test", "tasks"},
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Product defaults
	viper.SetDefault("product.name", defaults.Product.Name)
	viper.SetDefault("product.work_dir", defaults.Product.WorkDir)

	// Release defaults
	viper.SetDefault("release.settings_path", defaults.Release.SettingsPath)
	viper.SetDefault("release.remote", defaults.Release.Remote)
	viper.SetDefault("release.stamp_policy", defaults.Release.StampPolicy)
	viper.SetDefault("release.git_backend", defaults.Release.GitBackend)
	viper.SetDefault("release.author_name", defaults.Release.AuthorName)
	viper.SetDefault("release.author_email", defaults.Release.AuthorEmail)

	// Gate defaults
	viper.SetDefault("gates.lint", defaults.Gates.Lint)
	viper.SetDefault("gates.tests", defaults.Gates.Tests)
	viper.SetDefault("gates.test_report", defaults.Gates.TestReport)
	viper.SetDefault("gates.coverage_run", defaults.Gates.CoverageRun)
	viper.SetDefault("gates.coverage_report", defaults.Gates.CoverageReport)
	viper.SetDefault("gates.coverage_min_percent", defaults.Gates.CoverageMinPercent)
	viper.SetDefault("gates.e2e", defaults.Gates.E2E)
	viper.SetDefault("gates.e2e_enabled", defaults.Gates.E2EEnabled)
	viper.SetDefault("gates.e2e_headless", defaults.Gates.E2EHeadless)

	// Audit defaults
	viper.SetDefault("audit.server", defaults.Audit.Server)
	viper.SetDefault("audit.base_url", defaults.Audit.BaseURL)
	viper.SetDefault("audit.routes", defaults.Audit.Routes)
	viper.SetDefault("audit.auditor", defaults.Audit.Auditor)
	viper.SetDefault("audit.warmup_seconds", defaults.Audit.WarmupSeconds)
	viper.SetDefault("audit.ready_attempts", defaults.Audit.ReadyAttempts)
	viper.SetDefault("audit.ready_delay_seconds", defaults.Audit.ReadyDelaySeconds)
	viper.SetDefault("audit.empty_report_policy", defaults.Audit.EmptyReportPolicy)

	// Matrix defaults
	viper.SetDefault("matrix.interpreters", defaults.Matrix.Interpreters)
	viper.SetDefault("matrix.frameworks", defaults.Matrix.Frameworks)
	viper.SetDefault("matrix.framework_package", defaults.Matrix.FrameworkPackage)
	viper.SetDefault("matrix.requirements", defaults.Matrix.Requirements)
	viper.SetDefault("matrix.install", defaults.Matrix.Install)
	viper.SetDefault("matrix.lint", defaults.Matrix.Lint)
	viper.SetDefault("matrix.tests", defaults.Matrix.Tests)
	viper.SetDefault("matrix.coverage", defaults.Matrix.Coverage)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shipgate")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shipgate"
	}
	return filepath.Join(home, ".config", "shipgate")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
