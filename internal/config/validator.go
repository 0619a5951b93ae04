package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "audit.ready_attempts")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidStampPolicies returns the list of valid stamp policies
func ValidStampPolicies() []string {
	return []string{"lenient", "strict"}
}

// ValidEmptyReportPolicies returns the list of valid audit report policies
func ValidEmptyReportPolicies() []string {
	return []string{"pass", "error"}
}

// ValidGitBackends returns the list of valid git backends
func ValidGitBackends() []string {
	return []string{"cli", "gogit"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateProduct()...)
	errors = append(errors, c.validateRelease()...)
	errors = append(errors, c.validateGates()...)
	errors = append(errors, c.validateAudit()...)
	errors = append(errors, c.validateMatrix()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateProduct() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Product.Name) == "" {
		errors = append(errors, ValidationError{
			Field:   "product.name",
			Value:   c.Product.Name,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateRelease() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Release.SettingsPath) == "" {
		errors = append(errors, ValidationError{
			Field:   "release.settings_path",
			Value:   c.Release.SettingsPath,
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(c.Release.Remote) == "" {
		errors = append(errors, ValidationError{
			Field:   "release.remote",
			Value:   c.Release.Remote,
			Message: "must not be empty",
		})
	}
	if !slices.Contains(ValidStampPolicies(), c.Release.StampPolicy) {
		errors = append(errors, ValidationError{
			Field:   "release.stamp_policy",
			Value:   c.Release.StampPolicy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStampPolicies(), ", ")),
		})
	}
	if !slices.Contains(ValidGitBackends(), c.Release.GitBackend) {
		errors = append(errors, ValidationError{
			Field:   "release.git_backend",
			Value:   c.Release.GitBackend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidGitBackends(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateGates() []ValidationError {
	var errors []ValidationError

	required := []struct {
		field string
		argv  []string
	}{
		{"gates.lint", c.Gates.Lint},
		{"gates.tests", c.Gates.Tests},
		{"gates.coverage_run", c.Gates.CoverageRun},
	}
	for _, req := range required {
		if len(req.argv) == 0 {
			errors = append(errors, ValidationError{
				Field:   req.field,
				Value:   req.argv,
				Message: "must not be empty",
			})
		}
	}

	if c.Gates.E2EEnabled && len(c.Gates.E2E) == 0 {
		errors = append(errors, ValidationError{
			Field:   "gates.e2e",
			Value:   c.Gates.E2E,
			Message: "must not be empty when gates.e2e_enabled is true",
		})
	}
	if c.Gates.CoverageMinPercent < 0 || c.Gates.CoverageMinPercent > 100 {
		errors = append(errors, ValidationError{
			Field:   "gates.coverage_min_percent",
			Value:   c.Gates.CoverageMinPercent,
			Message: "must be between 0 and 100",
		})
	}

	return errors
}

func (c *Config) validateAudit() []ValidationError {
	var errors []ValidationError

	if len(c.Audit.Server) == 0 {
		errors = append(errors, ValidationError{
			Field:   "audit.server",
			Value:   c.Audit.Server,
			Message: "must not be empty",
		})
	}
	if !strings.HasPrefix(c.Audit.BaseURL, "http://") && !strings.HasPrefix(c.Audit.BaseURL, "https://") {
		errors = append(errors, ValidationError{
			Field:   "audit.base_url",
			Value:   c.Audit.BaseURL,
			Message: "must be an http(s) URL",
		})
	}
	if len(c.Audit.Routes) == 0 {
		errors = append(errors, ValidationError{
			Field:   "audit.routes",
			Value:   c.Audit.Routes,
			Message: "must list at least one route",
		})
	}
	if len(c.Audit.Auditor) == 0 {
		errors = append(errors, ValidationError{
			Field:   "audit.auditor",
			Value:   c.Audit.Auditor,
			Message: "must not be empty",
		})
	}
	if c.Audit.ReadyAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "audit.ready_attempts",
			Value:   c.Audit.ReadyAttempts,
			Message: "must be at least 1",
		})
	}
	if c.Audit.WarmupSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "audit.warmup_seconds",
			Value:   c.Audit.WarmupSeconds,
			Message: "must not be negative",
		})
	}
	if c.Audit.ReadyDelaySeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "audit.ready_delay_seconds",
			Value:   c.Audit.ReadyDelaySeconds,
			Message: "must not be negative",
		})
	}
	if !slices.Contains(ValidEmptyReportPolicies(), c.Audit.EmptyReportPolicy) {
		errors = append(errors, ValidationError{
			Field:   "audit.empty_report_policy",
			Value:   c.Audit.EmptyReportPolicy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidEmptyReportPolicies(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateMatrix() []ValidationError {
	var errors []ValidationError

	if len(c.Matrix.Interpreters) == 0 {
		errors = append(errors, ValidationError{
			Field:   "matrix.interpreters",
			Value:   c.Matrix.Interpreters,
			Message: "must list at least one interpreter version",
		})
	}
	if len(c.Matrix.Frameworks) == 0 {
		errors = append(errors, ValidationError{
			Field:   "matrix.frameworks",
			Value:   c.Matrix.Frameworks,
			Message: "must list at least one framework version",
		})
	}
	if strings.TrimSpace(c.Matrix.FrameworkPackage) == "" {
		errors = append(errors, ValidationError{
			Field:   "matrix.framework_package",
			Value:   c.Matrix.FrameworkPackage,
			Message: "must not be empty",
		})
	}
	stages := []struct {
		field string
		argv  []string
	}{
		{"matrix.install", c.Matrix.Install},
		{"matrix.lint", c.Matrix.Lint},
		{"matrix.tests", c.Matrix.Tests},
		{"matrix.coverage", c.Matrix.Coverage},
	}
	for _, stage := range stages {
		if len(stage.argv) == 0 {
			errors = append(errors, ValidationError{
				Field:   stage.field,
				Value:   stage.argv,
				Message: "must not be empty",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
