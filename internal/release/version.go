// Package release implements the release pipeline: the ordered
// validation gates, and — only when every gate passes — the ordered,
// irreversible mutation steps that stamp, commit, tag, push and package
// a release.
package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrMissingVersion is returned when no release version was supplied.
var ErrMissingVersion = errors.New("release: version is required")

// ValidateVersion checks the candidate version string. By default the
// version is an opaque label and only non-emptiness is enforced; with
// strict enabled it must also parse as a semantic version.
func ValidateVersion(version string, strict bool) error {
	if strings.TrimSpace(version) == "" {
		return ErrMissingVersion
	}
	if strict {
		if _, err := semver.StrictNewVersion(version); err != nil {
			return fmt.Errorf("release: %q is not a semantic version: %w", version, err)
		}
	}
	return nil
}

// TagName returns the annotated tag name for a version.
func TagName(version string) string {
	return "v" + version
}

// CommitMessage returns the version-bump commit message.
func CommitMessage(version string) string {
	return fmt.Sprintf("chore: bump version to %s", version)
}

// TagMessage returns the tag annotation message.
func TagMessage(version string) string {
	return fmt.Sprintf("Release version %s", version)
}
