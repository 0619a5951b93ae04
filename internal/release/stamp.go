package release

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// versionLineRe matches the persisted version assignment, preserving
// any indentation.
var versionLineRe = regexp.MustCompile(`^(\s*)VERSION\s*=\s*.*$`)

// ErrPatternNotFound is returned under StampStrict when the settings
// file contains no VERSION assignment.
var ErrPatternNotFound = errors.New("release: no VERSION line in settings file")

// StampPolicy decides what happens when the settings file has no
// VERSION line. The two observed script variants disagree: one silently
// leaves the file untouched, the other treats it as a failure. The
// choice is configuration (see DESIGN.md).
type StampPolicy string

const (
	// StampLenient rewrites nothing and reports success when the
	// pattern is absent.
	StampLenient StampPolicy = "lenient"
	// StampStrict fails when the pattern is absent.
	StampStrict StampPolicy = "strict"
)

// Stamp rewrites the VERSION assignment in the settings file to the
// given version, leaving every other line untouched. Running twice with
// the same version yields identical content.
func Stamp(path, version string, policy StampPolicy) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("release: reading settings file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("release: stat settings file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	replaced := false
	for i, line := range lines {
		m := versionLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lines[i] = fmt.Sprintf(`%sVERSION = "%s"`, m[1], version)
		replaced = true
		break
	}

	if !replaced {
		if policy == StampStrict {
			return fmt.Errorf("%w: %s", ErrPatternNotFound, path)
		}
		// Lenient variant: silent no-op, observed behavior.
		return nil
	}

	out := strings.Join(lines, "\n")
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return fmt.Errorf("release: writing settings file: %w", err)
	}
	return nil
}
