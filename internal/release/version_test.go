package release

import (
	"errors"
	"testing"
)

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		strict  bool
		wantErr bool
	}{
		{"plain label", "2.4", false, false},
		{"semver label", "1.2.3", false, false},
		{"empty", "", false, true},
		{"whitespace only", "   ", false, true},
		{"strict semver accepted", "1.2.3", true, false},
		{"strict rejects two-part", "1.2", true, true},
		{"strict rejects prefix", "v1.2.3", true, true},
		{"strict accepts prerelease", "1.2.3-rc.1", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVersion(tt.version, tt.strict)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVersion(%q, %v) error = %v, wantErr %v", tt.version, tt.strict, err, tt.wantErr)
			}
		})
	}
}

func TestValidateVersion_EmptyIsSentinel(t *testing.T) {
	if err := ValidateVersion("", false); !errors.Is(err, ErrMissingVersion) {
		t.Errorf("error = %v, want ErrMissingVersion", err)
	}
}

func TestTagName(t *testing.T) {
	if got := TagName("1.2.3"); got != "v1.2.3" {
		t.Errorf("TagName = %q, want %q", got, "v1.2.3")
	}
}

func TestCommitMessage(t *testing.T) {
	if got := CommitMessage("1.2.3"); got != "chore: bump version to 1.2.3" {
		t.Errorf("CommitMessage = %q", got)
	}
}

func TestTagMessage(t *testing.T) {
	if got := TagMessage("1.2.3"); got != "Release version 1.2.3" {
		t.Errorf("TagMessage = %q", got)
	}
}
