package version

import (
	"regexp"
	"testing"
)

var semver = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func TestCurrentIsSemver(t *testing.T) {
	if !semver.MatchString(Current) {
		t.Errorf("Current %q is not major.minor.patch", Current)
	}
}

func TestUserAgent(t *testing.T) {
	if ua := UserAgent(); ua != "iotconfig-go/"+Current {
		t.Errorf("UserAgent() = %q", ua)
	}
}
