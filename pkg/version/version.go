package version

import (
	"github.com/Masterminds/semver/v3"
)

// Tag is set at build time with -ldflags "-X github.com/flokiorg/userhub/pkg/version.Tag=v1.2.3"
var Tag = "dev"

// IsRelease reports whether tag is a semantic version without a
// prerelease suffix.
func IsRelease(tag string) bool {
	v, err := semver.NewVersion(tag)
	if err != nil {
		return false
	}
	return v.Prerelease() == ""
}
