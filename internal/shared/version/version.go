// Package version provides utilities for semantic version comparison.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Normalize ensures version string has "v" prefix for semver compatibility.
// Examples: "1.2.3" -> "v1.2.3", "v1.2.3" -> "v1.2.3"
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}

// IsValid reports whether version is a valid semantic version, with or without the "v" prefix.
func IsValid(version string) bool {
	return semver.IsValid(Normalize(version))
}

// AtLeast reports whether version is a valid semver that is greater than or equal to minimum.
// An empty minimum accepts every valid version.
func AtLeast(version, minimum string) bool {
	v := Normalize(version)
	if !semver.IsValid(v) {
		return false
	}
	if minimum == "" {
		return true
	}
	m := Normalize(minimum)
	if !semver.IsValid(m) {
		return false
	}
	return semver.Compare(v, m) >= 0
}

// HasNewerVersion checks if latestVersion is newer than currentVersion using semver.
func HasNewerVersion(currentVersion, latestVersion string) bool {
	if latestVersion == "" {
		return false
	}

	// Development builds always see an update.
	if currentVersion == "" || currentVersion == "dev" {
		return true
	}

	current := Normalize(currentVersion)
	latest := Normalize(latestVersion)

	if !semver.IsValid(current) {
		return true
	}
	if !semver.IsValid(latest) {
		return false
	}

	return semver.Compare(current, latest) < 0
}
