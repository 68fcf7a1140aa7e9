package version

// Version is the current verba release.
const Version = "1.2.0"

// BuildVersion returns the version string for CLI display.
func BuildVersion() string {
	return "verba version " + Version
}

// APIVersion returns just the version number for API responses.
func APIVersion() string {
	return Version
}
