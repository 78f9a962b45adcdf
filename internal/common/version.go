package common

// Version is set at build time via -ldflags "-X github.com/ternarybob/venator/internal/common.Version=x.y.z"
var Version = "dev"

// Build is the commit or build identifier, also injected at build time
var Build = "local"

// GetVersion returns the application version string
func GetVersion() string {
	return Version
}
