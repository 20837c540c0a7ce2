// Package version provides the version information of the server.
package version

import (
	"fmt"
	"strings"
)

// Version is the service current released version.
var Version = "0.3.2"

// DevVersion is the service current development version.
var DevVersion = "0.3.2"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

func GetMinorVersion(version string) string {
	versionList := strings.Split(version, ".")
	if len(versionList) < 3 {
		return ""
	}
	return fmt.Sprintf("%s.%s", versionList[0], versionList[1])
}

// GetSchemaVersion returns the schema version for the given version string.
func GetSchemaVersion(version string) string {
	minorVersion := GetMinorVersion(version)
	if minorVersion == "" {
		return ""
	}
	return minorVersion + ".0"
}
