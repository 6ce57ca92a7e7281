package domain

import (
	"strconv"
	"strings"
)

// Device-code authorization shipped in GitHub Enterprise Server 3.1.0.
const (
	minDeviceFlowMajor = 3
	minDeviceFlowMinor = 1
)

// SupportsDeviceFlow reports whether a GHES instance at the given version
// supports the device authorization grant. The boundary is exactly 3.1.0:
// "3.1.0" qualifies, "3.0.9" does not. Unparseable versions report false.
func SupportsDeviceFlow(version string) bool {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	if major != minDeviceFlowMajor {
		return major > minDeviceFlowMajor
	}
	return minor >= minDeviceFlowMinor
}
