// internal/ua/ua.go
//
// User-Agent parsing helpers.
//
// This wrapper isolates `github.com/avct/uasurfer` so the rest of the
// storefront never sees its enums.  Request info, the request logger, and
// the root loader (which skips analytics for crawlers) read Info only.
package ua

import (
	"fmt"
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// Info carries the UA attributes the storefront cares about.
//
// Example (Safari on iPhone):
//
//	Browser   "Safari"
//	Version   "17.4"
//	OS        "iOS"
//	OSVersion "17.4.1"
//	Device    "Mobile"
//	Platform  "iPhone"
//	IsBot     false
//
// Device is one of "Desktop", "Mobile", "Tablet", or "Other".
type Info struct {
	Browser   string
	Version   string
	OS        string
	OSVersion string
	Device    string
	Platform  string
	IsBot     bool
	Raw       string
}

// Parse converts a raw header into an Info struct.
func Parse(raw string) Info {
	u := surfer.Parse(raw)

	info := Info{
		Browser:   strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:   versionToString(u.Browser.Version),
		OS:        strings.TrimPrefix(u.OS.Name.String(), "OS"),
		OSVersion: versionToString(u.OS.Version),
		Platform:  strings.TrimPrefix(u.OS.Platform.String(), "Platform"),
		IsBot:     u.IsBot(),
		Raw:       raw,
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	return info
}

// versionToString renders a version in dotted form while trimming trailing
// zeros: 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(int(v.Major))
}
