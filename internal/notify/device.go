package notify

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent turns a raw agent string into a short human-readable
// device summary ("Chrome on Mac OS X") for notification bodies.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown Device"
	}
}
