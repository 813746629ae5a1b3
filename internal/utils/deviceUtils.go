package utils

import (
	"strings"

	"github.com/mssola/useragent"

	"medibook/internal/models"
)

// ParseDeviceInfo derives browser, OS and device class from a User-Agent header.
func ParseDeviceInfo(userAgent string) models.DeviceInfo {
	if strings.TrimSpace(userAgent) == "" {
		return models.DeviceInfo{Browser: "Unknown", OS: "Unknown", Device: "Unknown"}
	}

	ua := useragent.New(userAgent)
	info := models.DeviceInfo{Device: "Desktop"}

	name, version := ua.Browser()
	info.Browser = strings.TrimSpace(name + " " + version)
	if info.Browser == "" {
		info.Browser = "Unknown"
	}
	info.OS = ua.OS()
	if info.OS == "" {
		info.OS = "Unknown"
	}

	switch {
	case ua.Bot():
		info.Device = "Bot"
	case ua.Mobile():
		info.Device = "Mobile"
	}
	return info
}
