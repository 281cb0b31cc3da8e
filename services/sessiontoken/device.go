package sessiontoken

import "github.com/mileusna/useragent"

const unknownDevice = "Unknown Device"

// DeviceLabel condenses a User-Agent header into a short label such as
// "Firefox on Linux (Desktop)" for display in session listings.
func DeviceLabel(userAgentString string) string {
	if userAgentString == "" {
		return unknownDevice
	}

	ua := useragent.Parse(userAgentString)

	kind := "Desktop"
	switch {
	case ua.Bot:
		kind = "Bot"
	case ua.Mobile:
		kind = "Mobile"
	case ua.Tablet:
		kind = "Tablet"
	}

	browser := ua.Name
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS
	if os == "" {
		os = "Unknown OS"
	}

	label := browser + " on " + os + " (" + kind + ")"
	if len(label) > 255 {
		label = label[:255]
	}
	return label
}
