package util

import (
	"regexp"
	"strings"
)

var (
	pairingCodeRegex = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)
	deviceIDRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	deviceNameRegex  = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)
	emailRegex       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	unsafeCharsRegex = regexp.MustCompile(`[<>"'&]`)
)

// MinDeviceIDLength is the shortest accepted device identifier. IDs are a
// hardware identifier joined to a UUID, so anything shorter is malformed.
const MinDeviceIDLength = 20

const MaxDeviceNameLength = 50

// IsValidPairingCode reports whether s is a canonical XXXX-XXXX pairing
// code. Matching is case sensitive: codes are always uppercase.
func IsValidPairingCode(s string) bool {
	return pairingCodeRegex.MatchString(s)
}

// IsValidDeviceID reports whether s is a well-formed installation
// identifier.
func IsValidDeviceID(s string) bool {
	return len(s) >= MinDeviceIDLength && deviceIDRegex.MatchString(s)
}

// IsValidDeviceName reports whether s is an acceptable human-assigned
// device name.
func IsValidDeviceName(s string) bool {
	return len(s) >= 1 && len(s) <= MaxDeviceNameLength && deviceNameRegex.MatchString(s)
}

// IsValidEmail does a shallow shape check; actual address ownership is the
// identity provider's problem.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// SanitizeInput trims, strips markup-significant characters, and bounds the
// length of free-text input.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	s = unsafeCharsRegex.ReplaceAllString(s, "")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
