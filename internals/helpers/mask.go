package helpers

import "strings"

// MaskSensitive redacts a credential for any outward-facing output (logs, healthz).
// Values of 8 characters or less are returned unchanged, longer values keep their
// first and last 4 characters with the middle replaced by asterisks.
// Counting is per character, never mid-rune.
func MaskSensitive(value string) string {
	runes := []rune(value)
	length := len(runes)
	if length <= 8 {
		return value
	}
	return string(runes[:4]) + strings.Repeat("*", length-8) + string(runes[length-4:])
}
