package config

import (
	"os"
	"strings"
)

// InsightsEnabled gates the LLM report-insight annotation. Presence of the
// API key is the feature flag; there is no separate toggle.
//
// Set via env:
// - INSIGHTS_API_KEY=<key>
func InsightsEnabled() bool {
	return strings.TrimSpace(os.Getenv("INSIGHTS_API_KEY")) != ""
}

// StrictPinRateLimit enables the hard PIN attempt limit even when Redis is
// unavailable (fail-closed). Default is fail-open: without Redis the kiosk
// keeps working and brute-force protection degrades.
//
// Set via env:
// - STRICT_PIN_RATE_LIMIT=true
func StrictPinRateLimit() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_PIN_RATE_LIMIT")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
