// Package utils holds small helpers shared by the HTTP layer.
package utils

import (
	"strconv"
	"strings"
)

// LimitParam parses a page-size query value. Empty or malformed input yields
// def; values above max are clamped to max. Zero and negative values are
// returned unchanged so callers can treat them as "nothing requested".
func LimitParam(raw string, def, max int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
