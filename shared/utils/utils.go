package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sui coin types look like 0x<64 hex>::module::TYPE.
var coinTypePattern = regexp.MustCompile(`^0x[a-fA-F0-9]{64}::[a-zA-Z0-9_]+::[a-zA-Z0-9_]+$`)

// ValidateCoinType reports whether the string is a well-formed Sui coin type.
func ValidateCoinType(address string) bool {
	return coinTypePattern.MatchString(address)
}

// ShortenAddress truncates an address to its first `keep` characters plus the
// last four, preserving a trailing ::module::type suffix when present.
func ShortenAddress(address string, keep int) string {
	base := address
	suffix := ""
	if i := strings.Index(address, "::"); i >= 0 {
		base = address[:i]
		suffix = address[i:]
	}
	if keep < 1 {
		keep = 1
	}
	if len(base) <= keep+4+3 {
		return address
	}
	return base[:keep] + "..." + base[len(base)-4:] + suffix
}

// HumanDuration renders a duration as its largest whole unit, matching the
// granularity of the boost tariff labels ("2 days", "1 week").
func HumanDuration(d time.Duration) string {
	seconds := int64(d.Seconds())
	intervals := []struct {
		name  string
		count int64
	}{
		{"week", 604800},
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
	}
	for _, iv := range intervals {
		value := seconds / iv.count
		if value > 0 {
			if value > 1 {
				return strconv.FormatInt(value, 10) + " " + iv.name + "s"
			}
			return strconv.FormatInt(value, 10) + " " + iv.name
		}
	}
	return "moments"
}
