package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCoinType(t *testing.T) {
	valid := "0x" + strings.Repeat("a", 64) + "::moon::MOON"
	assert.True(t, ValidateCoinType(valid))
	assert.True(t, ValidateCoinType("0x"+strings.Repeat("A1", 32)+"::my_mod::Token_1"))

	invalid := []string{
		"",
		"0x1234",
		strings.Repeat("a", 64) + "::moon::MOON",           // missing 0x
		"0x" + strings.Repeat("a", 63) + "::moon::MOON",    // short hex
		"0x" + strings.Repeat("g", 64) + "::moon::MOON",    // non-hex
		"0x" + strings.Repeat("a", 64) + "::moon",          // missing type
		"0x" + strings.Repeat("a", 64) + "::mo on::MOON",   // space
		"0x" + strings.Repeat("a", 64) + "::moon::MOON::X", // extra segment
	}
	for _, s := range invalid {
		assert.False(t, ValidateCoinType(s), "should reject %q", s)
	}
}

func TestShortenAddress(t *testing.T) {
	assert.Equal(t, "0x1234...cdef", ShortenAddress("0x1234567890abcdef", 6))

	// Short addresses come back untouched.
	assert.Equal(t, "0x1234", ShortenAddress("0x1234", 6))

	// Coin type suffix survives the truncation.
	long := "0x" + strings.Repeat("a", 64) + "::moon::MOON"
	got := ShortenAddress(long, 6)
	assert.True(t, strings.HasSuffix(got, "::moon::MOON"), "got %q", got)
	assert.True(t, strings.HasPrefix(got, "0x"+strings.Repeat("a", 4)+"..."), "got %q", got)
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{4 * time.Hour, "4 hours"},
		{time.Hour, "1 hour"},
		{24 * time.Hour, "1 day"},
		{48 * time.Hour, "2 days"},
		{7 * 24 * time.Hour, "1 week"},
		{90 * time.Minute, "1 hour"},
		{45 * time.Second, "moments"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanDuration(tt.d), "duration %s", tt.d)
	}
}
