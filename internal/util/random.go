// Package util provides small helpers shared across ReflectPipe components.
package util

import (
	"math/rand/v2"
	"strings"
)

// SessionIDPrefix prefixes every generated session id.
const SessionIDPrefix = "s_"

// GenerateRandomID returns "{prefix}{hex}" with hexLength random hex characters.
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random lowercase hexadecimal string of the given length.
// Not suitable for secrets.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateSessionID generates a session id with the "s_" prefix.
func GenerateSessionID() string {
	return GenerateRandomID(SessionIDPrefix, 32)
}
