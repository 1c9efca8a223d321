package orders

import (
	"crypto/rand"
	"fmt"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// codeSuffixLen keeps collision odds negligible at this catalog's volume.
const codeSuffixLen = 7

// GenerateCode builds a fresh order code for a tier prefix, e.g.
// "MAVL4X9K2QA". The prefix must be one of the known tier prefixes.
func GenerateCode(prefix string) (string, error) {
	switch prefix {
	case "MAVL", "MAVC", "MAVK":
	default:
		return "", fmt.Errorf("unknown order tier prefix %q", prefix)
	}
	buf := make([]byte, codeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating order code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return prefix + string(buf), nil
}
