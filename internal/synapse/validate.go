package synapse

import "strings"

// ValidateID reports whether a string is a well-formed Synapse ID:
// the literal prefix "syn" followed by one or more digits.
func ValidateID(entityID string) bool {
	if !strings.HasPrefix(entityID, "syn") {
		return false
	}
	digits := entityID[3:]
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
