package tracestats

import "strings"

const (
	// PrivateToShared marks a conversion of guest memory from private to shared.
	PrivateToShared = "private_to_shared"

	// SharedToPrivate marks a conversion of guest memory from shared to private.
	SharedToPrivate = "shared_to_private"

	markerInfix = "_to_"
)

// Transitions counts conversion markers. Shared counts pages that became
// shared, Private counts pages that became private.
type Transitions struct {
	Shared  uint64
	Private uint64
}

// Observe applies a single token and reports whether it was a conversion marker.
// Only exact matches count.
func (t *Transitions) Observe(token string) bool {
	if !strings.Contains(token, markerInfix) {
		return false
	}
	switch token {
	case PrivateToShared:
		t.Shared++
		return true
	case SharedToPrivate:
		t.Private++
		return true
	}
	return false
}
