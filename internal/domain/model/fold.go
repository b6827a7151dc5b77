package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldName normalizes a display name for comparison so that "Ann", "ANN"
// and " ann " compare equal, including non-ASCII letters.
func FoldName(name string) string {
	// Casers carry state and must not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(name))
}
