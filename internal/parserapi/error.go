package parserapi

import (
	"fmt"

	"github.com/sourcegrid/codeindex/internal/types"
)

// Error is the error contract for every Plugin operation other than
// Parse (spec.md §4.1): a code, a message, the location it occurred
// at, and an optional offending syntax element.
type Error struct {
	Code          string
	Message       string
	Location      types.Location
	SyntaxElement string
}

func (e *Error) Error() string {
	if e.SyntaxElement != "" {
		return fmt.Sprintf("%s at %s (near %q): %s", e.Code, e.Location, e.SyntaxElement, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Location, e.Message)
}

// NewError builds a plugin operation error.
func NewError(code, message string, loc types.Location) *Error {
	return &Error{Code: code, Message: message, Location: loc}
}
