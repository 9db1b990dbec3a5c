package resolve

import (
	"fmt"

	"github.com/cbegin/alphatex-go/internal/tex"
)

// UnresolvedDurationError reports a note that has no explicit duration
// and no active ":N" context to inherit one from.
type UnresolvedDurationError struct {
	Pitch tex.Pitch
	Pos   tex.Position
}

func (e *UnresolvedDurationError) Error() string {
	return fmt.Sprintf("line %d, col %d: note %s has no duration (add ':N' before it or '.N' after it)",
		e.Pos.Line, e.Pos.Column, e.Pitch)
}
