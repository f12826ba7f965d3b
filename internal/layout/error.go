package layout

import (
	"fmt"
	"strings"

	"cfityid/internal/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized indicates a recursive type with no fixed size.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	// LayoutErrTooGeneric indicates a type whose size depends on unresolved parameters.
	LayoutErrTooGeneric
	// LayoutErrNormalize indicates an alias that could not be resolved.
	LayoutErrNormalize
	// LayoutErrUnknownDef indicates an ADT or closure without a registered definition.
	LayoutErrUnknownDef
)

// LayoutError represents an error during layout classification.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.TypeID
	Cycle []types.TypeID // for LayoutErrRecursiveUnsized
	Err   error          // for LayoutErrNormalize
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive type has infinite size (type#%d)", e.Type)
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, id := range e.Cycle {
			parts = append(parts, fmt.Sprintf("type#%d", id))
		}
		return fmt.Sprintf("recursive type has infinite size (cycle: %s)", strings.Join(parts, " -> "))
	case LayoutErrTooGeneric:
		return fmt.Sprintf("layout of type#%d depends on generic parameters", e.Type)
	case LayoutErrNormalize:
		return fmt.Sprintf("cannot normalize type#%d: %v", e.Type, e.Err)
	case LayoutErrUnknownDef:
		return fmt.Sprintf("no definition registered for type#%d", e.Type)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}

func (e *LayoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
