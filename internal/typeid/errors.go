package typeid

import "fmt"

// BugError is raised for inputs the encoder cannot represent: inference
// leftovers, unresolved aliases, malformed paths. The computation is aborted.
type BugError struct {
	Op  string
	Msg string
}

func (e *BugError) Error() string {
	return fmt.Sprintf("%s: unexpected %s", e.Op, e.Msg)
}

func bug(op, format string, args ...any) {
	panic(&BugError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// catch converts a *BugError panic into *errp. Other panics propagate.
func catch(errp *error, what string) {
	r := recover()
	if r == nil {
		return
	}
	if be, ok := r.(*BugError); ok {
		*errp = fmt.Errorf("%s: %w", what, be)
		return
	}
	panic(r)
}
