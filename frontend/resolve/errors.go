package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError is returned when no strategy knows about a declaration,
// or about the module that should contain it. Key is empty in the latter case.
type NotFoundError struct {
	Key    Key
	Module string
	// Tried lists the strategies that were consulted, in order,
	// if the module itself could not be found
	Tried []string
}

func (e *NotFoundError) Error() string {
	what := fmt.Sprintf("%s %s", e.Key.Kind, e.Key.Name)
	if e.Key.Name == "" {
		what = "module " + e.Module
	}
	if len(e.Tried) == 0 {
		return what + " not found"
	}
	return fmt.Sprintf("%s not found (tried %s)", what, strings.Join(e.Tried, ", "))
}

// IsNotFound reports whether err, or any error it wraps, is a NotFoundError
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// ResolutionError reports a failure to load or compile a module for a reason
// other than the declaration not existing, like an unreadable artifact or a
// module that failed to compile
type ResolutionError struct {
	Module   string
	Strategy string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving module %s through %s: %v", e.Module, e.Strategy, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// CycleError is returned when compiling a module ends up requiring the
// module itself
type CycleError struct {
	Modules []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle: %s", strings.Join(e.Modules, " -> "))
}
