package dbus

import (
	"fmt"

	"github.com/kr/pretty"
)

// Dump formats v for diagnostics: structs print field-by-field instead
// of through their String method, which is useful when debugging a
// [Message] or [Param] whose Go zero value doesn't speak for itself.
func Dump(v any) string {
	return fmt.Sprintf("%# v", pretty.Formatter(v))
}
