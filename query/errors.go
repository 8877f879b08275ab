package query

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a plan that cannot be executed: unresolvable
// columns or a bad reduction spec. It is detected before execution starts.
type ConfigurationError struct {
	Reason  string
	Columns []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Columns) == 0 {
		return fmt.Sprintf("invalid query: %s", e.Reason)
	}
	return fmt.Sprintf("invalid query: %s (%s)", e.Reason, strings.Join(e.Columns, ", "))
}
