package agent

import (
	"errors"
	"fmt"
)

// Defect marks a broken invariant inside one agent, such as a path whose
// cells are not adjacent. It aborts that agent's current operation only.
type Defect struct {
	Op  string
	Err error
}

func (d *Defect) Error() string { return fmt.Sprintf("defect in %s: %v", d.Op, d.Err) }

func (d *Defect) Unwrap() error { return d.Err }

// IsDefect reports whether err carries a *Defect.
func IsDefect(err error) bool {
	var d *Defect
	return errors.As(err, &d)
}
