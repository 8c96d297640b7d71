package referenceframe

import "github.com/pkg/errors"

// ErrCycle is returned when relinking a node would make it its own ancestor.
var ErrCycle = errors.New("node cannot be its own ancestor")
