package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every NotFoundError via errors.Is
var ErrNotFound = errors.New("not found")

// NotFoundError reports a lookup miss
type NotFoundError struct {
	Kind string // "table", "field", ...
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// LoadError reports structurally invalid raw input. It is fatal to one model
// build only.
type LoadError struct {
	Source   string
	Problems []string
}

func (e *LoadError) Error() string {
	src := e.Source
	if src == "" {
		src = "schema"
	}
	return fmt.Sprintf("invalid %s: %s", src, strings.Join(e.Problems, "; "))
}

// IntegrityError reports a foreign key whose target table does not exist in
// the model. Integrity errors are collected during graph build, never thrown.
type IntegrityError struct {
	Table      string
	Constraint string
	Fields     []string
	Target     string
}

func (e *IntegrityError) Error() string {
	name := e.Constraint
	if name == "" {
		name = "(" + strings.Join(e.Fields, ",") + ")"
	}
	return fmt.Sprintf("foreign key %s on %s references missing table %s", name, e.Table, e.Target)
}
