package proxycore

import "fmt"

// LookupError reports a named entity not found (spec §7 "Lookup").
type LookupError struct {
	Kind string // "proxy" or "server"
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("proxycore: %s %q not found", e.Kind, e.Name)
}

func (e *LookupError) Is(target error) bool {
	_, ok := target.(*LookupError)
	return ok
}

// DuplicateError reports a name collision with incompatible capability,
// or a duplicate server (spec §7 "Duplicate").
type DuplicateError struct {
	Kind string
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("proxycore: %s %q already exists", e.Kind, e.Name)
}

func (e *DuplicateError) Is(target error) bool {
	_, ok := target.(*DuplicateError)
	return ok
}

// ValidationError reports a bad identifier, unparseable address, or
// unrecognized keyword (spec §7 "Validation").
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("proxycore: validation failed: %s", e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ReferentialIntegrityError reports that delbackend was refused because
// another proxy still references it (spec §7 "Referential integrity").
type ReferentialIntegrityError struct {
	Name string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("proxycore: backend %q is still referenced by defbe or a switching rule", e.Name)
}

func (e *ReferentialIntegrityError) Is(target error) bool {
	_, ok := target.(*ReferentialIntegrityError)
	return ok
}

// AmbiguousError reports that a lookup matched more than one proxy or
// server (spec §4.2's "if two or more match, returns nothing").
type AmbiguousError struct {
	Kind string
	Name string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("proxycore: ambiguous %s lookup for %q", e.Kind, e.Name)
}

func (e *AmbiguousError) Is(target error) bool {
	_, ok := target.(*AmbiguousError)
	return ok
}
