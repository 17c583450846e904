package resolver

import "fmt"

// ReferenceNotFoundError is returned when a name has not been populated into
// the resolver table, either because its category was never populated or the
// name is absent from the populated listing.
type ReferenceNotFoundError struct {
	App      string // empty for global categories
	Category Category
	Name     string
}

func (e *ReferenceNotFoundError) Error() string {
	if e.App != "" {
		return fmt.Sprintf("no identifier for %q in %s of application %q", e.Name, e.Category, e.App)
	}
	return fmt.Sprintf("no identifier for %q in %s", e.Name, e.Category)
}
