package tdx

import "fmt"

// AttributeNotFoundError is returned when a document's attribute list has no
// entry with the requested display name.
type AttributeNotFoundError struct {
	Name string
}

func (e *AttributeNotFoundError) Error() string {
	return fmt.Sprintf("no attribute named %q", e.Name)
}

// PersonNotFoundError is returned when a person search matches nothing. It
// carries the search criteria for diagnostics.
type PersonNotFoundError struct {
	AlternateID string
}

func (e *PersonNotFoundError) Error() string {
	return fmt.Sprintf("no person with alternate ID %q", e.AlternateID)
}

// AmbiguousMatchError is returned when a search expected to identify exactly
// one record matches several. The first match is never silently picked.
type AmbiguousMatchError struct {
	Entity  string
	Matches int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous %s search: %d matches", e.Entity, e.Matches)
}

// AttachFailedError is returned when attaching an asset to a ticket is
// rejected by the remote. The common real-world cause is that the asset is
// already attached, but the remote does not structure its response to
// distinguish that, so the generic failure is reported with both identifiers.
type AttachFailedError struct {
	TicketID int
	AssetID  int
	Status   int
}

func (e *AttachFailedError) Error() string {
	return fmt.Sprintf("could not attach asset %d to ticket %d (HTTP %d)", e.AssetID, e.TicketID, e.Status)
}

// InvalidParameterError is returned when a caller-supplied parameter cannot
// be used, e.g. no application name given and no default configured.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}
