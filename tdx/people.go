package tdx

import "context"

// SearchPeople submits an alternate-ID search and returns the raw match list.
func (i *Instance) SearchPeople(ctx context.Context, alternateID string) ([]Person, error) {
	body := map[string]any{"AlternateID": alternateID}
	resp, err := i.tp.Post(ctx, "people/search", body)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var people []Person
	if err := resp.JSON(&people); err != nil {
		return nil, err
	}
	return people, nil
}

// GetPersonByAlternateID searches by alternate ID and requires exactly one
// match: zero matches fail with PersonNotFoundError carrying the criteria,
// two or more fail with AmbiguousMatchError. A single match is returned
// unwrapped.
func (i *Instance) GetPersonByAlternateID(ctx context.Context, alternateID string) (*Person, error) {
	people, err := i.SearchPeople(ctx, alternateID)
	if err != nil {
		return nil, err
	}
	switch len(people) {
	case 0:
		return nil, &PersonNotFoundError{AlternateID: alternateID}
	case 1:
		return &people[0], nil
	default:
		return nil, &AmbiguousMatchError{Entity: "person", Matches: len(people)}
	}
}
