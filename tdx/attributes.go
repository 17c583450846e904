package tdx

// Attribute is one entry in a document's custom attribute list. ID is the
// remote attribute definition identifier; Name is the display name used for
// lookups.
type Attribute struct {
	ID    int    `json:"ID,omitempty"`
	Name  string `json:"Name,omitempty"`
	Value string `json:"Value"`
}

// GetAttribute scans an attribute list for a display name and returns a
// pointer into the list, so the caller may mutate the entry in place.
func GetAttribute(attrs []Attribute, name string) (*Attribute, error) {
	for i := range attrs {
		if attrs[i].Name == name {
			return &attrs[i], nil
		}
	}
	return nil, &AttributeNotFoundError{Name: name}
}

// UpsertAttribute sets the named attribute's value. If an entry with that
// name already exists it is mutated in place, preserving list order and
// length; otherwise a new entry is appended using the given attribute
// definition identifier. Other entries are never disturbed.
func UpsertAttribute(attrs []Attribute, name string, id int, value string) []Attribute {
	for i := range attrs {
		if attrs[i].Name == name {
			attrs[i].Value = value
			return attrs
		}
	}
	return append(attrs, Attribute{ID: id, Name: name, Value: value})
}
