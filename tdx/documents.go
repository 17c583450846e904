package tdx

import "encoding/json"

// Remote documents are large and versioned; only the fields the library
// touches are typed. Assets are the one document the library sends back
// whole, so Asset preserves every untyped field across a round trip. Tickets
// and people are read-only here and carry just the commonly used fields.

// Asset is a remote asset document.
type Asset struct {
	ID               int
	Name             string
	SerialNumber     string
	LocationID       int
	StatusID         int
	OwningCustomerID string
	Attributes       []Attribute

	// extra holds every remote field not typed above, untouched, so an
	// update does not strip fields this library does not know about.
	extra map[string]json.RawMessage
}

// assetFields mirrors the typed subset of Asset for JSON coding.
type assetFields struct {
	ID               int         `json:"ID"`
	Name             string      `json:"Name,omitempty"`
	SerialNumber     string      `json:"SerialNumber,omitempty"`
	LocationID       int         `json:"LocationID"`
	StatusID         int         `json:"StatusID"`
	OwningCustomerID string      `json:"OwningCustomerID,omitempty"`
	Attributes       []Attribute `json:"Attributes"`
}

var assetFieldNames = []string{
	"ID", "Name", "SerialNumber", "LocationID", "StatusID", "OwningCustomerID", "Attributes",
}

// UnmarshalJSON decodes the typed fields and stashes everything else.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var f assetFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, name := range assetFieldNames {
		delete(all, name)
	}
	*a = Asset{
		ID:               f.ID,
		Name:             f.Name,
		SerialNumber:     f.SerialNumber,
		LocationID:       f.LocationID,
		StatusID:         f.StatusID,
		OwningCustomerID: f.OwningCustomerID,
		Attributes:       f.Attributes,
		extra:            all,
	}
	return nil
}

// MarshalJSON merges the typed fields back over the stashed remote fields.
func (a Asset) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(a.extra)+len(assetFieldNames))
	for k, v := range a.extra {
		out[k] = v
	}

	attrs := a.Attributes
	if attrs == nil {
		attrs = []Attribute{}
	}
	f := assetFields{
		ID:               a.ID,
		Name:             a.Name,
		SerialNumber:     a.SerialNumber,
		LocationID:       a.LocationID,
		StatusID:         a.StatusID,
		OwningCustomerID: a.OwningCustomerID,
		Attributes:       attrs,
	}
	typed, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var typedMap map[string]json.RawMessage
	if err := json.Unmarshal(typed, &typedMap); err != nil {
		return nil, err
	}
	for k, v := range typedMap {
		out[k] = v
	}
	return json.Marshal(out)
}

// Ticket is a remote ticket document. Search results carry a subset of these
// fields; GetTicket includes the custom attribute list.
type Ticket struct {
	ID           int         `json:"ID"`
	Title        string      `json:"Title"`
	StatusID     int         `json:"StatusID,omitempty"`
	StatusName   string      `json:"StatusName,omitempty"`
	RequestorUID string      `json:"RequestorUid,omitempty"`
	Attributes   []Attribute `json:"Attributes,omitempty"`
}

// Person is a remote person record.
type Person struct {
	UID          string      `json:"UID"`
	FullName     string      `json:"FullName,omitempty"`
	PrimaryEmail string      `json:"PrimaryEmail,omitempty"`
	AlternateID  string      `json:"AlternateID,omitempty"`
	Attributes   []Attribute `json:"Attributes,omitempty"`
}
