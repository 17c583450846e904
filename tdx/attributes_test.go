package tdx

import (
	"errors"
	"testing"
)

func TestGetAttribute(t *testing.T) {
	attrs := []Attribute{
		{ID: 101, Name: "Notes", Value: "old notes"},
		{ID: 102, Name: "Last Inventoried", Value: "01/15/2025"},
	}

	attr, err := GetAttribute(attrs, "Last Inventoried")
	if err != nil {
		t.Fatalf("GetAttribute() error: %v", err)
	}
	if attr.Value != "01/15/2025" {
		t.Errorf("unexpected value: %q", attr.Value)
	}

	// The returned pointer aliases the list entry.
	attr.Value = "02/01/2025"
	if attrs[1].Value != "02/01/2025" {
		t.Error("expected mutation through the returned pointer")
	}
}

func TestGetAttributeNotFound(t *testing.T) {
	_, err := GetAttribute([]Attribute{{Name: "Notes"}}, "Warranty End")
	var notFound *AttributeNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected AttributeNotFoundError, got %v", err)
	}
	if notFound.Name != "Warranty End" {
		t.Errorf("error missing attribute name: %+v", notFound)
	}
}

func TestUpsertAttributeMutatesInPlace(t *testing.T) {
	attrs := []Attribute{
		{ID: 100, Name: "Warranty End", Value: "12/31/2026"},
		{ID: 101, Name: "Notes", Value: "old notes"},
	}

	got := UpsertAttribute(attrs, "Notes", 999, "new notes")
	if len(got) != 2 {
		t.Fatalf("expected length unchanged, got %d", len(got))
	}
	if got[1].Value != "new notes" {
		t.Errorf("expected in-place update, got %q", got[1].Value)
	}
	if got[1].ID != 101 {
		t.Errorf("existing definition ID must be kept, got %d", got[1].ID)
	}
	if got[0].Value != "12/31/2026" {
		t.Error("other attributes must not be disturbed")
	}
}

func TestUpsertAttributeAppends(t *testing.T) {
	attrs := []Attribute{{ID: 100, Name: "Warranty End", Value: "12/31/2026"}}

	got := UpsertAttribute(attrs, "Notes", 101, "fresh notes")
	if len(got) != 2 {
		t.Fatalf("expected appended entry, got length %d", len(got))
	}
	last := got[1]
	if last.ID != 101 || last.Name != "Notes" || last.Value != "fresh notes" {
		t.Errorf("unexpected appended entry: %+v", last)
	}
}
