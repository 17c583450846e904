package resolver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/umich-tech-consulting/tdxapi/resolver"
	"github.com/umich-tech-consulting/tdxapi/tdxtest"
	"github.com/umich-tech-consulting/tdxapi/transport"
)

func newResolver(t *testing.T, s *tdxtest.Server) *resolver.Resolver {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tp := transport.New("twin.example.edu", true, logger, transport.WithBaseURL(s.URL))
	return resolver.New(tp, logger)
}

func TestPopulateAndResolve(t *testing.T) {
	s := tdxtest.NewServer(t)
	s.SeedLocations(
		tdxtest.NamedID{Name: "Michigan Union", ID: 11},
		tdxtest.NamedID{Name: "Shapiro Library", ID: 12},
	)

	r := newResolver(t, s)
	if err := r.Populate(context.Background(), resolver.LocationIDs); err != nil {
		t.Fatalf("Populate() error: %v", err)
	}

	id, err := r.Resolve(resolver.LocationIDs, "Shapiro Library")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != 12 {
		t.Errorf("expected 12, got %d", id)
	}

	_, err = r.Resolve(resolver.LocationIDs, "Nonexistent Hall")
	var notFound *resolver.ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError, got %v", err)
	}
	if notFound.Name != "Nonexistent Hall" || notFound.Category != resolver.LocationIDs {
		t.Errorf("error missing lookup details: %+v", notFound)
	}
}

func TestResolveUnpopulatedCategory(t *testing.T) {
	s := tdxtest.NewServer(t)
	r := newResolver(t, s)

	_, err := r.Resolve(resolver.AppIDs, "ITS Tickets")
	var notFound *resolver.ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError, got %v", err)
	}
}

func TestDuplicateNamesKeepLast(t *testing.T) {
	s := tdxtest.NewServer(t)
	// Display names need not be unique remotely; the last-seen mapping wins.
	s.SeedLocations(
		tdxtest.NamedID{Name: "Annex", ID: 20},
		tdxtest.NamedID{Name: "Annex", ID: 21},
	)

	r := newResolver(t, s)
	if err := r.Populate(context.Background(), resolver.LocationIDs); err != nil {
		t.Fatalf("Populate() error: %v", err)
	}

	id, err := r.Resolve(resolver.LocationIDs, "Annex")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id != 21 {
		t.Errorf("expected last-seen ID 21, got %d", id)
	}
}

func TestScopedPopulationIsolatedPerApp(t *testing.T) {
	s := tdxtest.NewServer(t)
	s.SeedApps(
		tdxtest.App{Name: "Lab Assets", AppID: 1},
		tdxtest.App{Name: "Office Assets", AppID: 2},
	)
	s.SeedAssetStatuses(1, tdxtest.NamedID{Name: "In Stock", ID: 5})
	s.SeedAssetStatuses(2, tdxtest.NamedID{Name: "In Stock", ID: 50})

	r := newResolver(t, s)
	ctx := context.Background()
	if err := r.Populate(ctx, resolver.AppIDs); err != nil {
		t.Fatalf("Populate(AppIDs) error: %v", err)
	}
	if err := r.PopulateIn(ctx, "Lab Assets", resolver.AssetStatusIDs); err != nil {
		t.Fatalf("PopulateIn(Lab Assets) error: %v", err)
	}

	// Populating one app must not touch the other's subtree.
	if _, err := r.ResolveIn("Office Assets", resolver.AssetStatusIDs, "In Stock"); err == nil {
		t.Error("expected Office Assets to be unpopulated")
	}

	if err := r.PopulateIn(ctx, "Office Assets", resolver.AssetStatusIDs); err != nil {
		t.Fatalf("PopulateIn(Office Assets) error: %v", err)
	}

	labID, err := r.ResolveIn("Lab Assets", resolver.AssetStatusIDs, "In Stock")
	if err != nil {
		t.Fatalf("ResolveIn(Lab Assets) error: %v", err)
	}
	officeID, err := r.ResolveIn("Office Assets", resolver.AssetStatusIDs, "In Stock")
	if err != nil {
		t.Fatalf("ResolveIn(Office Assets) error: %v", err)
	}
	if labID != 5 || officeID != 50 {
		t.Errorf("expected 5 and 50, got %d and %d", labID, officeID)
	}
}

func TestScopedPopulationNeedsAppIDs(t *testing.T) {
	s := tdxtest.NewServer(t)
	s.SeedApps(tdxtest.App{Name: "Lab Assets", AppID: 1})
	s.SeedAssetStatuses(1, tdxtest.NamedID{Name: "In Stock", ID: 5})

	r := newResolver(t, s)
	err := r.PopulateIn(context.Background(), "Lab Assets", resolver.AssetStatusIDs)
	var notFound *resolver.ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError before AppIDs population, got %v", err)
	}
}

func TestPopulateRejectsWrongScope(t *testing.T) {
	s := tdxtest.NewServer(t)
	r := newResolver(t, s)
	ctx := context.Background()

	if err := r.Populate(ctx, resolver.AssetStatusIDs); err == nil {
		t.Error("expected Populate to reject a scoped category")
	}
	if err := r.PopulateIn(ctx, "Lab Assets", resolver.LocationIDs); err == nil {
		t.Error("expected PopulateIn to reject a global category")
	}
}

func seedFullTwin(s *tdxtest.Server) {
	s.SeedApps(
		tdxtest.App{Name: "ITS Tickets", AppID: 31, Type: "Ticketing"},
		tdxtest.App{Name: "IT Assets", AppID: 27, Type: "Assets/CIs"},
	)
	s.SeedLocations(tdxtest.NamedID{Name: "Michigan Union", ID: 11})
	s.SeedAssetAttributes(
		tdxtest.NamedID{Name: "Notes", ID: 101},
		tdxtest.NamedID{Name: "Last Inventoried", ID: 102},
	)
	s.SeedTicketAttributes(tdxtest.NamedID{Name: "Device Type", ID: 201})
	s.SeedGroups(tdxtest.NamedID{Name: "ITS Support", ID: 301})
	s.SeedAssetStatuses(27, tdxtest.NamedID{Name: "In Stock", ID: 5})
	s.SeedAssetForms(27, tdxtest.NamedID{Name: "Standard Asset", ID: 401})
	s.SeedTicketStatuses(31, tdxtest.NamedID{Name: "Closed", ID: 78})
	s.SeedTicketForms(31, tdxtest.NamedID{Name: "Incident", ID: 402})
}

func TestInitialize(t *testing.T) {
	s := tdxtest.NewServer(t)
	seedFullTwin(s)

	r := newResolver(t, s)
	if err := r.Initialize(context.Background(), []string{"ITS Tickets"}, []string{"IT Assets"}); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	tests := []struct {
		app      string
		category resolver.Category
		name     string
		want     int
	}{
		{"", resolver.AppIDs, "IT Assets", 27},
		{"", resolver.LocationIDs, "Michigan Union", 11},
		{"", resolver.AssetAttributes, "Notes", 101},
		{"", resolver.TicketAttributes, "Device Type", 201},
		{"", resolver.GroupIDs, "ITS Support", 301},
		{"IT Assets", resolver.AssetStatusIDs, "In Stock", 5},
		{"IT Assets", resolver.AssetFormIDs, "Standard Asset", 401},
		{"ITS Tickets", resolver.TicketStatusIDs, "Closed", 78},
		{"ITS Tickets", resolver.TicketFormIDs, "Incident", 402},
	}
	for _, tt := range tests {
		var id int
		var err error
		if tt.app == "" {
			id, err = r.Resolve(tt.category, tt.name)
		} else {
			id, err = r.ResolveIn(tt.app, tt.category, tt.name)
		}
		if err != nil {
			t.Errorf("%s/%s/%s: %v", tt.app, tt.category, tt.name, err)
			continue
		}
		if id != tt.want {
			t.Errorf("%s/%s/%s: expected %d, got %d", tt.app, tt.category, tt.name, tt.want, id)
		}
	}
}

func TestInitializeGroupsBestEffort(t *testing.T) {
	s := tdxtest.NewServer(t)
	seedFullTwin(s)
	s.Fail(http.MethodPost, "groups/search", http.StatusInternalServerError)

	r := newResolver(t, s)
	if err := r.Initialize(context.Background(), []string{"ITS Tickets"}, []string{"IT Assets"}); err != nil {
		t.Fatalf("Initialize() should tolerate group failure, got: %v", err)
	}

	// The subtree stays absent, so resolution fails loudly instead of
	// succeeding with stale data.
	_, err := r.Resolve(resolver.GroupIDs, "ITS Support")
	var notFound *resolver.ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError for groups, got %v", err)
	}
}

func TestInitializeFailsOnGlobalError(t *testing.T) {
	s := tdxtest.NewServer(t)
	seedFullTwin(s)
	s.Fail(http.MethodGet, "locations", http.StatusInternalServerError)

	r := newResolver(t, s)
	if err := r.Initialize(context.Background(), nil, nil); err == nil {
		t.Fatal("expected Initialize to fail when a global category fails")
	}
}

func TestCancelledPopulationLeavesCategoryAbsent(t *testing.T) {
	s := tdxtest.NewServer(t)
	s.SeedLocations(tdxtest.NamedID{Name: "Michigan Union", ID: 11})

	r := newResolver(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Populate(ctx, resolver.LocationIDs); err == nil {
		t.Fatal("expected cancelled population to fail")
	}

	// Absent, not partially populated: callers must re-attempt in full.
	_, err := r.Resolve(resolver.LocationIDs, "Michigan Union")
	var notFound *resolver.ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError after cancellation, got %v", err)
	}
}

func TestRepopulateReplacesLeafWholesale(t *testing.T) {
	s := tdxtest.NewServer(t)
	s.SeedLocations(
		tdxtest.NamedID{Name: "Old Hall", ID: 1},
		tdxtest.NamedID{Name: "Michigan Union", ID: 11},
	)

	r := newResolver(t, s)
	ctx := context.Background()
	if err := r.Populate(ctx, resolver.LocationIDs); err != nil {
		t.Fatalf("Populate() error: %v", err)
	}

	s.SeedLocations(tdxtest.NamedID{Name: "Michigan Union", ID: 11})
	if err := r.Populate(ctx, resolver.LocationIDs); err != nil {
		t.Fatalf("repopulate error: %v", err)
	}

	if _, err := r.Resolve(resolver.LocationIDs, "Old Hall"); err == nil {
		t.Error("expected Old Hall to be gone after repopulation")
	}
}
