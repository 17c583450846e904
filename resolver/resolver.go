// Package resolver caches name-to-identifier mappings from a remote
// TeamDynamix instance. The remote API works in opaque numeric identifiers;
// the resolver lets callers work in display names (application names, status
// names, location names, custom attribute names) by populating full listings
// from the remote endpoints and consulting them on every subsequent call.
//
// The cache is populate-once/refresh-on-demand: a leaf mapping is replaced
// wholesale by each population call and never evicted automatically.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/umich-tech-consulting/tdxapi/transport"
)

// Category is a named class of identifier mapping.
type Category string

// Global categories share one namespace per instance; scoped categories are
// partitioned per named application (a status name is only unique within one
// ticketing application).
const (
	AppIDs           Category = "AppIDs"
	LocationIDs      Category = "LocationIDs"
	AssetAttributes  Category = "AssetAttributes"
	TicketAttributes Category = "TicketAttributes"
	GroupIDs         Category = "GroupIDs"

	AssetStatusIDs  Category = "AssetStatusIDs"
	TicketStatusIDs Category = "TicketStatusIDs"
	AssetFormIDs    Category = "AssetFormIDs"
	TicketFormIDs   Category = "TicketFormIDs"
)

// Component identifiers are hardcoded into the remote API and select which
// namespace an attributes/custom query returns.
const (
	componentTicket = 9
	componentAsset  = 27
)

// populationSpec describes how one category is fetched: which response
// fields carry the display name and the identifier, which endpoint lists the
// objects, and whether the endpoint is prefixed with an application ID.
type populationSpec struct {
	nameField string
	idField   string
	endpoint  string
	method    string
	scoped    bool
}

var populationSpecs = map[Category]populationSpec{
	AppIDs:           {nameField: "Name", idField: "AppID", endpoint: "applications", method: http.MethodGet},
	LocationIDs:      {nameField: "Name", idField: "ID", endpoint: "locations", method: http.MethodGet},
	AssetAttributes:  {nameField: "Name", idField: "ID", endpoint: fmt.Sprintf("attributes/custom?componentId=%d", componentAsset), method: http.MethodGet},
	TicketAttributes: {nameField: "Name", idField: "ID", endpoint: fmt.Sprintf("attributes/custom?componentId=%d", componentTicket), method: http.MethodGet},
	GroupIDs:         {nameField: "Name", idField: "ID", endpoint: "groups/search", method: http.MethodPost},

	AssetStatusIDs:  {nameField: "Name", idField: "ID", endpoint: "assets/statuses", method: http.MethodGet, scoped: true},
	TicketStatusIDs: {nameField: "Name", idField: "ID", endpoint: "tickets/statuses", method: http.MethodGet, scoped: true},
	AssetFormIDs:    {nameField: "Name", idField: "ID", endpoint: "assets/forms", method: http.MethodGet, scoped: true},
	TicketFormIDs:   {nameField: "Name", idField: "ID", endpoint: "tickets/forms", method: http.MethodGet, scoped: true},
}

func ticketCategories() []Category { return []Category{TicketStatusIDs, TicketFormIDs} }
func assetCategories() []Category  { return []Category{AssetStatusIDs, AssetFormIDs} }

// Resolver owns the two-level name→ID table. Population calls mutate it;
// resolve reads never do. Concurrent population of disjoint categories and
// app scopes is safe: each call writes a fully built leaf under the write
// lock.
type Resolver struct {
	tp     *transport.Client
	logger *slog.Logger

	mu     sync.RWMutex
	global map[Category]map[string]int
	scoped map[string]map[Category]map[string]int
}

// New creates a Resolver backed by the given transport.
func New(tp *transport.Client, logger *slog.Logger) *Resolver {
	return &Resolver{
		tp:     tp,
		logger: logger,
		global: make(map[Category]map[string]int),
		scoped: make(map[string]map[Category]map[string]int),
	}
}

// Resolve looks up the identifier for a display name in a global category.
func (r *Resolver) Resolve(category Category, name string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	leaf, ok := r.global[category]
	if !ok {
		return 0, &ReferenceNotFoundError{Category: category, Name: name}
	}
	id, ok := leaf[name]
	if !ok {
		return 0, &ReferenceNotFoundError{Category: category, Name: name}
	}
	return id, nil
}

// ResolveIn looks up the identifier for a display name in a category scoped
// to the named application.
func (r *Resolver) ResolveIn(appName string, category Category, name string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.scoped[appName]
	if !ok {
		return 0, &ReferenceNotFoundError{App: appName, Category: category, Name: name}
	}
	leaf, ok := app[category]
	if !ok {
		return 0, &ReferenceNotFoundError{App: appName, Category: category, Name: name}
	}
	id, ok := leaf[name]
	if !ok {
		return 0, &ReferenceNotFoundError{App: appName, Category: category, Name: name}
	}
	return id, nil
}

// Populate fetches the full remote listing for a global category and
// replaces its leaf mapping. Duplicate display names in the response keep
// the last-seen identifier; this mirrors a remote quirk and is deliberate.
func (r *Resolver) Populate(ctx context.Context, category Category) error {
	spec, ok := populationSpecs[category]
	if !ok {
		return fmt.Errorf("unknown category %q", category)
	}
	if spec.scoped {
		return fmt.Errorf("category %s is application-scoped: use PopulateIn", category)
	}

	leaf, err := r.fetch(ctx, spec, spec.endpoint)
	if err != nil {
		return fmt.Errorf("populating %s: %w", category, err)
	}

	r.mu.Lock()
	r.global[category] = leaf
	r.mu.Unlock()
	return nil
}

// PopulateIn fetches the full remote listing for an application-scoped
// category and replaces that application's leaf mapping. The owning
// application's identifier must already be resolvable, so AppIDs has to be
// populated first.
func (r *Resolver) PopulateIn(ctx context.Context, appName string, category Category) error {
	spec, ok := populationSpecs[category]
	if !ok {
		return fmt.Errorf("unknown category %q", category)
	}
	if !spec.scoped {
		return fmt.Errorf("category %s is not application-scoped: use Populate", category)
	}

	appID, err := r.Resolve(AppIDs, appName)
	if err != nil {
		return fmt.Errorf("populating %s for %q: %w", category, appName, err)
	}

	leaf, err := r.fetch(ctx, spec, fmt.Sprintf("%d/%s", appID, spec.endpoint))
	if err != nil {
		return fmt.Errorf("populating %s for %q: %w", category, appName, err)
	}

	r.mu.Lock()
	if r.scoped[appName] == nil {
		r.scoped[appName] = make(map[Category]map[string]int)
	}
	r.scoped[appName][category] = leaf
	r.mu.Unlock()
	return nil
}

// fetch retrieves a listing endpoint and builds a name→ID mapping from it.
// The mapping is returned fully built: a failed or cancelled fetch leaves
// the table untouched, never partially populated.
func (r *Resolver) fetch(ctx context.Context, spec populationSpec, endpoint string) (map[string]int, error) {
	var resp *transport.Response
	var err error
	if spec.method == http.MethodPost {
		resp, err = r.tp.Post(ctx, endpoint, struct{}{})
	} else {
		resp, err = r.tp.Get(ctx, endpoint)
	}
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}

	leaf := make(map[string]int, len(objects))
	for _, obj := range objects {
		name, ok := obj[spec.nameField].(string)
		if !ok {
			continue
		}
		num, ok := obj[spec.idField].(json.Number)
		if !ok {
			return nil, fmt.Errorf("object %q: field %s is not a numeric identifier", name, spec.idField)
		}
		id, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("object %q: parsing %s: %w", name, spec.idField, err)
		}
		leaf[name] = int(id)
	}
	return leaf, nil
}

// Initialize populates the table for an instance: global categories first
// (later per-application population needs the resolved application
// identifiers), then the scoped categories of each default application in
// parallel, then group identifiers. Group population is best-effort: on
// failure it logs and leaves the subtree unpopulated, so later resolution
// against it fails with ReferenceNotFound instead of silently using stale
// data.
func (r *Resolver) Initialize(ctx context.Context, ticketApps, assetApps []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, category := range []Category{AppIDs, LocationIDs, AssetAttributes, TicketAttributes} {
		category := category
		g.Go(func() error {
			return r.Populate(gctx, category)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, app := range ticketApps {
		app := app
		for _, category := range ticketCategories() {
			category := category
			g.Go(func() error {
				return r.PopulateIn(gctx, app, category)
			})
		}
	}
	for _, app := range assetApps {
		app := app
		for _, category := range assetCategories() {
			category := category
			g.Go(func() error {
				return r.PopulateIn(gctx, app, category)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := r.Populate(ctx, GroupIDs); err != nil {
		r.logger.Warn("could not populate group identifiers", "err", err)
	}
	return nil
}
