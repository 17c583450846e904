// Package tdxtest provides an in-process twin of the TeamDynamix web API for
// exercising the client library in tests. It serves the endpoints the
// library touches from seedable in-memory state and supports per-endpoint
// failure injection.
//
// Integration method: override the client's base URL with the twin's URL.
package tdxtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// NamedID is one entry of a remote listing: display name plus identifier.
type NamedID struct {
	Name string `json:"Name"`
	ID   int    `json:"ID"`
}

// App is one entry of the applications listing. Applications carry their
// identifier in AppID, unlike every other listing.
type App struct {
	Name  string `json:"Name"`
	AppID int    `json:"AppID"`
	Type  string `json:"Type,omitempty"`
}

// Server is a twin of one remote TeamDynamix instance. Both environment
// prefixes are served so either a sandbox or a production client can be
// pointed at it.
type Server struct {
	*httptest.Server

	mu             sync.RWMutex
	token          string
	user           map[string]any
	apps           []App
	locations      []NamedID
	assetAttrs     []NamedID
	ticketAttrs    []NamedID
	groups         []NamedID
	assetStatuses  map[int][]NamedID
	ticketStatuses map[int][]NamedID
	assetForms     map[int][]NamedID
	ticketForms    map[int][]NamedID
	assets         map[int]map[string]any
	tickets        []map[string]any
	people         []map[string]any
	feeds          map[int][]map[string]any
	attached       map[string]bool
	failures       map[string]int
}

// NewServer starts a twin and registers its shutdown with the test.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		user:           map[string]any{"UID": "twin-user-uid", "PrimaryEmail": "twin@example.edu"},
		assetStatuses:  make(map[int][]NamedID),
		ticketStatuses: make(map[int][]NamedID),
		assetForms:     make(map[int][]NamedID),
		ticketForms:    make(map[int][]NamedID),
		assets:         make(map[int]map[string]any),
		feeds:          make(map[int][]map[string]any),
		attached:       make(map[string]bool),
		failures:       make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.faultInjection)
	r.Use(s.requireToken)
	for _, env := range []string{"/SBTDWebApi", "/TDWebApi"} {
		r.Route(env+"/api", func(r chi.Router) {
			r.Get("/auth/getuser", s.getUser)
			r.Get("/applications", s.listApplications)
			r.Get("/locations", s.listLocations)
			r.Get("/attributes/custom", s.listCustomAttributes)
			r.Post("/groups/search", s.searchGroups)
			r.Post("/people/search", s.searchPeople)
			r.Route("/{appID}", func(r chi.Router) {
				r.Get("/assets/statuses", s.listScoped(s.lookupAssetStatuses))
				r.Get("/assets/forms", s.listScoped(s.lookupAssetForms))
				r.Post("/assets/search", s.searchAssets)
				r.Get("/assets/{assetID}", s.getAsset)
				r.Post("/assets/{assetID}", s.updateAsset)
				r.Get("/tickets/statuses", s.listScoped(s.lookupTicketStatuses))
				r.Get("/tickets/forms", s.listScoped(s.lookupTicketForms))
				r.Post("/tickets/search", s.searchTickets)
				r.Get("/tickets/{ticketID}", s.getTicket)
				r.Post("/tickets/{ticketID}/feed", s.postFeed)
				r.Post("/tickets/{ticketID}/assets/{assetID}", s.attachAsset)
			})
		})
	}

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// RequireToken makes every endpoint demand the given bearer token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Fail forces an endpoint (api-relative path, query string excluded) to
// respond with the given status. Pass 0 to clear.
func (s *Server) Fail(method, endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + endpoint
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

func (s *Server) faultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		path = strings.TrimPrefix(path, "/SBTDWebApi/api/")
		path = strings.TrimPrefix(path, "/TDWebApi/api/")
		s.mu.RLock()
		status, ok := s.failures[r.Method+" "+path]
		s.mu.RUnlock()
		if ok {
			writeJSON(w, status, map[string]any{"Message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		token := s.token
		s.mu.RUnlock()
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"Message": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Seeding. Each setter replaces the corresponding listing wholesale, the way
// the remote's own listings behave.

func (s *Server) SeedApps(apps ...App) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps = apps
}

func (s *Server) SeedLocations(items ...NamedID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = items
}

func (s *Server) SeedAssetAttributes(items ...NamedID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetAttrs = items
}

func (s *Server) SeedTicketAttributes(items ...NamedID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticketAttrs = items
}

func (s *Server) SeedGroups(items ...NamedID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = items
}

func (s *Server) SeedAssetStatuses(appID int, items ...NamedID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetStatuses[appID] = items
}

func (s *Server) SeedTicketStatuses(appID int, items ...NamedID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticketStatuses[appID] = items
}

func (s *Server) SeedAssetForms(appID int, items ...NamedID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetForms[appID] = items
}

func (s *Server) SeedTicketForms(appID int, items ...NamedID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticketForms[appID] = items
}

// SeedAsset stores an asset document keyed by its "ID" field.
func (s *Server) SeedAsset(doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[docID(doc)] = doc
}

func (s *Server) SeedTicket(doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = append(s.tickets, doc)
}

func (s *Server) SeedPerson(doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people = append(s.people, doc)
}

// Asset returns the currently stored document for an asset ID, including any
// update the client posted.
func (s *Server) Asset(id int) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assets[id]
}

// FeedEntries returns the feed bodies posted against a ticket.
func (s *Server) FeedEntries(ticketID int) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feeds[ticketID]
}

// Handlers.

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.user)
}

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.apps)
}

func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.locations)
}

func (s *Server) listCustomAttributes(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch r.URL.Query().Get("componentId") {
	case "27":
		writeJSON(w, http.StatusOK, s.assetAttrs)
	case "9":
		writeJSON(w, http.StatusOK, s.ticketAttrs)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "unknown componentId"})
	}
}

func (s *Server) searchGroups(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, s.groups)
}

func (s *Server) searchPeople(w http.ResponseWriter, r *http.Request) {
	var criteria struct {
		AlternateID string `json:"AlternateID"`
	}
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad body"})
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := []map[string]any{}
	for _, p := range s.people {
		if p["AlternateID"] == criteria.AlternateID {
			matches = append(matches, p)
		}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) lookupAssetStatuses(appID int) ([]NamedID, bool) {
	items, ok := s.assetStatuses[appID]
	return items, ok
}

func (s *Server) lookupAssetForms(appID int) ([]NamedID, bool) {
	items, ok := s.assetForms[appID]
	return items, ok
}

func (s *Server) lookupTicketStatuses(appID int) ([]NamedID, bool) {
	items, ok := s.ticketStatuses[appID]
	return items, ok
}

func (s *Server) lookupTicketForms(appID int) ([]NamedID, bool) {
	items, ok := s.ticketForms[appID]
	return items, ok
}

// listScoped serves an application-scoped listing endpoint.
func (s *Server) listScoped(lookup func(int) ([]NamedID, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, err := strconv.Atoi(chi.URLParam(r, "appID"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad application ID"})
			return
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		items, ok := lookup(appID)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"Message": "no such application"})
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) searchAssets(w http.ResponseWriter, r *http.Request) {
	var criteria struct {
		SerialLike string `json:"SerialLike"`
	}
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad body"})
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := []map[string]any{}
	for _, doc := range s.assets {
		serial, _ := doc["SerialNumber"].(string)
		name, _ := doc["Name"].(string)
		if strings.Contains(serial, criteria.SerialLike) || strings.Contains(name, criteria.SerialLike) {
			// Search results omit custom attributes, like the remote.
			trimmed := make(map[string]any, len(doc))
			for k, v := range doc {
				if k == "Attributes" {
					continue
				}
				trimmed[k] = v
			}
			matches = append(matches, trimmed)
		}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "assetID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad asset ID"})
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.assets[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"Message": "no such asset"})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "assetID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad asset ID"})
		return
	}
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"Message": "no such asset"})
		return
	}
	s.assets[id] = doc
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) searchTickets(w http.ResponseWriter, r *http.Request) {
	var criteria struct {
		RequestorUids          []string `json:"RequestorUids"`
		StatusIDs              []int    `json:"StatusIDs"`
		ResponsibilityGroupIDs []int    `json:"ResponsibilityGroupIDs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad body"})
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := []map[string]any{}
	for _, doc := range s.tickets {
		if len(criteria.RequestorUids) > 0 && !containsString(criteria.RequestorUids, str(doc["RequestorUid"])) {
			continue
		}
		if len(criteria.StatusIDs) > 0 && !containsInt(criteria.StatusIDs, docInt(doc, "StatusID")) {
			continue
		}
		if len(criteria.ResponsibilityGroupIDs) > 0 && !containsInt(criteria.ResponsibilityGroupIDs, docInt(doc, "ResponsibleGroupID")) {
			continue
		}
		matches = append(matches, doc)
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "ticketID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad ticket ID"})
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.tickets {
		if docID(doc) == id {
			writeJSON(w, http.StatusOK, doc)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"Message": "no such ticket"})
}

func (s *Server) postFeed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "ticketID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad ticket ID"})
		return
	}
	var entry map[string]any
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "bad body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[id] = append(s.feeds[id], entry)
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) attachAsset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "ticketID") + "/" + chi.URLParam(r, "assetID")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached[key] {
		writeJSON(w, http.StatusBadRequest, map[string]any{"Message": "asset already attached"})
		return
	}
	s.attached[key] = true
	writeJSON(w, http.StatusOK, map[string]any{"Message": "attached"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// docID reads the "ID" field of a seeded document, tolerating the float64
// that JSON decoding produces.
func docID(doc map[string]any) int {
	return docInt(doc, "ID")
}

func docInt(doc map[string]any, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
