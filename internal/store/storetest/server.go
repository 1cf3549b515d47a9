// Package storetest provides an in-memory fake record store for tests.
//
// It speaks just enough of the store's HTTP surface for the engine: the
// admin credential exchange, filtered/sorted/paged list, and record CRUD.
// Filters support equality clauses on string and bool fields joined by &&,
// which is the only grammar the engine emits.
package storetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Token is the bearer token issued by the fake auth endpoint.
const Token = "storetest-token"

// Server is an in-memory record store.
type Server struct {
	Identity string
	Password string

	mu          sync.Mutex
	collections map[string][]map[string]any
	seq         int
	httpServer  *httptest.Server

	// FailCollections lists collections whose requests return 500,
	// for exercising degraded paths.
	FailCollections map[string]bool
}

// New starts a fake store accepting the given admin credentials.
func New(identity, password string) *Server {
	s := &Server{
		Identity:        identity,
		Password:        password,
		collections:     make(map[string][]map[string]any),
		FailCollections: make(map[string]bool),
	}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the base URL of the fake store.
func (s *Server) URL() string { return s.httpServer.URL }

// Close shuts the fake store down.
func (s *Server) Close() { s.httpServer.Close() }

// Seed inserts a record directly, assigning id and created when absent.
// Records seeded (or created) later sort as more recent.
func (s *Server) Seed(collection string, record map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(collection, record)
}

// Records returns a copy of a collection's records.
func (s *Server) Records(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.collections[collection]))
	for i, r := range s.collections[collection] {
		cp := make(map[string]any, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

func (s *Server) insert(collection string, record map[string]any) map[string]any {
	s.seq++
	if record["id"] == nil || record["id"] == "" {
		record["id"] = fmt.Sprintf("rec%04d", s.seq)
	}
	if record["created"] == nil || record["created"] == "" {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		record["created"] = base.Add(time.Duration(s.seq) * time.Second).Format("2006-01-02 15:04:05.000Z")
	}
	s.collections[collection] = append(s.collections[collection], record)
	return record
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/collections/_superusers/auth-with-password" {
		s.handleAuth(w, r)
		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/api/collections/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 || parts[1] != "records" {
		http.NotFound(w, r)
		return
	}
	collection := parts[0]
	id := ""
	if len(parts) == 3 {
		id = parts[2]
	}

	if r.Header.Get("Authorization") != Token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "missing or invalid token"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCollections[collection] {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "induced failure"})
		return
	}

	switch {
	case id == "" && r.Method == http.MethodGet:
		s.handleList(w, r, collection)
	case id == "" && r.Method == http.MethodPost:
		s.handleCreate(w, r, collection)
	case id != "" && r.Method == http.MethodGet:
		s.handleGet(w, collection, id)
	case id != "" && r.Method == http.MethodPatch:
		s.handlePatch(w, r, collection, id)
	case id != "" && r.Method == http.MethodDelete:
		s.handleDelete(w, collection, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil ||
		creds.Identity != s.Identity || creds.Password != s.Password {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": Token})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, collection string) {
	records := s.collections[collection]

	filter := strings.TrimSpace(r.URL.Query().Get("filter"))
	filter = strings.TrimPrefix(filter, "(")
	filter = strings.TrimSuffix(filter, ")")
	matched := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		if matchesFilter(rec, filter) {
			matched = append(matched, rec)
		}
	}

	switch r.URL.Query().Get("sort") {
	case "created":
		sort.SliceStable(matched, func(i, j int) bool {
			return fmt.Sprint(matched[i]["created"]) < fmt.Sprint(matched[j]["created"])
		})
	case "-created":
		sort.SliceStable(matched, func(i, j int) bool {
			return fmt.Sprint(matched[i]["created"]) > fmt.Sprint(matched[j]["created"])
		})
	}

	total := len(matched)
	perPage := 30
	if v := r.URL.Query().Get("perPage"); v != "" {
		perPage, _ = strconv.Atoi(v)
	}
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		page, _ = strconv.Atoi(v)
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"page":       page,
		"perPage":    perPage,
		"totalItems": total,
		"items":      matched[start:end],
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, collection string) {
	var record map[string]any
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	stored := s.insert(collection, record)
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleGet(w http.ResponseWriter, collection, id string) {
	for _, rec := range s.collections[collection] {
		if rec["id"] == id {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request, collection, id string) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	for _, rec := range s.collections[collection] {
		if rec["id"] == id {
			for k, v := range patch {
				rec[k] = v
			}
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
}

func (s *Server) handleDelete(w http.ResponseWriter, collection, id string) {
	records := s.collections[collection]
	for i, rec := range records {
		if rec["id"] == id {
			s.collections[collection] = append(records[:i:i], records[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
}

// matchesFilter evaluates equality clauses joined by &&.
func matchesFilter(record map[string]any, filter string) bool {
	if filter == "" {
		return true
	}
	for _, clause := range strings.Split(filter, "&&") {
		clause = strings.TrimSpace(clause)
		field, value, ok := strings.Cut(clause, "=")
		if !ok {
			return false
		}
		field = strings.TrimSpace(field)
		value = strings.TrimSpace(value)

		got, present := record[field]
		switch {
		case value == "true" || value == "false":
			want := value == "true"
			b, _ := got.(bool)
			if !present && want {
				return false
			}
			if present && b != want {
				return false
			}
		case strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'"):
			want := strings.ReplaceAll(value[1:len(value)-1], "\\'", "'")
			if fmt.Sprint(got) != want {
				return false
			}
		default:
			if fmt.Sprint(got) != value {
				return false
			}
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
