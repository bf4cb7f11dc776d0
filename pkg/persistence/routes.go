package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iotconfig/iotconfig-go/pkg/model"
)

// RecordVersion is the current version of the route file format.
const RecordVersion = 1

const routeExt = ".json"

// RouteRecord is the on-disk form of a cached route.
type RouteRecord struct {
	// Version is the file format version.
	Version int `json:"version"`

	// SavedAt is when the route was last written.
	SavedAt time.Time `json:"saved_at"`

	// Route is the cached route.
	Route model.Route `json:"route"`
}

// InvalidRouteIDError is returned for route IDs that are not UUIDs. Route
// IDs name files, so anything else is refused.
type InvalidRouteIDError struct {
	ID string
}

func (e *InvalidRouteIDError) Error() string {
	return fmt.Sprintf("invalid route id %q: must be a UUID", e.ID)
}

// ValidateRouteID checks that id is a UUID.
func ValidateRouteID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &InvalidRouteIDError{ID: id}
	}
	return nil
}

// RouteStore manages cached routes in a directory.
type RouteStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// NewRouteStore creates a store rooted at dir. The directory is created on
// first save.
func NewRouteStore(dir string) *RouteStore {
	return &RouteStore{dir: dir, now: time.Now}
}

// Dir returns the cache directory.
func (s *RouteStore) Dir() string {
	return s.dir
}

func (s *RouteStore) path(id string) string {
	return filepath.Join(s.dir, strings.ToLower(id)+routeExt)
}

// Save writes the route to <dir>/<route-id>.json.
func (s *RouteStore) Save(route model.Route) error {
	if err := ValidateRouteID(route.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	rec := RouteRecord{
		Version: RecordVersion,
		SavedAt: s.now().UTC(),
		Route:   route,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path(route.ID), data, 0644)
}

// SaveAll writes every route in the list.
func (s *RouteStore) SaveAll(routes []model.Route) error {
	for _, r := range routes {
		if err := s.Save(r); err != nil {
			return fmt.Errorf("cache route %s: %w", r.ID, err)
		}
	}
	return nil
}

// Load reads a cached route.
// Returns nil, nil if the route is not cached.
func (s *RouteStore) Load(id string) (*model.Route, error) {
	if err := ValidateRouteID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(s.path(id))
}

func (s *RouteStore) load(path string) (*model.Route, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec RouteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if rec.Version > RecordVersion {
		return nil, fmt.Errorf("parse %s: unsupported version %d", path, rec.Version)
	}
	return &rec.Route, nil
}

// List returns every cached route sorted by ID. Files that are not route
// records are skipped.
func (s *RouteStore) List() ([]model.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var routes []model.Route
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != routeExt {
			continue
		}
		if ValidateRouteID(strings.TrimSuffix(name, routeExt)) != nil {
			continue
		}
		r, err := s.load(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		if r != nil {
			routes = append(routes, *r)
		}
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })
	return routes, nil
}

// Remove deletes a cached route. A route that is not cached is not an
// error.
func (s *RouteStore) Remove(id string) error {
	if err := ValidateRouteID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every cached route.
func (s *RouteStore) Clear() error {
	routes, err := s.List()
	if err != nil {
		return err
	}
	for _, r := range routes {
		if err := s.Remove(r.ID); err != nil {
			return err
		}
	}
	return nil
}
