package persistence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iotconfig/iotconfig-go/pkg/model"
)

const (
	routeA = "0b8d2c7e-1111-4a6e-9f0a-2c1d3e4f5a6b"
	routeB = "7f3e2d1c-2222-4b6e-8f0a-2c1d3e4f5a6b"
)

func testRoute(id string) model.Route {
	r := model.NewRoute(model.DefaultNetID, 12, 3)
	r.ID = id
	r.Server.Host = "lns.example.com"
	r.Server.Port = 443
	return r
}

func TestRouteStore(t *testing.T) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "routes")
		store := NewRouteStore(dir)

		route := testRoute(routeA)
		if err := route.SetGwmpRegion(model.RegionEU868, 1701); err != nil {
			t.Fatalf("SetGwmpRegion() error = %v", err)
		}
		if err := store.Save(route); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		info, err := os.Stat(filepath.Join(dir, routeA+".json"))
		if err != nil {
			t.Fatalf("route file missing: %v", err)
		}
		if info.Mode().Perm() != 0644 {
			t.Errorf("mode = %v, want 0644", info.Mode().Perm())
		}

		got, err := store.Load(routeA)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got == nil {
			t.Fatal("Load() = nil, want route")
		}
		if got.Server.Protocol.Kind != model.ProtocolGwmp || len(got.Server.Protocol.Mapping) != 1 {
			t.Errorf("protocol = %+v", got.Server.Protocol)
		}
		if got.NetID != model.DefaultNetID || got.MaxCopies != 3 {
			t.Errorf("route = %+v", got)
		}
	})

	t.Run("FileIsIndentedJSON", func(t *testing.T) {
		dir := t.TempDir()
		store := NewRouteStore(dir)
		store.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

		if err := store.Save(testRoute(routeA)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dir, routeA+".json"))
		if err != nil {
			t.Fatal(err)
		}
		text := string(data)
		for _, want := range []string{`"version": 1`, `"saved_at": "2024-01-02T03:04:05Z"`, `"net_id": "C00053"`} {
			if !strings.Contains(text, want) {
				t.Errorf("file missing %s:\n%s", want, text)
			}
		}
	})

	t.Run("LoadNonExistent", func(t *testing.T) {
		store := NewRouteStore(t.TempDir())
		got, err := store.Load(routeB)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil", got)
		}
	})

	t.Run("RejectsNonUUID", func(t *testing.T) {
		store := NewRouteStore(t.TempDir())
		for _, id := range []string{"", "../etc/passwd", "not-a-uuid"} {
			r := testRoute(id)
			if err := store.Save(r); err == nil {
				t.Errorf("Save(%q) succeeded", id)
			}
			if _, err := store.Load(id); err == nil {
				t.Errorf("Load(%q) succeeded", id)
			}
			if err := store.Remove(id); err == nil {
				t.Errorf("Remove(%q) succeeded", id)
			}
		}
	})

	t.Run("ListSortedAndSkipsForeignFiles", func(t *testing.T) {
		dir := t.TempDir()
		store := NewRouteStore(dir)
		if err := store.SaveAll([]model.Route{testRoute(routeB), testRoute(routeA)}); err != nil {
			t.Fatalf("SaveAll() error = %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}

		routes, err := store.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(routes) != 2 || routes[0].ID != routeA || routes[1].ID != routeB {
			t.Errorf("List() = %+v", routes)
		}
	})

	t.Run("ListMissingDir", func(t *testing.T) {
		store := NewRouteStore(filepath.Join(t.TempDir(), "absent"))
		routes, err := store.List()
		if err != nil || routes != nil {
			t.Errorf("List() = %v, %v; want nil, nil", routes, err)
		}
	})

	t.Run("RemoveAndClear", func(t *testing.T) {
		store := NewRouteStore(t.TempDir())
		if err := store.SaveAll([]model.Route{testRoute(routeA), testRoute(routeB)}); err != nil {
			t.Fatal(err)
		}
		if err := store.Remove(routeA); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if err := store.Remove(routeA); err != nil {
			t.Errorf("second Remove() error = %v", err)
		}
		if got, _ := store.Load(routeA); got != nil {
			t.Error("route still cached after Remove")
		}

		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		routes, err := store.List()
		if err != nil || len(routes) != 0 {
			t.Errorf("List() after Clear = %v, %v", routes, err)
		}
	})

	t.Run("CorruptFile", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, routeA+".json"), []byte("{"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewRouteStore(dir).Load(routeA); err == nil {
			t.Error("expected error for corrupt file")
		}
	})
}
