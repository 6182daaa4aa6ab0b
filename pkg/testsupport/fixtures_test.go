package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/search"
)

func TestFixtureHelpers(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.Mkdir("testdata", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join("testdata", "departments.json"), []byte(`[{"id":1,"name":"Engineering","description":"eng"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	if raw := Fixture(t, "departments.json"); len(raw) == 0 {
		t.Error("expected raw fixture content")
	}

	got := JSONFixture[[]model.DepartmentDTO](t, "departments.json")
	if len(got) != 1 || got[0].Name != "Engineering" || got[0].ID != 1 {
		t.Errorf("unexpected fixture content: %+v", got)
	}
}

func TestTempFile(t *testing.T) {
	path := TempFile(t, "accounts.yaml", []byte("log:\n  level: debug\n"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if filepath.Base(path) != "accounts.yaml" || string(data) != "log:\n  level: debug\n" {
		t.Errorf("unexpected file %s: %q", path, data)
	}
}

func TestNewStore_IsolatedPerCall(t *testing.T) {
	ctx := context.Background()

	a := NewStore(t)
	b := NewStore(t)
	SeedRoles(t, a)

	if ok, err := a.Roles().ExistsByName(ctx, model.RoleAdmin); err != nil || !ok {
		t.Fatalf("expected role in first store, ok=%v err=%v", ok, err)
	}
	if ok, err := b.Roles().ExistsByName(ctx, model.RoleAdmin); err != nil || ok {
		t.Fatalf("expected second store to be empty, ok=%v err=%v", ok, err)
	}

	dept := SeedDepartment(t, a, "Engineering")
	if dept.ID == 0 {
		t.Error("expected department ID to be assigned")
	}
}

func TestRecordingQueue(t *testing.T) {
	var q RecordingQueue
	q.Upsert(search.Document{ID: 1})
	q.Upsert(search.Document{ID: 2})
	q.Delete(1)

	if got := q.UpsertedIDs(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("upserts = %v", got)
	}
	if got := q.DeletedIDs(); len(got) != 1 || got[0] != 1 {
		t.Errorf("deletes = %v", got)
	}

	q.Reset()
	if len(q.UpsertedIDs())+len(q.DeletedIDs()) != 0 {
		t.Error("expected reset to clear the queue")
	}
}
