package testsupport

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-accounts/internal/storeinfra"
	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/store"
)

var storeSeq atomic.Int64

// NewStore opens a private in-memory sqlite store with the schema in place.
// It is closed when the test ends.
func NewStore(t testing.TB) *storeinfra.BunStore {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, storeSeq.Add(1))

	s, err := storeinfra.Open(context.Background(), storeinfra.Config{
		Driver: storeinfra.DriverSQLite,
		DSN:    dsn,
	})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// SeedRoles inserts ROLE_USER and ROLE_ADMIN.
func SeedRoles(t testing.TB, s store.Store) {
	t.Helper()
	ctx := context.Background()

	for _, name := range []string{model.RoleUser, model.RoleAdmin} {
		role := model.Role{Name: name}
		if err := s.Roles().Save(ctx, &role); err != nil {
			t.Fatalf("seed role %s: %v", name, err)
		}
	}
}

// SeedDepartment inserts a department and returns it.
func SeedDepartment(t testing.TB, s store.Store, name string) model.Department {
	t.Helper()

	dept := model.Department{Name: name, Description: name + " department"}
	if err := s.Departments().Save(context.Background(), &dept); err != nil {
		t.Fatalf("seed department %s: %v", name, err)
	}
	return dept
}
