package accounts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-accounts/auth"
	"github.com/goliatone/go-accounts/cache"
	"github.com/goliatone/go-accounts/internal/searchinfra"
	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/pkg/testsupport"
	"github.com/goliatone/go-accounts/search"
	"github.com/goliatone/go-accounts/store"
)

// recordingMetrics counts every callback.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (m *recordingMetrics) inc(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
}

func (m *recordingMetrics) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

func (m *recordingMetrics) AccountCreated()        { m.inc("created") }
func (m *recordingMetrics) AccountRetrieved()      { m.inc("retrieved") }
func (m *recordingMetrics) AccountUpdated()        { m.inc("updated") }
func (m *recordingMetrics) AccountDeleted()        { m.inc("deleted") }
func (m *recordingMetrics) CacheHit()              { m.inc("hit") }
func (m *recordingMetrics) CacheMiss()             { m.inc("miss") }
func (m *recordingMetrics) AccountNotFound()       { m.inc("not_found") }
func (m *recordingMetrics) IndexFailure(op string) { m.inc("index_failure:" + op) }

// faultyCache wraps a real cache and can be told to fail writes.
type faultyCache struct {
	cache.CacheService
	mu     sync.Mutex
	setErr error
	sets   int
}

func (c *faultyCache) Set(ctx context.Context, key string, value any) error {
	c.mu.Lock()
	c.sets++
	err := c.setErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.CacheService.Set(ctx, key, value)
}

func (c *faultyCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

// failingStore fails every transaction.
type failingStore struct {
	store.Store
	err error
}

func (s failingStore) RunInTx(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	return s.err
}

// failingIndex fails every search.
type failingIndex struct {
	search.Index
}

func (failingIndex) FuzzySearch(ctx context.Context, term string, page, size int) (model.Page[search.Document], error) {
	return model.Page[search.Document]{}, search.Unavailable(errors.New("connection refused"), "search")
}

type fixture struct {
	svc     *Service
	store   store.Store
	cache   *faultyCache
	index   *searchinfra.MemoryIndex
	queue   *testsupport.RecordingQueue
	metrics *recordingMetrics
	eng     model.Department
	sales   model.Department
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := testsupport.NewStore(t)
	testsupport.SeedRoles(t, st)
	eng := testsupport.SeedDepartment(t, st, "Engineering")
	sales := testsupport.SeedDepartment(t, st, "Sales")

	svc, err := cache.NewCacheService(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}

	f := &fixture{
		store:   st,
		cache:   &faultyCache{CacheService: svc},
		index:   searchinfra.NewMemoryIndex(),
		queue:   &testsupport.RecordingQueue{},
		metrics: newRecordingMetrics(),
		eng:     eng,
		sales:   sales,
	}
	f.svc = f.build(nil)
	return f
}

func (f *fixture) build(logger *zap.Logger) *Service {
	return New(Dependencies{
		Store:   f.store,
		Cache:   f.cache,
		Index:   f.index,
		Queue:   f.queue,
		Hasher:  auth.NewBcryptHasher(bcrypt.MinCost),
		Metrics: f.metrics,
		Logger:  logger,
	})
}

func (f *fixture) create(t *testing.T, username string, roles ...string) model.AccountDTO {
	t.Helper()

	dto, err := f.svc.Create(context.Background(), CreateRequest{
		Username:     username,
		Password:     "password123",
		Name:         strings.ReplaceAll(username, ".", " "),
		Email:        username + "@example.com",
		DepartmentID: f.eng.ID,
		Roles:        roles,
	})
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return dto
}

func TestCreate_DefaultsAndCachesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dto := f.create(t, "john.doe")

	want := model.AccountDTO{
		ID:             dto.ID,
		Username:       "john.doe",
		Name:           "john doe",
		Email:          "john.doe@example.com",
		DepartmentID:   f.eng.ID,
		DepartmentName: "Engineering",
		Roles:          []string{model.RoleUser},
	}
	if diff := cmp.Diff(want, dto); diff != "" {
		t.Errorf("created dto mismatch (-want +got):\n%s", diff)
	}

	cached, hit, err := f.svc.Snapshots().Get(ctx, dto.ID)
	if err != nil || !hit {
		t.Fatalf("expected cached snapshot, hit=%v err=%v", hit, err)
	}
	if diff := cmp.Diff(want, model.NewAccountDTO(cached)); diff != "" {
		t.Errorf("cached snapshot differs from store (-want +got):\n%s", diff)
	}

	if got := f.queue.UpsertedIDs(); len(got) != 1 || got[0] != dto.ID {
		t.Errorf("expected one index upsert for %d, got %v", dto.ID, got)
	}
	if f.metrics.get("created") != 1 {
		t.Errorf("expected created metric")
	}

	creds, err := f.store.Credentials().FindByUsername(ctx, "john.doe")
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if creds.PasswordDigest == "password123" || !auth.NewBcryptHasher(bcrypt.MinCost).Verify(creds.PasswordDigest, "password123") {
		t.Error("password should be stored as a bcrypt digest")
	}
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "taken")

	tests := []struct {
		name     string
		req      CreateRequest
		category goerrors.Category
	}{
		{"missing username", CreateRequest{Password: "x", Name: "n", Email: "n@example.com", DepartmentID: f.eng.ID}, goerrors.CategoryValidation},
		{"bad email", CreateRequest{Username: "u", Password: "x", Name: "n", Email: "nope", DepartmentID: f.eng.ID}, goerrors.CategoryValidation},
		{"unknown department", CreateRequest{Username: "u", Password: "x", Name: "n", Email: "n@example.com", DepartmentID: 999}, goerrors.CategoryBadInput},
		{"unknown role", CreateRequest{Username: "u", Password: "x", Name: "n", Email: "n@example.com", DepartmentID: f.eng.ID, Roles: []string{"ROLE_ROOT"}}, goerrors.CategoryBadInput},
		{"duplicate username", CreateRequest{Username: "taken", Password: "x", Name: "n", Email: "other@example.com", DepartmentID: f.eng.ID}, goerrors.CategoryConflict},
		{"duplicate email", CreateRequest{Username: "other", Password: "x", Name: "n", Email: "taken@example.com", DepartmentID: f.eng.ID}, goerrors.CategoryConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.queue.Reset()
			_, err := f.svc.Create(ctx, tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if !goerrors.IsCategory(err, tt.category) {
				t.Errorf("expected category %v, got %v", tt.category, err)
			}
			if len(f.queue.UpsertedIDs()) != 0 {
				t.Error("failed create must not touch the index")
			}
		})
	}

	if n, _ := f.svc.Count(ctx); n != 1 {
		t.Errorf("expected only the first account to persist, got %d", n)
	}
}

func TestRead_SecondReadServedFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.create(t, "jane.doe")

	// Creating already populated the cache; evict to observe a miss first.
	if err := f.svc.Snapshots().Evict(ctx, dto.ID); err != nil {
		t.Fatal(err)
	}

	first, err := f.svc.Read(ctx, dto.ID)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := f.svc.Read(ctx, dto.ID)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reads differ:\n%s", diff)
	}
	if f.metrics.get("miss") != 1 || f.metrics.get("hit") != 1 {
		t.Errorf("expected one miss then one hit, got miss=%d hit=%d", f.metrics.get("miss"), f.metrics.get("hit"))
	}
}

func TestRead_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Read(context.Background(), 4242)
	if !store.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "4242") {
		t.Errorf("error should name the id: %v", err)
	}
	if f.metrics.get("not_found") != 1 {
		t.Error("expected not found metric")
	}
}

func TestUpdate_OverwritesCacheEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.create(t, "mark.lee")

	// Warm the cache with the pre-update snapshot.
	if _, err := f.svc.Read(ctx, dto.ID); err != nil {
		t.Fatal(err)
	}

	name := "Mark Lee"
	updated, err := f.svc.Update(ctx, dto.ID, UpdateRequest{Name: &name, DepartmentID: &f.sales.ID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.DepartmentName != "Sales" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	read, err := f.svc.Read(ctx, dto.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(updated, read); diff != "" {
		t.Errorf("read after update returned stale data (-want +got):\n%s", diff)
	}
	if f.metrics.get("hit") < 1 {
		t.Error("read after update should be served by the overwritten entry")
	}
	if got := f.queue.UpsertedIDs(); len(got) != 2 {
		t.Errorf("expected upserts for create and update, got %v", got)
	}
}

func TestUpdate_PasswordAndRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.create(t, "amy.wong")

	password := "s3cret!"
	updated, err := f.svc.Update(ctx, dto.ID, UpdateRequest{Password: &password, Roles: []string{model.RoleAdmin}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if diff := cmp.Diff([]string{model.RoleAdmin}, updated.Roles); diff != "" {
		t.Errorf("roles mismatch:\n%s", diff)
	}

	p, err := f.svc.Authenticate(ctx, "amy.wong", password)
	if err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if !p.IsAdmin() {
		t.Error("expected admin principal")
	}
	if _, err := f.svc.Authenticate(ctx, "amy.wong", "password123"); !goerrors.IsCategory(err, goerrors.CategoryAuth) {
		t.Errorf("old password should be rejected, got %v", err)
	}
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "first")
	f.create(t, "second")

	if _, err := f.svc.Update(ctx, 999, UpdateRequest{}); !store.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	email := "second@example.com"
	if _, err := f.svc.Update(ctx, a.ID, UpdateRequest{Email: &email}); !goerrors.IsCategory(err, goerrors.CategoryConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	dept := int64(999)
	if _, err := f.svc.Update(ctx, a.ID, UpdateRequest{DepartmentID: &dept}); !IsInvalidOperation(err) {
		t.Errorf("expected invalid operation, got %v", err)
	}

	// Nothing above should have changed the stored account.
	read, err := f.svc.Read(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if read.Email != "first@example.com" || read.DepartmentID != f.eng.ID {
		t.Errorf("account changed by failed updates: %+v", read)
	}
}

func TestUpdateRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.create(t, "pat.kim")

	got, err := f.svc.UpdateRoles(ctx, dto.ID, UpdateRolesRequest{Roles: []string{model.RoleAdmin, model.RoleUser, model.RoleAdmin}})
	if err != nil {
		t.Fatalf("update roles: %v", err)
	}
	if diff := cmp.Diff([]string{model.RoleAdmin, model.RoleUser}, got.Roles); diff != "" {
		t.Errorf("roles mismatch:\n%s", diff)
	}

	if _, err := f.svc.UpdateRoles(ctx, dto.ID, UpdateRolesRequest{}); !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Errorf("empty roles should fail validation, got %v", err)
	}
	if _, err := f.svc.UpdateRoles(ctx, 999, UpdateRolesRequest{Roles: []string{model.RoleUser}}); !store.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestWrite_StoreFailureLeavesCacheAndIndexAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.create(t, "stable")
	setsBefore := f.cache.setCount()
	f.queue.Reset()

	boom := errors.New("disk full")
	f.store = failingStore{Store: f.store, err: boom}
	svc := f.build(nil)

	name := "changed"
	if _, err := svc.Update(ctx, dto.ID, UpdateRequest{Name: &name}); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if err := svc.Delete(ctx, dto.ID); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}

	if f.cache.setCount() != setsBefore {
		t.Error("cache must not be written when the store fails")
	}
	if len(f.queue.UpsertedIDs())+len(f.queue.DeletedIDs()) != 0 {
		t.Error("index must not be touched when the store fails")
	}

	cached, hit, err := svc.Snapshots().Get(ctx, dto.ID)
	if err != nil || !hit || cached.Name != dto.Name {
		t.Errorf("cached entry should be unchanged, hit=%v name=%q err=%v", hit, cached.Name, err)
	}
}

func TestWrite_CacheFailureIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.WarnLevel)
	f.svc = f.build(zap.New(core))
	f.cache.setErr = errors.New("cache down")

	dto := f.create(t, "resilient")

	if _, err := f.svc.Read(context.Background(), dto.ID); err != nil {
		t.Fatalf("read should fall back to the store: %v", err)
	}
	if logs.FilterMessage("cache write failed").Len() != 1 {
		t.Errorf("expected cache write failure to be logged, got %v", logs.All())
	}
	if got := f.queue.UpsertedIDs(); len(got) != 1 {
		t.Errorf("index update should still be scheduled, got %v", got)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.create(t, "leaving")

	if err := f.svc.Delete(ctx, dto.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, hit, _ := f.svc.Snapshots().Get(ctx, dto.ID); hit {
		t.Error("deleted account should be evicted from the cache")
	}
	if _, err := f.svc.Read(ctx, dto.ID); !store.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if ok, _ := f.store.Credentials().ExistsByUsername(ctx, "leaving"); ok {
		t.Error("credentials should be removed with the account")
	}
	if got := f.queue.DeletedIDs(); len(got) != 1 || got[0] != dto.ID {
		t.Errorf("expected index delete for %d, got %v", dto.ID, got)
	}

	if err := f.svc.Delete(ctx, dto.ID); !store.IsNotFound(err) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}

func TestDelete_AdminIsProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.create(t, DefaultAdminUsername, model.RoleAdmin, model.RoleUser)

	err := f.svc.Delete(ctx, admin.ID)
	if !IsInvalidOperation(err) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
	if _, err := f.svc.Read(ctx, admin.ID); err != nil {
		t.Errorf("admin should still exist: %v", err)
	}
	if len(f.queue.DeletedIDs()) != 0 {
		t.Error("refused delete must not touch the index")
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.create(t, "login.user")

	p, err := f.svc.Authenticate(ctx, " login.user ", "password123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.AccountID != dto.ID || p.Username != "login.user" || p.IsAdmin() {
		t.Errorf("unexpected principal %+v", p)
	}

	for _, tc := range [][2]string{{"login.user", "wrong"}, {"nobody", "password123"}} {
		_, err := f.svc.Authenticate(ctx, tc[0], tc[1])
		if !goerrors.IsCategory(err, goerrors.CategoryAuth) {
			t.Errorf("Authenticate(%q) expected auth error, got %v", tc[0], err)
		}
	}
}

func TestReadByUsername(t *testing.T) {
	f := newFixture(t)
	dto := f.create(t, "by.name")

	got, err := f.svc.ReadByUsername(context.Background(), "by.name")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != dto.ID {
		t.Errorf("got id %d, want %d", got.ID, dto.ID)
	}
}

func TestRefresh_EvictsAndReindexes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.create(t, "direct.write")
	f.queue.Reset()

	// Change the account behind the service's back.
	account, err := f.store.Accounts().FindByID(ctx, dto.ID)
	if err != nil {
		t.Fatal(err)
	}
	account.Name = "Renamed Directly"
	if err := f.store.Accounts().Save(ctx, &account); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Refresh(ctx, dto.ID, 9999); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	read, err := f.svc.Read(ctx, dto.ID)
	if err != nil {
		t.Fatal(err)
	}
	if read.Name != "Renamed Directly" {
		t.Errorf("expected refreshed name, got %q", read.Name)
	}
	if got := f.queue.UpsertedIDs(); len(got) != 1 || got[0] != dto.ID {
		t.Errorf("upserts = %v", got)
	}
	if got := f.queue.DeletedIDs(); len(got) != 1 || got[0] != 9999 {
		t.Errorf("deletes = %v", got)
	}
}
