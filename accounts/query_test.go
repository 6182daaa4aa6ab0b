package accounts

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-accounts/auth"
	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/pkg/testsupport"
	"github.com/goliatone/go-accounts/search"
)

func seedFromFixture(t *testing.T, f *fixture) []model.AccountDTO {
	t.Helper()

	reqs := testsupport.JSONFixture[[]CreateRequest](t, "accounts.json")

	out := make([]model.AccountDTO, 0, len(reqs))
	for _, req := range reqs {
		dto, err := f.svc.Create(context.Background(), req)
		if err != nil {
			t.Fatalf("create %s: %v", req.Username, err)
		}
		out = append(out, dto)
	}
	return out
}

func names(dtos []model.AccountDTO) []string {
	out := make([]string, len(dtos))
	for i, d := range dtos {
		out[i] = d.Name
	}
	return out
}

func TestListPaged(t *testing.T) {
	f := newFixture(t)
	seeded := seedFromFixture(t, f)
	ctx := context.Background()

	page, err := f.svc.ListPaged(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalElements != len(seeded) || page.TotalPages != 3 || page.Page != 1 || page.Size != 2 {
		t.Errorf("unexpected paging: %+v", page)
	}
	if diff := cmp.Diff([]string{"Michael Johnson", "Emily Brown"}, names(page.Content)); diff != "" {
		t.Errorf("page content mismatch:\n%s", diff)
	}
	if page.Content[0].DepartmentName != "Sales" || page.Content[0].Username != "michael.johnson" {
		t.Errorf("joined fields missing: %+v", page.Content[0])
	}

	list, err := f.svc.List(ctx, -1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != model.DefaultSize {
		t.Errorf("expected default page size %d, got %d", model.DefaultSize, len(list))
	}
	if diff := cmp.Diff([]string{model.RoleAdmin, model.RoleUser}, list[4].Roles); diff != "" {
		t.Errorf("roles of the last fixture account:\n%s", diff)
	}
}

func TestSearch_BlankQueryLists(t *testing.T) {
	f := newFixture(t)
	seedFromFixture(t, f)

	page, err := f.svc.Search(context.Background(), "   ", 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"John Smith", "Jane Doe", "Michael Johnson"}, names(page.Content)); diff != "" {
		t.Errorf("blank search should list in id order:\n%s", diff)
	}
}

func TestSearch_FuzzyAfterReindex(t *testing.T) {
	f := newFixture(t)
	seeded := seedFromFixture(t, f)
	ctx := context.Background()

	n, err := f.svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if n != len(seeded) || f.index.Len() != len(seeded) {
		t.Fatalf("expected %d indexed, got %d (index holds %d)", len(seeded), n, f.index.Len())
	}

	page, err := f.svc.Search(ctx, "jhon", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"John Smith"}, names(page.Content)); diff != "" {
		t.Errorf("typo search mismatch:\n%s", diff)
	}

	page, err = f.svc.Search(ctx, "engineering", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"John Smith", "Jane Doe", "David Wilson"}, names(page.Content)); diff != "" {
		t.Errorf("department search mismatch:\n%s", diff)
	}
	if page.TotalElements != 3 {
		t.Errorf("total = %d", page.TotalElements)
	}
}

func TestPaging_HugePageNumbersReturnEmptyPages(t *testing.T) {
	f := newFixture(t)
	seedFromFixture(t, f)
	ctx := context.Background()

	if _, err := f.svc.Reindex(ctx); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	for _, page := range []int{math.MaxInt64 / 4, math.MaxInt64 / 2, math.MaxInt64} {
		got, err := f.svc.Search(ctx, "smith", page, 5)
		if err != nil {
			t.Fatalf("search page %d: %v", page, err)
		}
		if len(got.Content) != 0 || got.TotalElements != 1 {
			t.Errorf("search page %d: expected an empty page with the real total, got %+v", page, got)
		}

		listed, err := f.svc.ListPaged(ctx, page, 5)
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		if len(listed.Content) != 0 || listed.TotalElements != 5 {
			t.Errorf("list page %d: expected an empty page with the real total, got %+v", page, listed)
		}

		docs, err := f.svc.FuzzySearch(ctx, "smith", page, 100)
		if err != nil || len(docs.Content) != 0 {
			t.Errorf("fuzzy page %d: got %+v, %v", page, docs, err)
		}
	}
}

func TestSearch_StaleHitsAreSkippedAndRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.index.Upsert(ctx, search.Document{ID: 999, Name: "Ghost Account"}); err != nil {
		t.Fatal(err)
	}

	page, err := f.svc.Search(ctx, "ghost", 0, 10)
	if err != nil {
		t.Fatalf("stale hits must not fail the search: %v", err)
	}
	if len(page.Content) != 0 {
		t.Errorf("expected no content, got %+v", page.Content)
	}
	if page.TotalElements != 0 || page.TotalPages != 0 {
		t.Errorf("stale hits should not count, got totals %d/%d", page.TotalElements, page.TotalPages)
	}
	if got := f.queue.DeletedIDs(); len(got) != 1 || got[0] != 999 {
		t.Errorf("expected stale document to be scheduled for removal, got %v", got)
	}
}

func TestSearch_DegradesWhenIndexUnavailable(t *testing.T) {
	f := newFixture(t)
	seedFromFixture(t, f)

	core, logs := observer.New(zap.WarnLevel)
	svc := New(Dependencies{
		Store:   f.store,
		Cache:   f.cache,
		Index:   failingIndex{},
		Queue:   f.queue,
		Hasher:  auth.NewBcryptHasher(bcrypt.MinCost),
		Metrics: f.metrics,
		Logger:  zap.New(core),
	})

	page, err := svc.Search(context.Background(), "john", 2, 7)
	if err != nil {
		t.Fatalf("search should degrade, got %v", err)
	}
	want := model.EmptyPage[model.AccountDTO](2, 7)
	if diff := cmp.Diff(want, page); diff != "" {
		t.Errorf("expected empty page (-want +got):\n%s", diff)
	}

	docs, err := svc.FuzzySearch(context.Background(), "john", 0, 5)
	if err != nil || len(docs.Content) != 0 {
		t.Errorf("fuzzy search should degrade, got %+v, %v", docs, err)
	}

	if logs.Len() == 0 {
		t.Error("expected the index failure to be logged")
	}
	if f.metrics.get("index_failure:search") != 2 {
		t.Errorf("expected two search failures, got %d", f.metrics.get("index_failure:search"))
	}
}

func TestFuzzySearch_ReturnsDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = f.index.Upsert(ctx, search.Document{ID: 1, Name: "Emily Brown", Email: "emily.brown@example.com", DepartmentName: "Sales"})
	_ = f.index.Upsert(ctx, search.Document{ID: 2, Name: "Emma Stone", Email: "emma.stone@example.com", DepartmentName: "Sales"})

	page, err := f.svc.FuzzySearch(ctx, "emly", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Content) != 1 || page.Content[0].ID != 1 {
		t.Errorf("unexpected result %+v", page.Content)
	}

	blank, err := f.svc.FuzzySearch(ctx, "", 0, 10)
	if err != nil || blank.TotalElements != 0 {
		t.Errorf("blank query should be empty, got %+v, %v", blank, err)
	}
}

func TestDepartments_CachedUntilCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Departments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.DepartmentDTO{
		model.NewDepartmentDTO(f.eng),
		model.NewDepartmentDTO(f.sales),
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("departments mismatch (-want +got):\n%s", diff)
	}

	// Written behind the service's back: the cached listing is served.
	testsupport.SeedDepartment(t, f.store, "Legal")
	cached, err := f.svc.Departments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 2 {
		t.Errorf("expected cached listing of 2, got %d", len(cached))
	}

	created, err := f.svc.CreateDepartment(ctx, CreateDepartmentRequest{Name: "Finance", Description: "Money"})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	if created.ID == 0 || created.Name != "Finance" {
		t.Errorf("unexpected department %+v", created)
	}

	fresh, err := f.svc.Departments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 4 {
		t.Errorf("expected refreshed listing of 4, got %d", len(fresh))
	}

	if _, err := f.svc.CreateDepartment(ctx, CreateDepartmentRequest{Name: "Finance"}); err == nil {
		t.Error("expected conflict for duplicate department name")
	}
	if _, err := f.svc.CreateDepartment(ctx, CreateDepartmentRequest{}); err == nil {
		t.Error("expected validation error for empty name")
	}
}

func TestCount(t *testing.T) {
	f := newFixture(t)
	seeded := seedFromFixture(t, f)

	n, err := f.svc.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != len(seeded) {
		t.Errorf("count = %d, want %d", n, len(seeded))
	}
}
