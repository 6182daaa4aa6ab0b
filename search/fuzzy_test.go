package search

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var sampleDocs = []Document{
	{ID: 1, Name: "John Doe", Email: "john.doe@example.com", DepartmentName: "Engineering"},
	{ID: 2, Name: "Jane Smith", Email: "jane.smith@example.com", DepartmentName: "Marketing"},
	{ID: 3, Name: "Tony Stark", Email: "tony.stark@example.com", DepartmentName: "Engineering"},
	{ID: 4, Name: "Bruce Wayne", Email: "bruce.wayne@example.com", DepartmentName: "Security"},
	{ID: 5, Name: "Natasha Romanoff", Email: "natasha.romanoff@example.com", DepartmentName: "Security"},
}

func TestTokenize(t *testing.T) {
	got := Tokenize("John.Doe@Example.com  Engineering")
	want := []string{"john", "doe", "example", "com", "engineering"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}

func TestTerms_Distinct(t *testing.T) {
	got := Terms(Document{Name: "Doe Doe", Email: "doe@example.com"})
	want := []string{"doe", "example", "com"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Terms mismatch (-want +got):\n%s", diff)
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b  string
		limit int
		want  int
	}{
		{"john", "john", 2, 0},
		{"jhon", "john", 2, 1},
		{"jon", "john", 2, 1},
		{"engneering", "engineering", 2, 1},
		{"kitten", "sitting", 3, 3},
		{"abc", "xyzabc", 1, 2},
		{"", "abc", 5, 3},
	}

	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b, tt.limit); got != tt.want {
			t.Errorf("editDistance(%q, %q, %d) = %d, want %d", tt.a, tt.b, tt.limit, got, tt.want)
		}
	}
}

func TestMaxEdits(t *testing.T) {
	for token, want := range map[string]int{"jo": 0, "jhon": 1, "romanof": 2} {
		if got := MaxEdits(token); got != want {
			t.Errorf("MaxEdits(%q) = %d, want %d", token, got, want)
		}
	}
}

func TestRank_TypoTolerant(t *testing.T) {
	tests := []struct {
		term    string
		wantIDs []int64
	}{
		{"jhon", []int64{1}},
		{"Tony", []int64{3}},
		{"securty", []int64{4, 5}},
		{"engneering", []int64{1, 3}},
		{"romanof", []int64{5}},
		{"zzzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			page := Rank(sampleDocs, tt.term, 0, 10)

			var got []int64
			for _, d := range page.Content {
				got = append(got, d.ID)
			}
			if diff := cmp.Diff(tt.wantIDs, got); diff != "" {
				t.Errorf("Rank(%q) ids mismatch (-want +got):\n%s", tt.term, diff)
			}
		})
	}
}

func TestRank_ExactBeatsFuzzy(t *testing.T) {
	docs := []Document{
		{ID: 1, Name: "Jon Snow"},
		{ID: 2, Name: "John Doe"},
	}

	page := Rank(docs, "john", 0, 10)
	if len(page.Content) != 2 || page.Content[0].ID != 2 {
		t.Errorf("expected exact match first, got %+v", page.Content)
	}
}

func TestRank_Paging(t *testing.T) {
	page := Rank(sampleDocs, "example", 1, 2)

	if page.TotalElements != 5 || page.TotalPages != 3 {
		t.Errorf("totals = %d/%d", page.TotalElements, page.TotalPages)
	}
	if len(page.Content) != 2 || page.Content[0].ID != 3 {
		t.Errorf("unexpected page content %+v", page.Content)
	}

	tests := []struct {
		name       string
		page, size int
	}{
		{"past the end", 10, 2},
		{"overflowing offset", math.MaxInt64 / 50, 100},
		{"max page", math.MaxInt, 5},
		{"huge size past the end", 1, math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			beyond := Rank(sampleDocs, "example", tt.page, tt.size)
			if len(beyond.Content) != 0 || beyond.TotalElements != 5 {
				t.Errorf("expected empty page with total 5, got %+v", beyond)
			}
		})
	}

	all := Rank(sampleDocs, "example", 0, math.MaxInt)
	if len(all.Content) != 5 {
		t.Errorf("expected every hit on the first page, got %d", len(all.Content))
	}
}

func TestRank_BlankTerm(t *testing.T) {
	page := Rank(sampleDocs, "  ..  ", 0, 5)
	if len(page.Content) != 0 || page.TotalElements != 0 {
		t.Errorf("expected empty page, got %+v", page)
	}
}

func TestTrigrams(t *testing.T) {
	got := Trigrams([]string{"doe"})
	want := []string{"  d", " do", "doe", "oe "}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Trigrams mismatch (-want +got):\n%s", diff)
	}
}
