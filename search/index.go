package search

import (
	"context"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-accounts/model"
)

// TextCodeUnavailable marks errors raised by an index backend.
const TextCodeUnavailable = "DEPENDENCY_UNAVAILABLE"

// Document is the searchable projection of an account. It may lag behind
// the store or be missing entirely.
type Document struct {
	ID             int64  `json:"id" bson:"_id"`
	Name           string `json:"name" bson:"name"`
	Email          string `json:"email" bson:"email"`
	DepartmentName string `json:"departmentName" bson:"department_name"`
}

// DocumentFromSnapshot projects a snapshot into a Document.
func DocumentFromSnapshot(s model.Snapshot) Document {
	return Document{
		ID:             s.ID,
		Name:           s.Name,
		Email:          s.Email,
		DepartmentName: s.DepartmentName,
	}
}

// Index is a best-effort, typo tolerant search index.
type Index interface {
	Upsert(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id int64) error
	// FuzzySearch ranks documents by relevance to term across name, email
	// and department name.
	FuzzySearch(ctx context.Context, term string, page, size int) (model.Page[Document], error)
	Close(ctx context.Context) error
}

// Unavailable wraps a backend error.
func Unavailable(err error, op string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, "search index: "+op).
		WithTextCode(TextCodeUnavailable)
}

// ErrDisabled is returned by Disabled for searches.
var ErrDisabled = goerrors.New("search index disabled", goerrors.CategoryExternal).
	WithTextCode(TextCodeUnavailable)

// Disabled is an Index that stores nothing and fails every search, which
// makes callers fall back to their degraded path.
type Disabled struct{}

func (Disabled) Upsert(ctx context.Context, doc Document) error { return nil }
func (Disabled) Delete(ctx context.Context, id int64) error     { return nil }
func (Disabled) Close(ctx context.Context) error                { return nil }

func (Disabled) FuzzySearch(ctx context.Context, term string, page, size int) (model.Page[Document], error) {
	return model.Page[Document]{}, ErrDisabled
}
