package accounts

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-accounts/cache"
	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/search"
	"github.com/goliatone/go-accounts/store"
)

const reindexBatchSize = 100

// Search lists accounts when query is blank and runs a fuzzy index search
// otherwise. An unavailable index yields an empty page, not an error. Hits
// whose account is gone are dropped from the page and from its totals.
func (s *Service) Search(ctx context.Context, query string, page, size int) (model.Page[model.AccountDTO], error) {
	page, size = model.NormalizePaging(page, size)
	if strings.TrimSpace(query) == "" {
		return s.ListPaged(ctx, page, size)
	}

	hits, err := s.index.FuzzySearch(ctx, query, page, size)
	if err != nil {
		s.logger.Warn("search index unavailable, returning empty page", zap.String("query", query), zap.Error(err))
		s.metrics.IndexFailure("search")
		return model.EmptyPage[model.AccountDTO](page, size), nil
	}

	content := make([]model.AccountDTO, 0, len(hits.Content))
	stale := 0
	for _, doc := range hits.Content {
		dto, err := s.Read(ctx, doc.ID)
		if store.IsNotFound(err) {
			// the index still holds a deleted account
			s.queue.Delete(doc.ID)
			stale++
			continue
		} else if err != nil {
			return model.Page[model.AccountDTO]{}, err
		}
		content = append(content, dto)
	}

	return model.NewPage(content, page, size, max(hits.TotalElements-stale, 0)), nil
}

// FuzzySearch returns raw index documents. An unavailable index yields an
// empty page.
func (s *Service) FuzzySearch(ctx context.Context, query string, page, size int) (model.Page[search.Document], error) {
	page, size = model.NormalizePaging(page, size)
	if strings.TrimSpace(query) == "" {
		return model.EmptyPage[search.Document](page, size), nil
	}

	hits, err := s.index.FuzzySearch(ctx, query, page, size)
	if err != nil {
		s.logger.Warn("search index unavailable", zap.String("query", query), zap.Error(err))
		s.metrics.IndexFailure("search")
		return model.EmptyPage[search.Document](page, size), nil
	}
	return hits, nil
}

// ListPaged returns one page of accounts ordered by ID.
func (s *Service) ListPaged(ctx context.Context, page, size int) (model.Page[model.AccountDTO], error) {
	page, size = model.NormalizePaging(page, size)

	accounts, total, err := s.store.Accounts().FindAll(ctx, page, size)
	if err != nil {
		return model.Page[model.AccountDTO]{}, err
	}

	snaps, err := loadSnapshots(ctx, s.store, accounts)
	if err != nil {
		return model.Page[model.AccountDTO]{}, err
	}

	return model.MapPage(model.NewPage(snaps, page, size, total), model.NewAccountDTO), nil
}

// List returns the content of ListPaged.
func (s *Service) List(ctx context.Context, page, size int) ([]model.AccountDTO, error) {
	p, err := s.ListPaged(ctx, page, size)
	if err != nil {
		return nil, err
	}
	return p.Content, nil
}

// Count returns the number of accounts in the store.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Accounts().Count(ctx)
}

// Reindex upserts a document for every account directly into the index.
// Per-document failures are logged and skipped; it returns how many
// documents were written.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	accounts, err := s.store.Accounts().List(ctx)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for batch := range slices.Chunk(accounts, reindexBatchSize) {
		snaps, err := loadSnapshots(ctx, s.store, batch)
		if err != nil {
			return indexed, err
		}
		for _, snap := range snaps {
			if err := s.index.Upsert(ctx, search.DocumentFromSnapshot(snap)); err != nil {
				s.logger.Warn("reindex failed for account", zap.Int64("id", snap.ID), zap.Error(err))
				s.metrics.IndexFailure(search.OpUpsert)
				continue
			}
			indexed++
		}
	}

	s.logger.Info("reindex finished", zap.Int("indexed", indexed), zap.Int("accounts", len(accounts)))
	return indexed, nil
}

// Departments lists departments through the cache.
func (s *Service) Departments(ctx context.Context) ([]model.DepartmentDTO, error) {
	list, err := cache.GetOrFetch(ctx, s.cache, s.keys.SerializeKey(departmentsNamespace), func(ctx context.Context) ([]model.DepartmentDTO, error) {
		departments, err := s.store.Departments().List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]model.DepartmentDTO, len(departments))
		for i, d := range departments {
			out[i] = model.NewDepartmentDTO(d)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

// CreateDepartment persists a department and drops the cached listing.
func (s *Service) CreateDepartment(ctx context.Context, req CreateDepartmentRequest) (model.DepartmentDTO, error) {
	if err := req.Validate(); err != nil {
		return model.DepartmentDTO{}, validationFailed(err)
	}

	department := model.Department{Name: req.Name, Description: req.Description}
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		if _, err := repos.Departments().FindByName(ctx, req.Name); err == nil {
			return Conflict("department %q already exists", req.Name)
		} else if !store.IsNotFound(err) {
			return err
		}
		return repos.Departments().Save(ctx, &department)
	})
	if err != nil {
		return model.DepartmentDTO{}, err
	}

	s.InvalidateDepartments(ctx)
	return model.NewDepartmentDTO(department), nil
}

// InvalidateDepartments drops the cached department listing.
func (s *Service) InvalidateDepartments(ctx context.Context) {
	if err := s.cache.Delete(ctx, s.keys.SerializeKey(departmentsNamespace)); err != nil {
		s.logger.Warn("cache delete failed", zap.String("key", departmentsNamespace), zap.Error(err))
	}
}
