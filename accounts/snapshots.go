package accounts

import (
	"context"

	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/store"
)

// loadSnapshot builds the snapshot of one account from the store.
func (s *Service) loadSnapshot(ctx context.Context, repos store.Repositories, id int64) (model.Snapshot, error) {
	account, err := repos.Accounts().FindByID(ctx, id)
	if store.IsNotFound(err) {
		return model.Snapshot{}, NotFound(id)
	} else if err != nil {
		return model.Snapshot{}, err
	}

	snaps, err := loadSnapshots(ctx, repos, []model.Account{account})
	if err != nil {
		return model.Snapshot{}, err
	}
	return snaps[0], nil
}

// loadSnapshots joins accounts with their departments, usernames and roles
// using one query per relation, preserving the input order.
func loadSnapshots(ctx context.Context, repos store.Repositories, accounts []model.Account) ([]model.Snapshot, error) {
	if len(accounts) == 0 {
		return []model.Snapshot{}, nil
	}

	ids := make([]int64, len(accounts))
	deptIDs := make([]int64, 0, len(accounts))
	seenDept := make(map[int64]struct{}, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
		if _, ok := seenDept[a.DepartmentID]; !ok {
			seenDept[a.DepartmentID] = struct{}{}
			deptIDs = append(deptIDs, a.DepartmentID)
		}
	}

	departments, err := repos.Departments().FindByIDs(ctx, deptIDs)
	if err != nil {
		return nil, err
	}
	credentials, err := repos.Credentials().FindByAccountIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	roles, err := repos.AccountRoles().RoleNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.Snapshot, len(accounts))
	for i, a := range accounts {
		out[i] = model.NewSnapshot(a, departments[a.DepartmentID], credentials[a.ID].Username, roles[a.ID])
	}
	return out, nil
}
