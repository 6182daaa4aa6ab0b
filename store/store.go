package store

import (
	"context"

	"github.com/goliatone/go-accounts/model"
)

// Store is the transactional system of record.
type Store interface {
	Repositories

	// RunInTx runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Repositories groups the per-entity repositories bound to either the
// database handle or an open transaction.
type Repositories interface {
	Accounts() AccountRepository
	Departments() DepartmentRepository
	Credentials() CredentialsRepository
	Roles() RoleRepository
	AccountRoles() AccountRoleRepository
}

// AccountRepository persists accounts.
type AccountRepository interface {
	// Save inserts the account when its ID is zero and updates it otherwise.
	Save(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id int64) (model.Account, error)
	FindByEmail(ctx context.Context, email string) (model.Account, error)
	// FindAll returns one page ordered by ID ascending and the total count.
	FindAll(ctx context.Context, page, size int) ([]model.Account, int, error)
	List(ctx context.Context) ([]model.Account, error)
	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// DepartmentRepository persists departments.
type DepartmentRepository interface {
	Save(ctx context.Context, department *model.Department) error
	FindByID(ctx context.Context, id int64) (model.Department, error)
	FindByName(ctx context.Context, name string) (model.Department, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Department, error)
	List(ctx context.Context) ([]model.Department, error)
	Count(ctx context.Context) (int, error)
}

// CredentialsRepository persists login identities.
type CredentialsRepository interface {
	Save(ctx context.Context, credentials *model.Credentials) error
	FindByAccountID(ctx context.Context, accountID int64) (model.Credentials, error)
	FindByAccountIDs(ctx context.Context, accountIDs []int64) (map[int64]model.Credentials, error)
	FindByUsername(ctx context.Context, username string) (model.Credentials, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	DeleteByAccountID(ctx context.Context, accountID int64) error
}

// RoleRepository persists roles.
type RoleRepository interface {
	Save(ctx context.Context, role *model.Role) error
	FindByName(ctx context.Context, name string) (model.Role, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]model.Role, error)
}

// AccountRoleRepository persists account to role assignments.
type AccountRoleRepository interface {
	Assign(ctx context.Context, accountID, roleID int64) error
	DeleteByAccountID(ctx context.Context, accountID int64) error
	// RoleNames returns role names keyed by account ID, sorted by name.
	// Accounts without roles are absent from the map.
	RoleNames(ctx context.Context, accountIDs []int64) (map[int64][]string, error)
}
