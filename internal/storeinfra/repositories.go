package storeinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/store"
)

// repositories binds every repository to the same bun.IDB, which is either
// the database or an open transaction.
type repositories struct {
	db bun.IDB
}

func (r repositories) Accounts() store.AccountRepository         { return accountRepo{db: r.db} }
func (r repositories) Departments() store.DepartmentRepository   { return departmentRepo{db: r.db} }
func (r repositories) Credentials() store.CredentialsRepository  { return credentialsRepo{db: r.db} }
func (r repositories) Roles() store.RoleRepository               { return roleRepo{db: r.db} }
func (r repositories) AccountRoles() store.AccountRoleRepository { return accountRoleRepo{db: r.db} }

// scanErr maps sql.ErrNoRows to a not found error and wraps the rest.
func scanErr(err error, entity, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.NotFound(entity)
	}
	return store.Failure(err, op)
}

type accountRepo struct {
	db bun.IDB
}

func (r accountRepo) Save(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	account.UpdatedAt = now

	if account.ID == 0 {
		account.CreatedAt = now
		if _, err := r.db.NewInsert().Model(account).Exec(ctx); err != nil {
			return store.Failure(err, "insert account")
		}
		return nil
	}

	res, err := r.db.NewUpdate().Model(account).WherePK().Exec(ctx)
	if err != nil {
		return store.Failure(err, "update account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.NotFound("account")
	}
	return nil
}

func (r accountRepo) FindByID(ctx context.Context, id int64) (model.Account, error) {
	var account model.Account
	err := r.db.NewSelect().Model(&account).Where("a.id = ?", id).Limit(1).Scan(ctx)
	return account, scanErr(err, "account", "find account")
}

func (r accountRepo) FindByEmail(ctx context.Context, email string) (model.Account, error) {
	var account model.Account
	err := r.db.NewSelect().Model(&account).Where("a.email = ?", email).Limit(1).Scan(ctx)
	return account, scanErr(err, "account", "find account by email")
}

func (r accountRepo) FindAll(ctx context.Context, page, size int) ([]model.Account, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	offset := model.Offset(page, size)
	if offset < 0 || offset >= total {
		return []model.Account{}, total, nil
	}

	accounts := make([]model.Account, 0, size)
	err = r.db.NewSelect().
		Model(&accounts).
		Order("a.id ASC").
		Limit(size).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, 0, store.Failure(err, "list accounts")
	}
	return accounts, total, nil
}

func (r accountRepo) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	if err := r.db.NewSelect().Model(&accounts).Order("a.id ASC").Scan(ctx); err != nil {
		return nil, store.Failure(err, "list accounts")
	}
	return accounts, nil
}

func (r accountRepo) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.db.NewDelete().Model((*model.Account)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return store.Failure(err, "delete account")
	}
	return nil
}

func (r accountRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	ok, err := r.db.NewSelect().Model((*model.Account)(nil)).Where("a.id = ?", id).Exists(ctx)
	if err != nil {
		return false, store.Failure(err, "account exists")
	}
	return ok, nil
}

func (r accountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ok, err := r.db.NewSelect().Model((*model.Account)(nil)).Where("a.email = ?", email).Exists(ctx)
	if err != nil {
		return false, store.Failure(err, "account exists by email")
	}
	return ok, nil
}

func (r accountRepo) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*model.Account)(nil)).Count(ctx)
	if err != nil {
		return 0, store.Failure(err, "count accounts")
	}
	return n, nil
}

type departmentRepo struct {
	db bun.IDB
}

func (r departmentRepo) Save(ctx context.Context, department *model.Department) error {
	if department.ID == 0 {
		if _, err := r.db.NewInsert().Model(department).Exec(ctx); err != nil {
			return store.Failure(err, "insert department")
		}
		return nil
	}
	if _, err := r.db.NewUpdate().Model(department).WherePK().Exec(ctx); err != nil {
		return store.Failure(err, "update department")
	}
	return nil
}

func (r departmentRepo) FindByID(ctx context.Context, id int64) (model.Department, error) {
	var department model.Department
	err := r.db.NewSelect().Model(&department).Where("d.id = ?", id).Limit(1).Scan(ctx)
	return department, scanErr(err, "department", "find department")
}

func (r departmentRepo) FindByName(ctx context.Context, name string) (model.Department, error) {
	var department model.Department
	err := r.db.NewSelect().Model(&department).Where("d.name = ?", name).Order("d.id ASC").Limit(1).Scan(ctx)
	return department, scanErr(err, "department", "find department by name")
}

func (r departmentRepo) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Department, error) {
	out := make(map[int64]model.Department, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var departments []model.Department
	if err := r.db.NewSelect().Model(&departments).Where("d.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, store.Failure(err, "find departments")
	}
	for _, d := range departments {
		out[d.ID] = d
	}
	return out, nil
}

func (r departmentRepo) List(ctx context.Context) ([]model.Department, error) {
	var departments []model.Department
	if err := r.db.NewSelect().Model(&departments).Order("d.id ASC").Scan(ctx); err != nil {
		return nil, store.Failure(err, "list departments")
	}
	return departments, nil
}

func (r departmentRepo) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*model.Department)(nil)).Count(ctx)
	if err != nil {
		return 0, store.Failure(err, "count departments")
	}
	return n, nil
}

type credentialsRepo struct {
	db bun.IDB
}

func (r credentialsRepo) Save(ctx context.Context, credentials *model.Credentials) error {
	if credentials.ID == 0 {
		if _, err := r.db.NewInsert().Model(credentials).Exec(ctx); err != nil {
			return store.Failure(err, "insert credentials")
		}
		return nil
	}
	if _, err := r.db.NewUpdate().Model(credentials).WherePK().Exec(ctx); err != nil {
		return store.Failure(err, "update credentials")
	}
	return nil
}

func (r credentialsRepo) FindByAccountID(ctx context.Context, accountID int64) (model.Credentials, error) {
	var credentials model.Credentials
	err := r.db.NewSelect().Model(&credentials).Where("c.account_id = ?", accountID).Limit(1).Scan(ctx)
	return credentials, scanErr(err, "credentials", "find credentials")
}

func (r credentialsRepo) FindByAccountIDs(ctx context.Context, accountIDs []int64) (map[int64]model.Credentials, error) {
	out := make(map[int64]model.Credentials, len(accountIDs))
	if len(accountIDs) == 0 {
		return out, nil
	}

	var list []model.Credentials
	if err := r.db.NewSelect().Model(&list).Where("c.account_id IN (?)", bun.In(accountIDs)).Scan(ctx); err != nil {
		return nil, store.Failure(err, "find credentials")
	}
	for _, c := range list {
		out[c.AccountID] = c
	}
	return out, nil
}

func (r credentialsRepo) FindByUsername(ctx context.Context, username string) (model.Credentials, error) {
	var credentials model.Credentials
	err := r.db.NewSelect().Model(&credentials).Where("c.username = ?", username).Limit(1).Scan(ctx)
	return credentials, scanErr(err, "credentials", "find credentials by username")
}

func (r credentialsRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ok, err := r.db.NewSelect().Model((*model.Credentials)(nil)).Where("c.username = ?", username).Exists(ctx)
	if err != nil {
		return false, store.Failure(err, "credentials exist")
	}
	return ok, nil
}

func (r credentialsRepo) DeleteByAccountID(ctx context.Context, accountID int64) error {
	_, err := r.db.NewDelete().Model((*model.Credentials)(nil)).Where("account_id = ?", accountID).Exec(ctx)
	if err != nil {
		return store.Failure(err, "delete credentials")
	}
	return nil
}

type roleRepo struct {
	db bun.IDB
}

func (r roleRepo) Save(ctx context.Context, role *model.Role) error {
	if role.ID == 0 {
		if _, err := r.db.NewInsert().Model(role).Exec(ctx); err != nil {
			return store.Failure(err, "insert role")
		}
		return nil
	}
	if _, err := r.db.NewUpdate().Model(role).WherePK().Exec(ctx); err != nil {
		return store.Failure(err, "update role")
	}
	return nil
}

func (r roleRepo) FindByName(ctx context.Context, name string) (model.Role, error) {
	var role model.Role
	err := r.db.NewSelect().Model(&role).Where("r.name = ?", name).Limit(1).Scan(ctx)
	return role, scanErr(err, "role", "find role")
}

func (r roleRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	ok, err := r.db.NewSelect().Model((*model.Role)(nil)).Where("r.name = ?", name).Exists(ctx)
	if err != nil {
		return false, store.Failure(err, "role exists")
	}
	return ok, nil
}

func (r roleRepo) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := r.db.NewSelect().Model(&roles).Order("r.id ASC").Scan(ctx); err != nil {
		return nil, store.Failure(err, "list roles")
	}
	return roles, nil
}

type accountRoleRepo struct {
	db bun.IDB
}

func (r accountRoleRepo) Assign(ctx context.Context, accountID, roleID int64) error {
	exists, err := r.db.NewSelect().
		Model((*model.AccountRole)(nil)).
		Where("ar.account_id = ? AND ar.role_id = ?", accountID, roleID).
		Exists(ctx)
	if err != nil {
		return store.Failure(err, "account role exists")
	}
	if exists {
		return nil
	}

	link := &model.AccountRole{AccountID: accountID, RoleID: roleID}
	if _, err := r.db.NewInsert().Model(link).Exec(ctx); err != nil {
		return store.Failure(err, "assign role")
	}
	return nil
}

func (r accountRoleRepo) DeleteByAccountID(ctx context.Context, accountID int64) error {
	_, err := r.db.NewDelete().Model((*model.AccountRole)(nil)).Where("account_id = ?", accountID).Exec(ctx)
	if err != nil {
		return store.Failure(err, "delete account roles")
	}
	return nil
}

type roleNameRow struct {
	AccountID int64  `bun:"account_id"`
	Name      string `bun:"name"`
}

func (r accountRoleRepo) RoleNames(ctx context.Context, accountIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(accountIDs))
	if len(accountIDs) == 0 {
		return out, nil
	}

	var rows []roleNameRow
	err := r.db.NewSelect().
		TableExpr("account_roles AS ar").
		ColumnExpr("ar.account_id, r.name").
		Join("JOIN roles AS r ON r.id = ar.role_id").
		Where("ar.account_id IN (?)", bun.In(accountIDs)).
		OrderExpr("ar.account_id ASC, r.name ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, store.Failure(err, "load role names")
	}
	for _, row := range rows {
		out[row.AccountID] = append(out[row.AccountID], row.Name)
	}
	return out, nil
}
