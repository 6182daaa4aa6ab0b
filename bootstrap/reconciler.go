// Package bootstrap brings the store to a usable state at startup: roles,
// credentials for legacy accounts, the administrator and optional sample
// data. Every phase is idempotent.
package bootstrap

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-accounts/auth"
	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/store"
)

// Config controls the reconciler.
type Config struct {
	AdminUsername   string `mapstructure:"admin_username"`
	AdminPassword   string `mapstructure:"admin_password"`
	DefaultPassword string `mapstructure:"default_password"`

	// ResetAdminPassword rewrites the administrator digest on every run when
	// it no longer matches AdminPassword.
	ResetAdminPassword bool `mapstructure:"reset_admin_password"`

	SeedSampleData bool `mapstructure:"seed_sample_data"`
}

// DefaultConfig returns the configuration used by a fresh install.
func DefaultConfig() Config {
	return Config{
		AdminUsername:      "admin",
		AdminPassword:      "admin123",
		DefaultPassword:    "password123",
		ResetAdminPassword: true,
		SeedSampleData:     true,
	}
}

// Refresher drops cached state for accounts written directly to the store
// and schedules their reindexing.
type Refresher interface {
	Refresh(ctx context.Context, ids ...int64) error
}

// Report summarizes what a run changed.
type Report struct {
	RolesCreated  int
	Migrated      int
	AdminCreated  bool
	AdminRepaired bool
	Seeded        int
}

// Reconciler runs the bootstrap phases in order.
type Reconciler struct {
	store     store.Store
	hasher    auth.Hasher
	refresher Refresher
	cfg       Config
	logger    *zap.Logger
}

// New builds a Reconciler. Zero config fields take their defaults.
func New(st store.Store, hasher auth.Hasher, refresher Refresher, cfg Config, logger *zap.Logger) *Reconciler {
	def := DefaultConfig()
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = def.AdminUsername
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = def.AdminPassword
	}
	if cfg.DefaultPassword == "" {
		cfg.DefaultPassword = def.DefaultPassword
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{
		store:     st,
		hasher:    hasher,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger.Named("bootstrap"),
	}
}

// Run executes every phase. The first store error aborts the run.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report

	phases := []struct {
		name string
		fn   func(ctx context.Context, report *Report) ([]int64, error)
	}{
		{"ensure roles", r.ensureRoles},
		{"migrate legacy accounts", r.migrateLegacyAccounts},
		{"ensure admin", r.ensureAdmin},
		{"seed sample data", r.seedSampleData},
	}

	for _, phase := range phases {
		touched, err := phase.fn(ctx, &report)
		if err != nil {
			return report, fmt.Errorf("bootstrap %s: %w", phase.name, err)
		}
		if len(touched) == 0 {
			continue
		}
		if err := r.refresher.Refresh(ctx, touched...); err != nil {
			return report, fmt.Errorf("bootstrap %s: refresh: %w", phase.name, err)
		}
	}

	r.logger.Info("bootstrap finished",
		zap.Int("roles_created", report.RolesCreated),
		zap.Int("migrated", report.Migrated),
		zap.Bool("admin_created", report.AdminCreated),
		zap.Bool("admin_repaired", report.AdminRepaired),
		zap.Int("seeded", report.Seeded),
	)
	return report, nil
}

func (r *Reconciler) ensureRoles(ctx context.Context, report *Report) ([]int64, error) {
	return nil, r.store.RunInTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		for _, name := range []string{model.RoleUser, model.RoleAdmin} {
			exists, err := repos.Roles().ExistsByName(ctx, name)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			role := model.Role{Name: name, Description: roleDescriptions[name]}
			if err := repos.Roles().Save(ctx, &role); err != nil {
				return err
			}
			report.RolesCreated++
			r.logger.Info("created role", zap.String("role", name))
		}
		return nil
	})
}

func (r *Reconciler) migrateLegacyAccounts(ctx context.Context, report *Report) ([]int64, error) {
	var touched []int64

	err := r.store.RunInTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		accounts, err := repos.Accounts().List(ctx)
		if err != nil || len(accounts) == 0 {
			return err
		}

		ids := make([]int64, len(accounts))
		for i, a := range accounts {
			ids[i] = a.ID
		}
		credentials, err := repos.Credentials().FindByAccountIDs(ctx, ids)
		if err != nil {
			return err
		}
		roles, err := repos.AccountRoles().RoleNames(ctx, ids)
		if err != nil {
			return err
		}

		var digest string
		for _, account := range accounts {
			_, hasCreds := credentials[account.ID]
			hasRoles := len(roles[account.ID]) > 0
			if hasCreds && hasRoles {
				continue
			}

			if !hasCreds {
				if digest == "" {
					if digest, err = r.hasher.Hash(r.cfg.DefaultPassword); err != nil {
						return err
					}
				}
				username, err := uniqueUsername(ctx, repos, usernameFromEmail(account.Email))
				if err != nil {
					return err
				}
				creds := model.Credentials{AccountID: account.ID, Username: username, PasswordDigest: digest}
				if err := repos.Credentials().Save(ctx, &creds); err != nil {
					return err
				}
				r.logger.Info("created credentials for legacy account", zap.Int64("id", account.ID), zap.String("username", username))
			}

			if !hasRoles {
				role := model.RoleUser
				if account.Email == adminEmail || account.Name == adminName {
					role = model.RoleAdmin
				}
				if err := assignRole(ctx, repos, account.ID, role); err != nil {
					return err
				}
				r.logger.Info("assigned role to legacy account", zap.Int64("id", account.ID), zap.String("role", role))
			}

			touched = append(touched, account.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Migrated = len(touched)
	return touched, nil
}

func (r *Reconciler) ensureAdmin(ctx context.Context, report *Report) ([]int64, error) {
	var adminID int64

	err := r.store.RunInTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		creds, err := repos.Credentials().FindByUsername(ctx, r.cfg.AdminUsername)
		switch {
		case err == nil:
			adminID = creds.AccountID
			return r.repairAdmin(ctx, repos, creds, report)
		case !store.IsNotFound(err):
			return err
		}

		adminID, err = r.createAdmin(ctx, repos)
		if err != nil {
			return err
		}
		report.AdminCreated = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.AdminCreated && !report.AdminRepaired {
		return nil, nil
	}
	return []int64{adminID}, nil
}

func (r *Reconciler) repairAdmin(ctx context.Context, repos store.Repositories, creds model.Credentials, report *Report) error {
	roles, err := repos.AccountRoles().RoleNames(ctx, []int64{creds.AccountID})
	if err != nil {
		return err
	}
	if !slices.Contains(roles[creds.AccountID], model.RoleAdmin) {
		r.logger.Info("administrator lacks the admin role, resetting roles", zap.Int64("id", creds.AccountID))
		if err := repos.AccountRoles().DeleteByAccountID(ctx, creds.AccountID); err != nil {
			return err
		}
		if err := assignRole(ctx, repos, creds.AccountID, model.RoleAdmin); err != nil {
			return err
		}
		report.AdminRepaired = true
	}

	if r.cfg.ResetAdminPassword && !r.hasher.Verify(creds.PasswordDigest, r.cfg.AdminPassword) {
		digest, err := r.hasher.Hash(r.cfg.AdminPassword)
		if err != nil {
			return err
		}
		creds.PasswordDigest = digest
		if err := repos.Credentials().Save(ctx, &creds); err != nil {
			return err
		}
		r.logger.Info("administrator password reset")
		report.AdminRepaired = true
	}
	return nil
}

func (r *Reconciler) createAdmin(ctx context.Context, repos store.Repositories) (int64, error) {
	digest, err := r.hasher.Hash(r.cfg.AdminPassword)
	if err != nil {
		return 0, err
	}

	account, err := repos.Accounts().FindByEmail(ctx, adminEmail)
	switch {
	case store.IsNotFound(err):
		dept, err := findOrCreateDepartment(ctx, repos, adminDepartment, adminDepartmentDescription)
		if err != nil {
			return 0, err
		}
		account = model.Account{Name: adminName, Email: adminEmail, DepartmentID: dept.ID}
		if err := repos.Accounts().Save(ctx, &account); err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	default:
		r.logger.Info("reusing existing account for administrator", zap.Int64("id", account.ID))
	}

	creds, err := repos.Credentials().FindByAccountID(ctx, account.ID)
	switch {
	case store.IsNotFound(err):
		creds = model.Credentials{AccountID: account.ID}
	case err != nil:
		return 0, err
	}
	creds.Username = r.cfg.AdminUsername
	creds.PasswordDigest = digest
	if err := repos.Credentials().Save(ctx, &creds); err != nil {
		return 0, err
	}

	roles, err := repos.AccountRoles().RoleNames(ctx, []int64{account.ID})
	if err != nil {
		return 0, err
	}
	if !slices.Contains(roles[account.ID], model.RoleAdmin) {
		if err := assignRole(ctx, repos, account.ID, model.RoleAdmin); err != nil {
			return 0, err
		}
	}

	r.logger.Info("created administrator", zap.Int64("id", account.ID), zap.String("username", r.cfg.AdminUsername))
	return account.ID, nil
}

func (r *Reconciler) seedSampleData(ctx context.Context, report *Report) ([]int64, error) {
	if !r.cfg.SeedSampleData {
		return nil, nil
	}

	var created []int64
	err := r.store.RunInTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		seed, err := r.storeIsPristine(ctx, repos)
		if err != nil || !seed {
			return err
		}

		departments := make(map[string]model.Department, len(sampleDepartments))
		for _, d := range sampleDepartments {
			dept, err := findOrCreateDepartment(ctx, repos, d.Name, d.Description)
			if err != nil {
				return err
			}
			departments[d.Name] = dept
		}

		digest, err := r.hasher.Hash(r.cfg.DefaultPassword)
		if err != nil {
			return err
		}

		id, err := createPerson(ctx, repos, testName, testEmail, departments[testDepartment].ID, testUsername, digest)
		if err != nil {
			return err
		}
		created = append(created, id)

		for _, p := range samplePeople {
			username, err := uniqueUsername(ctx, repos, usernameFromEmail(p.Email))
			if err != nil {
				return err
			}
			id, err := createPerson(ctx, repos, p.Name, p.Email, departments[p.Department].ID, username, digest)
			if err != nil {
				return err
			}
			created = append(created, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(created) == 0 {
		r.logger.Info("store already holds data, skipping sample data")
		return nil, nil
	}
	report.Seeded = len(created)
	r.logger.Info("seeded sample data", zap.Int("accounts", len(created)), zap.Int("departments", len(sampleDepartments)))
	return created, nil
}

// storeIsPristine reports whether the only data present is what ensureAdmin
// created: at most one account and no department other than its own.
func (r *Reconciler) storeIsPristine(ctx context.Context, repos store.Repositories) (bool, error) {
	accounts, err := repos.Accounts().List(ctx)
	if err != nil {
		return false, err
	}
	if len(accounts) > 1 {
		return false, nil
	}

	departments, err := repos.Departments().List(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range departments {
		if len(accounts) == 0 || d.ID != accounts[0].DepartmentID {
			return false, nil
		}
	}
	return true, nil
}

func createPerson(ctx context.Context, repos store.Repositories, name, email string, departmentID int64, username, digest string) (int64, error) {
	account := model.Account{Name: name, Email: email, DepartmentID: departmentID}
	if err := repos.Accounts().Save(ctx, &account); err != nil {
		return 0, err
	}
	creds := model.Credentials{AccountID: account.ID, Username: username, PasswordDigest: digest}
	if err := repos.Credentials().Save(ctx, &creds); err != nil {
		return 0, err
	}
	return account.ID, assignRole(ctx, repos, account.ID, model.RoleUser)
}

func findOrCreateDepartment(ctx context.Context, repos store.Repositories, name, description string) (model.Department, error) {
	dept, err := repos.Departments().FindByName(ctx, name)
	if err == nil || !store.IsNotFound(err) {
		return dept, err
	}

	dept = model.Department{Name: name, Description: description}
	if err := repos.Departments().Save(ctx, &dept); err != nil {
		return model.Department{}, err
	}
	return dept, nil
}

func assignRole(ctx context.Context, repos store.Repositories, accountID int64, name string) error {
	role, err := repos.Roles().FindByName(ctx, name)
	if err != nil {
		return err
	}
	return repos.AccountRoles().Assign(ctx, accountID, role.ID)
}

// usernameFromEmail returns the local part of email.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local = strings.TrimSpace(local); local == "" {
		return "user"
	}
	return local
}

// uniqueUsername returns base, or base followed by the first counter that
// makes it unused.
func uniqueUsername(ctx context.Context, repos store.Repositories, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		taken, err := repos.Credentials().ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}
