package accounts

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-accounts/auth"
	"github.com/goliatone/go-accounts/cache"
	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/repositorycache"
	"github.com/goliatone/go-accounts/search"
	"github.com/goliatone/go-accounts/store"
)

// DefaultAdminUsername names the account that can never be deleted.
const DefaultAdminUsername = "admin"

// SnapshotNamespace is the cache namespace for account snapshots.
const SnapshotNamespace = "account_snapshot"

const departmentsNamespace = "departments"

// IndexQueue accepts index updates without blocking the caller.
type IndexQueue interface {
	Upsert(doc search.Document)
	Delete(id int64)
}

// Dependencies are the collaborators of a Service. Store, Cache, Index,
// Queue and Hasher are required.
type Dependencies struct {
	Store         store.Store
	Cache         cache.CacheService
	KeySerializer cache.KeySerializer
	Index         search.Index
	Queue         IndexQueue
	Hasher        auth.Hasher
	Metrics       Metrics
	Logger        *zap.Logger

	// AdminUsername overrides DefaultAdminUsername.
	AdminUsername string
}

// Service coordinates the store, the snapshot cache and the search index.
//
// Writes go to the store first and only touch the cache and the index after
// the store transaction committed. Reads consult the cache before the store.
// Cache and index failures are logged and never fail an operation.
type Service struct {
	store     store.Store
	cache     cache.CacheService
	keys      cache.KeySerializer
	snapshots *repositorycache.Lookaside[int64, model.Snapshot]
	index     search.Index
	queue     IndexQueue
	hasher    auth.Hasher
	metrics   Metrics
	logger    *zap.Logger
	admin     string
}

// New builds a Service.
func New(deps Dependencies) *Service {
	if deps.KeySerializer == nil {
		deps.KeySerializer = cache.NewDefaultKeySerializer()
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.AdminUsername == "" {
		deps.AdminUsername = DefaultAdminUsername
	}
	logger := deps.Logger.Named("accounts")

	return &Service{
		store: deps.Store,
		cache: deps.Cache,
		keys:  deps.KeySerializer,
		snapshots: repositorycache.New[int64, model.Snapshot](
			deps.Cache,
			deps.KeySerializer,
			repositorycache.WithNamespace(SnapshotNamespace),
			repositorycache.WithLogger(logger),
		),
		index:   deps.Index,
		queue:   deps.Queue,
		hasher:  deps.Hasher,
		metrics: deps.Metrics,
		logger:  logger,
		admin:   deps.AdminUsername,
	}
}

// Snapshots exposes the snapshot cache so other components can evict
// entries after writing to the store directly.
func (s *Service) Snapshots() *repositorycache.Lookaside[int64, model.Snapshot] {
	return s.snapshots
}

// Read returns the account, from the cache when possible.
func (s *Service) Read(ctx context.Context, id int64) (model.AccountDTO, error) {
	snap, hit, err := s.snapshots.ReadThrough(ctx, id, func(ctx context.Context) (model.Snapshot, error) {
		return s.loadSnapshot(ctx, s.store, id)
	})
	if hit {
		s.metrics.CacheHit()
	} else {
		s.metrics.CacheMiss()
	}
	if err != nil {
		if store.IsNotFound(err) {
			s.metrics.AccountNotFound()
		}
		return model.AccountDTO{}, err
	}

	s.metrics.AccountRetrieved()
	return model.NewAccountDTO(snap), nil
}

// ReadByUsername resolves username to an account and reads it.
func (s *Service) ReadByUsername(ctx context.Context, username string) (model.AccountDTO, error) {
	creds, err := s.store.Credentials().FindByUsername(ctx, username)
	if err != nil {
		return model.AccountDTO{}, err
	}
	return s.Read(ctx, creds.AccountID)
}

// Create persists a new account with its credentials and roles.
func (s *Service) Create(ctx context.Context, req CreateRequest) (model.AccountDTO, error) {
	if err := req.Validate(); err != nil {
		return model.AccountDTO{}, validationFailed(err)
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AccountDTO{}, err
	}

	roleNames := req.Roles
	if len(roleNames) == 0 {
		roleNames = []string{model.RoleUser}
	}

	var snap model.Snapshot
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		dept, err := repos.Departments().FindByID(ctx, req.DepartmentID)
		if store.IsNotFound(err) {
			return InvalidOperation("department %d not found", req.DepartmentID)
		} else if err != nil {
			return err
		}

		if taken, err := repos.Credentials().ExistsByUsername(ctx, req.Username); err != nil {
			return err
		} else if taken {
			return Conflict("username %q is already taken", req.Username)
		}
		if taken, err := repos.Accounts().ExistsByEmail(ctx, req.Email); err != nil {
			return err
		} else if taken {
			return Conflict("email %q is already registered", req.Email)
		}

		roles, err := resolveRoles(ctx, repos, roleNames)
		if err != nil {
			return err
		}

		account := model.Account{Name: req.Name, Email: req.Email, DepartmentID: dept.ID}
		if err := repos.Accounts().Save(ctx, &account); err != nil {
			return err
		}

		creds := model.Credentials{AccountID: account.ID, Username: req.Username, PasswordDigest: digest}
		if err := repos.Credentials().Save(ctx, &creds); err != nil {
			return err
		}

		if err := assignRoles(ctx, repos, account.ID, roles); err != nil {
			return err
		}

		snap = model.NewSnapshot(account, dept, creds.Username, namesOf(roles))
		return nil
	})
	if err != nil {
		return model.AccountDTO{}, err
	}

	s.afterWrite(ctx, snap)
	s.metrics.AccountCreated()
	s.logger.Info("account created", zap.Int64("id", snap.ID), zap.String("username", snap.Username))
	return model.NewAccountDTO(snap), nil
}

// Update applies a partial update in a single read-modify-write transaction
// and overwrites the cached snapshot.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (model.AccountDTO, error) {
	if err := req.Validate(); err != nil {
		return model.AccountDTO{}, validationFailed(err)
	}

	var digest string
	if req.Password != nil {
		var err error
		if digest, err = s.hasher.Hash(*req.Password); err != nil {
			return model.AccountDTO{}, err
		}
	}

	var snap model.Snapshot
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		account, err := repos.Accounts().FindByID(ctx, id)
		if store.IsNotFound(err) {
			return NotFound(id)
		} else if err != nil {
			return err
		}

		if req.Name != nil {
			account.Name = *req.Name
		}
		if req.Email != nil && *req.Email != account.Email {
			if taken, err := repos.Accounts().ExistsByEmail(ctx, *req.Email); err != nil {
				return err
			} else if taken {
				return Conflict("email %q is already registered", *req.Email)
			}
			account.Email = *req.Email
		}
		if req.DepartmentID != nil {
			if _, err := repos.Departments().FindByID(ctx, *req.DepartmentID); store.IsNotFound(err) {
				return InvalidOperation("department %d not found", *req.DepartmentID)
			} else if err != nil {
				return err
			}
			account.DepartmentID = *req.DepartmentID
		}
		if err := repos.Accounts().Save(ctx, &account); err != nil {
			return err
		}

		if digest != "" {
			creds, err := repos.Credentials().FindByAccountID(ctx, id)
			switch {
			case store.IsNotFound(err):
				s.logger.Warn("password change ignored for account without credentials", zap.Int64("id", id))
			case err != nil:
				return err
			default:
				creds.PasswordDigest = digest
				if err := repos.Credentials().Save(ctx, &creds); err != nil {
					return err
				}
			}
		}

		if len(req.Roles) > 0 {
			if err := replaceRoles(ctx, repos, id, req.Roles); err != nil {
				return err
			}
		}

		snap, err = s.loadSnapshot(ctx, repos, id)
		return err
	})
	if err != nil {
		if store.IsNotFound(err) {
			s.metrics.AccountNotFound()
		}
		return model.AccountDTO{}, err
	}

	s.afterWrite(ctx, snap)
	s.metrics.AccountUpdated()
	return model.NewAccountDTO(snap), nil
}

// UpdateRoles replaces every role of the account.
func (s *Service) UpdateRoles(ctx context.Context, id int64, req UpdateRolesRequest) (model.AccountDTO, error) {
	if err := req.Validate(); err != nil {
		return model.AccountDTO{}, validationFailed(err)
	}

	var snap model.Snapshot
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		if ok, err := repos.Accounts().ExistsByID(ctx, id); err != nil {
			return err
		} else if !ok {
			return NotFound(id)
		}

		if err := replaceRoles(ctx, repos, id, req.Roles); err != nil {
			return err
		}

		var err error
		snap, err = s.loadSnapshot(ctx, repos, id)
		return err
	})
	if err != nil {
		return model.AccountDTO{}, err
	}

	s.afterWrite(ctx, snap)
	s.metrics.AccountUpdated()
	return model.NewAccountDTO(snap), nil
}

// Delete removes the account with its credentials and role assignments.
// The administrator account cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		if ok, err := repos.Accounts().ExistsByID(ctx, id); err != nil {
			return err
		} else if !ok {
			return NotFound(id)
		}

		creds, err := repos.Credentials().FindByAccountID(ctx, id)
		if err != nil && !store.IsNotFound(err) {
			return err
		}
		if err == nil && creds.Username == s.admin {
			return InvalidOperation("the %s account cannot be deleted", s.admin)
		}

		if err := repos.AccountRoles().DeleteByAccountID(ctx, id); err != nil {
			return err
		}
		if err := repos.Credentials().DeleteByAccountID(ctx, id); err != nil {
			return err
		}
		return repos.Accounts().DeleteByID(ctx, id)
	})
	if err != nil {
		if store.IsNotFound(err) {
			s.metrics.AccountNotFound()
		}
		return err
	}

	if err := s.snapshots.Evict(ctx, id); err != nil {
		s.logger.Warn("cache evict failed", zap.Int64("id", id), zap.Error(err))
	}
	s.queue.Delete(id)
	s.metrics.AccountDeleted()
	s.logger.Info("account deleted", zap.Int64("id", id))
	return nil
}

// Refresh evicts the cached snapshots of ids and schedules index upserts
// built from the store. It is meant for components that write to the store
// directly, such as the bootstrap reconciler. Accounts that no longer exist
// are removed from the index.
func (s *Service) Refresh(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		if err := s.snapshots.Evict(ctx, id); err != nil {
			s.logger.Warn("cache evict failed", zap.Int64("id", id), zap.Error(err))
		}

		snap, err := s.loadSnapshot(ctx, s.store, id)
		if store.IsNotFound(err) {
			s.queue.Delete(id)
			continue
		} else if err != nil {
			return err
		}
		s.queue.Upsert(search.DocumentFromSnapshot(snap))
	}
	return nil
}

// Authenticate checks a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (auth.Principal, error) {
	creds, err := s.store.Credentials().FindByUsername(ctx, strings.TrimSpace(username))
	if store.IsNotFound(err) {
		return auth.Principal{}, Unauthenticated()
	} else if err != nil {
		return auth.Principal{}, err
	}

	if !s.hasher.Verify(creds.PasswordDigest, password) {
		return auth.Principal{}, Unauthenticated()
	}

	roles, err := s.store.AccountRoles().RoleNames(ctx, []int64{creds.AccountID})
	if err != nil {
		return auth.Principal{}, err
	}

	return auth.Principal{
		AccountID: creds.AccountID,
		Username:  creds.Username,
		Roles:     roles[creds.AccountID],
	}, nil
}

// afterWrite overwrites the cache entry and schedules an index upsert.
func (s *Service) afterWrite(ctx context.Context, snap model.Snapshot) {
	if err := s.snapshots.Put(ctx, snap.ID, snap); err != nil {
		s.logger.Warn("cache write failed", zap.Int64("id", snap.ID), zap.Error(err))
	}
	s.queue.Upsert(search.DocumentFromSnapshot(snap))
}

func resolveRoles(ctx context.Context, repos store.Repositories, names []string) ([]model.Role, error) {
	roles := make([]model.Role, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		role, err := repos.Roles().FindByName(ctx, name)
		if store.IsNotFound(err) {
			return nil, InvalidOperation("role %q not found", name)
		} else if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func namesOf(roles []model.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names
}

func assignRoles(ctx context.Context, repos store.Repositories, accountID int64, roles []model.Role) error {
	for _, role := range roles {
		if err := repos.AccountRoles().Assign(ctx, accountID, role.ID); err != nil {
			return err
		}
	}
	return nil
}

func replaceRoles(ctx context.Context, repos store.Repositories, accountID int64, names []string) error {
	roles, err := resolveRoles(ctx, repos, names)
	if err != nil {
		return err
	}
	if err := repos.AccountRoles().DeleteByAccountID(ctx, accountID); err != nil {
		return err
	}
	return assignRoles(ctx, repos, accountID, roles)
}
