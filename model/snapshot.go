package model

import "slices"

// Snapshot is the denormalized view of an account: the account row joined
// with its department name, username and role names. It is what the
// lookaside cache stores and what the API projects from. It never carries a
// password digest.
type Snapshot struct {
	ID             int64    `msgpack:"id"`
	Name           string   `msgpack:"name"`
	Email          string   `msgpack:"email"`
	DepartmentID   int64    `msgpack:"department_id"`
	DepartmentName string   `msgpack:"department_name"`
	Username       string   `msgpack:"username"`
	Roles          []string `msgpack:"roles"`
}

// HasRole reports whether the snapshot carries the named role.
func (s Snapshot) HasRole(name string) bool {
	return slices.Contains(s.Roles, name)
}

// NewSnapshot assembles a snapshot from its parts. Roles are copied and
// sorted so equal accounts produce equal snapshots.
func NewSnapshot(account Account, department Department, username string, roles []string) Snapshot {
	sorted := slices.Clone(roles)
	slices.Sort(sorted)
	if sorted == nil {
		sorted = []string{}
	}

	return Snapshot{
		ID:             account.ID,
		Name:           account.Name,
		Email:          account.Email,
		DepartmentID:   account.DepartmentID,
		DepartmentName: department.Name,
		Username:       username,
		Roles:          sorted,
	}
}
