package model

import (
	"time"

	"github.com/uptrace/bun"
)

// Role names recognised by the system. Roles are created once during
// bootstrap and never deleted.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Account is the system-of-record representation of a person.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	DepartmentID int64     `bun:"department_id,notnull" json:"department_id"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Department groups accounts. Names are unique by convention only.
type Department struct {
	bun.BaseModel `bun:"table:departments,alias:d"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	Name        string `bun:"name,notnull" json:"name"`
	Description string `bun:"description" json:"description"`
}

// Credentials holds the login identity of an account. Legacy accounts may
// not have one.
type Credentials struct {
	bun.BaseModel `bun:"table:credentials,alias:c"`

	ID             int64  `bun:"id,pk,autoincrement"`
	AccountID      int64  `bun:"account_id,notnull,unique"`
	Username       string `bun:"username,notnull,unique"`
	PasswordDigest string `bun:"password_digest,notnull" json:"-"`
}

// Role is a named permission set.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	Name        string `bun:"name,notnull,unique" json:"name"`
	Description string `bun:"description" json:"description"`
}

// AccountRole links an account to a role. The pair is unique.
type AccountRole struct {
	bun.BaseModel `bun:"table:account_roles,alias:ar"`

	ID        int64 `bun:"id,pk,autoincrement"`
	AccountID int64 `bun:"account_id,notnull,unique:account_role"`
	RoleID    int64 `bun:"role_id,notnull,unique:account_role"`
}
