package accounts

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// CreateRequest carries the attributes of a new account.
type CreateRequest struct {
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	DepartmentID int64    `json:"departmentId"`
	Roles        []string `json:"roles"`
}

func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.DepartmentID, validation.Required),
		validation.Field(&r.Roles, validation.Each(validation.Required)),
	)
}

// UpdateRequest carries a partial update. Nil fields are left untouched; a
// non-empty Roles replaces every role of the account.
type UpdateRequest struct {
	Name         *string  `json:"name"`
	Email        *string  `json:"email"`
	DepartmentID *int64   `json:"departmentId"`
	Password     *string  `json:"password"`
	Roles        []string `json:"roles"`
}

func (r UpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.EmailFormat),
		validation.Field(&r.DepartmentID, validation.NilOrNotEmpty),
		validation.Field(&r.Password, validation.NilOrNotEmpty),
		validation.Field(&r.Roles, validation.Each(validation.Required)),
	)
}

// UpdateRolesRequest replaces the roles of an account.
type UpdateRolesRequest struct {
	Roles []string `json:"roles"`
}

func (r UpdateRolesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Roles, validation.Required, validation.Each(validation.Required)),
	)
}

// CreateDepartmentRequest carries the attributes of a new department.
type CreateDepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r CreateDepartmentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}
