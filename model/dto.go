package model

import "slices"

// AccountDTO is the external projection of an account.
type AccountDTO struct {
	ID             int64    `json:"id"`
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	DepartmentID   int64    `json:"departmentId"`
	DepartmentName string   `json:"departmentName"`
	Roles          []string `json:"roles"`
}

// NewAccountDTO maps a snapshot field by field.
func NewAccountDTO(s Snapshot) AccountDTO {
	roles := slices.Clone(s.Roles)
	if roles == nil {
		roles = []string{}
	}

	return AccountDTO{
		ID:             s.ID,
		Username:       s.Username,
		Name:           s.Name,
		Email:          s.Email,
		DepartmentID:   s.DepartmentID,
		DepartmentName: s.DepartmentName,
		Roles:          roles,
	}
}

// DepartmentDTO is the external projection of a department.
type DepartmentDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewDepartmentDTO maps a department.
func NewDepartmentDTO(d Department) DepartmentDTO {
	return DepartmentDTO{ID: d.ID, Name: d.Name, Description: d.Description}
}
