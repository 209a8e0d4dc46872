package models

// Role enum as issued by the auth service
type Role string

const (
	RoleDoctor Role = "MEDICO"
	RoleAdmin  Role = "ADMINISTRADOR"
	RoleNurse  Role = "ENFERMERO"
)

// ClinicalStaff is every role allowed to read clinical data.
var ClinicalStaff = []Role{RoleDoctor, RoleNurse, RoleAdmin}
