// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain types shared across the application:
// users and roles, epaper editions, and the backend pagination envelope.
package model

// Role is a user role as reported by the backend. It is the sole
// authorization attribute on the client side.
type Role string

// User roles. Role names are case-sensitive and must match the backend.
const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleAdmin      Role = "Admin"
	RoleStaff      Role = "Staff"
)

// ValidRoles contains all roles the backend may assign.
var ValidRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleStaff}

// IsValidRole checks if a role is one of the known roles.
func IsValidRole(role Role) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// CanAccess is the single role-membership policy shared by the route guard
// and the navigation filter, so that what is shown and what is enforced
// cannot drift apart. An empty allowed set means any authenticated role.
func CanAccess(role Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}
