// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// User represents an account managed by the backend. The console never sees
// password material; only the backend stores credentials.
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	UserName  string    `json:"userName"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsSuperAdmin returns true if the user has the SuperAdmin role.
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// CanManageUsers returns true if the user may reach the user management area.
func (u *User) CanManageUsers() bool {
	return CanAccess(u.Role, []Role{RoleSuperAdmin, RoleAdmin})
}
