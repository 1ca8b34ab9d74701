// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package nav defines the admin sidebar: a static role-annotated tree that
// is filtered per request through the same access rule the route guard
// uses. What a role cannot reach, it never sees.
package nav

import (
	"strings"

	"github.com/olegiv/epress-go/internal/model"
)

// Item is one sidebar entry. An item either links directly (Path) or
// expands a list of sub-items, never both. Nil AllowedRoles means visible
// to every authenticated role.
type Item struct {
	Name         string
	Icon         string
	Path         string
	SubItems     []SubItem
	AllowedRoles []model.Role
	Expanded     bool // set by Filter based on the current path
}

// SubItem is a second-level link inside an expandable item.
type SubItem struct {
	Name         string
	Path         string
	AllowedRoles []model.Role
	Active       bool // set by Filter based on the current path
}

// Items returns the full sidebar tree before role filtering.
func Items() []Item {
	return []Item{
		{
			Name: "Dashboard",
			Icon: "home",
			Path: "/admin",
		},
		{
			Name: "ePapers",
			Icon: "newspaper",
			SubItems: []SubItem{
				{Name: "All ePapers", Path: "/admin/epapers"},
				{Name: "Add ePaper", Path: "/admin/epapers/create"},
			},
		},
		{
			Name:         "Users",
			Icon:         "users",
			AllowedRoles: []model.Role{model.RoleSuperAdmin, model.RoleAdmin},
			SubItems: []SubItem{
				{Name: "All Users", Path: "/admin/users"},
				{Name: "Add User", Path: "/admin/users/create"},
			},
		},
	}
}

// Filter returns the sidebar visible to role, with the item containing
// currentPath expanded. Containers whose sub-items are all filtered out
// are dropped entirely: an empty expandable group is never rendered.
func Filter(role model.Role, currentPath string) []Item {
	var out []Item
	for _, item := range Items() {
		if !model.CanAccess(role, item.AllowedRoles) {
			continue
		}

		if len(item.SubItems) > 0 {
			var subs []SubItem
			for _, sub := range item.SubItems {
				if !model.CanAccess(role, sub.AllowedRoles) {
					continue
				}
				subs = append(subs, sub)
			}
			if len(subs) == 0 {
				continue
			}
			markActive(subs, currentPath)
			for _, sub := range subs {
				if sub.Active {
					item.Expanded = true
					break
				}
			}
			item.SubItems = subs
		} else {
			item.Expanded = pathMatches(currentPath, item.Path)
		}

		out = append(out, item)
	}
	return out
}

// markActive highlights exactly one sub-item: an exact path match wins,
// otherwise the first prefix match (so an edit page lights up its list
// entry, while a create page lights up only its own link).
func markActive(subs []SubItem, currentPath string) {
	for i := range subs {
		if currentPath == subs[i].Path {
			subs[i].Active = true
			return
		}
	}
	for i := range subs {
		if pathMatches(currentPath, subs[i].Path) {
			subs[i].Active = true
			return
		}
	}
}

// pathMatches reports whether current is target or a child of it. The
// dashboard root matches only exactly so it does not light up for every
// admin page.
func pathMatches(current, target string) bool {
	if current == target {
		return true
	}
	if target == "/admin" {
		return false
	}
	return strings.HasPrefix(current, target+"/")
}
