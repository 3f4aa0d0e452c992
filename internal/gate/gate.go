// Package gate implements permission-string authorization for the admin
// API. Permissions have the form "resource:action" (e.g. "invoice:create")
// with wildcard support ("invoice:*", "*:*"); each role stores a
// comma-separated permission list that is resolved and cached per user.
package gate

import (
	"context"
	"errors"
	"strings"
)

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// Permission represents an allowed action on a resource type.
// Format: "resource:action" (e.g. "invoice:create", "tenant:view").
type Permission string

// Wildcards for super permissions.
const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// NewPermission creates a permission from resource type and action.
func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resource string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

// Matches checks if this permission grants a requested permission.
// Supports wildcards: "*:*" matches all, "invoice:*" matches all invoice
// actions, "*:view" matches viewing any resource.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin {
		return true
	}
	if p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	if res != WildcardAll && res != reqRes {
		return false
	}
	if string(act) != WildcardAll && act != reqAct {
		return false
	}
	return true
}

// ParseList parses the comma-separated permission list stored on a role.
// Blank entries are skipped; entries without a colon are ignored.
func ParseList(csv string) []Permission {
	var out []Permission
	for _, raw := range strings.Split(csv, ",") {
		s := strings.TrimSpace(raw)
		if s == "" || !strings.Contains(s, ":") {
			continue
		}
		out = append(out, Permission(s))
	}
	return out
}

// Sentinel errors returned by Gate.Authorize.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Resolver maps a user id to the permissions granted by their role.
type Resolver interface {
	Resolve(ctx context.Context, userID uint) ([]Permission, error)
}

// Gate is the central authorization checkpoint for handlers.
type Gate struct {
	resolver Resolver
}

// New creates a Gate backed by the given resolver.
func New(r Resolver) *Gate { return &Gate{resolver: r} }

// Authorize returns nil if userID may perform action on resource.
// Returns ErrUnauthorized for the zero user id, ErrForbidden when no
// granted permission matches, or the resolver's error.
func (g *Gate) Authorize(ctx context.Context, userID uint, action Action, resource string) error {
	if userID == 0 {
		return ErrUnauthorized
	}
	perms, err := g.resolver.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	requested := NewPermission(resource, action)
	for _, p := range perms {
		if p.Matches(requested) {
			return nil
		}
	}
	return ErrForbidden
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate) Can(ctx context.Context, userID uint, action Action, resource string) bool {
	return g.Authorize(ctx, userID, action, resource) == nil
}
