package rbac

import (
	"context"
	"strings"
)

// Checker answers permission questions for a fixed policy.
type Checker struct {
	exact    map[string]map[Permission]bool
	prefixes map[string][]string
}

func NewChecker(policy map[string][]Permission) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	c := &Checker{
		exact:    make(map[string]map[Permission]bool, len(policy)),
		prefixes: make(map[string][]string, len(policy)),
	}
	for role, perms := range policy {
		set := make(map[Permission]bool, len(perms))
		for _, p := range perms {
			if s := string(p); strings.HasSuffix(s, "*") {
				c.prefixes[role] = append(c.prefixes[role], strings.TrimSuffix(s, "*"))
				continue
			}
			set[p] = true
		}
		c.exact[role] = set
	}
	return c
}

func (c *Checker) Has(role string, perm Permission) bool {
	if c.exact[role][perm] {
		return true
	}
	for _, prefix := range c.prefixes[role] {
		if strings.HasPrefix(string(perm), prefix) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...Permission) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
