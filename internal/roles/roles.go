package roles

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/models"
)

// badges maps a role to its fixed badge label. Only roles whose profile has
// ShowBadge set ever surface theirs.
var badges = map[models.UserRole]string{
	models.RoleAdmin:  "🔰 ADMIN",
	models.RoleBanned: "🚫 BANNED",
}

// Resolver maps chat identifiers to roles and roles to behavior profiles.
// All tables are fixed at construction; resolution is a pure lookup.
type Resolver struct {
	special  map[string]models.UserRole
	banned   map[string]struct{}
	profiles map[models.UserRole]models.RoleProfile
	logger   *logrus.Logger
}

// NewResolver builds a resolver from the loaded role configuration.
func NewResolver(cfg *config.RolesConfig, logger *logrus.Logger) *Resolver {
	special := make(map[string]models.UserRole, len(cfg.SpecialUsers))
	for id, role := range cfg.SpecialUsers {
		special[id] = models.UserRole(role)
	}

	banned := make(map[string]struct{}, len(cfg.BannedUsers))
	for _, id := range cfg.BannedUsers {
		banned[id] = struct{}{}
	}

	profiles := make(map[models.UserRole]models.RoleProfile, len(cfg.Profiles))
	for name, profile := range cfg.Profiles {
		profiles[models.UserRole(name)] = profile
	}

	logger.WithFields(logrus.Fields{
		"special_users": len(special),
		"banned_users":  len(banned),
		"profiles":      len(profiles),
	}).Info("Role tables loaded")

	return &Resolver{
		special:  special,
		banned:   banned,
		profiles: profiles,
		logger:   logger,
	}
}

// Resolve returns the role for an identifier. Ban takes precedence over any
// special mapping; everyone else defaults to basic.
func (r *Resolver) Resolve(identifier string) models.UserRole {
	if _, ok := r.banned[identifier]; ok {
		return models.RoleBanned
	}
	if role, ok := r.special[identifier]; ok {
		return role
	}
	return models.RoleBasic
}

// Profile returns the behavior profile for a role. Unknown or banned roles
// fall back to the basic profile rather than failing.
func (r *Resolver) Profile(role models.UserRole) models.RoleProfile {
	if profile, ok := r.profiles[role]; ok {
		return profile
	}
	return r.profiles[models.RoleBasic]
}

// Badge returns the badge line for a role, or "" when the role's profile
// keeps it hidden.
func (r *Resolver) Badge(role models.UserRole) string {
	if !r.Profile(role).ShowBadge {
		return ""
	}
	return badges[role]
}

// IsAdmin reports whether the identifier resolves to the admin role.
func (r *Resolver) IsAdmin(identifier string) bool {
	return r.Resolve(identifier) == models.RoleAdmin
}

// SpecialUser is a configured identifier/role pair for the admin listing.
type SpecialUser struct {
	Identifier string
	Role       models.UserRole
	ShowBadge  bool
}

// SpecialUsers returns all configured special users in identifier order.
func (r *Resolver) SpecialUsers() []SpecialUser {
	users := make([]SpecialUser, 0, len(r.special))
	for id, role := range r.special {
		users = append(users, SpecialUser{
			Identifier: id,
			Role:       role,
			ShowBadge:  r.Profile(role).ShowBadge,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Identifier < users[j].Identifier })
	return users
}

// BannedUsers returns all banned identifiers in order.
func (r *Resolver) BannedUsers() []string {
	ids := make([]string, 0, len(r.banned))
	for id := range r.banned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
