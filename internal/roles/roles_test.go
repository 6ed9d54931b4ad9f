package roles_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/models"
	"github.com/wa-ai-bot-go/internal/roles"
)

func newTestResolver() *roles.Resolver {
	cfg := &config.RolesConfig{
		SpecialUsers: map[string]string{
			"111@c.us": "admin",
			"222@c.us": "vip",
			"333@c.us": "premium",
		},
		BannedUsers: []string{"444@c.us", "222@c.us"},
		Profiles: map[string]models.RoleProfile{
			"admin": {Name: "Administrator", Model: "model-a", MaxTokens: 800, Temperature: 0.7, Priority: 1, ShowBadge: true},
			"vip":   {Name: "VIP", Model: "model-a", MaxTokens: 600, Temperature: 0.7, Priority: 2},
			"basic": {Name: "Basic User", Model: "model-b", MaxTokens: 250, Temperature: 0.6, Priority: 4},
		},
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return roles.NewResolver(cfg, log)
}

func TestResolveDefaultsToBasic(t *testing.T) {
	r := newTestResolver()

	assert.Equal(t, models.RoleBasic, r.Resolve("999@c.us"))
	assert.Equal(t, models.RoleBasic, r.Resolve(""))
}

func TestResolveSpecialUsers(t *testing.T) {
	r := newTestResolver()

	assert.Equal(t, models.RoleAdmin, r.Resolve("111@c.us"))
	assert.Equal(t, models.RoleVIP, r.Resolve("222@c.us"))
	assert.Equal(t, models.RolePremium, r.Resolve("333@c.us"))
}

func TestBanTakesPrecedenceOverSpecialMapping(t *testing.T) {
	r := newTestResolver()

	// 222 is both vip and banned; ban wins.
	assert.Equal(t, models.RoleBanned, r.Resolve("444@c.us"))
	assert.Equal(t, models.RoleBanned, r.Resolve("222@c.us"))
}

func TestProfileFailsClosedToBasic(t *testing.T) {
	r := newTestResolver()

	// premium has a special mapping but no configured profile.
	profile := r.Profile(models.RolePremium)
	assert.Equal(t, "Basic User", profile.Name)

	profile = r.Profile(models.RoleBanned)
	assert.Equal(t, "Basic User", profile.Name)

	profile = r.Profile(models.RoleAdmin)
	assert.Equal(t, "Administrator", profile.Name)
}

func TestBadgeOnlyForBadgedProfiles(t *testing.T) {
	r := newTestResolver()

	require.NotEmpty(t, r.Badge(models.RoleAdmin))
	assert.Empty(t, r.Badge(models.RoleVIP))
	assert.Empty(t, r.Badge(models.RolePremium))
	assert.Empty(t, r.Badge(models.RoleBasic))
}

func TestSpecialUsersListing(t *testing.T) {
	r := newTestResolver()

	users := r.SpecialUsers()
	require.Len(t, users, 3)
	assert.Equal(t, "111@c.us", users[0].Identifier)
	assert.True(t, users[0].ShowBadge)
	assert.False(t, users[1].ShowBadge)

	banned := r.BannedUsers()
	assert.Equal(t, []string{"222@c.us", "444@c.us"}, banned)
}
