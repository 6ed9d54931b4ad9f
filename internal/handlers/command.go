package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/i18n"
	"github.com/wa-ai-bot-go/internal/middleware"
	"github.com/wa-ai-bot-go/internal/models"
	"github.com/wa-ai-bot-go/internal/roles"
	"github.com/wa-ai-bot-go/internal/services/storage"
)

// command is the closed set of slash commands the router dispatches on.
type command int

const (
	cmdNone command = iota
	cmdHelp
	cmdStats
	cmdStatus
	cmdCheck
	cmdUsers
)

// CommandRouter serves slash commands without touching the completion
// provider. Unmatched text falls through to the normal response path.
type CommandRouter struct {
	config    *config.Config
	resolver  *roles.Resolver
	store     storage.Store
	localizer *i18n.Localizer
	metrics   *middleware.Metrics
	logger    *logrus.Logger
}

// NewCommandRouter creates a command router.
func NewCommandRouter(
	cfg *config.Config,
	resolver *roles.Resolver,
	store storage.Store,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *CommandRouter {
	return &CommandRouter{
		config:    cfg,
		resolver:  resolver,
		store:     store,
		localizer: localizer,
		metrics:   metrics,
		logger:    logger,
	}
}

// parseCommand matches the trimmed, lowercased text against the command set.
func parseCommand(text string) (command, []string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return cmdNone, nil
	}

	fields := strings.Fields(trimmed)
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "/help":
		return cmdHelp, args
	case "/stats":
		return cmdStats, args
	case "/status":
		return cmdStatus, args
	case "/check":
		return cmdCheck, args
	case "/users":
		return cmdUsers, args
	default:
		return cmdNone, nil
	}
}

// Route serves a command if the text matches one the caller may use. The
// second return is false when the text must fall through to the normal flow.
//
// /stats is ambiguous between the admin aggregate and the per-user summary;
// the admin surface is checked first, so an admin always receives the
// aggregate form and only non-admins get their personal summary.
func (r *CommandRouter) Route(identifier, text string) (string, bool) {
	cmd, args := parseCommand(text)
	if cmd == cmdNone {
		return "", false
	}

	isAdmin := r.resolver.IsAdmin(identifier)

	var reply string
	switch cmd {
	case cmdHelp:
		if isAdmin {
			reply = r.localizer.Default(i18n.MsgAdminHelp, nil)
		} else {
			reply = r.localizer.Default(i18n.MsgHelp, nil)
		}
	case cmdStats:
		if isAdmin {
			reply = r.aggregateStats()
		} else {
			reply = r.userStats(identifier)
		}
	case cmdStatus:
		if !isAdmin {
			return "", false
		}
		reply = r.systemStatus()
	case cmdCheck:
		if !isAdmin {
			return "", false
		}
		reply = r.checkUser(args)
	case cmdUsers:
		if !isAdmin {
			return "", false
		}
		reply = r.listUsers()
	}

	r.metrics.RecordCommandExecuted(strings.ToLower(strings.Fields(strings.TrimSpace(text))[0]))
	r.logger.WithFields(logrus.Fields{
		"identifier": identifier,
		"command":    strings.Fields(strings.TrimSpace(text))[0],
		"admin":      isAdmin,
	}).Info("Command executed")

	return reply, true
}

// userStats renders the per-identifier usage summary.
func (r *CommandRouter) userStats(identifier string) string {
	stats := r.store.Stats(identifier)
	if stats == nil {
		return r.localizer.Default(i18n.MsgNoStats, nil)
	}

	days := int(time.Since(stats.FirstSeen).Hours()/24) + 1
	return r.localizer.Default(i18n.MsgUserStats, map[string]interface{}{
		"Messages": stats.MessageCount,
		"Days":     days,
		"Last":     stats.LastSeen.Format("02/01/2006 15:04"),
		"Tokens":   stats.ApproxTokens,
	})
}

// aggregateStats renders the bot-wide statistics for admins.
func (r *CommandRouter) aggregateStats() string {
	counts := map[models.UserRole]int{}
	for _, u := range r.resolver.SpecialUsers() {
		counts[u.Role]++
	}

	all := r.store.AllStats()
	totalMessages := 0
	for _, s := range all {
		totalMessages += s.MessageCount
	}

	var b strings.Builder
	b.WriteString("🔰 ADMIN - Bot Statistics\n\n")
	b.WriteString("👥 User Distribution:\n")
	fmt.Fprintf(&b, "• Admin: %d (🏷️ Badge shown)\n", counts[models.RoleAdmin])
	fmt.Fprintf(&b, "• VIP: %d (🔇 Hidden role)\n", counts[models.RoleVIP])
	fmt.Fprintf(&b, "• Premium: %d (🔇 Hidden role)\n", counts[models.RolePremium])
	fmt.Fprintf(&b, "• Banned: %d\n\n", len(r.resolver.BannedUsers()))
	b.WriteString("📊 Usage:\n")
	fmt.Fprintf(&b, "• Active users: %d\n", len(all))
	fmt.Fprintf(&b, "• Total messages: %d\n\n", totalMessages)
	b.WriteString("🔇 Privacy:\n")
	b.WriteString("• VIP & Premium users tidak tahu status mereka\n")
	b.WriteString("• Role visibility: admin only")
	return b.String()
}

// systemStatus renders the system status for admins.
func (r *CommandRouter) systemStatus() string {
	basic := r.resolver.Profile(models.RoleBasic)

	var b strings.Builder
	b.WriteString("📊 Bot Status\n\n")
	b.WriteString("⚙️ Konfigurasi:\n")
	fmt.Fprintf(&b, "• Rate limit: %d pesan/menit\n", r.config.RateLimit.MaxPerMinute)
	fmt.Fprintf(&b, "• Default model: %s\n", basic.Model)
	fmt.Fprintf(&b, "• Context strategy: %s\n", r.config.Context.Strategy)
	fmt.Fprintf(&b, "• Fallback mode: %s\n\n", r.config.Fallback.Mode)
	b.WriteString("Status: ✅ Online")
	return b.String()
}

// checkUser renders role/profile information about any identifier.
func (r *CommandRouter) checkUser(args []string) string {
	if len(args) == 0 {
		return "🔰 ADMIN COMMAND\n\nFormat: /check <nomor>\nContoh: /check 628123456789"
	}

	target := args[0]
	if !strings.HasSuffix(target, "@c.us") {
		target = target + "@c.us"
	}

	role := r.resolver.Resolve(target)
	profile := r.resolver.Profile(role)

	banned := "No"
	if role == models.RoleBanned {
		banned = "Yes"
	}

	var b strings.Builder
	b.WriteString("🔰 ADMIN - User Check\n\n")
	fmt.Fprintf(&b, "📱 Number: %s\n", strings.TrimSuffix(target, "@c.us"))
	fmt.Fprintf(&b, "🏷️ Role: %s\n", role)
	fmt.Fprintf(&b, "🚫 Banned: %s\n", banned)
	fmt.Fprintf(&b, "⚡ AI Model: %s\n", profile.Model)
	fmt.Fprintf(&b, "🎯 Max Tokens: %d\n", profile.MaxTokens)
	fmt.Fprintf(&b, "📊 Priority: Level %d\n", profile.Priority)
	fmt.Fprintf(&b, "👁️ Show Badge: %t\n", profile.ShowBadge)
	if len(profile.Features) > 0 {
		b.WriteString("\nFeatures:\n")
		for _, f := range profile.Features {
			fmt.Fprintf(&b, "• %s\n", f)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// listUsers renders the special and banned user listing for admins.
func (r *CommandRouter) listUsers() string {
	var b strings.Builder
	b.WriteString("🔰 ADMIN - Special Users List\n\n")

	special := r.resolver.SpecialUsers()
	for _, u := range special {
		badge := "🔇"
		if u.ShowBadge {
			badge = "🏷️"
		}
		fmt.Fprintf(&b, "📱 %s - %s %s\n", strings.TrimSuffix(u.Identifier, "@c.us"), u.Role, badge)
	}

	banned := r.resolver.BannedUsers()
	if len(banned) > 0 {
		b.WriteString("\n🚫 Banned Users:\n")
		for _, id := range banned {
			fmt.Fprintf(&b, "❌ %s\n", strings.TrimSuffix(id, "@c.us"))
		}
	}

	b.WriteString("\n📊 Summary:\n")
	fmt.Fprintf(&b, "• Total Special Users: %d\n", len(special))
	fmt.Fprintf(&b, "• Total Banned: %d\n", len(banned))
	b.WriteString("• Hidden Roles: VIP & Premium (no badge shown)")
	return b.String()
}
