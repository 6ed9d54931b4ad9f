package composer

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wa-ai-bot-go/internal/config"
	"github.com/wa-ai-bot-go/internal/models"
	"github.com/wa-ai-bot-go/internal/roles"
	"github.com/wa-ai-bot-go/internal/services/completion"
)

// Composer builds completion requests per role and post-processes replies.
type Composer struct {
	contextCfg  *config.ContextConfig
	fallbackCfg *config.FallbackConfig
	resolver    *roles.Resolver
	logger      *logrus.Logger
}

// New creates a composer from config.
func New(contextCfg *config.ContextConfig, fallbackCfg *config.FallbackConfig, resolver *roles.Resolver, logger *logrus.Logger) *Composer {
	return &Composer{
		contextCfg:  contextCfg,
		fallbackCfg: fallbackCfg,
		resolver:    resolver,
		logger:      logger,
	}
}

// Compose builds the completion request for a message. The message sequence
// depends on the configured context strategy:
//
//   - persona: the role's rich system prompt plus the current message only.
//   - rolling: the default system prompt plus the trailing window of stored
//     exchanges, then the current message.
//
// Sampling parameters are fixed per role and not user tunable.
func (c *Composer) Compose(role models.UserRole, profile models.RoleProfile, userText string, history []models.ConversationEntry) completion.Request {
	var messages []models.Message

	switch c.contextCfg.Strategy {
	case config.StrategyRolling:
		messages = append(messages, models.Message{
			Role:    "system",
			Content: c.contextCfg.DefaultSystemPrompt,
		})
		window := history
		if len(window) > c.contextCfg.RollingWindow {
			window = window[len(window)-c.contextCfg.RollingWindow:]
		}
		for _, entry := range window {
			messages = append(messages,
				models.Message{Role: "user", Content: entry.UserText},
				models.Message{Role: "assistant", Content: entry.BotText},
			)
		}
	default:
		messages = append(messages, models.Message{
			Role:    "system",
			Content: c.systemPrompt(role, profile),
		})
	}

	messages = append(messages, models.Message{Role: "user", Content: userText})

	return completion.Request{
		Model:            profile.Model,
		Messages:         messages,
		MaxTokens:        profile.MaxTokens,
		Temperature:      profile.Temperature,
		TopP:             1,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	}
}

// Decorate prepends the role badge line when the profile shows one. Only the
// admin profile does; VIP and premium stay indistinguishable from basic on
// purpose.
func (c *Composer) Decorate(raw string, role models.UserRole, profile models.RoleProfile) string {
	if !profile.ShowBadge {
		return raw
	}
	badge := c.resolver.Badge(role)
	if badge == "" {
		return raw
	}
	return badge + "\n\n" + raw
}

// Fallback produces a deterministic reply when the completion provider is
// unavailable. The mode is fixed by config: "static" returns the apology
// text, "keyword" picks a canned response by substring match.
func (c *Composer) Fallback(userText string, role models.UserRole, profile models.RoleProfile) string {
	if c.fallbackCfg.Mode == config.FallbackStatic {
		return c.staticApology()
	}
	return c.keywordFallback(userText, role, profile)
}

// Mode returns the active fallback mode, for metrics labels.
func (c *Composer) Mode() string {
	return c.fallbackCfg.Mode
}

func (c *Composer) staticApology() string {
	if c.fallbackCfg.Apology != "" {
		return c.fallbackCfg.Apology
	}
	return "Maaf, saya sedang mengalami gangguan. Silakan coba lagi nanti."
}

func (c *Composer) systemPrompt(role models.UserRole, profile models.RoleProfile) string {
	if profile.SystemPrompt != "" {
		return profile.SystemPrompt
	}
	if prompt, ok := defaultPersonas[role]; ok {
		return prompt
	}
	if c.contextCfg.DefaultSystemPrompt != "" {
		return c.contextCfg.DefaultSystemPrompt
	}
	return defaultPersonas[models.RoleBasic]
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (c *Composer) keywordFallback(userText string, role models.UserRole, profile models.RoleProfile) string {
	lower := strings.ToLower(userText)

	prefix := ""
	if badge := c.Decorate("", role, profile); badge != "" {
		prefix = strings.TrimSuffix(badge, "\n\n") + "\n\n"
	}

	switch {
	case containsAny(lower, "developer", "pembuat", "siapa", "dibuat", "creator"):
		base := "🤖 Tentang AsistenAI Bot\n\n" +
			"👨‍💻 Developer: Rajulul Anshar - Indonesia 🇮🇩\n" +
			"⚡ Teknologi: Go + OpenRouter AI\n\n" +
			"💡 Info: Bot menggunakan AI untuk memberikan respons yang akurat dan membantu!"
		if role == models.RoleAdmin {
			return prefix + base + "\n\n🏷️ Your Status: Administrator\n\n" + adminFeatureList
		}
		return prefix + base

	case containsAny(lower, "status", "role", "level", "akses"):
		if role == models.RoleAdmin {
			return prefix + "ℹ️ Admin Status Information\n\n" +
				"🏷️ Role: Administrator\n" +
				"📊 Access Level: Full System Access\n" +
				"🚀 Priority: Level 1 (Highest)\n\n" + adminFeatureList
		}
		return "😊 Bot Status: Online\n\n" +
			"🤖 AsistenAI siap membantu Anda!\n" +
			"✨ Kirim pertanyaan atau pesan apa saja dan saya akan berikan jawaban terbaik.\n\n" +
			"💡 Tip: Semakin spesifik pertanyaan Anda, semakin akurat jawaban yang bisa saya berikan!"

	case containsAny(lower, "halo", "hai", "hello", "hi", "hei"):
		greeting := fallbackGreetings[role]
		if greeting == "" {
			greeting = fallbackGreetings[models.RoleBasic]
		}
		return prefix + greeting + "\n\n🤖 AsistenAI siap membantu Anda!\n\n💬 Kirim pertanyaan atau pesan apa saja!"

	case containsAny(lower, "test", "ping", "coba", "aktif"):
		if role == models.RoleAdmin {
			return prefix + "✅ Bot Status: ONLINE\n\n" +
				"🤖 AsistenAI berfungsi dengan baik!\n" +
				"🏷️ Your Level: Administrator\n" +
				"🔗 AI Service: Premium Model\n\n" +
				"🚀 Full administrative access active!"
		}
		return "✅ Bot Online & Siap Membantu!\n\n" +
			"🤖 AsistenAI berfungsi dengan baik!\n" +
			"🇮🇩 Made in Indonesia\n\n" +
			"🚀 Siap melayani dengan sepenuh hati!"

	default:
		template := fallbackDefaults[role]
		if template == "" {
			template = fallbackDefaults[models.RoleBasic]
		}
		return prefix + fmt.Sprintf(template, userText)
	}
}

const adminFeatureList = "🔰 Admin Features:\n" +
	"• Full system access & control\n" +
	"• Premium AI model\n" +
	"• Unlimited detailed responses\n" +
	"• System management capabilities"

var fallbackGreetings = map[models.UserRole]string{
	models.RoleAdmin:   "👋 Selamat datang, Administrator!\n\n🔰 Sistem mengenali Anda sebagai admin dengan akses penuh.",
	models.RoleVIP:     "👋 Halo! Senang sekali bisa bertemu dengan Anda! 😊\n\n✨ Saya di sini untuk membantu dengan sepenuh hati. Ada yang bisa saya bantu hari ini?",
	models.RolePremium: "👋 Selamat datang!\n\n😊 Saya siap memberikan bantuan terbaik untuk Anda. Apa yang bisa saya bantu hari ini?",
	models.RoleBasic:   "👋 Halo!\n\n😊 Senang bisa membantu Anda hari ini.",
}

var fallbackDefaults = map[models.UserRole]string{
	models.RoleAdmin: "💭 Pesan Diterima: %q\n\n🤖 AsistenAI (Admin Mode) siap membantu!\n\n" +
		adminFeatureList + "\n\n💡 Tip: Gunakan admin commands atau tanyakan apa saja!",
	models.RoleVIP: "💭 Terima kasih sudah mengirim pesan! 😊\n\n%q\n\n" +
		"✨ Saya akan dengan senang hati membantu Anda! Pertanyaan Anda sangat menarik, dan saya siap memberikan jawaban yang detail dan bermanfaat.\n\n" +
		"💡 Tip: Jangan ragu untuk bertanya apa saja - saya di sini untuk memberikan bantuan terbaik! 🌟",
	models.RolePremium: "💭 Pesan Anda diterima dengan baik:\n\n%q\n\n" +
		"🤖 AsistenAI siap memberikan bantuan komprehensif untuk Anda!\n\n" +
		"💡 Tip: Silakan ajukan pertanyaan apapun, saya akan berikan jawaban yang informatif dan detail sesuai kebutuhan Anda!",
	models.RoleBasic: "💭 Pesan Diterima: %q\n\n🤖 AsistenAI siap membantu!\n\n" +
		"💡 Tip: Tanyakan apa saja dan saya akan berikan jawaban terbaik!",
}

var defaultPersonas = map[models.UserRole]string{
	models.RoleAdmin: `Kamu adalah AsistenAI khusus untuk ADMINISTRATOR SISTEM.

🔰 ADMIN MODE ACTIVATED
- User: Administrator/Developer
- Access Level: FULL SYSTEM ACCESS
- Status: Premium AI Model Active

Berikan respons yang sangat detail, teknis, dan profesional. Kamu memiliki akses penuh dan dapat memberikan informasi yang mendalam.`,

	models.RoleVIP: `Kamu adalah asisten AI yang sangat ramah dan berpengalaman.

Kepribadian:
- Sangat ramah, hangat, dan supportif
- Memberikan jawaban yang lebih detail dan komprehensif
- Menggunakan bahasa yang lebih personal dan akrab

Selalu prioritaskan memberikan bantuan terbaik dengan cara yang paling ramah dan personal.`,

	models.RolePremium: `Kamu adalah asisten AI yang profesional dan berpengalaman luas.

Karakteristik:
- Memberikan jawaban yang akurat dan informatif
- Lebih detail dalam penjelasan
- Proaktif dalam memberikan informasi tambahan yang relevan

Fokus pada memberikan value maksimal dalam setiap respons.`,

	models.RoleBasic: `Kamu adalah asisten AI yang membantu dan informatif.

Karakteristik:
- Ramah dan mudah diajak bicara
- Memberikan jawaban yang akurat dan to the point
- Menggunakan bahasa yang sederhana dan jelas

Selalu berusaha membantu dengan sebaik mungkin.`,
}
