package models

import (
	"time"
)

// UserRole is the closed set of roles a chat identifier can resolve to.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleVIP     UserRole = "vip"
	RolePremium UserRole = "premium"
	RoleBasic   UserRole = "basic"
	RoleBanned  UserRole = "banned"
)

// KnownRoles lists every role a profile may be configured for.
var KnownRoles = []UserRole{RoleAdmin, RoleVIP, RolePremium, RoleBasic}

// RoleProfile is the static behavior bundle attached to a role.
type RoleProfile struct {
	Name         string   `mapstructure:"name"`
	Model        string   `mapstructure:"model"`
	MaxTokens    int      `mapstructure:"max_tokens"`
	Temperature  float64  `mapstructure:"temperature"`
	Priority     int      `mapstructure:"priority"`
	Features     []string `mapstructure:"features"`
	ShowBadge    bool     `mapstructure:"show_badge"`
	SystemPrompt string   `mapstructure:"system_prompt"`
}

// Message is a single chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationEntry is one user/bot exchange in an identifier's history.
type ConversationEntry struct {
	Timestamp time.Time
	UserText  string
	BotText   string
}

// UserStats accumulates per-identifier usage counters. ApproxTokens is a
// word count of request+response text, not a real token count.
type UserStats struct {
	Identifier   string
	FirstSeen    time.Time
	LastSeen     time.Time
	MessageCount int
	ApproxTokens int
}

// WebhookEvent is the normalized inbound event from the Green API webhook.
type WebhookEvent struct {
	TypeWebhook string `json:"typeWebhook"`
	SenderData  struct {
		ChatID     string `json:"chatId"`
		Sender     string `json:"sender"`
		SenderName string `json:"senderName"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
	} `json:"messageData"`
}

// CacheEntry is a cached completion answer.
type CacheEntry struct {
	Question  string
	Answer    string
	Model     string
	Role      UserRole
	CreatedAt time.Time
}
