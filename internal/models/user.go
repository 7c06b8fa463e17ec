package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// NotificationChannel selects how a reminder is delivered
type NotificationChannel string

const (
	ChannelBrowser NotificationChannel = "browser"
	ChannelEmail   NotificationChannel = "email"
	ChannelBoth    NotificationChannel = "both"
)

// Valid reports whether c is a known channel
func (c NotificationChannel) Valid() bool {
	return c == ChannelBrowser || c == ChannelEmail || c == ChannelBoth
}

// Browser reports whether c includes browser delivery
func (c NotificationChannel) Browser() bool { return c == ChannelBrowser || c == ChannelBoth }

// Email reports whether c includes email delivery
func (c NotificationChannel) Email() bool { return c == ChannelEmail || c == ChannelBoth }

// ReminderLeadTimes are the allowed reminder lead times in minutes
var ReminderLeadTimes = []int{30, 60, 120, 1440}

// DefaultReminderLeadTime is used for new users
const DefaultReminderLeadTime = 60

// ValidLeadTime reports whether minutes is one of the allowed lead times
func ValidLeadTime(minutes int) bool {
	for _, m := range ReminderLeadTimes {
		if m == minutes {
			return true
		}
	}
	return false
}

// NotificationSettings holds a user's reminder preferences
type NotificationSettings struct {
	Enabled          bool                `json:"enabled"`
	ReminderLeadTime int                 `json:"reminder_lead_time"` // minutes
	Channel          NotificationChannel `json:"channel"`
}

// DefaultNotificationSettings returns the settings given to new users
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled:          true,
		ReminderLeadTime: DefaultReminderLeadTime,
		Channel:          ChannelBoth,
	}
}

// LeadTime returns the reminder lead time as a duration
func (s NotificationSettings) LeadTime() time.Duration {
	return time.Duration(s.ReminderLeadTime) * time.Minute
}

// User is an account that owns progress, a solved log and tasks.
// Requests authenticate with the user's API key.
type User struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Email         string               `json:"email,omitempty"`
	ApiKey        string               `json:"-"`
	IsActive      bool                 `json:"is_active"`
	IsAdmin       bool                 `json:"is_admin"`
	Notifications NotificationSettings `json:"notifications"`
	CreatedAt     time.Time            `json:"created_at"`
	LastUsedAt    *time.Time           `json:"last_used_at,omitempty"`
}

// MaskedApiKey returns first 8 characters of API key for logging
func (u *User) MaskedApiKey() string {
	if len(u.ApiKey) < 8 {
		return "***"
	}
	return u.ApiKey[:8] + "..."
}

// GenerateApiKey creates a random "dsa_"-prefixed 48-char hex key
func GenerateApiKey() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "dsa_" + hex.EncodeToString(bytes), nil
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}

// CreateUserResponse is returned once, with the only copy of the API key
type CreateUserResponse struct {
	User   *User  `json:"user"`
	ApiKey string `json:"api_key"`
}
