package model

import "time"

const DefaultSettingKey = "DEFAULT"

const DefaultSMTPPort = 587

// SystemSettings holds the transport credentials used for system notifications.
type SystemSettings struct {
	SettingKey     string    `json:"settingKey"`
	ChatBotEnabled bool      `json:"chatBotEnabled"`
	BotToken       string    `json:"botToken,omitempty"`
	EmailEnabled   bool      `json:"emailEnabled"`
	EmailFrom      string    `json:"emailFrom,omitempty"`
	SMTPHost       string    `json:"smtpHost,omitempty"`
	SMTPPort       int       `json:"smtpPort"`
	SMTPUsername   string    `json:"smtpUsername,omitempty"`
	SMTPPassword   string    `json:"-"`
	UseSSL         bool      `json:"useSSL"`
	UseTLS         bool      `json:"useTLS"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		SettingKey: DefaultSettingKey,
		SMTPPort:   DefaultSMTPPort,
		UseTLS:     true,
	}
}

func (s *SystemSettings) ChatBotConfigured() bool {
	return s.BotToken != ""
}

func (s *SystemSettings) EmailConfigured() bool {
	return s.EmailFrom != "" && s.SMTPHost != "" && s.SMTPPort > 0
}

func (s *SystemSettings) EmailTransport() *EmailTransport {
	return &EmailTransport{
		From:     s.EmailFrom,
		SMTPHost: s.SMTPHost,
		SMTPPort: s.SMTPPort,
		Username: s.SMTPUsername,
		Password: s.SMTPPassword,
		UseSSL:   s.UseSSL,
		UseTLS:   s.UseTLS,
	}
}

// UpdateSettingsRequest is a partial update; a nil field is left unchanged.
type UpdateSettingsRequest struct {
	ChatBotEnabled *bool   `json:"chatBotEnabled"`
	BotToken       *string `json:"botToken"`
	EmailEnabled   *bool   `json:"emailEnabled"`
	EmailFrom      *string `json:"emailFrom"`
	SMTPHost       *string `json:"smtpHost"`
	SMTPPort       *int    `json:"smtpPort"`
	SMTPUsername   *string `json:"smtpUsername"`
	SMTPPassword   *string `json:"smtpPassword"`
	UseSSL         *bool   `json:"useSSL"`
	UseTLS         *bool   `json:"useTLS"`
}

func (r UpdateSettingsRequest) Apply(s *SystemSettings) {
	if r.ChatBotEnabled != nil {
		s.ChatBotEnabled = *r.ChatBotEnabled
	}
	if r.BotToken != nil {
		s.BotToken = *r.BotToken
	}
	if r.EmailEnabled != nil {
		s.EmailEnabled = *r.EmailEnabled
	}
	if r.EmailFrom != nil {
		s.EmailFrom = *r.EmailFrom
	}
	if r.SMTPHost != nil {
		s.SMTPHost = *r.SMTPHost
	}
	if r.SMTPPort != nil {
		s.SMTPPort = *r.SMTPPort
	}
	if r.SMTPUsername != nil {
		s.SMTPUsername = *r.SMTPUsername
	}
	if r.SMTPPassword != nil {
		s.SMTPPassword = *r.SMTPPassword
	}
	if r.UseSSL != nil {
		s.UseSSL = *r.UseSSL
	}
	if r.UseTLS != nil {
		s.UseTLS = *r.UseTLS
	}
}
