package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail   Channel = "EMAIL"
	ChannelChatBot Channel = "CHAT_BOT"
)

// ParseChannel accepts the canonical names plus the legacy "TELEGRAM" alias.
func ParseChannel(s string) (Channel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ChannelEmail):
		return ChannelEmail, true
	case string(ChannelChatBot), "TELEGRAM":
		return ChannelChatBot, true
	}
	return "", false
}

func (c Channel) String() string { return string(c) }

type NotificationType string

const (
	TypeAlert   NotificationType = "ALERT"
	TypeInfo    NotificationType = "INFO"
	TypeWarning NotificationType = "WARNING"
	TypeError   NotificationType = "ERROR"
	TypeSuccess NotificationType = "SUCCESS"
)

func ParseNotificationType(s string) (NotificationType, bool) {
	t := NotificationType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TypeAlert, TypeInfo, TypeWarning, TypeError, TypeSuccess:
		return t, true
	}
	return "", false
}

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// NotificationLog is the durable record of one delivery to one recipient.
type NotificationLog struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	BatchID      uuid.UUID        `db:"batch_id" json:"batchId"`
	APIKeyID     uuid.UUID        `db:"api_key_id" json:"apiKeyId"`
	SystemName   string           `db:"system_name" json:"systemName"`
	Channel      Channel          `db:"channel" json:"channel"`
	Type         NotificationType `db:"type" json:"type"`
	Status       Status           `db:"status" json:"status"`
	Recipient    string           `db:"recipient" json:"recipient"`
	Subject      string           `db:"subject" json:"subject"`
	Message      string           `db:"message" json:"message"`
	Response     string           `db:"response" json:"response,omitempty"`
	ErrorMessage string           `db:"error_message" json:"errorMessage,omitempty"`
	SentAt       *time.Time       `db:"sent_at" json:"sentAt,omitempty"`
	RetryCount   int              `db:"retry_count" json:"retryCount"`
	Version      int64            `db:"version" json:"-"`
	Deleted      bool             `db:"deleted" json:"-"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt"`
}

// MarkProcessing claims a pending row.
func (l *NotificationLog) MarkProcessing() bool {
	if l.Status != StatusPending {
		return false
	}
	l.Status = StatusProcessing
	return true
}

// MarkSent applies the success transition; only a PROCESSING row may be completed.
func (l *NotificationLog) MarkSent(response string, at time.Time) bool {
	if l.Status != StatusProcessing {
		return false
	}
	l.Status = StatusSent
	l.Response = response
	l.SentAt = &at
	l.ErrorMessage = ""
	return true
}

func (l *NotificationLog) MarkFailed(reason string) bool {
	if l.Status != StatusProcessing {
		return false
	}
	l.Status = StatusFailed
	l.ErrorMessage = reason
	l.RetryCount++
	return true
}

// SendRequest is the public fan-out request submitted by a client system.
type SendRequest struct {
	Channel string         `json:"channel"`
	Type    string         `json:"type"`
	Subject string         `json:"subject"`
	Message string         `json:"message"`
	ChatBot *ChatBotConfig `json:"chatBot,omitempty"`
	Email   *EmailConfig   `json:"email,omitempty"`
}

type ChatBotConfig struct {
	BotToken string   `json:"botToken"`
	ChatIDs  []string `json:"chatIds"`
}

type EmailConfig struct {
	From         string   `json:"from"`
	To           []string `json:"to"`
	SMTPHost     string   `json:"smtpHost"`
	SMTPPort     int      `json:"smtpPort"`
	SMTPUsername string   `json:"smtpUsername"`
	SMTPPassword string   `json:"smtpPassword"`
	UseSSL       bool     `json:"useSSL"`
	UseTLS       *bool    `json:"useTLS"`
}

// SystemSendRequest uses the stored system transport settings.
type SystemSendRequest struct {
	Channel         string   `json:"channel"`
	Type            string   `json:"type"`
	Subject         string   `json:"subject"`
	Message         string   `json:"message"`
	ChatIDs         []string `json:"chatIds"`
	EmailRecipients []string `json:"emailRecipients"`
}

// SendResponse is returned once every row has been persisted and queued.
type SendResponse struct {
	BatchID         uuid.UUID   `json:"batchId"`
	LogIDs          []uuid.UUID `json:"logIds"`
	Channel         Channel     `json:"channel"`
	Status          Status      `json:"status"`
	TotalRecipients int         `json:"totalRecipients"`
}

// Page is a 1-based page request.
type Page struct {
	No   int
	Size int
}

const (
	DefaultPageSize = 15
	MaxPageSize     = 100
)

func NewPage(no, size int) Page {
	if no < 1 {
		no = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{No: no, Size: size}
}

func (p Page) Offset() int { return (p.No - 1) * p.Size }

// PageResult is one page of a listing together with its totals.
type PageResult[T any] struct {
	Items      []T `json:"items"`
	PageNo     int `json:"pageNo"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

func NewPageResult[T any](items []T, p Page, total int) *PageResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 && p.Size > 0 {
		pages = (total + p.Size - 1) / p.Size
	}
	return &PageResult[T]{Items: items, PageNo: p.No, PageSize: p.Size, TotalItems: total, TotalPages: pages}
}
