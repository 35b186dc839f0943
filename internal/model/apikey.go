package model

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a client credential governing access to the public notification API
// and its monthly usage quota.
type APIKey struct {
	ID           uuid.UUID  `json:"id"`
	Key          string     `json:"apiKey"`
	SystemName   string     `json:"systemName"`
	CompanyName  string     `json:"companyName,omitempty"`
	ContactEmail string     `json:"contactEmail,omitempty"`
	ContactPhone string     `json:"contactPhone,omitempty"`
	Description  string     `json:"description,omitempty"`
	Active       bool       `json:"active"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	NeverExpires bool       `json:"neverExpires"`
	MonthlyLimit *int       `json:"monthlyLimit"`
	CurrentUsage int        `json:"currentUsage"`
	UsageResetAt time.Time  `json:"usageResetAt"`
	Deleted      bool       `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsExpiredAt compares calendar days only; both window ends are inclusive.
func (k *APIKey) IsExpiredAt(now time.Time) bool {
	if k.NeverExpires {
		return false
	}
	today := DateOf(now)
	if k.StartDate != nil && today.Before(DateOf(*k.StartDate)) {
		return true
	}
	if k.EndDate != nil && today.After(DateOf(*k.EndDate)) {
		return true
	}
	return false
}

// Unlimited reports whether the key has no monthly quota.
func (k *APIKey) Unlimited() bool {
	return k.MonthlyLimit == nil || *k.MonthlyLimit <= 0
}

func (k *APIKey) HasReachedLimit() bool {
	if k.Unlimited() {
		return false
	}
	return k.CurrentUsage >= *k.MonthlyLimit
}

// UsageResetDue reports whether the monthly counter should be reset at now.
func (k *APIKey) UsageResetDue(now time.Time) bool {
	return !now.Before(k.UsageResetAt)
}

// NextUsageReset advances resetAt month by month until it lies after now.
func NextUsageReset(resetAt, now time.Time) time.Time {
	next := resetAt.AddDate(0, 1, 0)
	for !next.After(now) {
		next = next.AddDate(0, 1, 0)
	}
	return next
}

// FirstOfNextMonth returns midnight on the first day of the month after now.
func FirstOfNextMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UsageStats summarises quota consumption for a key.
type UsageStats struct {
	CurrentUsage    int       `json:"currentUsage"`
	MonthlyLimit    *int      `json:"monthlyLimit"`
	RemainingQuota  int       `json:"remainingQuota"`
	UsagePercentage float64   `json:"usagePercentage"`
	Unlimited       bool      `json:"unlimited"`
	Expired         bool      `json:"expired"`
	UsageResetAt    time.Time `json:"usageResetAt"`
}

func (k *APIKey) Stats(now time.Time) UsageStats {
	st := UsageStats{
		CurrentUsage: k.CurrentUsage,
		MonthlyLimit: k.MonthlyLimit,
		Unlimited:    k.Unlimited(),
		Expired:      k.IsExpiredAt(now),
		UsageResetAt: k.UsageResetAt,
	}
	if !st.Unlimited {
		limit := *k.MonthlyLimit
		st.RemainingQuota = max(limit-k.CurrentUsage, 0)
		st.UsagePercentage = float64(k.CurrentUsage) * 100 / float64(limit)
	}
	return st
}

// CreateAPIKeyRequest is the admin payload for registering a client system.
type CreateAPIKeyRequest struct {
	SystemName   string `json:"systemName"`
	CompanyName  string `json:"companyName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
	Description  string `json:"description"`
	StartDate    *Date  `json:"startDate"`
	EndDate      *Date  `json:"endDate"`
	NeverExpires *bool  `json:"neverExpires"`
	MonthlyLimit *int   `json:"monthlyLimit"`
}

// UpdateAPIKeyRequest carries a partial update; nil fields are left untouched.
type UpdateAPIKeyRequest struct {
	SystemName   *string `json:"systemName"`
	CompanyName  *string `json:"companyName"`
	ContactEmail *string `json:"contactEmail"`
	ContactPhone *string `json:"contactPhone"`
	Description  *string `json:"description"`
	Active       *bool   `json:"active"`
	StartDate    *Date   `json:"startDate"`
	EndDate      *Date   `json:"endDate"`
	NeverExpires *bool   `json:"neverExpires"`
	MonthlyLimit *int    `json:"monthlyLimit"`
}
