package model

import "time"

// UsageQuota is one user's publish allowance for the current billing period.
type UsageQuota struct {
	UserID       string    `json:"user_id" gorm:"primaryKey;size:128"`
	UsageCount   int       `json:"usage_count" gorm:"not null;default:0"`
	MonthlyLimit int       `json:"monthly_limit" gorm:"not null"`
	PeriodEnd    time.Time `json:"period_end" gorm:"not null"`
	Unlimited    bool      `json:"unlimited" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (UsageQuota) TableName() string { return "usage_quotas" }

func (q *UsageQuota) Exhausted() bool {
	return !q.Unlimited && q.UsageCount >= q.MonthlyLimit
}

// Ratio is the fraction of the monthly limit already used.
func (q *UsageQuota) Ratio() float64 {
	if q.Unlimited || q.MonthlyLimit <= 0 {
		return 0
	}
	return float64(q.UsageCount) / float64(q.MonthlyLimit)
}

// UsageQuotaEvent records which post consumed a unit of quota so the same
// post is never counted twice.
type UsageQuotaEvent struct {
	PostID    string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"size:128;index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UsageQuotaEvent) TableName() string { return "usage_quota_events" }

// CrossedThreshold reports whether the most recent increment moved usage
// across threshold or onto the monthly limit.
func (q *UsageQuota) CrossedThreshold(threshold float64) bool {
	if q.Unlimited || q.MonthlyLimit <= 0 || q.UsageCount <= 0 {
		return false
	}
	prev := float64(q.UsageCount-1) / float64(q.MonthlyLimit)
	cur := q.Ratio()
	for _, t := range []float64{threshold, 1} {
		if t > 0 && prev < t && cur >= t {
			return true
		}
	}
	return false
}
