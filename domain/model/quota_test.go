package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageQuotaExhausted(t *testing.T) {
	assert.True(t, (&UsageQuota{UsageCount: 10, MonthlyLimit: 10}).Exhausted())
	assert.False(t, (&UsageQuota{UsageCount: 9, MonthlyLimit: 10}).Exhausted())
	assert.False(t, (&UsageQuota{UsageCount: 50, MonthlyLimit: 10, Unlimited: true}).Exhausted())
}

func TestUsageQuotaRatio(t *testing.T) {
	assert.InDelta(t, 0.5, (&UsageQuota{UsageCount: 5, MonthlyLimit: 10}).Ratio(), 1e-9)
	assert.Zero(t, (&UsageQuota{UsageCount: 10, MonthlyLimit: 10, Unlimited: true}).Ratio())
}

func TestUsageQuotaCrossedThreshold(t *testing.T) {
	tests := []struct {
		name  string
		count int
		limit int
		want  bool
	}{
		{"below", 7, 10, false},
		{"crosses eighty percent", 8, 10, true},
		{"past threshold", 9, 10, false},
		{"reaches limit", 10, 10, true},
		{"beyond limit", 11, 10, false},
		{"first publish", 1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &UsageQuota{UsageCount: tt.count, MonthlyLimit: tt.limit}
			assert.Equal(t, tt.want, q.CrossedThreshold(0.8))
		})
	}
	assert.False(t, (&UsageQuota{UsageCount: 8, MonthlyLimit: 10, Unlimited: true}).CrossedThreshold(0.8))
}
