package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		d    Discount
		want State
	}{
		{"active inside window", Discount{Active: true, StartsAt: &past, EndsAt: &future}, StateActive},
		{"active with open window", Discount{Active: true}, StateActive},
		{"pending before start", Discount{Active: true, StartsAt: &future}, StatePending},
		{"expired after end", Discount{Active: true, EndsAt: &past}, StateExpired},
		{"exhausted at limit", Discount{Active: true, UsageLimit: 3, UsageCount: 3}, StateExhausted},
		{"under limit stays active", Discount{Active: true, UsageLimit: 3, UsageCount: 2}, StateActive},
		{"disabled beats everything", Discount{Active: false, UsageLimit: 1, UsageCount: 1, EndsAt: &past}, StateDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateAt(&tt.d, now))
		})
	}
}
