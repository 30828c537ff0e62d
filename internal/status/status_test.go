package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffective(t *testing.T) {
	today := time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC)
	yesterday := time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)
	sameDay := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		stored Status
		due    time.Time
		want   Status
	}{
		{name: "pending past due", stored: Pending, due: yesterday, want: Overdue},
		{name: "due_now past due", stored: DueNow, due: yesterday, want: Overdue},
		{name: "overdue past due", stored: Overdue, due: yesterday, want: Overdue},
		{name: "pending due today", stored: Pending, due: sameDay, want: DueNow},
		{name: "overdue due today", stored: Overdue, due: sameDay, want: DueNow},
		{name: "pending future", stored: Pending, due: tomorrow, want: Pending},
		{name: "due_now future keeps stored", stored: DueNow, due: tomorrow, want: DueNow},
		{name: "completed past due", stored: Completed, due: yesterday, want: Completed},
		{name: "completed due today", stored: Completed, due: sameDay, want: Completed},
		{name: "completed future", stored: Completed, due: tomorrow, want: Completed},
		{name: "unknown due date", stored: Pending, due: time.Time{}, want: Pending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Effective(tt.stored, tt.due, today))
		})
	}
}

func TestEffectiveIgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2025, time.March, 10, 23, 59, 0, 0, time.UTC)
	today := time.Date(2025, time.March, 10, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, DueNow, Effective(Pending, due, today))
}

func TestValid(t *testing.T) {
	for _, s := range All() {
		assert.True(t, Valid(s), s)
	}
	assert.False(t, Valid("paid"))
	assert.False(t, Valid(""))
}
