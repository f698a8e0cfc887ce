package models_test

import (
	"testing"

	"duebook-backend/models"

	"github.com/stretchr/testify/assert"
)

func TestReminderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to models.ReminderStatus
		allowed  bool
	}{
		{models.ReminderPending, models.ReminderQueued, true},
		{models.ReminderPending, models.ReminderSent, true}, // manual reminders skip the queue
		{models.ReminderPending, models.ReminderFailed, false},
		{models.ReminderQueued, models.ReminderSent, true},
		{models.ReminderQueued, models.ReminderFailed, true},
		{models.ReminderQueued, models.ReminderPending, false},
		{models.ReminderSent, models.ReminderQueued, false},
		{models.ReminderSent, models.ReminderFailed, false},
		{models.ReminderFailed, models.ReminderQueued, false},
		{models.ReminderFailed, models.ReminderSent, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestReminderStatusIsTerminal(t *testing.T) {
	assert.False(t, models.ReminderPending.IsTerminal())
	assert.False(t, models.ReminderQueued.IsTerminal())
	assert.True(t, models.ReminderSent.IsTerminal())
	assert.True(t, models.ReminderFailed.IsTerminal())
}

func TestBusinessReminderHour(t *testing.T) {
	cases := []struct {
		value string
		hour  int
	}{
		{"08:00", 8},
		{"00:30", 0},
		{"23:59", 23},
		{"9:15", 9},
		{"", 8},
		{"garbage", 8},
		{"25:00", 8},
		{"-1:00", 8},
	}

	for _, tc := range cases {
		business := models.Business{ReminderTime: tc.value}
		assert.Equal(t, tc.hour, business.ReminderHour(), "ReminderTime=%q", tc.value)
	}
}
