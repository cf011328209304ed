package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	schedrepo "github.com/dentora/dentora-backend/internal/scheduling/repository"
)

func TestTransitionAllowed(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{schedrepo.StatusScheduled, schedrepo.StatusConfirmed, true},
		{schedrepo.StatusScheduled, schedrepo.StatusCancelled, true},
		{schedrepo.StatusScheduled, schedrepo.StatusNoShow, true},
		{schedrepo.StatusScheduled, schedrepo.StatusCompleted, false},

		{schedrepo.StatusConfirmed, schedrepo.StatusCompleted, true},
		{schedrepo.StatusConfirmed, schedrepo.StatusCancelled, true},
		{schedrepo.StatusConfirmed, schedrepo.StatusNoShow, true},
		{schedrepo.StatusConfirmed, schedrepo.StatusScheduled, false},

		{schedrepo.StatusCompleted, schedrepo.StatusCancelled, false},
		{schedrepo.StatusCompleted, schedrepo.StatusScheduled, false},
		{schedrepo.StatusCancelled, schedrepo.StatusScheduled, false},
		{schedrepo.StatusCancelled, schedrepo.StatusConfirmed, false},
		{schedrepo.StatusNoShow, schedrepo.StatusScheduled, false},

		{"bogus", schedrepo.StatusConfirmed, false},
		{schedrepo.StatusScheduled, "bogus", false},
	}

	for _, tt := range tests {
		got := transitionAllowed(tt.from, tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestTransitionAllowed_TerminalStatesHaveNoExits(t *testing.T) {
	terminal := []string{schedrepo.StatusCompleted, schedrepo.StatusCancelled, schedrepo.StatusNoShow}
	all := []string{
		schedrepo.StatusScheduled,
		schedrepo.StatusConfirmed,
		schedrepo.StatusCompleted,
		schedrepo.StatusCancelled,
		schedrepo.StatusNoShow,
	}
	for _, from := range terminal {
		for _, to := range all {
			assert.False(t, transitionAllowed(from, to), "%s -> %s", from, to)
		}
	}
}
