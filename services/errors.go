package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStudyLogNotFound is returned for missing logs and for logs owned by
	// another user; ownership is never leaked.
	ErrStudyLogNotFound = errors.New("study log not found")

	// ErrAchievementNotClaimable covers both "never unlocked" and "already
	// claimed" — claiming twice is a no-op failure, not a crash.
	ErrAchievementNotClaimable = errors.New("achievement not found or already claimed")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError reports bad input shape/range on a study log.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DayLimitError is returned when a log would push a day past 24 hours. It
// carries the remaining capacity so the client can self-correct.
type DayLimitError struct {
	ExistingMinutes  int
	RemainingMinutes int
}

func (e *DayLimitError) Error() string {
	return fmt.Sprintf("total study time for a day cannot exceed 24 hours (%d minutes remaining)", e.RemainingMinutes)
}
