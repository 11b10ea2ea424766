// Package domain holds the quiz-session model and the identity rules
// applied to its answers.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a quiz session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Lead is a quiz session. Name and email are never stored on it; they are
// resolved from Answers on read.
type Lead struct {
	ID              uuid.UUID
	FunnelType      string
	Status          Status
	ReferralCode    *string
	StartedAt       time.Time
	CompletedAt     *time.Time
	DurationSeconds *int
	Answers         []Answer
}

// Answer is one persisted response. Prompt and Type come from the question
// catalog and drive identity resolution.
type Answer struct {
	QuestionID string
	Prompt     string
	Type       string
	Value      string
}

// Identity returns the name and email resolved from the lead's answers.
func (l Lead) Identity() Identity {
	return ResolveIdentity(l.Answers)
}

// CanComplete reports whether the in_progress -> completed transition applies.
func (l Lead) CanComplete() bool {
	return l.Status == StatusInProgress
}
