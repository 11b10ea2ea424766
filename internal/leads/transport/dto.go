package transport

import (
	"time"

	"github.com/google/uuid"
)

type StartLeadRequest struct {
	FunnelType   string  `json:"funnelType" validate:"required,max=64"`
	ReferralCode *string `json:"referralCode,omitempty" validate:"omitempty,referral_code"`
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"questionId" validate:"required,max=128"`
	Value      string `json:"value" validate:"max=4000"`
}

type ListLeadsRequest struct {
	Status         string `form:"status" validate:"omitempty,oneof=in_progress completed"`
	ReferralCode   string `form:"referralCode" validate:"omitempty,referral_code"`
	ActionableOnly bool   `form:"actionable"`
	Limit          int    `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset         int    `form:"offset" validate:"omitempty,min=0"`
}

type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	FunnelType      string     `json:"funnelType"`
	Status          string     `json:"status"`
	ReferralCode    *string    `json:"referralCode,omitempty"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	Name            *string    `json:"name"`
	Email           *string    `json:"email"`
	Actionable      bool       `json:"actionable"`
}

type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
}
