// Package domain holds the partner (affiliate) model.
package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Partner is an affiliate. Counters are maintained by the tracking, lead,
// booking and sale paths; TotalCommission only grows, at sale conversion time.
type Partner struct {
	ID              uuid.UUID
	Name            string
	ReferralCode    string
	CustomLink      *string
	CommissionRate  decimal.Decimal
	TotalCommission decimal.Decimal
	IsActive        bool
	IsApproved      bool
	TotalClicks     int
	TotalLeads      int
	TotalBookings   int
	TotalSales      int
}

// Eligible reports whether the partner may receive traffic and commissions.
func (p Partner) Eligible() bool {
	return p.IsActive && p.IsApproved
}

// Superseded reports whether code is the partner's old referral code after a
// custom link replaced it.
func (p Partner) Superseded(code string) bool {
	return p.CustomLink != nil && *p.CustomLink != "" && code == p.ReferralCode && code != *p.CustomLink
}
