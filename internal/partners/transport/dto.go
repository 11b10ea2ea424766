package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TrackClickResponse struct {
	PartnerID    uuid.UUID `json:"partnerId"`
	TrackingCode string    `json:"trackingCode"`
	Counted      bool      `json:"counted"`
}

type PartnerResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	ReferralCode    string          `json:"referralCode"`
	CustomLink      *string         `json:"customLink,omitempty"`
	CommissionRate  decimal.Decimal `json:"commissionRate"`
	TotalCommission decimal.Decimal `json:"totalCommission"`
	IsActive        bool            `json:"isActive"`
	IsApproved      bool            `json:"isApproved"`
	TotalClicks     int             `json:"totalClicks"`
	TotalLeads      int             `json:"totalLeads"`
	TotalBookings   int             `json:"totalBookings"`
	TotalSales      int             `json:"totalSales"`
}
