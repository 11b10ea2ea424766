// Package service resolves tracking codes and records deduplicated clicks.
package service

import (
	"context"
	"encoding/hex"
	"time"

	"affiliate_portal_backend/internal/partners/domain"
	"affiliate_portal_backend/internal/partners/repository"
	"affiliate_portal_backend/internal/partners/transport"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/config"
	"affiliate_portal_backend/platform/logger"
	"affiliate_portal_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Repository is the persistence port used by the service.
type Repository interface {
	GetByTrackingCode(ctx context.Context, code string) (domain.Partner, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Partner, error)
	HasRecentClick(ctx context.Context, partnerID uuid.UUID, visitorKey string, since time.Time) (bool, error)
	InsertClick(ctx context.Context, click repository.Click) error
	IncrementClicks(ctx context.Context, partnerID uuid.UUID) error
}

// Cooldown opens a dedup window for a key. Optional; without it the service
// checks recent clicks in the database.
type Cooldown interface {
	Claim(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ClickInput describes one inbound tracking hit.
type ClickInput struct {
	Code        string
	UserAgent   string
	ClientIP    string
	LandingPath string
}

// Service provides partner lookups and click tracking.
type Service struct {
	repo     Repository
	cooldown Cooldown
	window   time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new partners service. cooldown may be nil.
func New(repo Repository, cooldown Cooldown, cfg config.TrackingConfig, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		cooldown: cooldown,
		window:   cfg.GetClickCooldown(),
		log:      log,
		now:      time.Now,
	}
}

// ResolveTrackingCode returns the eligible partner behind code. A referral
// code replaced by a custom link is permanently gone.
func (s *Service) ResolveTrackingCode(ctx context.Context, code string) (domain.Partner, error) {
	code = sanitize.Code(code)
	if code == "" {
		return domain.Partner{}, apperr.NotFound("partner not found")
	}

	partner, err := s.repo.GetByTrackingCode(ctx, code)
	if err != nil {
		return domain.Partner{}, err
	}
	if partner.Superseded(code) {
		return domain.Partner{}, apperr.Gone("referral code has been replaced by a custom link").
			WithCode(apperr.CodeReferralCodeSuperseded)
	}
	if !partner.Eligible() {
		return domain.Partner{}, apperr.NotFound("partner not found")
	}
	return partner, nil
}

// TrackClick records a click and bumps the partner's counter at most once per
// visitor and window. The dedup is best effort. A failed counter update after
// the click row was written is logged and the click still counts as tracked.
func (s *Service) TrackClick(ctx context.Context, in ClickInput) (transport.TrackClickResponse, error) {
	partner, err := s.ResolveTrackingCode(ctx, in.Code)
	if err != nil {
		return transport.TrackClickResponse{}, err
	}

	resp := transport.TrackClickResponse{PartnerID: partner.ID, TrackingCode: trackingCode(partner)}
	now := s.now().UTC()
	visitor := VisitorKey(in.UserAgent)

	duplicate, claimed, err := s.isDuplicate(ctx, partner.ID, visitor, now)
	if err != nil {
		return transport.TrackClickResponse{}, err
	}
	if duplicate {
		return resp, nil
	}

	click := repository.Click{
		ID:          uuid.New(),
		PartnerID:   partner.ID,
		VisitorKey:  visitor,
		UserAgent:   in.UserAgent,
		ClientIP:    in.ClientIP,
		LandingPath: sanitize.Text(in.LandingPath),
		CreatedAt:   now,
	}
	if err := s.repo.InsertClick(ctx, click); err != nil {
		if claimed != "" {
			if relErr := s.cooldown.Release(ctx, claimed); relErr != nil {
				s.log.WithContext(ctx).Warn("click cooldown release failed", "partnerId", partner.ID, "error", relErr)
			}
		}
		return transport.TrackClickResponse{}, err
	}

	if err := s.repo.IncrementClicks(ctx, partner.ID); err != nil {
		s.log.WithContext(ctx).Warn("click counter update failed", "partnerId", partner.ID, "error", err)
	}

	resp.Counted = true
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.PartnerResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PartnerResponse{}, err
	}
	return transport.PartnerResponse{
		ID:              p.ID,
		Name:            p.Name,
		ReferralCode:    p.ReferralCode,
		CustomLink:      p.CustomLink,
		CommissionRate:  p.CommissionRate,
		TotalCommission: p.TotalCommission,
		IsActive:        p.IsActive,
		IsApproved:      p.IsApproved,
		TotalClicks:     p.TotalClicks,
		TotalLeads:      p.TotalLeads,
		TotalBookings:   p.TotalBookings,
		TotalSales:      p.TotalSales,
	}, nil
}

// isDuplicate also returns the cooldown key it claimed, if any, so a failed
// insert can give the window back.
func (s *Service) isDuplicate(ctx context.Context, partnerID uuid.UUID, visitor string, now time.Time) (bool, string, error) {
	if s.cooldown != nil {
		key := partnerID.String() + ":" + visitor
		claimed, err := s.cooldown.Claim(ctx, key, s.window)
		if err == nil {
			if !claimed {
				return true, "", nil
			}
			return false, key, nil
		}
		s.log.WithContext(ctx).Warn("click cooldown unavailable, falling back to database", "error", err)
	}
	dup, err := s.repo.HasRecentClick(ctx, partnerID, visitor, now.Add(-s.window))
	return dup, "", err
}

// VisitorKey fingerprints a browser by its user agent.
func VisitorKey(userAgent string) string {
	sum := blake2b.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:])
}

func trackingCode(p domain.Partner) string {
	if p.CustomLink != nil && *p.CustomLink != "" {
		return *p.CustomLink
	}
	return p.ReferralCode
}
