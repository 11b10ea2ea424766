package service

import (
	"context"
	"time"

	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/internal/commissions/domain"
	"affiliate_portal_backend/internal/commissions/transport"
	"affiliate_portal_backend/internal/events"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/logger"
	"affiliate_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Payouts cashes out available balance.
type Payouts struct {
	store    PayoutStore
	settings Settings
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func NewPayouts(store PayoutStore, settings Settings, bus events.Bus, log *logger.Logger) *Payouts {
	return &Payouts{store: store, settings: settings, bus: bus, log: log, now: time.Now}
}

// RequestPayout completes a payout of req.Amount. The balance check, the
// payout row and the paid conversions commit together under the partner lock.
func (p *Payouts) RequestPayout(ctx context.Context, actor Actor, req transport.PayoutRequest) (transport.PayoutResponse, error) {
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return transport.PayoutResponse{}, apperr.InvalidAmount("payout amount must be greater than zero")
	}
	minimum := p.settings.MinimumPayout(ctx)
	if amount.LessThan(minimum) {
		return transport.PayoutResponse{}, apperr.BelowMinimum("payout amount is below the minimum of " + minimum.StringFixed(2))
	}
	notes := sanitize.Text(req.Notes)
	now := p.now().UTC()

	plan, err := p.store.ExecutePayout(ctx, req.PartnerID, func(snap domain.PayoutSnapshot) (domain.PayoutPlan, error) {
		balance := domain.ComputeBalance(snap.Totals)
		if amount.GreaterThan(balance.Available) {
			return domain.PayoutPlan{}, apperr.InsufficientBalance("payout exceeds available balance").
				WithDetails(map[string]any{"available": balance.Available.StringFixed(2)})
		}

		payout := domain.Payout{
			ID:          uuid.New(),
			PartnerID:   snap.PartnerID,
			Amount:      amount,
			Status:      domain.PayoutCompleted,
			Notes:       notes,
			CreatedBy:   &actor.ID,
			CreatedAt:   now,
			CompletedAt: &now,
		}
		ids := domain.SelectForPayout(snap.Available, amount)

		entry, err := audit.NewEntry(audit.EntityPayout, payout.ID, audit.ActionPayoutCompleted, nil, map[string]any{
			"partnerId":     payout.PartnerID,
			"amount":        amount.StringFixed(2),
			"conversionIds": ids,
			"available":     balance.Available.StringFixed(2),
		})
		if err != nil {
			return domain.PayoutPlan{}, err
		}
		entry.ActorID, entry.ActorRole = &actor.ID, actor.Role

		return domain.PayoutPlan{Payout: payout, ConversionIDs: ids, Audit: []audit.Entry{entry}}, nil
	})
	if err != nil {
		return transport.PayoutResponse{}, err
	}

	p.log.WithContext(ctx).Info("payout completed", "payoutId", plan.Payout.ID, "partnerId", plan.Payout.PartnerID,
		"amount", plan.Payout.Amount.StringFixed(2))
	p.log.WithContext(ctx).LedgerTransition(string(domain.StatusAvailable), string(domain.StatusPaid), len(plan.ConversionIDs))
	p.bus.Publish(ctx, events.PayoutCompleted{
		BaseEvent:     events.NewBaseEventAt(now),
		PayoutID:      plan.Payout.ID,
		PartnerID:     plan.Payout.PartnerID,
		Amount:        plan.Payout.Amount,
		ConversionIDs: plan.ConversionIDs,
	})

	return transport.PayoutResponse{
		ID:            plan.Payout.ID,
		PartnerID:     plan.Payout.PartnerID,
		Amount:        plan.Payout.Amount,
		Status:        string(plan.Payout.Status),
		Notes:         plan.Payout.Notes,
		ConversionIDs: plan.ConversionIDs,
		CompletedAt:   plan.Payout.CompletedAt,
	}, nil
}
