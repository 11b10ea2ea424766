package service

import (
	"context"
	"time"

	"affiliate_portal_backend/internal/commissions/domain"
	"affiliate_portal_backend/internal/commissions/transport"
	"affiliate_portal_backend/internal/events"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Ledger moves conversions through the held -> available -> paid machine and
// reports balances.
type Ledger struct {
	store LedgerStore
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

func NewLedger(store LedgerStore, bus events.Bus, log *logger.Logger) *Ledger {
	return &Ledger{store: store, bus: bus, log: log, now: time.Now}
}

// ReleaseDue releases every expired hold. Running it twice releases nothing
// the second time.
func (l *Ledger) ReleaseDue(ctx context.Context) (transport.ReleaseResponse, error) {
	now := l.now().UTC()
	ids, err := l.store.ReleaseDue(ctx, now)
	if err != nil {
		return transport.ReleaseResponse{}, err
	}
	if len(ids) > 0 {
		l.log.WithContext(ctx).LedgerTransition(string(domain.StatusHeld), string(domain.StatusAvailable), len(ids))
		l.bus.Publish(ctx, events.CommissionsReleased{
			BaseEvent:     events.NewBaseEventAt(now),
			ConversionIDs: ids,
			ReleasedAt:    now,
		})
	}
	return transport.ReleaseResponse{Released: len(ids), ConversionIDs: ids}, nil
}

// Release releases a single conversion. Illegal transitions and unexpired
// holds are conflicts.
func (l *Ledger) Release(ctx context.Context, id uuid.UUID) (transport.ConversionResponse, error) {
	now := l.now().UTC()
	c, err := l.store.GetConversion(ctx, id)
	if err != nil {
		return transport.ConversionResponse{}, err
	}
	if err := domain.CheckTransition(c.Status, domain.StatusAvailable); err != nil {
		return transport.ConversionResponse{}, err
	}
	if !c.Releasable(now) {
		return transport.ConversionResponse{}, apperr.Conflict("commission is still on hold")
	}

	ok, err := l.store.Release(ctx, id, now)
	if err != nil {
		return transport.ConversionResponse{}, err
	}
	if !ok {
		return transport.ConversionResponse{}, apperr.Conflict("commission was already released")
	}

	c.Status, c.ReleasedAt = domain.StatusAvailable, &now
	l.bus.Publish(ctx, events.CommissionsReleased{
		BaseEvent:     events.NewBaseEventAt(now),
		ConversionIDs: []uuid.UUID{id},
		ReleasedAt:    now,
	})
	return toConversionResponse(c), nil
}

// Balance returns the partner's balance and ledger.
func (l *Ledger) Balance(ctx context.Context, partnerID uuid.UUID) (transport.BalanceResponse, error) {
	totals, err := l.store.Totals(ctx, partnerID)
	if err != nil {
		return transport.BalanceResponse{}, err
	}
	convs, err := l.store.ListConversions(ctx, partnerID)
	if err != nil {
		return transport.BalanceResponse{}, err
	}

	b := domain.ComputeBalance(totals)
	resp := transport.BalanceResponse{
		PartnerID:   partnerID,
		Held:        b.Held,
		Released:    b.Released,
		Available:   b.Available,
		PaidOut:     b.PaidOut,
		Pending:     b.Pending,
		Conversions: make([]transport.ConversionResponse, 0, len(convs)),
	}
	for _, c := range convs {
		resp.Conversions = append(resp.Conversions, toConversionResponse(c))
	}
	return resp, nil
}

// ListConversions returns a partner's conversions, newest first.
func (l *Ledger) ListConversions(ctx context.Context, partnerID uuid.UUID) ([]transport.ConversionResponse, error) {
	convs, err := l.store.ListConversions(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ConversionResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversionResponse(c))
	}
	return out, nil
}
