package domain

import (
	"time"

	"affiliate_portal_backend/internal/audit"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the status of a cash-out.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
)

// Payout is a cash-out to a partner.
type Payout struct {
	ID          uuid.UUID
	PartnerID   uuid.UUID
	Amount      decimal.Decimal
	Status      PayoutStatus
	Notes       string
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Totals are the persisted sums a balance is derived from.
type Totals struct {
	Held             decimal.Decimal
	Available        decimal.Decimal
	Paid             decimal.Decimal
	CompletedPayouts decimal.Decimal
	PendingPayouts   decimal.Decimal
}

// Balance is the read-side view of a partner's ledger.
type Balance struct {
	Held      decimal.Decimal
	Released  decimal.Decimal
	Available decimal.Decimal
	PaidOut   decimal.Decimal
	Pending   decimal.Decimal
}

// ComputeBalance derives the payable balance. Released earnings are
// available plus paid conversions; every completed or pending payout is
// subtracted from them. Payouts consume whole conversions up to their amount,
// so a payout can exceed the conversions it marked paid and the remainder
// is still owed from the available ones.
func ComputeBalance(t Totals) Balance {
	released := t.Available.Add(t.Paid)
	return Balance{
		Held:      t.Held,
		Released:  released,
		Available: released.Sub(t.CompletedPayouts).Sub(t.PendingPayouts),
		PaidOut:   t.CompletedPayouts,
		Pending:   t.PendingPayouts,
	}
}

// PayoutSnapshot is read under the partner lock.
type PayoutSnapshot struct {
	PartnerID uuid.UUID
	Totals    Totals
	// Available conversions, oldest first.
	Available []Conversion
}

// PayoutPlan is the payout row plus the conversions it marks paid.
type PayoutPlan struct {
	Payout        Payout
	ConversionIDs []uuid.UUID
	Audit         []audit.Entry
}

// SelectForPayout walks available conversions oldest first and takes whole
// conversions while the running sum stays within amount. It stops at the
// first conversion that would overshoot so consumption stays FIFO.
func SelectForPayout(available []Conversion, amount decimal.Decimal) []uuid.UUID {
	ids := make([]uuid.UUID, 0)
	sum := decimal.Zero
	for _, c := range available {
		next := sum.Add(c.CommissionAmount)
		if next.GreaterThan(amount) {
			break
		}
		sum = next
		ids = append(ids, c.ID)
	}
	return ids
}
