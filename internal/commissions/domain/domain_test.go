package domain

import (
	"testing"
	"time"

	"affiliate_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCheckTransitionIsForwardOnly(t *testing.T) {
	allowed := [][2]Status{{StatusHeld, StatusAvailable}, {StatusAvailable, StatusPaid}}
	for _, tr := range allowed {
		if err := CheckTransition(tr[0], tr[1]); err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tr[0], tr[1], err)
		}
	}

	rejected := [][2]Status{
		{StatusPaid, StatusAvailable},
		{StatusAvailable, StatusHeld},
		{StatusHeld, StatusPaid},
		{StatusPaid, StatusHeld},
		{StatusHeld, StatusHeld},
	}
	for _, tr := range rejected {
		if err := CheckTransition(tr[0], tr[1]); !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("%s -> %s should be rejected, got %v", tr[0], tr[1], err)
		}
	}
}

func TestReleasable(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	c := Conversion{Status: StatusHeld, CommissionAmount: dec("100"), HoldUntil: now}
	if !c.Releasable(now) {
		t.Fatal("expected releasable at holdUntil")
	}
	if c.Releasable(now.Add(-time.Second)) {
		t.Fatal("must not release before holdUntil")
	}
	c.CommissionAmount = decimal.Zero
	if c.Releasable(now) {
		t.Fatal("zero-value conversions are never released")
	}
	c.CommissionAmount, c.Status = dec("100"), StatusAvailable
	if c.Releasable(now) {
		t.Fatal("available conversions cannot be released again")
	}
}

func TestParseOutcome(t *testing.T) {
	if _, err := ParseOutcome("converted"); err != nil {
		t.Fatalf("expected valid outcome, got %v", err)
	}
	for _, s := range []string{"cancelled", "", "CONVERTED"} {
		if _, err := ParseOutcome(s); !apperr.HasCode(err, apperr.CodeUnsupportedOutcome) {
			t.Fatalf("%q: expected unsupported outcome, got %v", s, err)
		}
	}
}

func TestPlanOutcomeConvertedSale(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	agentID := uuid.New()
	sale := dec("1000")
	snap := OutcomeSnapshot{
		Appointment: AppointmentState{ID: uuid.New(), AgentID: &agentID, Status: "confirmed"},
		Agent:       &AgentState{ID: agentID, CommissionRate: dec("0.05")},
		Partner:     &PartnerState{ID: uuid.New(), CommissionRate: dec("0.10"), IsActive: true},
	}

	plan, err := PlanOutcome(snap, OutcomeInput{Outcome: OutcomeConverted, SaleValue: &sale}, 30*24*time.Hour, now)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.CallsDelta != 1 || plan.ConversionsDelta != 1 || !plan.RevenueDelta.Equal(sale) {
		t.Fatalf("unexpected agent deltas %+v", plan)
	}
	if plan.AgentCommission == nil || !plan.AgentCommission.Equal(dec("50")) {
		t.Fatalf("expected agent commission 50, got %v", plan.AgentCommission)
	}
	if plan.Sale == nil {
		t.Fatal("expected sale conversion")
	}
	if !plan.Sale.CommissionAmount.Equal(dec("100")) || plan.Sale.Status != StatusHeld {
		t.Fatalf("unexpected sale conversion %+v", plan.Sale)
	}
	if !plan.Sale.HoldUntil.Equal(now.AddDate(0, 0, 30)) {
		t.Fatalf("expected holdUntil day 30, got %v", plan.Sale.HoldUntil)
	}
}

func TestPlanOutcomeNonMonetaryAndRemarking(t *testing.T) {
	now := time.Now()
	agentID := uuid.New()
	snap := OutcomeSnapshot{
		Appointment: AppointmentState{ID: uuid.New(), AgentID: &agentID, Status: "confirmed"},
		Agent:       &AgentState{ID: agentID, CommissionRate: dec("0.05")},
		Partner:     &PartnerState{ID: uuid.New(), CommissionRate: dec("0.10"), IsActive: true},
	}

	plan, err := PlanOutcome(snap, OutcomeInput{Outcome: OutcomeNoAnswer}, time.Hour, now)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.CallsDelta != 1 || plan.ConversionsDelta != 0 || plan.Sale != nil || plan.AgentCommission != nil {
		t.Fatalf("non-monetary outcome must only count the call, got %+v", plan)
	}

	prev := OutcomeConverted
	snap.Appointment.Outcome = &prev
	sale := dec("200")
	plan, err = PlanOutcome(snap, OutcomeInput{Outcome: OutcomeConverted, SaleValue: &sale}, time.Hour, now)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.CallsDelta != 0 || plan.ConversionsDelta != 0 || !plan.RevenueDelta.IsZero() {
		t.Fatalf("re-marking must not recount, got %+v", plan)
	}
}

func TestPlanOutcomeSkipsInactivePartnerAndZeroCommission(t *testing.T) {
	sale := dec("1000")
	snap := OutcomeSnapshot{
		Appointment: AppointmentState{ID: uuid.New(), Status: "confirmed"},
		Partner:     &PartnerState{ID: uuid.New(), CommissionRate: dec("0.10"), IsActive: false},
	}
	plan, err := PlanOutcome(snap, OutcomeInput{Outcome: OutcomeConverted, SaleValue: &sale}, time.Hour, time.Now())
	if err != nil || plan.Sale != nil {
		t.Fatalf("inactive partner must not earn, got %+v %v", plan.Sale, err)
	}

	snap.Partner.IsActive = true
	snap.Partner.CommissionRate = decimal.Zero
	plan, _ = PlanOutcome(snap, OutcomeInput{Outcome: OutcomeConverted, SaleValue: &sale}, time.Hour, time.Now())
	if plan.Sale != nil {
		t.Fatal("zero commission must not create a conversion")
	}
}

func TestPlanOutcomeRejectsNonPositiveSaleValue(t *testing.T) {
	zero := decimal.Zero
	_, err := PlanOutcome(OutcomeSnapshot{Appointment: AppointmentState{ID: uuid.New()}},
		OutcomeInput{Outcome: OutcomeConverted, SaleValue: &zero}, time.Hour, time.Now())
	if !apperr.HasCode(err, apperr.CodeInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestSelectForPayoutConsumesWholeConversionsFIFO(t *testing.T) {
	convs := []Conversion{
		{ID: uuid.New(), CommissionAmount: dec("60")},
		{ID: uuid.New(), CommissionAmount: dec("30")},
		{ID: uuid.New(), CommissionAmount: dec("40")},
	}

	ids := SelectForPayout(convs, dec("100"))
	if len(ids) != 2 || ids[0] != convs[0].ID || ids[1] != convs[1].ID {
		t.Fatalf("expected first two conversions, got %v", ids)
	}

	if ids := SelectForPayout(convs, dec("50")); len(ids) != 0 {
		t.Fatalf("expected nothing consumed when the oldest overshoots, got %v", ids)
	}
}

func TestComputeBalance(t *testing.T) {
	b := ComputeBalance(Totals{
		Held:             dec("25"),
		Available:        dec("40"),
		Paid:             dec("90"),
		CompletedPayouts: dec("100"),
		PendingPayouts:   dec("10"),
	})
	if !b.Available.Equal(dec("20")) {
		t.Fatalf("expected available 20, got %s", b.Available)
	}
	if !b.Held.Equal(dec("25")) || !b.Released.Equal(dec("130")) {
		t.Fatalf("unexpected balance %+v", b)
	}
}

func TestConversionRate(t *testing.T) {
	if got := ConversionRate(1, 3); !got.Equal(dec("0.3333")) {
		t.Fatalf("expected 0.3333, got %s", got)
	}
	if !ConversionRate(0, 0).IsZero() {
		t.Fatal("expected zero rate without calls")
	}
}
