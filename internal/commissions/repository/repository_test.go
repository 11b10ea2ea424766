package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"affiliate_portal_backend/internal/commissions/domain"
	"affiliate_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseIsConditional(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE rac_conversions").
		WithArgs(id, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := New(mock).Release(context.Background(), id, now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseDueReturnsReleasedIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery("UPDATE rac_conversions").
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(a).AddRow(b))

	ids, err := New(mock).ReleaseDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordZeroValueSkipsDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	partnerID, leadID := uuid.New(), uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM rac_partners").
		WithArgs("ACME").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(partnerID))
	mock.ExpectQuery("INSERT INTO rac_conversions").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	inserted, err := New(mock).RecordZeroValue(context.Background(), domain.ZeroValueConversion{
		Code: "ACME", Type: domain.TypeLead, LeadID: &leadID, At: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordZeroValueIncrementsCounter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	partnerID, apptID := uuid.New(), uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM rac_partners").
		WithArgs("ACME").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(partnerID))
	mock.ExpectQuery("INSERT INTO rac_conversions").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectExec("UPDATE rac_partners SET total_bookings").
		WithArgs(partnerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	inserted, err := New(mock).RecordZeroValue(context.Background(), domain.ZeroValueConversion{
		Code: "ACME", Type: domain.TypeBooking, AppointmentID: &apptID, At: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAppointmentNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("FROM rac_appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "agent_id", "status", "outcome", "sale_value", "referral_code", "customer_email"}))

	_, err = New(mock).LoadAppointment(context.Background(), id)
	assert.True(t, apperr.HasCode(err, apperr.CodeAppointmentNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutePayoutMissingPartner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err = New(mock).ExecutePayout(context.Background(), id, func(domain.PayoutSnapshot) (domain.PayoutPlan, error) {
		t.Fatal("plan must not run for a missing partner")
		return domain.PayoutPlan{}, nil
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

var (
	apptStateCols  = []string{"id", "agent_id", "status", "outcome", "sale_value", "referral_code", "customer_email"}
	conversionCols = []string{"id", "partner_id", "appointment_id", "lead_id", "conversion_type", "sale_value",
		"commission_amount", "commission_status", "hold_until", "released_at", "paid_at", "payout_id", "created_at"}
)

type saleFixture struct {
	apptID, agentID, partnerID uuid.UUID
	now                        time.Time
}

func newSaleFixture() saleFixture {
	return saleFixture{
		apptID: uuid.New(), agentID: uuid.New(), partnerID: uuid.New(),
		now: time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
}

// expectLockedReads queues the reads MarkOutcome performs before any write.
func (f saleFixture) expectLockedReads(mock pgxmock.PgxPoolIface) {
	code := "ACME"
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rac_appointments WHERE id = \$1 FOR UPDATE`).
		WithArgs(f.apptID).
		WillReturnRows(pgxmock.NewRows(apptStateCols).
			AddRow(f.apptID, &f.agentID, "confirmed", nil, nil, &code, "kim@example.com"))
	mock.ExpectQuery(`FROM rac_agents WHERE id = \$1 FOR UPDATE`).
		WithArgs(f.agentID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "commission_rate", "total_calls", "total_conversions", "total_revenue"}).
			AddRow(f.agentID, decimal.RequireFromString("0.05"), 3, 1, decimal.NewFromInt(500)))
	mock.ExpectQuery("FROM rac_partners WHERE referral_code").
		WithArgs("ACME").
		WillReturnRows(pgxmock.NewRows([]string{"id", "commission_rate", "is_active"}).
			AddRow(f.partnerID, decimal.RequireFromString("0.10"), true))
	mock.ExpectExec("UPDATE rac_appointments").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE rac_agents").
		WithArgs(f.agentID, 4, 2, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
}

func (f saleFixture) plan(snap domain.OutcomeSnapshot) (domain.OutcomePlan, error) {
	sale := decimal.NewFromInt(2000)
	return domain.PlanOutcome(snap, domain.OutcomeInput{Outcome: domain.OutcomeConverted, SaleValue: &sale}, 30*24*time.Hour, f.now)
}

func TestMarkOutcomeInsertsSaleAndCreditsPartnerOnce(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	f := newSaleFixture()
	f.expectLockedReads(mock)
	mock.ExpectQuery("INSERT INTO rac_conversions").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectExec(`UPDATE rac_partners\s+SET total_commission = total_commission \+ \$2, total_sales = total_sales \+ 1`).
		WithArgs(f.partnerID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	result, err := New(mock).MarkOutcome(context.Background(), f.apptID, nil, f.plan)
	require.NoError(t, err)
	assert.True(t, result.SaleInserted)
	require.NotNil(t, result.Plan.Sale)
	assert.Equal(t, f.partnerID, result.Plan.Sale.PartnerID)
	assert.Equal(t, "200.00", result.Plan.Sale.CommissionAmount.StringFixed(2))
	assert.Equal(t, domain.StatusHeld, result.Plan.Sale.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOutcomeDuplicateSaleLeavesPartnerUntouched(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	f := newSaleFixture()
	f.expectLockedReads(mock)
	mock.ExpectQuery("ON CONFLICT DO NOTHING").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	result, err := New(mock).MarkOutcome(context.Background(), f.apptID, nil, f.plan)
	require.NoError(t, err)
	assert.False(t, result.SaleInserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOutcomeRollsBackWhenPartnerCreditFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	f := newSaleFixture()
	f.expectLockedReads(mock)
	mock.ExpectQuery("INSERT INTO rac_conversions").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectExec("UPDATE rac_partners").
		WithArgs(f.partnerID, pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	result, err := New(mock).MarkOutcome(context.Background(), f.apptID, nil, f.plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update partner commission")
	assert.False(t, result.SaleInserted)
	assert.Nil(t, result.Plan.Sale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type payoutFixture struct {
	partnerID uuid.UUID
	convs     []domain.Conversion
	now       time.Time
}

func newPayoutFixture(amounts ...int64) payoutFixture {
	f := payoutFixture{partnerID: uuid.New(), now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	for i, a := range amounts {
		c := domain.NewHeldConversion(f.partnerID, domain.TypeSale, decimal.NewFromInt(a), f.now.Add(time.Duration(i-60)*24*time.Hour), 0)
		c.Status = domain.StatusAvailable
		f.convs = append(f.convs, c)
	}
	return f
}

func (f payoutFixture) expectSnapshot(mock pgxmock.PgxPoolIface) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM rac_partners WHERE id = \$1 FOR UPDATE`).
		WithArgs(f.partnerID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(f.partnerID))
	available := decimal.Zero
	for _, c := range f.convs {
		available = available.Add(c.CommissionAmount)
	}
	mock.ExpectQuery("SUM\\(commission_amount\\)").
		WithArgs(f.partnerID).
		WillReturnRows(pgxmock.NewRows([]string{"held", "available", "paid", "completed", "pending"}).
			AddRow(decimal.Zero, available, decimal.Zero, decimal.Zero, decimal.Zero))
	rows := pgxmock.NewRows(conversionCols)
	for _, c := range f.convs {
		rows.AddRow(c.ID, c.PartnerID, c.AppointmentID, c.LeadID, string(c.Type), c.SaleValue, c.CommissionAmount,
			string(c.Status), c.HoldUntil, c.ReleasedAt, c.PaidAt, c.PayoutID, c.CreatedAt)
	}
	mock.ExpectQuery(`commission_status = 'available'\s+ORDER BY created_at, id`).
		WithArgs(f.partnerID).
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO rac_payouts").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func (f payoutFixture) plan(amount int64) func(domain.PayoutSnapshot) (domain.PayoutPlan, error) {
	return func(snap domain.PayoutSnapshot) (domain.PayoutPlan, error) {
		out := domain.Payout{
			ID: uuid.New(), PartnerID: snap.PartnerID, Amount: decimal.NewFromInt(amount),
			Status: domain.PayoutCompleted, CreatedAt: f.now, CompletedAt: &f.now,
		}
		return domain.PayoutPlan{Payout: out, ConversionIDs: domain.SelectForPayout(snap.Available, out.Amount)}, nil
	}
}

func TestExecutePayoutMarksOldestConversionsPaid(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	f := newPayoutFixture(100, 50, 80)
	f.expectSnapshot(mock)
	mock.ExpectExec("UPDATE rac_conversions\\s+SET commission_status = 'paid'").
		WithArgs([]uuid.UUID{f.convs[0].ID, f.convs[1].ID}, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	p, err := New(mock).ExecutePayout(context.Background(), f.partnerID, f.plan(150))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.convs[0].ID, f.convs[1].ID}, p.ConversionIDs)
	assert.Equal(t, f.partnerID, p.Payout.PartnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutePayoutConflictsWhenConversionsChanged(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	f := newPayoutFixture(100, 50)
	f.expectSnapshot(mock)
	mock.ExpectExec("UPDATE rac_conversions").
		WithArgs([]uuid.UUID{f.convs[0].ID, f.convs[1].ID}, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectRollback()

	p, err := New(mock).ExecutePayout(context.Background(), f.partnerID, f.plan(150))
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Empty(t, p.ConversionIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
