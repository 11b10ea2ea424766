package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

type payoutInput struct {
	Amount decimal.Decimal `validate:"required,money_positive"`
}

type trackInput struct {
	Code string `validate:"required,referral_code"`
}

func TestMoneyPositive(t *testing.T) {
	v := New()

	cases := []struct {
		name    string
		amount  decimal.Decimal
		wantErr bool
	}{
		{name: "positive", amount: decimal.RequireFromString("120.00")},
		{name: "zero", amount: decimal.Zero, wantErr: true},
		{name: "negative", amount: decimal.RequireFromString("-5"), wantErr: true},
	}

	for _, tc := range cases {
		err := v.Struct(payoutInput{Amount: tc.amount})
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: expected error=%v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestReferralCode(t *testing.T) {
	v := New()

	if err := v.Struct(trackInput{Code: "PARTNER_42"}); err != nil {
		t.Fatalf("expected valid code, got %v", err)
	}
	if err := v.Struct(trackInput{Code: "no spaces"}); err == nil {
		t.Fatal("expected invalid code to fail")
	}
	if err := v.Struct(trackInput{Code: "ab"}); err == nil {
		t.Fatal("expected short code to fail")
	}
}
