package attribution

import (
	"testing"

	"affiliate_portal_backend/platform/apperr"
)

func TestEmailsMatch(t *testing.T) {
	if !EmailsMatch(" Jo@Example.com", "jo@example.com ") {
		t.Fatal("expected trimmed case-insensitive match")
	}
	if EmailsMatch("jo+promo@example.com", "jo@example.com") {
		t.Fatal("tagged address must not match exactly")
	}
	if EmailsMatch("", "") {
		t.Fatal("empty emails must not match")
	}
}

func TestEmailsSimilar(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"jo+promo@example.com", "JO@example.com", true},
		{"jo+a@example.com", "jo+b@example.com", true},
		{"jo@example.com", "jo@example.org", false},
		{"jo@example.com", "joe@example.com", false},
		{"not-an-email", "not-an-email", false},
	}
	for _, tc := range cases {
		if got := EmailsSimilar(tc.a, tc.b); got != tc.want {
			t.Fatalf("EmailsSimilar(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestResolvePartnerCode(t *testing.T) {
	appt, lead := "ALPHA", "BETA"

	code, anomaly := ResolvePartnerCode(&appt, nil)
	if code == nil || *code != "ALPHA" || anomaly != nil {
		t.Fatalf("expected appointment code without anomaly, got %v %v", code, anomaly)
	}

	code, anomaly = ResolvePartnerCode(nil, &lead)
	if code == nil || *code != "BETA" || anomaly != nil {
		t.Fatalf("expected lead code fallback, got %v %v", code, anomaly)
	}

	code, anomaly = ResolvePartnerCode(&appt, &lead)
	if code == nil || *code != "ALPHA" {
		t.Fatalf("appointment code must take precedence, got %v", code)
	}
	if anomaly == nil || anomaly.AppointmentCode != "ALPHA" || anomaly.LeadCode != "BETA" {
		t.Fatalf("expected reported anomaly, got %+v", anomaly)
	}

	same := "ALPHA"
	if _, anomaly = ResolvePartnerCode(&appt, &same); anomaly != nil {
		t.Fatal("equal codes are not an anomaly")
	}

	blank := "  "
	if code, _ = ResolvePartnerCode(&blank, nil); code != nil {
		t.Fatalf("blank code must resolve to nil, got %q", *code)
	}
}

func TestAnomalyErrIsIntegrityConflict(t *testing.T) {
	err := Anomaly{AppointmentCode: "ALPHA", LeadCode: "BETA"}.Err()
	if err.Code != apperr.CodeIntegrityAnomaly || !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("unexpected error %+v", err)
	}
	details, ok := err.Details.(map[string]string)
	if !ok || details["appointmentCode"] != "ALPHA" || details["leadCode"] != "BETA" {
		t.Fatalf("unexpected details %+v", err.Details)
	}
}
