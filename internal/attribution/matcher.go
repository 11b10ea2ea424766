// Package attribution links leads to appointments by email and decides which
// partner code a sale is attributed to.
package attribution

import (
	"strings"

	"affiliate_portal_backend/internal/leads/domain"
	"affiliate_portal_backend/platform/apperr"
)

// EmailsMatch is the only rule used for financial attribution: trimmed,
// case-insensitive equality.
func EmailsMatch(a, b string) bool {
	na, nb := domain.NormalizeEmail(a), domain.NormalizeEmail(b)
	return na != "" && na == nb
}

// EmailsSimilar reports a looser match for diagnostics: identical domains and
// local parts equal after dropping a "+tag" suffix. Exact matches are also
// similar.
func EmailsSimilar(a, b string) bool {
	la, da, ok := splitEmail(a)
	if !ok {
		return false
	}
	lb, db, ok := splitEmail(b)
	if !ok {
		return false
	}
	return da == db && stripTag(la) == stripTag(lb)
}

// Anomaly is a conflict between the appointment's partner code and the code
// on the lead matched to it. It is reported, never resolved.
type Anomaly struct {
	AppointmentCode string `json:"appointmentCode"`
	LeadCode        string `json:"leadCode"`
}

// Err describes the anomaly as an integrity error.
func (a Anomaly) Err() *apperr.Error {
	return apperr.IntegrityAnomaly("appointment partner code differs from matched lead").
		WithDetails(map[string]string{"appointmentCode": a.AppointmentCode, "leadCode": a.LeadCode})
}

// ResolvePartnerCode applies attribution precedence: the appointment's own code
// wins, the matched lead's code is the fallback. Two different non-empty codes
// yield an Anomaly alongside the appointment's code.
func ResolvePartnerCode(appointmentCode, leadCode *string) (*string, *Anomaly) {
	apptCode := nonEmpty(appointmentCode)
	lCode := nonEmpty(leadCode)

	switch {
	case apptCode != nil && lCode != nil && *apptCode != *lCode:
		return apptCode, &Anomaly{AppointmentCode: *apptCode, LeadCode: *lCode}
	case apptCode != nil:
		return apptCode, nil
	default:
		return lCode, nil
	}
}

func splitEmail(s string) (local, domainPart string, ok bool) {
	n := domain.NormalizeEmail(s)
	at := strings.LastIndex(n, "@")
	if at <= 0 || at == len(n)-1 {
		return "", "", false
	}
	return n[:at], n[at+1:], true
}

func stripTag(local string) string {
	if i := strings.Index(local, "+"); i >= 0 {
		return local[:i]
	}
	return local
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
