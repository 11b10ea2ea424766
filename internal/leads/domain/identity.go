package domain

import "strings"

// Question types recognized by the resolver.
const (
	QuestionTypeEmail = "email"
	QuestionTypeText  = "text"
)

// Identity is the best-effort name and email of a lead. Nil means unresolved.
type Identity struct {
	Name  *string
	Email *string
}

// Actionable reports whether both name and email resolved.
func (i Identity) Actionable() bool {
	return i.Name != nil && i.Email != nil
}

// ResolveIdentity scans answers in order. The email is the first answer whose
// prompt mentions "email" or whose type is email, trimmed and lower-cased.
// The name is the first answer whose prompt mentions "name"; failing that,
// the first free-text answer that does not look like an email.
func ResolveIdentity(answers []Answer) Identity {
	var id Identity

	for _, a := range answers {
		if id.Email == nil && isEmailQuestion(a) {
			if v := NormalizeEmail(a.Value); v != "" {
				id.Email = &v
			}
		}
		if id.Name == nil && strings.Contains(strings.ToLower(a.Prompt), "name") && !isEmailQuestion(a) {
			if v := strings.TrimSpace(a.Value); v != "" {
				id.Name = &v
			}
		}
	}

	if id.Name == nil {
		for _, a := range answers {
			if !strings.EqualFold(a.Type, QuestionTypeText) || isEmailQuestion(a) {
				continue
			}
			v := strings.TrimSpace(a.Value)
			if v != "" && !LooksLikeEmail(v) {
				id.Name = &v
				break
			}
		}
	}

	return id
}

// IsActionableLead is the gate used by lead counts, CRM views and lead
// conversions: both name and email must resolve.
func IsActionableLead(answers []Answer) bool {
	return ResolveIdentity(answers).Actionable()
}

// NormalizeEmail trims and lower-cases an address for comparison.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LooksLikeEmail is a shape check, not validation.
func LooksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

func isEmailQuestion(a Answer) bool {
	return strings.EqualFold(a.Type, QuestionTypeEmail) || strings.Contains(strings.ToLower(a.Prompt), "email")
}
