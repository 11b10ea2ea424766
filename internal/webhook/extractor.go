package webhook

import (
	"strings"
)

// Question text fragments that mark an answer as a partner code.
var affiliatePatterns = []string{"affiliate", "referral", "referred", "partner code"}

var (
	utmSourcePatterns   = []string{"utm_source", "utm source"}
	utmMediumPatterns   = []string{"utm_medium", "utm medium"}
	utmCampaignPatterns = []string{"utm_campaign", "utm campaign"}
	phonePatterns       = []string{"phone", "mobile", "cell"}
)

// AffiliateCode returns the first non-empty answer whose question mentions an
// affiliate or referral, or nil.
func AffiliateCode(answers []QuestionAnswer) *string {
	return firstAnswer(answers, affiliatePatterns, normalizeCode)
}

// UTM returns the tracking parameters, preferring the provider's tracking
// block and falling back to answers whose question names the parameter.
func UTM(t Tracking, answers []QuestionAnswer) Tracking {
	out := Tracking{
		UTMSource:   nonBlank(t.UTMSource),
		UTMMedium:   nonBlank(t.UTMMedium),
		UTMCampaign: nonBlank(t.UTMCampaign),
	}
	if out.UTMSource == nil {
		out.UTMSource = firstAnswer(answers, utmSourcePatterns, strings.TrimSpace)
	}
	if out.UTMMedium == nil {
		out.UTMMedium = firstAnswer(answers, utmMediumPatterns, strings.TrimSpace)
	}
	if out.UTMCampaign == nil {
		out.UTMCampaign = firstAnswer(answers, utmCampaignPatterns, strings.TrimSpace)
	}
	return out
}

// PhoneFromAnswers returns a phone answer when the provider sent no reminder number.
func PhoneFromAnswers(answers []QuestionAnswer) string {
	if p := firstAnswer(answers, phonePatterns, strings.TrimSpace); p != nil {
		return *p
	}
	return ""
}

func firstAnswer(answers []QuestionAnswer, patterns []string, clean func(string) string) *string {
	for _, qa := range answers {
		if !matchesAny(strings.ToLower(qa.Question), patterns) {
			continue
		}
		if v := clean(qa.Answer); v != "" {
			return &v
		}
	}
	return nil
}

func matchesAny(question string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(question, p) {
			return true
		}
	}
	return false
}

// normalizeCode keeps the first token of an answer like "ACME (from John)".
func normalizeCode(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,;:()[]\"'")
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
