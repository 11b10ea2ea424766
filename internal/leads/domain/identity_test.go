package domain

import "testing"

func TestResolveIdentity(t *testing.T) {
	cases := []struct {
		name       string
		answers    []Answer
		wantName   string
		wantEmail  string
		actionable bool
	}{
		{
			name: "both fields",
			answers: []Answer{
				{QuestionID: "q1", Prompt: "How much do you invest monthly?", Type: "choice", Value: "500"},
				{QuestionID: "q2", Prompt: "What's your first name?", Type: QuestionTypeText, Value: "  Dana "},
				{QuestionID: "q3", Prompt: "Your email address", Type: QuestionTypeText, Value: " Dana@Example.com "},
			},
			wantName:   "Dana",
			wantEmail:  "dana@example.com",
			actionable: true,
		},
		{
			name: "email only",
			answers: []Answer{
				{QuestionID: "q3", Prompt: "Where should we send results?", Type: QuestionTypeEmail, Value: "lee@example.com"},
			},
			wantEmail: "lee@example.com",
		},
		{
			name: "name only",
			answers: []Answer{
				{QuestionID: "q2", Prompt: "Full name", Type: QuestionTypeText, Value: "Lee Park"},
			},
			wantName: "Lee Park",
		},
		{
			name: "neither",
			answers: []Answer{
				{QuestionID: "q1", Prompt: "Pick a goal", Type: "choice", Value: "retire early"},
				{QuestionID: "q2", Prompt: "Email", Type: QuestionTypeEmail, Value: "   "},
			},
		},
		{
			name: "free text fallback skips email-shaped values",
			answers: []Answer{
				{QuestionID: "q1", Prompt: "Anything else?", Type: QuestionTypeText, Value: "sam@example.com"},
				{QuestionID: "q2", Prompt: "Tell us who you are", Type: QuestionTypeText, Value: "Sam"},
				{QuestionID: "q3", Prompt: "Email", Type: QuestionTypeEmail, Value: "SAM@example.com"},
			},
			wantName:   "Sam",
			wantEmail:  "sam@example.com",
			actionable: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := ResolveIdentity(tc.answers)
			if got := deref(id.Name); got != tc.wantName {
				t.Fatalf("expected name %q, got %q", tc.wantName, got)
			}
			if got := deref(id.Email); got != tc.wantEmail {
				t.Fatalf("expected email %q, got %q", tc.wantEmail, got)
			}
			if IsActionableLead(tc.answers) != tc.actionable {
				t.Fatalf("expected actionable=%v", tc.actionable)
			}
			if (id.Name != nil && id.Email != nil) != tc.actionable {
				t.Fatalf("actionable must equal name and email both resolved")
			}
		})
	}
}

func TestResolveIdentityEmptyAnswers(t *testing.T) {
	id := ResolveIdentity(nil)
	if id.Name != nil || id.Email != nil {
		t.Fatalf("expected unresolved identity, got %+v", id)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
