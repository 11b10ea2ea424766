package attribution

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	leaddomain "affiliate_portal_backend/internal/leads/domain"
	"affiliate_portal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestDiagnoseReportsIntegrityIssue(t *testing.T) {
	apptID := uuid.New()
	apptCode := "ALPHA"
	svc := NewService(
		fakeLeads{leads: []leaddomain.Lead{lead("kim@example.com", "BETA")}},
		fakeTargets{apptID: {AppointmentID: apptID, CustomerEmail: "kim@example.com", ReferralCode: &apptCode}},
		fakeLog{},
	)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/attribution"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attribution/appointments/"+apptID.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var body struct {
		ResolvedCode string `json:"resolvedCode"`
		Issue        *struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"issue"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ResolvedCode != "ALPHA" {
		t.Fatalf("resolvedCode = %q", body.ResolvedCode)
	}
	if body.Issue == nil || body.Issue.Code != apperr.CodeIntegrityAnomaly || body.Issue.Details["leadCode"] != "BETA" {
		t.Fatalf("unexpected issue %+v", body.Issue)
	}
}
